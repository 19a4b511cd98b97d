package dsl

// File is the syntax tree of one part definition.
type File struct {
	Name    string
	NamePos Pos
	Stmts   []Stmt
}

// Stmt is a top-level statement inside a part block.
type Stmt interface {
	stmtNode()
	Position() Pos
}

// ParamStmt declares a parameter: param NAME = NUMBER UNIT [tolerance CLASS].
type ParamStmt struct {
	Pos       Pos
	Name      string
	Value     float64
	Unit      string
	Tolerance string
}

// FeatureStmt declares a feature. Body is only set for sketch features.
type FeatureStmt struct {
	Pos      Pos
	Critical bool
	Name     string
	Type     string
	TypePos  Pos
	Args     []ArgNode
	Body     *SketchBody
}

// ChainStmt declares a dimensional chain.
type ChainStmt struct {
	Pos             Pos
	Name            string
	Terms           []Ident
	TargetValue     *float64
	TargetTolerance *float64
}

// SketchStmt declares a free-standing sketch.
type SketchStmt struct {
	Pos  Pos
	Name string
	Args []ArgNode
	Body *SketchBody
}

func (*ParamStmt) stmtNode()   {}
func (*FeatureStmt) stmtNode() {}
func (*ChainStmt) stmtNode()   {}
func (*SketchStmt) stmtNode()  {}

func (s *ParamStmt) Position() Pos   { return s.Pos }
func (s *FeatureStmt) Position() Pos { return s.Pos }
func (s *ChainStmt) Position() Pos   { return s.Pos }
func (s *SketchStmt) Position() Pos  { return s.Pos }

// Ident is a positioned identifier.
type Ident struct {
	Pos  Pos
	Name string
}

// ArgNode is a key = value argument.
type ArgNode struct {
	Pos   Pos
	Key   string
	Value ValueNode
}

// ValueKind tags the syntactic form of an argument value.
type ValueKind int

const (
	ValueIdent ValueKind = iota
	ValueString
	ValueNumber
	ValueQuantity
	ValueVector
)

// ValueNode is an untyped argument value. Typing into ir.Value happens in
// the transformer, once every parameter name is known.
type ValueNode struct {
	Pos  Pos
	Kind ValueKind
	Text string // identifier name or string contents
	Num  float64
	Unit string
	Vec  [3]float64
}

// SketchBody holds the statements of a sketch block in source order.
type SketchBody struct {
	Pos   Pos
	Items []SketchItem
}

// SketchItem is an entity, constraint or dimension statement.
type SketchItem interface {
	sketchItem()
	Position() Pos
}

// EntityNode declares a line, circle or rectangle. For circles P1 is the
// center and Radius is set.
type EntityNode struct {
	Pos    Pos
	Kind   string
	ID     string
	P1, P2 [2]float64
	Radius float64
	Unit   string
}

// ConstraintNode applies a geometric constraint to entities.
type ConstraintNode struct {
	Pos  Pos
	Kind string
	IDs  []Ident
}

// DimensionNode annotates one entity with a value.
type DimensionNode struct {
	Pos   Pos
	Kind  string
	ID    Ident
	Value float64
	Unit  string
}

func (*EntityNode) sketchItem()     {}
func (*ConstraintNode) sketchItem() {}
func (*DimensionNode) sketchItem()  {}

func (n *EntityNode) Position() Pos     { return n.Pos }
func (n *ConstraintNode) Position() Pos { return n.Pos }
func (n *DimensionNode) Position() Pos  { return n.Pos }
