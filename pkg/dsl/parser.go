package dsl

// sketchKeywords start sketch statements, so a circle radius is never
// followed by one of them as a unit.
var sketchKeywords = map[string]bool{
	"line":         true,
	"circle":       true,
	"rectangle":    true,
	"horizontal":   true,
	"vertical":     true,
	"coincident":   true,
	"dim_length":   true,
	"dim_diameter": true,
}

// parser is a recursive-descent parser with one token of lookahead.
type parser struct {
	toks []Token
	pos  int
}

// ParseFile parses DSL source into a syntax tree without typing arguments.
func ParseFile(src string) (*File, error) {
	toks, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	return p.parseFile()
}

func (p *parser) peek() Token {
	return p.toks[p.pos]
}

func (p *parser) next() Token {
	t := p.toks[p.pos]
	if t.Kind != EOF {
		p.pos++
	}
	return t
}

func (p *parser) isKeyword(word string) bool {
	t := p.peek()
	return t.Kind == IDENT && t.Text == word
}

func (p *parser) expect(kind TokenKind) (Token, error) {
	t := p.next()
	if t.Kind != kind {
		return t, syntaxErrorf(t.Pos, "expected %s, found %s", kind, t.describe())
	}
	return t, nil
}

func (p *parser) expectKeyword(word string) (Token, error) {
	t := p.next()
	if t.Kind != IDENT || t.Text != word {
		return t, syntaxErrorf(t.Pos, "expected %q, found %s", word, t.describe())
	}
	return t, nil
}

func (p *parser) ident() (Ident, error) {
	t, err := p.expect(IDENT)
	if err != nil {
		return Ident{}, err
	}
	return Ident{Pos: t.Pos, Name: t.Text}, nil
}

func (p *parser) number() (float64, error) {
	t, err := p.expect(NUMBER)
	if err != nil {
		return 0, err
	}
	return t.Num, nil
}

// optionalUnit consumes an identifier directly following a number.
func (p *parser) optionalUnit() string {
	if p.peek().Kind == IDENT {
		return p.next().Text
	}
	return ""
}

func (p *parser) parseFile() (*File, error) {
	if _, err := p.expectKeyword("part"); err != nil {
		return nil, err
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(LBRACE); err != nil {
		return nil, err
	}
	f := &File{Name: name.Name, NamePos: name.Pos}
	for p.peek().Kind != RBRACE {
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		f.Stmts = append(f.Stmts, stmt)
	}
	p.next()
	if t := p.peek(); t.Kind != EOF {
		return nil, syntaxErrorf(t.Pos, "unexpected %s after part block", t.describe())
	}
	return f, nil
}

func (p *parser) parseStmt() (Stmt, error) {
	t := p.peek()
	if t.Kind == IDENT {
		switch t.Text {
		case "param":
			return p.parseParam()
		case "feature", "critical":
			return p.parseFeature()
		case "chain":
			return p.parseChain()
		case "sketch":
			return p.parseSketch()
		}
	}
	return nil, syntaxErrorf(t.Pos, "expected param, feature, chain or sketch, found %s", t.describe())
}

func (p *parser) parseParam() (Stmt, error) {
	start := p.next().Pos
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(ASSIGN); err != nil {
		return nil, err
	}
	v, err := p.number()
	if err != nil {
		return nil, err
	}
	unit, err := p.ident()
	if err != nil {
		return nil, err
	}
	s := &ParamStmt{Pos: start, Name: name.Name, Value: v, Unit: unit.Name}
	if p.isKeyword("tolerance") {
		p.next()
		class, err := p.ident()
		if err != nil {
			return nil, err
		}
		s.Tolerance = class.Name
	}
	return s, nil
}

func (p *parser) parseFeature() (Stmt, error) {
	s := &FeatureStmt{Pos: p.peek().Pos}
	if p.isKeyword("critical") {
		p.next()
		s.Critical = true
	}
	if _, err := p.expectKeyword("feature"); err != nil {
		return nil, err
	}
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	s.Name = name.Name
	if _, err := p.expect(ASSIGN); err != nil {
		return nil, err
	}
	typ, err := p.ident()
	if err != nil {
		return nil, err
	}
	if typ.Name != "sketch" && typ.Name != "extrude" {
		return nil, syntaxErrorf(typ.Pos, "unknown feature type %q", typ.Name)
	}
	s.Type, s.TypePos = typ.Name, typ.Pos
	if s.Args, err = p.parseArgs(); err != nil {
		return nil, err
	}
	if p.peek().Kind == LBRACE {
		if s.Type != "sketch" {
			return nil, syntaxErrorf(p.peek().Pos, "%s feature cannot have a sketch body", s.Type)
		}
		if s.Body, err = p.parseSketchBody(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (p *parser) parseSketch() (Stmt, error) {
	start := p.next().Pos
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	s := &SketchStmt{Pos: start, Name: name.Name}
	if s.Args, err = p.parseArgs(); err != nil {
		return nil, err
	}
	if s.Body, err = p.parseSketchBody(); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *parser) parseChain() (Stmt, error) {
	start := p.next().Pos
	name, err := p.ident()
	if err != nil {
		return nil, err
	}
	s := &ChainStmt{Pos: start, Name: name.Name}
	if _, err := p.expect(LBRACE); err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("terms"); err != nil {
		return nil, err
	}
	if _, err := p.expect(ASSIGN); err != nil {
		return nil, err
	}
	if _, err := p.expect(LBRACKET); err != nil {
		return nil, err
	}
	if p.peek().Kind != RBRACKET {
		for {
			term, err := p.ident()
			if err != nil {
				return nil, err
			}
			s.Terms = append(s.Terms, term)
			if p.peek().Kind != COMMA {
				break
			}
			p.next()
		}
	}
	if _, err := p.expect(RBRACKET); err != nil {
		return nil, err
	}
	if p.isKeyword("target_value") {
		p.next()
		if _, err := p.expect(ASSIGN); err != nil {
			return nil, err
		}
		v, err := p.number()
		if err != nil {
			return nil, err
		}
		s.TargetValue = &v
	}
	if p.isKeyword("target_tolerance") {
		p.next()
		if _, err := p.expect(ASSIGN); err != nil {
			return nil, err
		}
		v, err := p.number()
		if err != nil {
			return nil, err
		}
		s.TargetTolerance = &v
	}
	if _, err := p.expect(RBRACE); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *parser) parseArgs() ([]ArgNode, error) {
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	var args []ArgNode
	if p.peek().Kind == RPAREN {
		p.next()
		return args, nil
	}
	for {
		key, err := p.ident()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(ASSIGN); err != nil {
			return nil, err
		}
		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		args = append(args, ArgNode{Pos: key.Pos, Key: key.Name, Value: v})
		t := p.next()
		if t.Kind == RPAREN {
			return args, nil
		}
		if t.Kind != COMMA {
			return nil, syntaxErrorf(t.Pos, "expected ',' or ')', found %s", t.describe())
		}
	}
}

func (p *parser) parseValue() (ValueNode, error) {
	t := p.next()
	switch t.Kind {
	case IDENT:
		return ValueNode{Pos: t.Pos, Kind: ValueIdent, Text: t.Text}, nil
	case STRING:
		return ValueNode{Pos: t.Pos, Kind: ValueString, Text: t.Text}, nil
	case NUMBER:
		if unit := p.optionalUnit(); unit != "" {
			return ValueNode{Pos: t.Pos, Kind: ValueQuantity, Num: t.Num, Unit: unit}, nil
		}
		return ValueNode{Pos: t.Pos, Kind: ValueNumber, Num: t.Num}, nil
	case LBRACKET:
		v := ValueNode{Pos: t.Pos, Kind: ValueVector}
		for i := 0; i < 3; i++ {
			if i > 0 {
				if _, err := p.expect(COMMA); err != nil {
					return v, err
				}
			}
			n, err := p.number()
			if err != nil {
				return v, err
			}
			v.Vec[i] = n
		}
		if _, err := p.expect(RBRACKET); err != nil {
			return v, err
		}
		return v, nil
	}
	return ValueNode{}, syntaxErrorf(t.Pos, "expected a value, found %s", t.describe())
}

func (p *parser) parseSketchBody() (*SketchBody, error) {
	open, err := p.expect(LBRACE)
	if err != nil {
		return nil, err
	}
	body := &SketchBody{Pos: open.Pos}
	for p.peek().Kind != RBRACE {
		item, err := p.parseSketchItem()
		if err != nil {
			return nil, err
		}
		body.Items = append(body.Items, item)
	}
	p.next()
	return body, nil
}

func (p *parser) parseSketchItem() (SketchItem, error) {
	t := p.peek()
	if t.Kind != IDENT {
		return nil, syntaxErrorf(t.Pos, "expected a sketch statement, found %s", t.describe())
	}
	switch t.Text {
	case "line", "rectangle":
		p.next()
		id, err := p.ident()
		if err != nil {
			return nil, err
		}
		n := &EntityNode{Pos: t.Pos, Kind: t.Text, ID: id.Name}
		if _, err := p.expectKeyword("from"); err != nil {
			return nil, err
		}
		if n.P1, err = p.parsePoint(); err != nil {
			return nil, err
		}
		if _, err := p.expectKeyword("to"); err != nil {
			return nil, err
		}
		if n.P2, err = p.parsePoint(); err != nil {
			return nil, err
		}
		return n, nil

	case "circle":
		p.next()
		id, err := p.ident()
		if err != nil {
			return nil, err
		}
		n := &EntityNode{Pos: t.Pos, Kind: t.Text, ID: id.Name}
		if _, err := p.expectKeyword("center"); err != nil {
			return nil, err
		}
		if n.P1, err = p.parsePoint(); err != nil {
			return nil, err
		}
		if _, err := p.expectKeyword("radius"); err != nil {
			return nil, err
		}
		if n.Radius, err = p.number(); err != nil {
			return nil, err
		}
		if t := p.peek(); t.Kind == IDENT && !sketchKeywords[t.Text] {
			n.Unit = p.next().Text
		}
		return n, nil

	case "horizontal", "vertical", "coincident":
		p.next()
		n := &ConstraintNode{Pos: t.Pos, Kind: t.Text}
		if _, err := p.expect(LPAREN); err != nil {
			return nil, err
		}
		for {
			id, err := p.ident()
			if err != nil {
				return nil, err
			}
			n.IDs = append(n.IDs, id)
			if p.peek().Kind != COMMA {
				break
			}
			p.next()
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return n, nil

	case "dim_length", "dim_diameter":
		p.next()
		n := &DimensionNode{Pos: t.Pos, Kind: t.Text}
		if _, err := p.expect(LPAREN); err != nil {
			return nil, err
		}
		var err error
		if n.ID, err = p.ident(); err != nil {
			return nil, err
		}
		if _, err := p.expect(COMMA); err != nil {
			return nil, err
		}
		if n.Value, err = p.number(); err != nil {
			return nil, err
		}
		n.Unit = p.optionalUnit()
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return n, nil
	}
	return nil, syntaxErrorf(t.Pos, "unknown sketch statement %q", t.Text)
}

func (p *parser) parsePoint() ([2]float64, error) {
	var pt [2]float64
	if _, err := p.expect(LPAREN); err != nil {
		return pt, err
	}
	var err error
	if pt[0], err = p.number(); err != nil {
		return pt, err
	}
	if _, err := p.expect(COMMA); err != nil {
		return pt, err
	}
	if pt[1], err = p.number(); err != nil {
		return pt, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return pt, err
	}
	return pt, nil
}
