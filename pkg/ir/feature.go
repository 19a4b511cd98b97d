package ir

// FeatureKind enumerates feature types.
type FeatureKind int

const (
	FeatureSketch FeatureKind = iota
	FeatureExtrude
	FeatureUnsupported
)

func (k FeatureKind) String() string {
	switch k {
	case FeatureSketch:
		return "sketch"
	case FeatureExtrude:
		return "extrude"
	default:
		return "unsupported"
	}
}

// Operation is how an extrusion combines with existing geometry.
type Operation string

const (
	OpJoin Operation = "join"
	OpCut  Operation = "cut"
)

// Reserved mode words accepted as bare identifiers in feature arguments.
const (
	ModeThroughAll = "through_all"
	ModeToNext     = "to_next"
	ModeNormal     = "normal"
	ModeReverse    = "reverse"
)

var reservedWords = map[string]bool{
	ModeThroughAll: true,
	ModeToNext:     true,
	string(OpJoin): true,
	string(OpCut):  true,
	ModeNormal:     true,
	ModeReverse:    true,
	"start":        true,
	"end":          true,
}

// IsReservedWord reports whether s is a mode word that never names a
// parameter.
func IsReservedWord(s string) bool { return reservedWords[s] }

// Feature is one ordered construction step of a Part.
type Feature struct {
	Name     string
	Critical bool
	Spec     FeatureSpec
}

// Kind returns the kind of the feature's spec.
func (f Feature) Kind() FeatureKind {
	if f.Spec == nil {
		return FeatureUnsupported
	}
	return f.Spec.Kind()
}

// FeatureSpec is the kind-specific payload of a Feature.
type FeatureSpec interface {
	featureSpec() // marker method restricting implementations to this package
	Kind() FeatureKind
}

// SketchFeature places an embedded sketch into the feature sequence. It
// builds no geometry but can be referenced by later extrusions.
type SketchFeature struct {
	Sketch *Sketch
}

func (*SketchFeature) featureSpec() {}

func (*SketchFeature) Kind() FeatureKind { return FeatureSketch }

// ExtrudeFeature sweeps a sketch's profiles along a direction.
type ExtrudeFeature struct {
	// Sketch names the sketch to extrude; empty when the argument is missing.
	Sketch string
	// Distance is a Number, a Ref, or Text holding a mode word or a
	// "value unit" quantity. Nil when missing.
	Distance  Value
	Operation Operation
	// Direction is nil (plane normal), Text ("normal", "reverse",
	// "[x,y,z]") or a Vector.
	Direction Value
	// Extra holds arguments the extrude does not interpret, kept for
	// lossless round trips.
	Extra []Arg
}

func (*ExtrudeFeature) featureSpec() {}

func (*ExtrudeFeature) Kind() FeatureKind { return FeatureExtrude }

// Args returns the extrude's arguments in canonical order.
func (e *ExtrudeFeature) Args() []Arg {
	var args []Arg
	if e.Sketch != "" {
		args = append(args, Arg{Key: "sketch", Value: Text{S: e.Sketch}})
	}
	if e.Distance != nil {
		args = append(args, Arg{Key: "distance", Value: e.Distance})
	}
	if e.Operation != "" {
		args = append(args, Arg{Key: "operation", Value: Text{S: string(e.Operation)}})
	}
	if e.Direction != nil {
		args = append(args, Arg{Key: "direction", Value: e.Direction})
	}
	return append(args, e.Extra...)
}

// UnsupportedFeature carries a feature of a type this system does not
// compile. The grammar never produces it; decoding a foreign document can.
type UnsupportedFeature struct {
	Type string
	Args []Arg
}

func (*UnsupportedFeature) featureSpec() {}

func (*UnsupportedFeature) Kind() FeatureKind { return FeatureUnsupported }

// Clone returns a deep copy of the feature.
func (f Feature) Clone() Feature {
	out := Feature{Name: f.Name, Critical: f.Critical}
	switch s := f.Spec.(type) {
	case *SketchFeature:
		out.Spec = &SketchFeature{Sketch: s.Sketch.Clone()}
	case *ExtrudeFeature:
		c := *s
		c.Extra = append([]Arg(nil), s.Extra...)
		out.Spec = &c
	case *UnsupportedFeature:
		out.Spec = &UnsupportedFeature{Type: s.Type, Args: append([]Arg(nil), s.Args...)}
	}
	return out
}

// Values returns every argument value of the feature in canonical order.
// Sketch features contribute their plane.
func (f Feature) Values() []Arg {
	switch s := f.Spec.(type) {
	case *SketchFeature:
		if s.Sketch == nil {
			return nil
		}
		return []Arg{{Key: "on_plane", Value: Text{S: s.Sketch.Plane}}}
	case *ExtrudeFeature:
		return s.Args()
	case *UnsupportedFeature:
		return s.Args
	}
	return nil
}
