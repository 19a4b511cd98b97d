package ir

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

// Document is the plain nested form of a Part used for transport and for
// lossless storage. It marshals to both JSON and YAML.
type Document struct {
	Name     string              `json:"name" yaml:"name"`
	Params   map[string]ParamDoc `json:"params" yaml:"params"`
	Features []FeatureDoc        `json:"features" yaml:"features"`
	Chains   []ChainDoc          `json:"chains" yaml:"chains"`
	Sketches []SketchDoc         `json:"sketches" yaml:"sketches"`
}

type ParamDoc struct {
	Name           string  `json:"name" yaml:"name"`
	Value          float64 `json:"value" yaml:"value"`
	Unit           string  `json:"unit" yaml:"unit"`
	ToleranceClass *string `json:"tolerance_class" yaml:"tolerance_class"`
}

type FeatureDoc struct {
	Type     string         `json:"type" yaml:"type"`
	Name     string         `json:"name" yaml:"name"`
	Params   map[string]any `json:"params" yaml:"params"`
	Sketch   *SketchDoc     `json:"sketch,omitempty" yaml:"sketch,omitempty"`
	Critical bool           `json:"critical" yaml:"critical"`
}

type ChainDoc struct {
	Name            string   `json:"name" yaml:"name"`
	Terms           []string `json:"terms" yaml:"terms"`
	TargetValue     *float64 `json:"target_value,omitempty" yaml:"target_value,omitempty"`
	TargetTolerance *float64 `json:"target_tolerance,omitempty" yaml:"target_tolerance,omitempty"`
}

type SketchDoc struct {
	Name        string          `json:"name" yaml:"name"`
	Plane       string          `json:"plane" yaml:"plane"`
	Entities    []EntityDoc     `json:"entities" yaml:"entities"`
	Constraints []ConstraintDoc `json:"constraints" yaml:"constraints"`
	Dimensions  []DimensionDoc  `json:"dimensions" yaml:"dimensions"`
	Profiles    []ProfileDoc    `json:"profiles" yaml:"profiles"`
}

type EntityDoc struct {
	ID      string      `json:"id" yaml:"id"`
	Type    string      `json:"type" yaml:"type"`
	Start   *[2]float64 `json:"start,omitempty" yaml:"start,omitempty,flow"`
	End     *[2]float64 `json:"end,omitempty" yaml:"end,omitempty,flow"`
	Center  *[2]float64 `json:"center,omitempty" yaml:"center,omitempty,flow"`
	Radius  *float64    `json:"radius,omitempty" yaml:"radius,omitempty"`
	Corner1 *[2]float64 `json:"corner1,omitempty" yaml:"corner1,omitempty,flow"`
	Corner2 *[2]float64 `json:"corner2,omitempty" yaml:"corner2,omitempty,flow"`
}

type ConstraintDoc struct {
	Type      string   `json:"type" yaml:"type"`
	EntityIDs []string `json:"entity_ids" yaml:"entity_ids,flow"`
}

type DimensionDoc struct {
	Type      string   `json:"type" yaml:"type"`
	EntityIDs []string `json:"entity_ids" yaml:"entity_ids,flow"`
	Value     float64  `json:"value" yaml:"value"`
	Unit      string   `json:"unit" yaml:"unit"`
}

type ProfileDoc struct {
	ID        string   `json:"id" yaml:"id"`
	Type      string   `json:"type" yaml:"type"`
	EntityIDs []string `json:"entity_ids" yaml:"entity_ids,flow"`
	Area      float64  `json:"area" yaml:"area"`
	IsOuter   bool     `json:"is_outer" yaml:"is_outer"`
}

// ---------------------------------------------------------------------------
// Part -> Document
// ---------------------------------------------------------------------------

// ToDocument converts a Part into its serialized form.
func ToDocument(p *Part) Document {
	doc := Document{
		Name:     p.Name,
		Params:   make(map[string]ParamDoc, len(p.Params)),
		Features: []FeatureDoc{},
		Chains:   []ChainDoc{},
		Sketches: []SketchDoc{},
	}
	for name, prm := range p.Params {
		pd := ParamDoc{Name: prm.Name, Value: prm.Value, Unit: prm.Unit}
		if prm.Tolerance != "" {
			tc := prm.Tolerance
			pd.ToleranceClass = &tc
		}
		doc.Params[name] = pd
	}
	for _, f := range p.Features {
		doc.Features = append(doc.Features, featureToDoc(f))
	}
	for _, c := range p.Chains {
		doc.Chains = append(doc.Chains, ChainDoc{
			Name:            c.Name,
			Terms:           append([]string{}, c.Terms...),
			TargetValue:     c.TargetValue,
			TargetTolerance: c.TargetTolerance,
		})
	}
	for _, s := range p.Sketches {
		doc.Sketches = append(doc.Sketches, sketchToDoc(s))
	}
	return doc
}

func featureToDoc(f Feature) FeatureDoc {
	fd := FeatureDoc{Name: f.Name, Critical: f.Critical, Params: map[string]any{}}
	switch s := f.Spec.(type) {
	case *SketchFeature:
		fd.Type = "sketch"
		if s.Sketch != nil {
			fd.Params["plane"] = s.Sketch.Plane
			sd := sketchToDoc(s.Sketch)
			fd.Sketch = &sd
		}
	case *ExtrudeFeature:
		fd.Type = "extrude"
		for _, a := range s.Args() {
			fd.Params[a.Key] = encodeValue(a.Value)
		}
	case *UnsupportedFeature:
		fd.Type = s.Type
		for _, a := range s.Args {
			fd.Params[a.Key] = encodeValue(a.Value)
		}
	}
	return fd
}

func encodeValue(v Value) any {
	switch x := v.(type) {
	case Number:
		return x.V
	case Text:
		return x.S
	case Ref:
		return map[string]any{"param": x.Name}
	case Vector:
		return []float64{x.X, x.Y, x.Z}
	}
	return nil
}

func sketchToDoc(s *Sketch) SketchDoc {
	sd := SketchDoc{
		Name:        s.Name,
		Plane:       s.Plane,
		Entities:    []EntityDoc{},
		Constraints: []ConstraintDoc{},
		Dimensions:  []DimensionDoc{},
		Profiles:    []ProfileDoc{},
	}
	for _, e := range s.Entities {
		ed := EntityDoc{ID: e.EntityID(), Type: e.Kind().String()}
		switch v := e.(type) {
		case *Line:
			start, end := [2]float64(v.Start), [2]float64(v.End)
			ed.Start, ed.End = &start, &end
		case *Circle:
			center, r := [2]float64(v.Center), v.Radius
			ed.Center, ed.Radius = &center, &r
		case *Rectangle:
			c1, c2 := [2]float64(v.Corner1), [2]float64(v.Corner2)
			ed.Corner1, ed.Corner2 = &c1, &c2
		}
		sd.Entities = append(sd.Entities, ed)
	}
	for _, c := range s.Constraints {
		sd.Constraints = append(sd.Constraints, ConstraintDoc{
			Type:      string(c.Kind),
			EntityIDs: append([]string{}, c.EntityIDs...),
		})
	}
	for _, d := range s.Dimensions {
		sd.Dimensions = append(sd.Dimensions, DimensionDoc{
			Type:      string(d.Kind),
			EntityIDs: []string{d.EntityID},
			Value:     d.Value,
			Unit:      d.Unit,
		})
	}
	for _, p := range s.Profiles {
		sd.Profiles = append(sd.Profiles, ProfileDoc{
			ID:        p.ID,
			Type:      string(p.Kind),
			EntityIDs: append([]string{}, p.EntityIDs...),
			Area:      p.Area,
			IsOuter:   p.IsOuter,
		})
	}
	return sd
}

// ---------------------------------------------------------------------------
// Document -> Part
// ---------------------------------------------------------------------------

// FromDocument converts a serialized document back into a Part.
func FromDocument(doc Document) (*Part, error) {
	p := NewPart(doc.Name)
	for key, pd := range doc.Params {
		name := pd.Name
		if name == "" {
			name = key
		}
		if name != key {
			return nil, fmt.Errorf("ir: param key %q does not match name %q", key, name)
		}
		prm := Param{Name: name, Value: pd.Value, Unit: pd.Unit}
		if pd.ToleranceClass != nil {
			prm.Tolerance = *pd.ToleranceClass
		}
		if !prm.Valid() {
			return nil, fmt.Errorf("ir: param %q has a non-finite value", name)
		}
		p.Params[name] = prm
	}
	for i, fd := range doc.Features {
		f, err := featureFromDoc(fd)
		if err != nil {
			return nil, fmt.Errorf("ir: feature %d (%s): %w", i, fd.Name, err)
		}
		p.Features = append(p.Features, f)
	}
	for _, cd := range doc.Chains {
		p.Chains = append(p.Chains, Chain{
			Name:            cd.Name,
			Terms:           append([]string(nil), cd.Terms...),
			TargetValue:     cd.TargetValue,
			TargetTolerance: cd.TargetTolerance,
		})
	}
	for _, sd := range doc.Sketches {
		s, err := sketchFromDoc(sd)
		if err != nil {
			return nil, fmt.Errorf("ir: sketch %s: %w", sd.Name, err)
		}
		p.Sketches = append(p.Sketches, s)
	}
	return p, nil
}

func featureFromDoc(fd FeatureDoc) (Feature, error) {
	f := Feature{Name: fd.Name, Critical: fd.Critical}
	args, err := decodeArgs(fd.Params)
	if err != nil {
		return f, err
	}
	switch fd.Type {
	case "sketch":
		var s *Sketch
		if fd.Sketch != nil {
			s, err = sketchFromDoc(*fd.Sketch)
			if err != nil {
				return f, err
			}
		} else {
			s = &Sketch{}
		}
		if s.Name == "" {
			s.Name = fd.Name
		}
		for _, a := range args {
			if t, ok := a.Value.(Text); ok && (a.Key == "plane" || a.Key == "on_plane") {
				s.Plane = t.S
			}
		}
		f.Spec = &SketchFeature{Sketch: s}
	case "extrude":
		e := &ExtrudeFeature{}
		for _, a := range args {
			switch a.Key {
			case "sketch":
				switch v := a.Value.(type) {
				case Text:
					e.Sketch = v.S
				case Ref:
					e.Sketch = v.Name
				default:
					return f, fmt.Errorf("sketch argument must be a name, got %s", a.Value)
				}
			case "distance":
				e.Distance = a.Value
			case "operation":
				op, err := ParseOperation(a.Value)
				if err != nil {
					return f, err
				}
				e.Operation = op
			case "direction":
				e.Direction = a.Value
			default:
				e.Extra = append(e.Extra, a)
			}
		}
		f.Spec = e
	default:
		f.Spec = &UnsupportedFeature{Type: fd.Type, Args: args}
	}
	return f, nil
}

// ParseOperation types an operation argument. Only join and cut are valid.
func ParseOperation(v Value) (Operation, error) {
	var s string
	switch x := v.(type) {
	case Text:
		s = x.S
	case Ref:
		s = x.Name
	default:
		return "", fmt.Errorf("operation must be join or cut, got %v", v)
	}
	switch Operation(s) {
	case OpJoin, OpCut:
		return Operation(s), nil
	}
	return "", fmt.Errorf("operation must be join or cut, got %q", s)
}

func decodeArgs(m map[string]any) ([]Arg, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]Arg, 0, len(keys))
	for _, k := range keys {
		v, err := decodeValue(m[k])
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", k, err)
		}
		args = append(args, Arg{Key: k, Value: v})
	}
	return args, nil
}

func decodeValue(raw any) (Value, error) {
	if f, ok := toFloat(raw); ok {
		return Number{V: f}, nil
	}
	switch v := raw.(type) {
	case string:
		return Text{S: v}, nil
	case map[string]any:
		if name, ok := v["param"].(string); ok {
			return Ref{Name: name}, nil
		}
	case []any:
		if len(v) == 3 {
			var xyz [3]float64
			for i, c := range v {
				f, ok := toFloat(c)
				if !ok {
					return nil, fmt.Errorf("vector component %d is not a number", i)
				}
				xyz[i] = f
			}
			return Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
		}
	}
	return nil, fmt.Errorf("unsupported value %v (%T)", raw, raw)
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	}
	return 0, false
}

func sketchFromDoc(sd SketchDoc) (*Sketch, error) {
	s := &Sketch{Name: sd.Name, Plane: sd.Plane}
	for _, ed := range sd.Entities {
		e, err := entityFromDoc(ed)
		if err != nil {
			return nil, err
		}
		s.Entities = append(s.Entities, e)
	}
	for _, cd := range sd.Constraints {
		s.Constraints = append(s.Constraints, Constraint{
			Kind:      ConstraintKind(cd.Type),
			EntityIDs: append([]string(nil), cd.EntityIDs...),
		})
	}
	for _, dd := range sd.Dimensions {
		if len(dd.EntityIDs) != 1 {
			return nil, fmt.Errorf("dimension %s must reference exactly one entity, got %d", dd.Type, len(dd.EntityIDs))
		}
		s.Dimensions = append(s.Dimensions, Dimension{
			Kind:     DimensionKind(dd.Type),
			EntityID: dd.EntityIDs[0],
			Value:    dd.Value,
			Unit:     dd.Unit,
		})
	}
	for _, pd := range sd.Profiles {
		s.Profiles = append(s.Profiles, Profile{
			ID:        pd.ID,
			Kind:      ProfileKind(pd.Type),
			EntityIDs: append([]string(nil), pd.EntityIDs...),
			Area:      pd.Area,
			IsOuter:   pd.IsOuter,
		})
	}
	return s, nil
}

func entityFromDoc(ed EntityDoc) (Entity, error) {
	switch ed.Type {
	case "line":
		if ed.Start == nil || ed.End == nil {
			return nil, fmt.Errorf("line %s needs start and end", ed.ID)
		}
		return &Line{ID: ed.ID, Start: Point(*ed.Start), End: Point(*ed.End)}, nil
	case "circle":
		if ed.Center == nil || ed.Radius == nil {
			return nil, fmt.Errorf("circle %s needs center and radius", ed.ID)
		}
		return &Circle{ID: ed.ID, Center: Point(*ed.Center), Radius: *ed.Radius}, nil
	case "rectangle":
		if ed.Corner1 == nil || ed.Corner2 == nil {
			return nil, fmt.Errorf("rectangle %s needs corner1 and corner2", ed.ID)
		}
		return &Rectangle{ID: ed.ID, Corner1: Point(*ed.Corner1), Corner2: Point(*ed.Corner2)}, nil
	}
	return nil, fmt.Errorf("entity %s has unknown type %q", ed.ID, ed.Type)
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

// MarshalJSON encodes the part in its Document form.
func (p *Part) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToDocument(p))
}

// UnmarshalJSON decodes a Document into the part.
func (p *Part) UnmarshalJSON(data []byte) error {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	decoded, err := FromDocument(doc)
	if err != nil {
		return err
	}
	*p = *decoded
	return nil
}

// EncodeYAML writes the part's Document form as YAML.
func EncodeYAML(w io.Writer, p *Part) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(ToDocument(p)); err != nil {
		return fmt.Errorf("ir: encode yaml: %w", err)
	}
	return enc.Close()
}

// DecodeYAML reads a YAML Document and converts it into a Part.
func DecodeYAML(r io.Reader) (*Part, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("ir: decode yaml: %w", err)
	}
	return FromDocument(doc)
}
