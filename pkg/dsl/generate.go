package dsl

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/chazu/partforge/pkg/ir"
)

const indent = "  "

// Generate renders a Part as DSL text. Parse(Generate(p)) reproduces p's
// params, features, chains and sketches; profiles are derived and omitted.
func Generate(part *ir.Part) string {
	var b strings.Builder
	fmt.Fprintf(&b, "part %s {\n", part.Name)

	for _, name := range part.ParamNames() {
		p := part.Params[name]
		unit := p.Unit
		if unit == "" {
			unit = "mm"
		}
		fmt.Fprintf(&b, "%sparam %s = %s %s", indent, p.Name, ir.FormatNumber(p.Value), unit)
		if p.Tolerance != "" {
			fmt.Fprintf(&b, " tolerance %s", p.Tolerance)
		}
		b.WriteString("\n")
	}

	for _, f := range part.Features {
		writeFeature(&b, f)
	}

	for _, c := range part.Chains {
		fmt.Fprintf(&b, "%schain %s {\n", indent, c.Name)
		fmt.Fprintf(&b, "%s%sterms = [%s]\n", indent, indent, strings.Join(c.Terms, ", "))
		if c.TargetValue != nil {
			fmt.Fprintf(&b, "%s%starget_value = %s\n", indent, indent, ir.FormatNumber(*c.TargetValue))
		}
		if c.TargetTolerance != nil {
			fmt.Fprintf(&b, "%s%starget_tolerance = %s\n", indent, indent, ir.FormatNumber(*c.TargetTolerance))
		}
		fmt.Fprintf(&b, "%s}\n", indent)
	}

	for _, s := range part.Sketches {
		fmt.Fprintf(&b, "%ssketch %s(on_plane=%s) ", indent, s.Name, strconv.Quote(planeOf(s)))
		writeSketchBody(&b, s)
	}

	b.WriteString("}\n")
	return b.String()
}

func writeFeature(b *strings.Builder, f ir.Feature) {
	if u, ok := f.Spec.(*ir.UnsupportedFeature); ok {
		// Not expressible in the grammar; kept visible as a comment.
		fmt.Fprintf(b, "%s# feature %s = %s(%s)\n", indent, f.Name, u.Type, formatArgs(u.Args))
		return
	}
	b.WriteString(indent)
	if f.Critical {
		b.WriteString("critical ")
	}
	switch s := f.Spec.(type) {
	case *ir.SketchFeature:
		fmt.Fprintf(b, "feature %s = sketch(on_plane=%s) ", f.Name, strconv.Quote(planeOf(s.Sketch)))
		writeSketchBody(b, s.Sketch)
	case *ir.ExtrudeFeature:
		fmt.Fprintf(b, "feature %s = extrude(%s)\n", f.Name, formatArgs(s.Args()))
	}
}

func planeOf(s *ir.Sketch) string {
	if s == nil || s.Plane == "" {
		return DefaultPlane
	}
	return s.Plane
}

func writeSketchBody(b *strings.Builder, s *ir.Sketch) {
	b.WriteString("{\n")
	in := indent + indent
	if s != nil {
		for _, e := range s.Entities {
			switch e := e.(type) {
			case *ir.Line:
				fmt.Fprintf(b, "%sline %s from %s to %s\n", in, e.ID, formatPoint(e.Start), formatPoint(e.End))
			case *ir.Circle:
				fmt.Fprintf(b, "%scircle %s center %s radius %s\n", in, e.ID, formatPoint(e.Center), ir.FormatNumber(e.Radius))
			case *ir.Rectangle:
				fmt.Fprintf(b, "%srectangle %s from %s to %s\n", in, e.ID, formatPoint(e.Corner1), formatPoint(e.Corner2))
			}
		}
		for _, c := range s.Constraints {
			fmt.Fprintf(b, "%s%s(%s)\n", in, c.Kind, strings.Join(c.EntityIDs, ", "))
		}
		for _, d := range s.Dimensions {
			v := ir.FormatNumber(d.Value)
			if d.Unit != "" {
				v += " " + d.Unit
			}
			fmt.Fprintf(b, "%sdim_%s(%s, %s)\n", in, d.Kind, d.EntityID, v)
		}
	}
	fmt.Fprintf(b, "%s}\n", indent)
}

func formatPoint(p ir.Point) string {
	return "(" + ir.FormatNumber(p[0]) + ", " + ir.FormatNumber(p[1]) + ")"
}

func formatArgs(args []ir.Arg) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Key + "=" + formatValue(a.Value)
	}
	return strings.Join(parts, ", ")
}

// formatValue renders a value so that it parses back to the same kind.
func formatValue(v ir.Value) string {
	switch v := v.(type) {
	case ir.Text:
		if _, unit, _ := ir.SplitQuantity(v.S); ir.IsCanonicalQuantity(v.S) && isIdentifier(unit) {
			return v.S
		}
		return strconv.Quote(v.S)
	case nil:
		return `""`
	default:
		return v.String()
	}
}

func sortArgs(args []ir.Arg) {
	sort.SliceStable(args, func(i, j int) bool { return args[i].Key < args[j].Key })
}

func isIdentifier(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentChar(s[i]) {
			return false
		}
	}
	return true
}
