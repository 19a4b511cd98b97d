package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is a typed feature argument.
type Value interface {
	argValue() // marker method restricting implementations to this package
	String() string
}

// Number is a bare numeric literal.
type Number struct {
	V float64
}

func (Number) argValue() {}

func (n Number) String() string { return FormatNumber(n.V) }

// Text is a string literal, a reserved mode word (through_all, cut, ...)
// or a number folded together with its unit ("10 mm").
type Text struct {
	S string
}

func (Text) argValue() {}

func (t Text) String() string { return strconv.Quote(t.S) }

// Ref is a bare identifier naming a parameter. The parameter may not exist;
// the validator and resolver report dangling references.
type Ref struct {
	Name string
}

func (Ref) argValue() {}

func (r Ref) String() string { return r.Name }

// Vector is an explicit [x, y, z] triple.
type Vector struct {
	X, Y, Z float64
}

func (Vector) argValue() {}

func (v Vector) String() string {
	return fmt.Sprintf("[%s, %s, %s]", FormatNumber(v.X), FormatNumber(v.Y), FormatNumber(v.Z))
}

// Arg is a named argument in declaration order.
type Arg struct {
	Key   string
	Value Value
}

// FormatNumber renders v without a trailing fraction when it is integral.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Quantity builds the folded "value unit" text for a number with a unit.
func Quantity(v float64, unit string) Text {
	return Text{S: FormatNumber(v) + " " + unit}
}

// SplitQuantity parses a "value unit" string. ok is false when s does not
// start with a number.
func SplitQuantity(s string) (value float64, unit string, ok bool) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, "", false
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, "", false
	}
	if len(fields) > 1 {
		unit = strings.Join(fields[1:], " ")
	}
	return v, unit, true
}

// IsCanonicalQuantity reports whether s is exactly what Quantity would
// produce for its parsed value and unit.
func IsCanonicalQuantity(s string) bool {
	v, unit, ok := SplitQuantity(s)
	if !ok || unit == "" || strings.ContainsAny(unit, " \t\n") {
		return false
	}
	return Quantity(v, unit).S == s
}

// EqualValues compares two argument values by kind and content.
func EqualValues(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a == b
}
