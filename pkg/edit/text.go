package edit

import (
	"fmt"
	"sort"
	"strings"
)

// TextEdit replaces the bytes [Start, End) of a source with Replacement.
type TextEdit struct {
	Start       int    `json:"start" yaml:"start"`
	End         int    `json:"end" yaml:"end"`
	Replacement string `json:"replacement" yaml:"replacement"`
}

// ApplyTextEdits applies edits to src. Offsets refer to the original src;
// edits are applied from the highest Start down so earlier offsets stay
// valid.
func ApplyTextEdits(src string, edits []TextEdit) (string, error) {
	sorted := append([]TextEdit(nil), edits...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start > sorted[j].Start })

	for i, e := range sorted {
		if e.Start < 0 || e.End < e.Start || e.End > len(src) {
			return "", &RangeError{Start: e.Start, End: e.End, Len: len(src)}
		}
		if i > 0 && e.End > sorted[i-1].Start {
			return "", fmt.Errorf("edit: [%d, %d) and [%d, %d): %w",
				e.Start, e.End, sorted[i-1].Start, sorted[i-1].End, ErrOverlappingEdits)
		}
	}

	var b strings.Builder
	b.Grow(len(src))
	// Walk forward through the reversed order to build the result in one
	// pass.
	pos := 0
	for i := len(sorted) - 1; i >= 0; i-- {
		e := sorted[i]
		b.WriteString(src[pos:e.Start])
		b.WriteString(e.Replacement)
		pos = e.End
	}
	b.WriteString(src[pos:])
	return b.String(), nil
}
