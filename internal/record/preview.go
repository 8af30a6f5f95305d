package record

import (
	"fmt"
	"strings"

	"github.com/aymanbagabas/go-udiff"

	"github.com/conn-castle/langpatch/internal/lang"
)

// Render prints rows one per line in a stable, human-readable form.
func Render(rows []Row) string {
	var b strings.Builder
	for i, row := range rows {
		fmt.Fprintf(&b, "row %d:", i)
		if row.Mask&hasArea != 0 {
			fmt.Fprintf(&b, " area=%s", row.Area)
		}
		if row.IsText() {
			b.WriteString(" kind=text")
		} else {
			fmt.Fprintf(&b, " type=%d", row.Type)
			if row.IsVoice() {
				b.WriteString(" kind=voice")
			}
		}
		if row.Mask&hasLanguages != 0 {
			fmt.Fprintf(&b, " allowed=[%s]", strings.Join(row.Languages, ","))
		}
		if row.Mask&hasDefault != 0 {
			fmt.Fprintf(&b, " default=%s", row.Default)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Diff returns a unified diff of the table before and after selecting sel.
// It is empty when the record already holds sel.
func Diff(snap Snapshot, sel lang.Selection) string {
	before := Render(snap.Rows)
	after := Render(Patched(snap.Rows, sel))
	if before == after {
		return ""
	}
	return udiff.Unified("language record (current)", "language record (planned)", before, after)
}
