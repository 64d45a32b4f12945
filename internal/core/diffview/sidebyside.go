package diffview

import "github.com/remarklabs/remark/internal/core/review"

// Cell is one side of a side-by-side row.
type Cell struct {
	Line   int
	Text   string
	Origin LineOrigin
}

// Row pairs an old-side and a new-side cell. A nil cell is a filler. Each
// populated cell answers to the same anchor key the unified rendering uses,
// so comments placed in either layout land on the same record entry.
type Row struct {
	Left  *Cell
	Right *Cell
}

// Anchor returns the comment key for the row, favoring the new side.
func (r Row) Anchor() review.LineKey {
	if r.Right != nil {
		return review.LineKey{Side: review.SideNew, Line: r.Right.Line}
	}
	return review.LineKey{Side: review.SideOld, Line: r.Left.Line}
}

// SideBySide lays out a hunk in two columns. Runs of removals and additions
// are paired up positionally; the longer run spills into rows with a filler
// on the other side.
func SideBySide(h Hunk) []Row {
	var rows []Row
	i := 0
	for i < len(h.Lines) {
		l := h.Lines[i]
		switch l.Origin {
		case OriginContext:
			rows = append(rows, Row{
				Left:  &Cell{Line: l.OldLine, Text: l.Text, Origin: OriginContext},
				Right: &Cell{Line: l.NewLine, Text: l.Text, Origin: OriginContext},
			})
			i++
		case OriginRemoved:
			var removed, added []Line
			for i < len(h.Lines) && h.Lines[i].Origin == OriginRemoved {
				removed = append(removed, h.Lines[i])
				i++
			}
			for i < len(h.Lines) && h.Lines[i].Origin == OriginAdded {
				added = append(added, h.Lines[i])
				i++
			}
			for j := 0; j < len(removed) || j < len(added); j++ {
				var row Row
				if j < len(removed) {
					row.Left = &Cell{Line: removed[j].OldLine, Text: removed[j].Text, Origin: OriginRemoved}
				}
				if j < len(added) {
					row.Right = &Cell{Line: added[j].NewLine, Text: added[j].Text, Origin: OriginAdded}
				}
				rows = append(rows, row)
			}
		case OriginAdded:
			rows = append(rows, Row{
				Right: &Cell{Line: l.NewLine, Text: l.Text, Origin: OriginAdded},
			})
			i++
		}
	}
	return rows
}
