package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/remarklabs/remark/internal/core/config"
	"github.com/remarklabs/remark/internal/core/diffview"
	"github.com/remarklabs/remark/internal/core/review"
)

type ShowCmd struct {
	flags  *Flags
	layout string
	toggle bool
}

// NewShowCmd creates a new show command.
func NewShowCmd(flags *Flags) *ShowCmd {
	return &ShowCmd{flags: flags}
}

// Register adds the show command to the application.
func (cmd *ShowCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "show",
		Usage:     "Print the diff view with review comments inline",
		UsageText: "remark show [options] [path ...]",
		Description: `Show prints the selected diff view annotated with the review comments
anchored to it. The display layout (unified or split) is remembered in
git config, so a toggle sticks for the next run.

Examples:
  remark show                       # whole view, remembered layout
  remark show --layout split        # two columns, and remember it
  remark show --toggle internal/    # flip the layout for one subtree`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "layout",
				Usage:       "diff layout (unified, split); persisted",
				Destination: &cmd.layout,
			},
			&cli.BoolFlag{
				Name:        "toggle",
				Aliases:     []string{"t"},
				Usage:       "flip the persisted layout before rendering",
				Destination: &cmd.toggle,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ShowCmd) run(ctx context.Context, c *cli.Command) error {
	session, err := cmd.flags.Session(ctx)
	if err != nil {
		return err
	}
	layout, err := diffview.ParseLayout(cmd.flags.Settings.DiffLayout)
	if err != nil {
		return err
	}
	switch {
	case cmd.layout != "":
		if layout, err = diffview.ParseLayout(cmd.layout); err != nil {
			return err
		}
	case cmd.toggle:
		layout = layout.Toggle()
	}
	if cmd.layout != "" || cmd.toggle {
		if err := config.SaveLayout(ctx, cmd.flags.Repo, layout); err != nil {
			return err
		}
	}

	files, err := session.Source().Files(ctx, session.View(), c.Args().Slice()...)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no changes in view")
		return nil
	}
	out := os.Stdout
	for _, f := range files {
		rec, err := session.Load(ctx, f.Path, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "=== %s%s\n", f.Path, fileStatus(f, rec.Reviewed))
		if rec.FileComment != nil {
			writeComment(out, "", *rec.FileComment)
		}
		if f.IsBinary {
			fmt.Fprintln(out, "(binary)")
			continue
		}
		for _, h := range f.Hunks {
			header := fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
			if h.Section != "" {
				header += " " + h.Section
			}
			fmt.Fprintln(out, header)
			if layout == diffview.LayoutSplit {
				writeSplitHunk(out, h, rec.LineComments)
			} else {
				writeUnifiedHunk(out, h, rec.LineComments)
			}
		}
		fmt.Fprintln(out)
	}
	return nil
}

func fileStatus(f *diffview.FileDiff, reviewed bool) string {
	var tags []string
	if f.IsNew {
		tags = append(tags, "new")
	}
	if f.IsUntracked {
		tags = append(tags, "untracked")
	}
	if f.IsDeleted {
		tags = append(tags, "deleted")
	}
	if reviewed {
		tags = append(tags, "reviewed")
	}
	if len(tags) == 0 {
		return ""
	}
	return " (" + strings.Join(tags, ", ") + ")"
}

func writeUnifiedHunk(out *os.File, h diffview.Hunk, comments map[review.LineKey]review.Comment) {
	for _, l := range h.Lines {
		fmt.Fprintf(out, "%4s %4s %s%s\n", lineNo(l.OldLine), lineNo(l.NewLine), originMark(l.Origin), l.Text)
		if c, ok := comments[l.Anchor()]; ok {
			writeComment(out, "          ", c)
		}
	}
}

// splitWidth is the left column width in split layout.
const splitWidth = 60

func writeSplitHunk(out *os.File, h diffview.Hunk, comments map[review.LineKey]review.Comment) {
	indent := strings.Repeat(" ", 10)
	for _, row := range diffview.SideBySide(h) {
		fmt.Fprintf(out, "%s | %s\n", cellText(row.Left, true), cellText(row.Right, false))
		if row.Left != nil && row.Left.Origin == diffview.OriginRemoved {
			if c, ok := comments[review.LineKey{Side: review.SideOld, Line: row.Left.Line}]; ok {
				writeComment(out, indent, c)
			}
		}
		if row.Right != nil {
			if c, ok := comments[review.LineKey{Side: review.SideNew, Line: row.Right.Line}]; ok {
				writeComment(out, indent, c)
			}
		}
	}
}

func cellText(c *diffview.Cell, pad bool) string {
	s := ""
	if c != nil {
		s = fmt.Sprintf("%4d %s%s", c.Line, originMark(c.Origin), c.Text)
	}
	if !pad {
		return s
	}
	r := []rune(s)
	if len(r) > splitWidth {
		return string(r[:splitWidth-1]) + "…"
	}
	return s + strings.Repeat(" ", splitWidth-len(r))
}

func writeComment(out *os.File, indent string, c review.Comment) {
	mark := "●"
	if c.Resolved {
		mark = "○"
	}
	for i, line := range strings.Split(strings.TrimRight(c.Body, "\n"), "\n") {
		if i > 0 {
			mark = " "
		}
		fmt.Fprintf(out, "%s%s %s\n", indent, mark, line)
	}
}

func lineNo(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func originMark(o diffview.LineOrigin) string {
	switch o {
	case diffview.OriginAdded:
		return "+"
	case diffview.OriginRemoved:
		return "-"
	default:
		return " "
	}
}
