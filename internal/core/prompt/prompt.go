// Package prompt collates review comments into a single markdown document
// suitable for pasting into an agent or a review thread.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/remarklabs/remark/internal/core/diffview"
	"github.com/remarklabs/remark/internal/core/review"
	"github.com/remarklabs/remark/internal/core/state"
)

// Filter selects which comments a prompt includes.
type Filter int

const (
	// FilterUnresolved includes only comments not yet resolved.
	FilterUnresolved Filter = iota
	// FilterResolved includes only resolved comments.
	FilterResolved
	// FilterAll includes everything.
	FilterAll
)

// ErrBadFilter indicates an unrecognized filter name.
var ErrBadFilter = errors.New("unknown comment filter")

// ParseFilter maps a flag value to a filter.
func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unresolved":
		return FilterUnresolved, nil
	case "resolved":
		return FilterResolved, nil
	case "all":
		return FilterAll, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrBadFilter, s)
	}
}

func (f Filter) keep(c review.Comment) bool {
	switch f {
	case FilterUnresolved:
		return !c.Resolved
	case FilterResolved:
		return c.Resolved
	default:
		return true
	}
}

// snippetContext is how many surrounding hunk lines a snippet shows.
const snippetContext = 3

// Collator renders prompts for a review session.
type Collator struct {
	session *state.Session
	log     zerolog.Logger
}

// NewCollator returns a collator over session.
func NewCollator(session *state.Session, log zerolog.Logger) *Collator {
	return &Collator{session: session, log: log.With().Str("component", "prompt").Logger()}
}

// Collate renders the prompt for the session's view, restricted to paths if
// any are given. Returns the markdown and the number of comments included.
// Files whose records have no comment passing the filter are omitted, and a
// prompt with zero comments is an empty string.
func (c *Collator) Collate(ctx context.Context, filter Filter, paths ...string) (string, int, error) {
	files, err := c.session.Source().Files(ctx, c.session.View(), paths...)
	if err != nil {
		return "", 0, err
	}
	var b strings.Builder
	total := 0
	for _, f := range files {
		rec, err := c.session.Load(ctx, f.Path, f)
		if err != nil {
			return "", 0, err
		}
		n := c.renderFile(&b, f, rec, filter)
		total += n
	}
	if total == 0 {
		return "", 0, nil
	}
	header := fmt.Sprintf("# Review comments\n\nView: %s at %.12s\n", c.session.View(), c.session.Head())
	return header + b.String(), total, nil
}

func (c *Collator) renderFile(b *strings.Builder, f *diffview.FileDiff, rec *review.FileRecord, filter Filter) int {
	var section strings.Builder
	n := 0
	if rec.FileComment != nil && filter.keep(*rec.FileComment) {
		section.WriteString("\n### File comment\n\n")
		writeBody(&section, *rec.FileComment)
		n++
	}
	for _, key := range rec.SortedLineKeys() {
		comment := rec.LineComments[key]
		if !filter.keep(comment) {
			continue
		}
		fmt.Fprintf(&section, "\n### Line %d (%s)\n\n", key.Line, key.Side)
		if snippet := Snippet(f, key, snippetContext); snippet != "" {
			section.WriteString("```\n")
			section.WriteString(snippet)
			section.WriteString("```\n\n")
		}
		writeBody(&section, comment)
		n++
	}
	if n == 0 {
		return 0
	}
	fmt.Fprintf(b, "\n## %s\n", f.Path)
	b.WriteString(section.String())
	return n
}

func writeBody(b *strings.Builder, c review.Comment) {
	b.WriteString(strings.TrimRight(c.Body, "\n"))
	b.WriteString("\n")
	if c.Resolved {
		b.WriteString("\n_Resolved._\n")
	}
}

// Snippet renders the diff lines around an anchor, numbered on the anchor's
// side with the target line marked. Returns "" when the anchor is not in
// the diff.
func Snippet(f *diffview.FileDiff, key review.LineKey, around int) string {
	for _, h := range f.Hunks {
		for i, l := range h.Lines {
			if l.Anchor() != key {
				continue
			}
			start := i - around
			if start < 0 {
				start = 0
			}
			end := i + around + 1
			if end > len(h.Lines) {
				end = len(h.Lines)
			}
			var b strings.Builder
			for j := start; j < end; j++ {
				line := h.Lines[j]
				no := line.NewLine
				if key.Side == review.SideOld {
					no = line.OldLine
				}
				marker := " "
				if j == i {
					marker = ">"
				}
				if no == 0 {
					fmt.Fprintf(&b, "%s      | %s\n", marker, line.Text)
				} else {
					fmt.Fprintf(&b, "%s %4d | %s\n", marker, no, line.Text)
				}
			}
			return b.String()
		}
	}
	return ""
}
