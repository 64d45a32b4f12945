// Package diffview builds anchored diff windows. It parses the unified diff
// text git emits for a view, assigns every changed line a stable
// (side, line) anchor, and derives the per-file hash used to invalidate
// reviewed marks.
package diffview

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/remarklabs/remark/internal/core/review"
)

// LineOrigin classifies a diff line.
type LineOrigin int

const (
	// OriginContext is an unchanged line present on both sides.
	OriginContext LineOrigin = iota
	// OriginAdded is a line present only on the new side.
	OriginAdded
	// OriginRemoved is a line present only on the old side.
	OriginRemoved
)

// Line is one line of a hunk with its line numbers on each side. A zero
// line number means the line does not exist on that side.
type Line struct {
	Origin  LineOrigin
	OldLine int
	NewLine int
	Text    string
}

// Anchor returns the comment key this line answers to. Added and context
// lines anchor on the new side, removed lines on the old side.
func (l Line) Anchor() review.LineKey {
	if l.Origin == OriginRemoved {
		return review.LineKey{Side: review.SideOld, Line: l.OldLine}
	}
	return review.LineKey{Side: review.SideNew, Line: l.NewLine}
}

// Hunk is one @@ section of a file diff.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Section  string
	Lines    []Line
}

// FileDiff is the parsed diff for a single file within a view.
type FileDiff struct {
	Path      string
	OldPath   string
	IsNew     bool
	IsDeleted bool
	IsBinary  bool
	// Untracked files never appear in git diff output and are synthesized
	// as all-added content.
	IsUntracked bool
	Hunks       []Hunk

	raw string
}

// Hash returns the hex sha1 of this file's diff text. Reviewed marks store
// it and are honored only while the live hash still matches.
func (f *FileDiff) Hash() string {
	sum := sha1.Sum([]byte(f.raw))
	return hex.EncodeToString(sum[:])
}

// Anchors returns every line anchor present in the file's hunks, in diff
// order. The file header itself is addressed separately by file comments.
func (f *FileDiff) Anchors() []review.LineKey {
	var keys []review.LineKey
	for _, h := range f.Hunks {
		for _, l := range h.Lines {
			keys = append(keys, l.Anchor())
		}
	}
	return keys
}

// HasAnchor reports whether key addresses a line present in this diff.
func (f *FileDiff) HasAnchor(key review.LineKey) bool {
	for _, h := range f.Hunks {
		for _, l := range h.Lines {
			if l.Anchor() == key {
				return true
			}
		}
	}
	return false
}

// Parse splits raw unified diff output into per-file diffs. Unrecognized
// header lines are skipped; a malformed hunk header is an error.
func Parse(raw []byte) ([]*FileDiff, error) {
	lines := strings.Split(string(raw), "\n")
	var files []*FileDiff
	var cur *FileDiff
	var curRaw strings.Builder

	flush := func() {
		if cur != nil {
			cur.raw = curRaw.String()
			files = append(files, cur)
			cur = nil
			curRaw.Reset()
		}
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		switch {
		case strings.HasPrefix(line, "diff --git "):
			flush()
			cur = &FileDiff{}
			curRaw.WriteString(line)
			curRaw.WriteByte('\n')
		case cur == nil:
			// Preamble outside any file section.
		case strings.HasPrefix(line, "--- "):
			curRaw.WriteString(line)
			curRaw.WriteByte('\n')
			name := strings.TrimPrefix(line, "--- ")
			if name == "/dev/null" {
				cur.IsNew = true
			} else {
				cur.OldPath = stripPathPrefix(name)
			}
		case strings.HasPrefix(line, "+++ "):
			curRaw.WriteString(line)
			curRaw.WriteByte('\n')
			name := strings.TrimPrefix(line, "+++ ")
			if name == "/dev/null" {
				cur.IsDeleted = true
				cur.Path = cur.OldPath
			} else {
				cur.Path = stripPathPrefix(name)
			}
		case strings.HasPrefix(line, "Binary files "):
			curRaw.WriteString(line)
			curRaw.WriteByte('\n')
			cur.IsBinary = true
			if cur.Path == "" {
				cur.Path = binaryPath(line)
			}
		case strings.HasPrefix(line, "@@ "):
			curRaw.WriteString(line)
			curRaw.WriteByte('\n')
			hunk, err := parseHunkHeader(line)
			if err != nil {
				return nil, err
			}
			oldNo, newNo := hunk.OldStart, hunk.NewStart
			for i+1 < len(lines) {
				next := lines[i+1]
				if next == "" && i+2 == len(lines) {
					break
				}
				var l Line
				switch {
				case strings.HasPrefix(next, "+"):
					l = Line{Origin: OriginAdded, NewLine: newNo, Text: next[1:]}
					newNo++
				case strings.HasPrefix(next, "-"):
					l = Line{Origin: OriginRemoved, OldLine: oldNo, Text: next[1:]}
					oldNo++
				case strings.HasPrefix(next, " "):
					l = Line{Origin: OriginContext, OldLine: oldNo, NewLine: newNo, Text: next[1:]}
					oldNo++
					newNo++
				case strings.HasPrefix(next, `\`):
					// "\ No newline at end of file"
					i++
					curRaw.WriteString(next)
					curRaw.WriteByte('\n')
					continue
				default:
					goto hunkDone
				}
				i++
				curRaw.WriteString(next)
				curRaw.WriteByte('\n')
				hunk.Lines = append(hunk.Lines, l)
			}
		hunkDone:
			cur.Hunks = append(cur.Hunks, hunk)
		default:
			curRaw.WriteString(line)
			curRaw.WriteByte('\n')
			// Extended headers like "new file mode" and "rename from".
			if strings.HasPrefix(line, "rename from ") {
				cur.OldPath = strings.TrimPrefix(line, "rename from ")
			}
			if strings.HasPrefix(line, "rename to ") {
				cur.Path = strings.TrimPrefix(line, "rename to ")
			}
		}
	}
	flush()
	return files, nil
}

// parseHunkHeader parses "@@ -a,b +c,d @@ section".
func parseHunkHeader(line string) (Hunk, error) {
	rest := strings.TrimPrefix(line, "@@ ")
	ranges, section, ok := strings.Cut(rest, " @@")
	if !ok {
		return Hunk{}, fmt.Errorf("malformed hunk header %q", line)
	}
	oldPart, newPart, ok := strings.Cut(ranges, " ")
	if !ok || !strings.HasPrefix(oldPart, "-") || !strings.HasPrefix(newPart, "+") {
		return Hunk{}, fmt.Errorf("malformed hunk header %q", line)
	}
	oldStart, oldCount, err := parseRange(oldPart[1:])
	if err != nil {
		return Hunk{}, fmt.Errorf("malformed hunk header %q: %w", line, err)
	}
	newStart, newCount, err := parseRange(newPart[1:])
	if err != nil {
		return Hunk{}, fmt.Errorf("malformed hunk header %q: %w", line, err)
	}
	return Hunk{
		OldStart: oldStart, OldCount: oldCount,
		NewStart: newStart, NewCount: newCount,
		Section: strings.TrimSpace(section),
	}, nil
}

func parseRange(s string) (start, count int, err error) {
	count = 1
	if a, b, ok := strings.Cut(s, ","); ok {
		if count, err = strconv.Atoi(b); err != nil {
			return 0, 0, err
		}
		s = a
	}
	start, err = strconv.Atoi(s)
	return start, count, err
}

func stripPathPrefix(name string) string {
	name = strings.TrimSuffix(name, "\t")
	for _, prefix := range []string{"a/", "b/"} {
		if strings.HasPrefix(name, prefix) {
			return name[len(prefix):]
		}
	}
	return name
}

func binaryPath(line string) string {
	// "Binary files a/x and b/x differ"
	rest := strings.TrimPrefix(line, "Binary files ")
	rest = strings.TrimSuffix(rest, " differ")
	if _, after, ok := strings.Cut(rest, " and "); ok {
		return stripPathPrefix(after)
	}
	return ""
}
