// Package draft implements the editable review document. A draft is a
// markdown file under the repository's git directory that mirrors the
// current view's comments; saving it and syncing reconciles edits back into
// the review records.
package draft

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/remarklabs/remark/internal/core/git"
	"github.com/remarklabs/remark/internal/core/review"
)

const (
	// Dir is the subdirectory of the git dir holding draft state.
	Dir = "remark"
	// Filename is the draft document name.
	Filename = "draft.md"
	// MetaFilename is the sync index kept next to the draft.
	MetaFilename = "draft.meta.json"
	// Placeholder marks a comment slot the user has not filled in yet.
	Placeholder = "<!-- remark:write comment -->"

	header = "<!-- remark:draft -->"
	fence  = "```"
)

// Path returns the draft document location for a repository.
func Path(repo *git.Repo) string {
	return filepath.Join(repo.Dir(), Dir, Filename)
}

// MetaPath returns the sync index location for a repository.
func MetaPath(repo *git.Repo) string {
	return filepath.Join(repo.Dir(), Dir, MetaFilename)
}

// LineEntry is one line comment slot in a draft file section.
type LineEntry struct {
	Key  review.LineKey
	Body string
}

// FileSection is the draft content for one file.
type FileSection struct {
	Path string
	// FileBody is the file comment body. Empty or placeholder means none.
	FileBody string
	Lines    []LineEntry
}

// Doc is a parsed draft document, files in document order.
type Doc struct {
	Files []FileSection
}

// Section returns the section for path, or nil.
func (d *Doc) Section(path string) *FileSection {
	for i := range d.Files {
		if d.Files[i].Path == path {
			return &d.Files[i]
		}
	}
	return nil
}

// IsBlank reports whether a body carries no comment content.
func IsBlank(body string) bool {
	body = strings.TrimSpace(body)
	return body == "" || body == Placeholder
}

// ParseError describes a draft construct the parser had to skip. The
// line number is 1-based within the draft file.
type ParseError struct {
	Line int
	Msg  string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("draft line %d: %s", e.Line, e.Msg)
}

// ErrNotDraft indicates content missing the draft header line.
var ErrNotDraft = errors.New("not a remark draft document")

// Parse reads a draft document. File sections open with "## path", followed
// by optional "### File comment" and "### Line comments" subsections, with
// every body inside a text fence and line slots introduced by
// "- line N (side)". Malformed constructs are skipped and reported so one
// broken block never drops the rest of the draft; only a missing header is
// fatal.
func Parse(data []byte) (*Doc, []ParseError, error) {
	lines := strings.Split(string(data), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != header {
		return nil, nil, ErrNotDraft
	}
	doc := &Doc{}
	var warns []ParseError
	skip := func(at int, msg string) {
		warns = append(warns, ParseError{Line: at + 1, Msg: msg})
	}
	var cur *FileSection
	// pending describes where the next fenced body lands.
	const (
		pendingNone = iota
		pendingFile
		pendingLine
	)
	pending := pendingNone
	var pendingKey review.LineKey

	i := 1
	for i < len(lines) {
		line := lines[i]
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			i++
		case strings.HasPrefix(trimmed, "## ") && !strings.HasPrefix(trimmed, "### "):
			path := strings.TrimSpace(trimmed[3:])
			pending = pendingNone
			if path == "" {
				skip(i, "empty file path")
				cur = nil
				i++
				continue
			}
			doc.Files = append(doc.Files, FileSection{Path: path})
			cur = &doc.Files[len(doc.Files)-1]
			i++
		case trimmed == "### File comment":
			if cur == nil {
				skip(i, "file comment outside a file section")
				i++
				continue
			}
			pending = pendingFile
			i++
		case trimmed == "### Line comments":
			if cur == nil {
				skip(i, "line comments outside a file section")
				i++
				continue
			}
			pending = pendingNone
			i++
		case strings.HasPrefix(trimmed, "- line "):
			pending = pendingNone
			if cur == nil {
				skip(i, "line slot outside a file section")
				i++
				continue
			}
			key, err := parseLineSlot(trimmed)
			if err != nil {
				skip(i, err.Error())
				i++
				continue
			}
			pending = pendingLine
			pendingKey = key
			i++
		case strings.HasPrefix(trimmed, fence):
			body, next, ok := readFence(lines, i)
			if !ok {
				skip(i, "unterminated comment body")
				i = len(lines)
				continue
			}
			switch pending {
			case pendingFile:
				cur.FileBody = body
			case pendingLine:
				cur.Lines = append(cur.Lines, LineEntry{Key: pendingKey, Body: body})
			default:
				skip(i, "comment body without a target")
			}
			pending = pendingNone
			i = next
		default:
			skip(i, fmt.Sprintf("unexpected content %q", trimmed))
			i++
		}
	}
	return doc, warns, nil
}

// parseLineSlot parses "- line N (side)".
func parseLineSlot(s string) (review.LineKey, error) {
	rest := strings.TrimPrefix(s, "- line ")
	numPart, sidePart, ok := strings.Cut(rest, " (")
	if !ok || !strings.HasSuffix(sidePart, ")") {
		return review.LineKey{}, fmt.Errorf("malformed line slot %q", s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(numPart))
	if err != nil || n < 1 {
		return review.LineKey{}, fmt.Errorf("bad line number in %q", s)
	}
	side, err := review.ParseSide(strings.TrimSuffix(sidePart, ")"))
	if err != nil {
		return review.LineKey{}, err
	}
	return review.LineKey{Side: side, Line: n}, nil
}

// readFence consumes a fenced body starting at lines[start]. Returns the
// body and the index after the closing fence, or ok=false when the fence
// never closes.
func readFence(lines []string, start int) (string, int, bool) {
	var body []string
	for i := start + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == fence {
			return strings.Join(body, "\n"), i + 1, true
		}
		body = append(body, lines[i])
	}
	return "", 0, false
}

// Render writes a doc back to draft markdown. Render and Parse round-trip,
// so an unedited draft syncs to no changes.
func Render(doc *Doc) []byte {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	for _, f := range doc.Files {
		fmt.Fprintf(&b, "\n## %s\n", f.Path)
		b.WriteString("\n### File comment\n\n")
		writeFence(&b, f.FileBody)
		if len(f.Lines) > 0 {
			b.WriteString("\n### Line comments\n")
			for _, l := range f.Lines {
				fmt.Fprintf(&b, "\n- line %d (%s)\n\n", l.Key.Line, l.Key.Side)
				writeFence(&b, l.Body)
			}
		}
	}
	return []byte(b.String())
}

func writeFence(b *strings.Builder, body string) {
	if strings.TrimSpace(body) == "" {
		body = Placeholder
	}
	b.WriteString(fence + "text\n")
	b.WriteString(strings.TrimRight(body, "\n"))
	b.WriteString("\n" + fence + "\n")
}
