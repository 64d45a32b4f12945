package review

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Marker is the first line of every remark note. The trailing integer is the
// wire format version.
const Marker = "<!-- remark:3 -->"

// ErrParse indicates note bytes that carry the marker but whose JSON block
// could not be decoded. Callers treat the record as empty and warn.
var ErrParse = errors.New("malformed review note")

type wireComment struct {
	Message  string `json:"message"`
	Resolved bool   `json:"resolved,omitempty"`
}

type wireLineComment struct {
	Side     string `json:"side"`
	Line     int    `json:"line"`
	Message  string `json:"message"`
	Resolved bool   `json:"resolved,omitempty"`
}

type wireRecord struct {
	Version      int               `json:"version"`
	FileComment  *wireComment      `json:"file_comment,omitempty"`
	LineComments []wireLineComment `json:"line_comments,omitempty"`
	Reviewed     bool              `json:"reviewed,omitempty"`
	ReviewedHash string            `json:"reviewed_hash,omitempty"`
}

// Encode renders a record as note bytes: the version marker, an authoritative
// JSON block, and a regenerated markdown summary for humans reading the note
// with plain git. Encoding is deterministic so unchanged records round-trip
// byte for byte.
func Encode(rec *FileRecord, path string) ([]byte, error) {
	wire := wireRecord{
		Version:      3,
		Reviewed:     rec.Reviewed,
		ReviewedHash: rec.ReviewedHash,
	}
	if rec.FileComment != nil {
		wire.FileComment = &wireComment{Message: rec.FileComment.Body, Resolved: rec.FileComment.Resolved}
	}
	for _, k := range rec.SortedLineKeys() {
		c := rec.LineComments[k]
		wire.LineComments = append(wire.LineComments, wireLineComment{
			Side:     k.Side.String(),
			Line:     k.Line,
			Message:  c.Body,
			Resolved: c.Resolved,
		})
	}
	blob, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode review note: %w", err)
	}

	var b strings.Builder
	b.WriteString(Marker)
	b.WriteString("\n```json\n")
	b.Write(blob)
	b.WriteString("\n```\n")
	writeSummary(&b, rec, path)
	return []byte(b.String()), nil
}

func writeSummary(b *strings.Builder, rec *FileRecord, path string) {
	fmt.Fprintf(b, "\n# %s\n", path)
	if rec.Reviewed {
		b.WriteString("\nReviewed.\n")
	}
	if rec.FileComment != nil {
		b.WriteString("\n## File comment\n\n")
		writeComment(b, *rec.FileComment)
	}
	keys := rec.SortedLineKeys()
	if len(keys) > 0 {
		b.WriteString("\n## Line comments\n")
		for _, k := range keys {
			fmt.Fprintf(b, "\n### %s line %d\n\n", k.Side, k.Line)
			writeComment(b, rec.LineComments[k])
		}
	}
}

func writeComment(b *strings.Builder, c Comment) {
	b.WriteString(strings.TrimRight(c.Body, "\n"))
	b.WriteString("\n")
	if c.Resolved {
		b.WriteString("\n(resolved)\n")
	}
}

// Decode parses note bytes. Only the JSON block is authoritative; the
// markdown summary is ignored. Returns ErrParse (wrapped) when the bytes
// carry the marker but the JSON is missing or invalid.
func Decode(data []byte) (*FileRecord, error) {
	text := string(data)
	if !strings.HasPrefix(strings.TrimLeft(text, "\n"), "<!-- remark:") {
		return nil, fmt.Errorf("%w: missing marker", ErrParse)
	}
	_, rest, ok := strings.Cut(text, "```json\n")
	if !ok {
		return nil, fmt.Errorf("%w: missing json block", ErrParse)
	}
	blob, _, ok := strings.Cut(rest, "\n```")
	if !ok {
		return nil, fmt.Errorf("%w: unterminated json block", ErrParse)
	}
	var wire wireRecord
	if err := json.Unmarshal([]byte(blob), &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	rec := NewFileRecord()
	rec.Reviewed = wire.Reviewed
	rec.ReviewedHash = wire.ReviewedHash
	if wire.FileComment != nil {
		rec.FileComment = &Comment{Body: wire.FileComment.Message, Resolved: wire.FileComment.Resolved}
	}
	for _, c := range wire.LineComments {
		side, err := ParseSide(c.Side)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
		if c.Line < 1 {
			return nil, fmt.Errorf("%w: line %d out of range", ErrParse, c.Line)
		}
		rec.LineComments[LineKey{Side: side, Line: c.Line}] = Comment{Body: c.Message, Resolved: c.Resolved}
	}
	return rec, nil
}
