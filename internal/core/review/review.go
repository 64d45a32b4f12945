// Package review defines the per-file review record and its note codec.
package review

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Side says which side of a diff a line comment targets.
type Side int

const (
	// SideNew targets the right-hand (new) side of the diff.
	SideNew Side = iota
	// SideOld targets the left-hand (old) side of the diff.
	SideOld
)

// ErrBadSide indicates a side name that is neither "old" nor "new".
var ErrBadSide = errors.New("bad diff side")

// ParseSide maps "old"/"new" to a Side.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "new":
		return SideNew, nil
	case "old":
		return SideOld, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrBadSide, s)
	}
}

// String returns "old" or "new".
func (s Side) String() string {
	if s == SideOld {
		return "old"
	}
	return "new"
}

// LineKey addresses one commented line within a file's diff.
type LineKey struct {
	Side Side
	Line int
}

// String renders the wire form "side:line".
func (k LineKey) String() string {
	return k.Side.String() + ":" + strconv.Itoa(k.Line)
}

// ParseLineKey parses the wire form produced by String.
func ParseLineKey(s string) (LineKey, error) {
	side, rest, ok := strings.Cut(s, ":")
	if !ok {
		return LineKey{}, fmt.Errorf("bad line key %q", s)
	}
	sd, err := ParseSide(side)
	if err != nil {
		return LineKey{}, err
	}
	line, err := strconv.Atoi(rest)
	if err != nil || line < 1 {
		return LineKey{}, fmt.Errorf("bad line number in key %q", s)
	}
	return LineKey{Side: sd, Line: line}, nil
}

// Comment is one review comment, file or line scoped.
type Comment struct {
	Body     string
	Resolved bool
}

// FileRecord is the full review state for one file in one diff window.
type FileRecord struct {
	FileComment  *Comment
	LineComments map[LineKey]Comment
	Reviewed     bool
	// ReviewedHash is the file diff hash captured when Reviewed was set.
	// A reviewed mark is only honored while the live diff still matches.
	ReviewedHash string
}

// NewFileRecord returns an empty record.
func NewFileRecord() *FileRecord {
	return &FileRecord{LineComments: map[LineKey]Comment{}}
}

// Empty reports whether the record carries no state at all. Empty records
// are never persisted; saving one deletes the note instead.
func (r *FileRecord) Empty() bool {
	return r.FileComment == nil && len(r.LineComments) == 0 && !r.Reviewed
}

// Unresolved reports whether the record has any unresolved comment.
func (r *FileRecord) Unresolved() bool {
	if r.FileComment != nil && !r.FileComment.Resolved {
		return true
	}
	for _, c := range r.LineComments {
		if !c.Resolved {
			return true
		}
	}
	return false
}

// SortedLineKeys returns line keys ordered by line number, new side before
// old on ties. All rendering walks comments in this order.
func (r *FileRecord) SortedLineKeys() []LineKey {
	keys := make([]LineKey, 0, len(r.LineComments))
	for k := range r.LineComments {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Line != keys[j].Line {
			return keys[i].Line < keys[j].Line
		}
		return keys[i].Side < keys[j].Side
	})
	return keys
}

// SetLineComment stores or replaces the comment at key. An empty body
// removes the entry.
func (r *FileRecord) SetLineComment(key LineKey, c Comment) {
	if strings.TrimSpace(c.Body) == "" {
		delete(r.LineComments, key)
		return
	}
	if r.LineComments == nil {
		r.LineComments = map[LineKey]Comment{}
	}
	r.LineComments[key] = c
}

// SetFileComment stores or replaces the file-level comment. An empty body
// clears it.
func (r *FileRecord) SetFileComment(c Comment) {
	if strings.TrimSpace(c.Body) == "" {
		r.FileComment = nil
		return
	}
	cc := c
	r.FileComment = &cc
}

// Clone returns a deep copy of the record.
func (r *FileRecord) Clone() *FileRecord {
	out := &FileRecord{
		Reviewed:     r.Reviewed,
		ReviewedHash: r.ReviewedHash,
		LineComments: make(map[LineKey]Comment, len(r.LineComments)),
	}
	if r.FileComment != nil {
		fc := *r.FileComment
		out.FileComment = &fc
	}
	for k, v := range r.LineComments {
		out.LineComments[k] = v
	}
	return out
}
