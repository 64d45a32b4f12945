package diffview

import (
	"errors"
	"fmt"
	"strings"
)

// Layout selects how a diff is displayed: one column or two.
type Layout int

const (
	// LayoutUnified interleaves old and new lines.
	LayoutUnified Layout = iota
	// LayoutSplit shows old and new side by side.
	LayoutSplit
)

// ErrUnknownLayout indicates a layout name that is neither unified nor split.
var ErrUnknownLayout = errors.New("unknown diff layout")

// ParseLayout maps a config value to a layout.
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unified":
		return LayoutUnified, nil
	case "split", "side-by-side":
		return LayoutSplit, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownLayout, s)
	}
}

// String returns the canonical layout name.
func (l Layout) String() string {
	if l == LayoutSplit {
		return "split"
	}
	return "unified"
}

// Toggle returns the other layout.
func (l Layout) Toggle() Layout {
	if l == LayoutSplit {
		return LayoutUnified
	}
	return LayoutSplit
}
