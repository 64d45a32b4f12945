package draft

import (
	"context"

	"github.com/remarklabs/remark/internal/core/diffview"
)

// Generate builds a draft document for the given files, seeding each section
// with the comments already recorded. Files without comments get an empty
// file comment slot so there is always somewhere to write.
func Generate(ctx context.Context, store Store, files []*diffview.FileDiff) (*Doc, error) {
	doc := &Doc{}
	for _, f := range files {
		rec, err := store.Load(ctx, f.Path)
		if err != nil {
			return nil, err
		}
		section := FileSection{Path: f.Path}
		if rec.FileComment != nil {
			section.FileBody = rec.FileComment.Body
		}
		for _, key := range rec.SortedLineKeys() {
			section.Lines = append(section.Lines, LineEntry{Key: key, Body: rec.LineComments[key].Body})
		}
		doc.Files = append(doc.Files, section)
	}
	return doc, nil
}

// Owned returns the per-file targets a doc carries content for, the
// ownership a fresh draft starts with.
func (d *Doc) Owned() map[string][]string {
	owned := map[string][]string{}
	for _, f := range d.Files {
		var targets []string
		if !IsBlank(f.FileBody) {
			targets = append(targets, fileTarget)
		}
		for _, l := range f.Lines {
			if !IsBlank(l.Body) {
				targets = append(targets, l.Key.String())
			}
		}
		if len(targets) > 0 {
			owned[f.Path] = targets
		}
	}
	return owned
}
