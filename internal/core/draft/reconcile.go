package draft

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/remarklabs/remark/internal/core/review"
)

// Store is the record access the reconciler needs. The review session
// satisfies it through a thin adapter; tests use an in-memory fake.
type Store interface {
	Load(ctx context.Context, path string) (*review.FileRecord, error)
	Save(ctx context.Context, path string, rec *review.FileRecord) error
}

// fileTarget is the meta target name for the file-level comment.
const fileTarget = "file"

// Summary reports what a sync changed.
type Summary struct {
	Updated int
	Deleted int
}

// Reconciler applies draft edits to review records.
type Reconciler struct {
	store Store
	log   zerolog.Logger
}

// NewReconciler returns a reconciler over store.
func NewReconciler(store Store, log zerolog.Logger) *Reconciler {
	return &Reconciler{store: store, log: log.With().Str("component", "draft").Logger()}
}

// Sync reconciles a parsed draft against the records. Non-blank bodies are
// written through; blank or missing slots delete a comment only when the
// previous sync owned it, so comments created elsewhere survive draft
// pruning. The returned meta reflects the new ownership and must be saved
// by the caller together with the draft hash.
func (r *Reconciler) Sync(ctx context.Context, doc *Doc, prev *Meta) (*Meta, Summary, error) {
	next := NewMeta()
	var sum Summary

	for i := range doc.Files {
		f := &doc.Files[i]
		owned, err := r.syncFile(ctx, f, prev, &sum)
		if err != nil {
			return nil, sum, err
		}
		next.SetSynced(f.Path, owned)
	}

	// Sections removed from the draft wholesale still get their owned
	// comments deleted.
	for path, targets := range prev.Synced {
		if doc.Section(path) != nil {
			continue
		}
		if err := r.deleteOwned(ctx, path, targets, &sum); err != nil {
			return nil, sum, err
		}
	}
	return next, sum, nil
}

func (r *Reconciler) syncFile(ctx context.Context, f *FileSection, prev *Meta, sum *Summary) ([]string, error) {
	rec, err := r.store.Load(ctx, f.Path)
	if err != nil {
		return nil, err
	}
	dirty := false
	var owned []string

	// Duplicate line slots keep the last body.
	bodies := map[review.LineKey]string{}
	for _, l := range f.Lines {
		bodies[l.Key] = l.Body
	}

	if !IsBlank(f.FileBody) {
		owned = append(owned, fileTarget)
		if rec.FileComment == nil || rec.FileComment.Body != f.FileBody {
			resolved := rec.FileComment != nil && rec.FileComment.Resolved
			rec.SetFileComment(review.Comment{Body: f.FileBody, Resolved: resolved})
			dirty = true
			sum.Updated++
		}
	} else if prev.WasSynced(f.Path, fileTarget) && rec.FileComment != nil {
		rec.FileComment = nil
		dirty = true
		sum.Deleted++
	}

	for key, body := range bodies {
		if IsBlank(body) {
			if prev.WasSynced(f.Path, key.String()) {
				if _, ok := rec.LineComments[key]; ok {
					delete(rec.LineComments, key)
					dirty = true
					sum.Deleted++
				}
			}
			continue
		}
		owned = append(owned, key.String())
		if existing, ok := rec.LineComments[key]; !ok || existing.Body != body {
			resolved := ok && existing.Resolved
			rec.SetLineComment(key, review.Comment{Body: body, Resolved: resolved})
			dirty = true
			sum.Updated++
		}
	}

	// Owned line slots no longer present in the draft at all.
	for _, target := range prev.Synced[f.Path] {
		if target == fileTarget {
			continue
		}
		key, err := review.ParseLineKey(target)
		if err != nil {
			return nil, fmt.Errorf("draft meta: %w", err)
		}
		if _, inDoc := bodies[key]; inDoc {
			continue
		}
		if _, ok := rec.LineComments[key]; ok {
			delete(rec.LineComments, key)
			dirty = true
			sum.Deleted++
		}
	}

	if dirty {
		if err := r.store.Save(ctx, f.Path, rec); err != nil {
			return nil, err
		}
	}
	return owned, nil
}

func (r *Reconciler) deleteOwned(ctx context.Context, path string, targets []string, sum *Summary) error {
	rec, err := r.store.Load(ctx, path)
	if err != nil {
		return err
	}
	dirty := false
	for _, target := range targets {
		if target == fileTarget {
			if rec.FileComment != nil {
				rec.FileComment = nil
				dirty = true
				sum.Deleted++
			}
			continue
		}
		key, err := review.ParseLineKey(target)
		if err != nil {
			return fmt.Errorf("draft meta: %w", err)
		}
		if _, ok := rec.LineComments[key]; ok {
			delete(rec.LineComments, key)
			dirty = true
			sum.Deleted++
		}
	}
	if !dirty {
		return nil
	}
	return r.store.Save(ctx, path, rec)
}
