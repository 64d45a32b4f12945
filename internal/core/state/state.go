// Package state applies review operations to records: adding comments,
// resolving them, and marking files reviewed. It enforces the anchoring and
// invalidation rules so every surface (CLI, editor, draft sync) behaves the
// same way.
package state

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/remarklabs/remark/internal/core/diffview"
	"github.com/remarklabs/remark/internal/core/git"
	"github.com/remarklabs/remark/internal/core/identity"
	"github.com/remarklabs/remark/internal/core/notes"
	"github.com/remarklabs/remark/internal/core/review"
)

// Sentinel errors for review operations.
var (
	// ErrNoComment indicates a resolve target with no comment behind it.
	ErrNoComment = errors.New("no comment at target")
	// ErrNoAnchor indicates a line target absent from the live diff.
	ErrNoAnchor = errors.New("line is not part of the current diff")
	// ErrNoChanges indicates a path with no changes in the current view.
	ErrNoChanges = errors.New("path has no changes in this view")
)

// Target addresses a comment within a file: the file header or one line.
type Target struct {
	File bool
	Line review.LineKey
}

// FileTarget addresses the file-level comment.
func FileTarget() Target { return Target{File: true} }

// LineTarget addresses the comment at key.
func LineTarget(key review.LineKey) Target { return Target{Line: key} }

// String renders the target for messages.
func (t Target) String() string {
	if t.File {
		return "file"
	}
	return t.Line.String()
}

// Session is a review session pinned to one HEAD and one view. All record
// keys derive from that pair, so records written during a session remain
// addressable for its duration.
type Session struct {
	repo   *git.Repo
	store  *notes.Store
	source *diffview.Source
	view   git.View
	head   string
	log    zerolog.Logger
}

// NewSession resolves HEAD and pins a session to it.
func NewSession(ctx context.Context, repo *git.Repo, store *notes.Store, source *diffview.Source, view git.View, log zerolog.Logger) (*Session, error) {
	head, err := repo.Head(ctx)
	if err != nil {
		return nil, err
	}
	return &Session{
		repo:   repo,
		store:  store,
		source: source,
		view:   view,
		head:   head,
		log:    log.With().Str("component", "state").Stringer("view", view).Logger(),
	}, nil
}

// View returns the session's diff view.
func (s *Session) View() git.View { return s.view }

// Head returns the commit the session is pinned to.
func (s *Session) Head() string { return s.head }

// Source returns the session's diff source.
func (s *Session) Source() *diffview.Source { return s.source }

// Key returns the record key for a path within this session.
func (s *Session) Key(path string) identity.Key {
	return identity.Key{Head: s.head, View: s.view, Path: s.repo.NormalizePath(path)}
}

// Load returns the record for path with the reviewed invalidation applied:
// a reviewed mark whose stored hash no longer matches the live diff reads
// as not reviewed. diff may be nil, in which case it is computed on demand
// only when the record carries a reviewed mark.
func (s *Session) Load(ctx context.Context, path string, diff *diffview.FileDiff) (*review.FileRecord, error) {
	rec, err := s.store.Load(ctx, s.Key(path))
	if err != nil {
		return nil, err
	}
	if !rec.Reviewed {
		return rec, nil
	}
	if diff == nil {
		diff, err = s.source.File(ctx, s.view, s.repo.NormalizePath(path))
		if err != nil {
			return nil, err
		}
	}
	if diff == nil || diff.Hash() != rec.ReviewedHash {
		rec.Reviewed = false
		rec.ReviewedHash = ""
	}
	return rec, nil
}

// Save persists the record for path.
func (s *Session) Save(ctx context.Context, path string, rec *review.FileRecord) error {
	return s.store.Save(ctx, s.Key(path), rec)
}

// AddComment appends body to the comment at target, creating it when absent.
// Line targets must anchor to a line present in the live diff. Adding to a
// resolved comment reopens it.
func (s *Session) AddComment(ctx context.Context, path, body string, target Target) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return errors.New("empty comment body")
	}
	path = s.repo.NormalizePath(path)
	diff, err := s.source.File(ctx, s.view, path)
	if err != nil {
		return err
	}
	if diff == nil {
		return fmt.Errorf("%w: %s", ErrNoChanges, path)
	}
	if !target.File && !diff.HasAnchor(target.Line) {
		return fmt.Errorf("%w: %s:%s", ErrNoAnchor, path, target.Line)
	}
	rec, err := s.Load(ctx, path, diff)
	if err != nil {
		return err
	}
	if target.File {
		merged := body
		if rec.FileComment != nil {
			merged = rec.FileComment.Body + "\n\n" + body
		}
		rec.SetFileComment(review.Comment{Body: merged})
	} else {
		merged := body
		if existing, ok := rec.LineComments[target.Line]; ok {
			merged = existing.Body + "\n\n" + body
		}
		rec.SetLineComment(target.Line, review.Comment{Body: merged})
	}
	return s.Save(ctx, path, rec)
}

// SetResolved marks the comment at target resolved or unresolved.
func (s *Session) SetResolved(ctx context.Context, path string, target Target, resolved bool) error {
	path = s.repo.NormalizePath(path)
	rec, err := s.Load(ctx, path, nil)
	if err != nil {
		return err
	}
	if target.File {
		if rec.FileComment == nil {
			return fmt.Errorf("%w: %s file comment", ErrNoComment, path)
		}
		rec.FileComment.Resolved = resolved
	} else {
		c, ok := rec.LineComments[target.Line]
		if !ok {
			return fmt.Errorf("%w: %s:%s", ErrNoComment, path, target.Line)
		}
		c.Resolved = resolved
		rec.LineComments[target.Line] = c
	}
	return s.Save(ctx, path, rec)
}

// SetResolvedAll marks every comment in the file resolved or unresolved.
// Returns the number of comments changed.
func (s *Session) SetResolvedAll(ctx context.Context, path string, resolved bool) (int, error) {
	path = s.repo.NormalizePath(path)
	rec, err := s.Load(ctx, path, nil)
	if err != nil {
		return 0, err
	}
	changed := 0
	if rec.FileComment != nil && rec.FileComment.Resolved != resolved {
		rec.FileComment.Resolved = resolved
		changed++
	}
	for k, c := range rec.LineComments {
		if c.Resolved != resolved {
			c.Resolved = resolved
			rec.LineComments[k] = c
			changed++
		}
	}
	if changed == 0 {
		return 0, nil
	}
	return changed, s.Save(ctx, path, rec)
}

// SetReviewed marks a file reviewed, capturing the live diff hash so the
// mark expires when the diff changes. Unmarking clears the stored hash.
func (s *Session) SetReviewed(ctx context.Context, path string, reviewed bool) error {
	path = s.repo.NormalizePath(path)
	rec, err := s.store.Load(ctx, s.Key(path))
	if err != nil {
		return err
	}
	if !reviewed {
		rec.Reviewed = false
		rec.ReviewedHash = ""
		return s.Save(ctx, path, rec)
	}
	diff, err := s.source.File(ctx, s.view, path)
	if err != nil {
		return err
	}
	if diff == nil {
		return fmt.Errorf("%w: %s", ErrNoChanges, path)
	}
	rec.Reviewed = true
	rec.ReviewedHash = diff.Hash()
	return s.Save(ctx, path, rec)
}

// DropStale removes comments whose anchors vanished from the live diff.
// File comments are never dropped. Returns the keys removed.
func (s *Session) DropStale(ctx context.Context, path string) ([]review.LineKey, error) {
	path = s.repo.NormalizePath(path)
	diff, err := s.source.File(ctx, s.view, path)
	if err != nil {
		return nil, err
	}
	rec, err := s.Load(ctx, path, diff)
	if err != nil {
		return nil, err
	}
	live := make(map[review.LineKey]struct{})
	if diff != nil {
		for _, k := range diff.Anchors() {
			live[k] = struct{}{}
		}
	}
	var dropped []review.LineKey
	for _, k := range rec.SortedLineKeys() {
		if _, ok := live[k]; !ok {
			delete(rec.LineComments, k)
			dropped = append(dropped, k)
		}
	}
	if len(dropped) == 0 {
		return nil, nil
	}
	return dropped, s.Save(ctx, path, rec)
}
