package state

import (
	"context"

	"github.com/remarklabs/remark/internal/core/review"
)

// draftStore adapts a session to the record access the draft reconciler
// needs. Loads go through the session so reviewed invalidation applies.
type draftStore struct {
	s *Session
}

// DraftStore returns a draft-facing view of the session.
func DraftStore(s *Session) interface {
	Load(ctx context.Context, path string) (*review.FileRecord, error)
	Save(ctx context.Context, path string, rec *review.FileRecord) error
} {
	return draftStore{s: s}
}

func (d draftStore) Load(ctx context.Context, path string) (*review.FileRecord, error) {
	return d.s.Load(ctx, path, nil)
}

func (d draftStore) Save(ctx context.Context, path string, rec *review.FileRecord) error {
	return d.s.Save(ctx, path, rec)
}
