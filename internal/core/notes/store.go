// Package notes persists review records as git notes.
package notes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/remarklabs/remark/internal/core/git"
	"github.com/remarklabs/remark/internal/core/identity"
	"github.com/remarklabs/remark/internal/core/review"
)

// DefaultRef is the notes ref remark writes to unless configured otherwise.
const DefaultRef = "refs/notes/remark"

// NormalizeRef qualifies a short notes ref name. "feature" becomes
// "refs/notes/remark/feature"; already qualified names pass through.
func NormalizeRef(name string) string {
	switch {
	case name == "":
		return DefaultRef
	case strings.HasPrefix(name, "refs/notes/"):
		return name
	case strings.HasPrefix(name, "remark/"):
		return "refs/notes/" + name
	default:
		return DefaultRef + "/" + name
	}
}

// Store reads and writes review records on a single notes ref. A store
// remembers whether the ref was missing and attempts at most one fetch from
// origin per session to populate it.
type Store struct {
	repo *git.Repo
	ref  string
	log  zerolog.Logger

	fetchTried bool
}

// NewStore returns a store over the given notes ref.
func NewStore(repo *git.Repo, ref string, log zerolog.Logger) *Store {
	if ref == "" {
		ref = DefaultRef
	}
	return &Store{
		repo: repo,
		ref:  ref,
		log:  log.With().Str("component", "notes").Str("ref", ref).Logger(),
	}
}

// Ref returns the notes ref the store operates on.
func (s *Store) Ref() string { return s.ref }

// ensureRef fetches the notes ref from origin the first time it is found
// missing locally. Fetch failures are logged and ignored so offline use
// still works.
func (s *Store) ensureRef(ctx context.Context) {
	if s.fetchTried {
		return
	}
	s.fetchTried = true
	ok, err := s.repo.RefExists(ctx, s.ref)
	if err != nil || ok {
		return
	}
	if err := s.repo.FetchRef(ctx, s.ref); err != nil {
		s.log.Debug().Err(err).Msg("notes ref fetch failed, starting empty")
	}
}

// Load returns the record for key. A missing note yields an empty record.
// A note that fails to parse also yields an empty record, with a warning,
// so one corrupt note never blocks a review session.
func (s *Store) Load(ctx context.Context, key identity.Key) (*review.FileRecord, error) {
	s.ensureRef(ctx)
	data, err := s.repo.NoteShow(ctx, s.ref, key.ObjectID())
	if err != nil {
		if errors.Is(err, git.ErrPathNotFound) {
			return review.NewFileRecord(), nil
		}
		return nil, fmt.Errorf("load review for %s: %w", key.Path, err)
	}
	rec, err := review.Decode(data)
	if err != nil {
		s.log.Warn().Err(err).Str("path", key.Path).Msg("unreadable review note, treating as empty")
		return review.NewFileRecord(), nil
	}
	return rec, nil
}

// Save persists the record for key. Empty records delete the note instead of
// writing one, and a write whose bytes match the stored note is skipped.
func (s *Store) Save(ctx context.Context, key identity.Key, rec *review.FileRecord) error {
	s.ensureRef(ctx)
	obj := key.ObjectID()
	if rec.Empty() {
		if err := s.repo.NoteRemove(ctx, s.ref, obj); err != nil {
			return fmt.Errorf("remove review for %s: %w", key.Path, err)
		}
		return nil
	}
	encoded, err := review.Encode(rec, key.Path)
	if err != nil {
		return err
	}
	if existing, err := s.repo.NoteShow(ctx, s.ref, obj); err == nil {
		if bytes.Equal(bytes.TrimRight(existing, "\n"), bytes.TrimRight(encoded, "\n")) {
			return nil
		}
	}
	// The synthetic id only exists as an object once its key payload is
	// written as a blob; git notes add refuses to annotate unknown objects.
	written, err := s.repo.HashObject(ctx, key.Payload())
	if err != nil {
		return fmt.Errorf("materialize key for %s: %w", key.Path, err)
	}
	if written != obj {
		return fmt.Errorf("key id mismatch for %s: computed %s, git wrote %s", key.Path, obj, written)
	}
	if err := s.repo.NoteAdd(ctx, s.ref, obj, encoded); err != nil {
		return fmt.Errorf("save review for %s: %w", key.Path, err)
	}
	return nil
}

// Remove deletes the note for key if present.
func (s *Store) Remove(ctx context.Context, key identity.Key) error {
	return s.repo.NoteRemove(ctx, s.ref, key.ObjectID())
}
