package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/remarklabs/remark/pkg/executil"
)

// ErrPathNotFound indicates a path has no content on the requested side.
var ErrPathNotFound = errors.New("path not found")

// ReadWorktree reads a file from the working tree.
func (r *Repo) ReadWorktree(path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(r.root, filepath.FromSlash(path)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s in worktree", ErrPathNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// ReadIndex reads a file's staged content from the index.
func (r *Repo) ReadIndex(ctx context.Context, path string) ([]byte, error) {
	return r.show(ctx, ":"+path, path)
}

// ReadHead reads a file's content at HEAD.
func (r *Repo) ReadHead(ctx context.Context, path string) ([]byte, error) {
	return r.show(ctx, "HEAD:"+path, path)
}

// ReadAt reads a file's content at an arbitrary commit.
func (r *Repo) ReadAt(ctx context.Context, commit, path string) ([]byte, error) {
	return r.show(ctx, commit+":"+path, path)
}

func (r *Repo) show(ctx context.Context, spec, path string) ([]byte, error) {
	out, err := r.git(ctx, "show", spec)
	if err != nil {
		var exitErr *executil.ExitError
		if errors.As(err, &exitErr) && exitErr.Code == 128 {
			return nil, fmt.Errorf("%w: %s", ErrPathNotFound, spec)
		}
		return nil, fmt.Errorf("show %s: %w", spec, err)
	}
	return out, nil
}

// NoteShow reads the note attached to obj on the given notes ref.
// Returns ErrPathNotFound when no note exists.
func (r *Repo) NoteShow(ctx context.Context, notesRef, obj string) ([]byte, error) {
	out, err := r.git(ctx, "notes", "--ref", notesRef, "show", obj)
	if err != nil {
		var exitErr *executil.ExitError
		if errors.As(err, &exitErr) && exitErr.Code == 1 {
			return nil, fmt.Errorf("%w: note for %s", ErrPathNotFound, obj)
		}
		return nil, fmt.Errorf("notes show %s: %w", obj, err)
	}
	return out, nil
}

// NoteAdd attaches (or replaces) a note on obj.
func (r *Repo) NoteAdd(ctx context.Context, notesRef, obj string, body []byte) error {
	_, err := r.gitInput(ctx, body, "notes", "--ref", notesRef, "add", "-f", "-F", "-", obj)
	if err != nil {
		return fmt.Errorf("notes add %s: %w", obj, err)
	}
	return nil
}

// NoteRemove deletes the note on obj if one exists.
func (r *Repo) NoteRemove(ctx context.Context, notesRef, obj string) error {
	_, err := r.git(ctx, "notes", "--ref", notesRef, "remove", "--ignore-missing", obj)
	if err != nil {
		return fmt.Errorf("notes remove %s: %w", obj, err)
	}
	return nil
}

// NoteList returns the object ids carrying notes on the given ref.
func (r *Repo) NoteList(ctx context.Context, notesRef string) ([]string, error) {
	out, err := r.git(ctx, "notes", "--ref", notesRef, "list")
	if err != nil {
		var exitErr *executil.ExitError
		if errors.As(err, &exitErr) {
			// Ref may not exist yet.
			return nil, nil
		}
		return nil, fmt.Errorf("notes list: %w", err)
	}
	var objs []string
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 {
			objs = append(objs, fields[1])
		}
	}
	return objs, nil
}
