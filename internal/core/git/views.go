package git

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/remarklabs/remark/pkg/executil"
)

// ViewKind selects which diff window a review targets.
type ViewKind int

const (
	// ViewAll compares HEAD against the working tree.
	ViewAll ViewKind = iota
	// ViewStaged compares HEAD against the index.
	ViewStaged
	// ViewUnstaged compares the index against the working tree.
	ViewUnstaged
	// ViewBase compares the merge base with a base ref against HEAD.
	ViewBase
)

// ErrUnknownView indicates a view name that is not one of the recognized kinds.
var ErrUnknownView = errors.New("unknown diff view")

// View is a tagged diff window. Base is set only for ViewBase.
type View struct {
	Kind ViewKind
	Base string
}

// ParseViewKind maps a user-supplied view name to its kind.
func ParseViewKind(s string) (ViewKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "all":
		return ViewAll, nil
	case "staged":
		return ViewStaged, nil
	case "unstaged":
		return ViewUnstaged, nil
	case "base":
		return ViewBase, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownView, s)
	}
}

// String returns the canonical view name.
func (k ViewKind) String() string {
	switch k {
	case ViewAll:
		return "all"
	case ViewStaged:
		return "staged"
	case ViewUnstaged:
		return "unstaged"
	case ViewBase:
		return "base"
	default:
		return "unknown"
	}
}

// String renders a view, including its base ref for base views.
func (v View) String() string {
	if v.Kind == ViewBase && v.Base != "" {
		return "base:" + v.Base
	}
	return v.Kind.String()
}

// diffArgs builds the git diff argument list for a view. For base views the
// base ref must already be resolved to a merge-base commit by the caller.
func diffArgs(v View, mergeBase string, contextLines int, paths []string) []string {
	args := []string{"diff", "--no-color", "--no-ext-diff", "-U" + strconv.Itoa(contextLines)}
	switch v.Kind {
	case ViewAll:
		args = append(args, "HEAD")
	case ViewStaged:
		args = append(args, "--cached")
	case ViewUnstaged:
		// index vs worktree, no extra revision argument
	case ViewBase:
		args = append(args, mergeBase+"..HEAD")
	}
	if len(paths) > 0 {
		args = append(args, "--")
		args = append(args, paths...)
	}
	return args
}

// Diff returns the raw unified diff text for a view. For ViewBase the view's
// Base ref is resolved and its merge base with HEAD is used as the left side.
func (r *Repo) Diff(ctx context.Context, v View, contextLines int, paths ...string) ([]byte, error) {
	var mergeBase string
	if v.Kind == ViewBase {
		baseCommit, err := r.ResolveRef(ctx, v.Base)
		if err != nil {
			return nil, err
		}
		head, err := r.Head(ctx)
		if err != nil {
			return nil, err
		}
		mergeBase, err = r.MergeBase(ctx, baseCommit, head)
		if err != nil {
			return nil, err
		}
	}
	out, err := r.git(ctx, diffArgs(v, mergeBase, contextLines, paths)...)
	if err != nil {
		// git diff exits 1 when run with --exit-code; plain diff failures
		// are real errors.
		return nil, fmt.Errorf("diff %s: %w", v, err)
	}
	return out, nil
}

// ChangedPaths returns the repo-relative paths touched by a view, including
// untracked files for views that read the working tree.
func (r *Repo) ChangedPaths(ctx context.Context, v View) ([]string, error) {
	var args []string
	switch v.Kind {
	case ViewAll:
		args = []string{"diff", "--name-only", "HEAD"}
	case ViewStaged:
		args = []string{"diff", "--name-only", "--cached"}
	case ViewUnstaged:
		args = []string{"diff", "--name-only"}
	case ViewBase:
		baseCommit, err := r.ResolveRef(ctx, v.Base)
		if err != nil {
			return nil, err
		}
		head, err := r.Head(ctx)
		if err != nil {
			return nil, err
		}
		mergeBase, err := r.MergeBase(ctx, baseCommit, head)
		if err != nil {
			return nil, err
		}
		args = []string{"diff", "--name-only", mergeBase + "..HEAD"}
	}
	out, err := r.git(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("changed paths %s: %w", v, err)
	}
	seen := map[string]struct{}{}
	var paths []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			if _, ok := seen[line]; !ok {
				seen[line] = struct{}{}
				paths = append(paths, line)
			}
		}
	}
	if v.Kind == ViewAll || v.Kind == ViewUnstaged {
		untracked, err := r.UntrackedPaths(ctx)
		if err != nil {
			return nil, err
		}
		for _, p := range untracked {
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				paths = append(paths, p)
			}
		}
	}
	return paths, nil
}

// UntrackedPaths lists untracked, non-ignored files.
func (r *Repo) UntrackedPaths(ctx context.Context) ([]string, error) {
	out, err := r.git(ctx, "ls-files", "--others", "--exclude-standard")
	if err != nil {
		return nil, fmt.Errorf("list untracked: %w", err)
	}
	var paths []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

// IsTracked reports whether path is known to the index.
func (r *Repo) IsTracked(ctx context.Context, path string) (bool, error) {
	_, err := r.git(ctx, "ls-files", "--error-unmatch", "--", path)
	if err != nil {
		var exitErr *executil.ExitError
		if errors.As(err, &exitErr) && exitErr.Code == 1 {
			return false, nil
		}
		return false, fmt.Errorf("ls-files %s: %w", path, err)
	}
	return true, nil
}
