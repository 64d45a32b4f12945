// Package git provides repository access for remark through the git binary.
package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/remarklabs/remark/pkg/executil"
)

// Sentinel errors for repository access.
var (
	// ErrNoRepository indicates the working directory is not inside a git repository.
	ErrNoRepository = errors.New("not inside a git repository")
	// ErrUnbornHead indicates the repository has no commits yet.
	ErrUnbornHead = errors.New("repository HEAD has no commits")
	// ErrRefNotFound indicates a ref could not be resolved to a commit.
	ErrRefNotFound = errors.New("ref not found")
)

// Repo wraps a discovered repository. All operations shell out to the git
// binary through an injected executor so tests can run against throwaway
// repositories.
type Repo struct {
	root    string // worktree root
	gitDir  string // absolute .git directory
	gitPath string
	exec    executil.Executor
}

// Discover locates the repository containing dir.
// Returns ErrNoRepository when dir is outside any work tree.
func Discover(ctx context.Context, dir, gitPath string, exec executil.Executor) (*Repo, error) {
	if gitPath == "" {
		gitPath = "git"
	}
	out, err := exec.RunDir(ctx, dir, gitPath, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRepository, err)
	}
	root := strings.TrimSpace(string(out))
	out, err = exec.RunDir(ctx, dir, gitPath, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return nil, fmt.Errorf("locate git dir: %w", err)
	}
	return &Repo{
		root:    root,
		gitDir:  strings.TrimSpace(string(out)),
		gitPath: gitPath,
		exec:    exec,
	}, nil
}

// Root returns the worktree root directory.
func (r *Repo) Root() string { return r.root }

// Dir returns the absolute .git directory.
func (r *Repo) Dir() string { return r.gitDir }

func (r *Repo) git(ctx context.Context, args ...string) ([]byte, error) {
	return r.exec.RunDir(ctx, r.root, r.gitPath, args...)
}

func (r *Repo) gitInput(ctx context.Context, input []byte, args ...string) ([]byte, error) {
	return r.exec.RunDirInput(ctx, r.root, input, r.gitPath, args...)
}

// Head returns the commit id of HEAD.
// Returns ErrUnbornHead for a repository with no commits.
func (r *Repo) Head(ctx context.Context) (string, error) {
	out, err := r.git(ctx, "rev-parse", "--verify", "--quiet", "HEAD^{commit}")
	if err != nil {
		return "", ErrUnbornHead
	}
	return strings.TrimSpace(string(out)), nil
}

// ResolveRef resolves a ref expression to a commit id.
func (r *Repo) ResolveRef(ctx context.Context, ref string) (string, error) {
	out, err := r.git(ctx, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrRefNotFound, ref)
	}
	return strings.TrimSpace(string(out)), nil
}

// MergeBase returns the merge base of two commit expressions.
func (r *Repo) MergeBase(ctx context.Context, a, b string) (string, error) {
	out, err := r.git(ctx, "merge-base", a, b)
	if err != nil {
		return "", fmt.Errorf("merge-base %s %s: %w", a, b, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// DefaultBaseRef picks a base ref for the base view when none is configured:
// the configured upstream if present, then main, master, and finally the
// origin HEAD symbolic ref. Returns "" when nothing resolves.
func (r *Repo) DefaultBaseRef(ctx context.Context) string {
	if _, err := r.ResolveRef(ctx, "@{upstream}"); err == nil {
		return "@{upstream}"
	}
	for _, candidate := range []string{"refs/heads/main", "refs/heads/master"} {
		if ok, _ := r.RefExists(ctx, candidate); ok {
			return candidate
		}
	}
	out, err := r.git(ctx, "symbolic-ref", "--quiet", "refs/remotes/origin/HEAD")
	if err == nil {
		if name := strings.TrimSpace(string(out)); name != "" {
			return name
		}
	}
	return ""
}

// RefExists reports whether a fully qualified ref exists locally.
func (r *Repo) RefExists(ctx context.Context, ref string) (bool, error) {
	_, err := r.git(ctx, "show-ref", "--verify", "--quiet", ref)
	if err != nil {
		var exitErr *executil.ExitError
		if errors.As(err, &exitErr) && exitErr.Code == 1 {
			return false, nil
		}
		return false, fmt.Errorf("show-ref %s: %w", ref, err)
	}
	return true, nil
}

// DeleteRef removes a ref.
func (r *Repo) DeleteRef(ctx context.Context, ref string) error {
	if _, err := r.git(ctx, "update-ref", "-d", ref); err != nil {
		return fmt.Errorf("delete ref %s: %w", ref, err)
	}
	return nil
}

// ListRefs returns fully qualified ref names under the given prefix.
func (r *Repo) ListRefs(ctx context.Context, prefix string) ([]string, error) {
	out, err := r.git(ctx, "for-each-ref", "--format=%(refname)", prefix)
	if err != nil {
		return nil, fmt.Errorf("for-each-ref %s: %w", prefix, err)
	}
	var refs []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			refs = append(refs, line)
		}
	}
	return refs, nil
}

// FetchRef fetches a ref from origin into the same local ref name.
func (r *Repo) FetchRef(ctx context.Context, ref string) error {
	if _, err := r.git(ctx, "fetch", "--quiet", "origin", ref+":"+ref); err != nil {
		return fmt.Errorf("fetch %s: %w", ref, err)
	}
	return nil
}

// ConfigGet reads a local git config value. The second return reports
// whether the key was set at all.
func (r *Repo) ConfigGet(ctx context.Context, key string) (string, bool, error) {
	out, err := r.git(ctx, "config", "--local", "--get", key)
	if err != nil {
		var exitErr *executil.ExitError
		if errors.As(err, &exitErr) && exitErr.Code == 1 {
			return "", false, nil
		}
		return "", false, fmt.Errorf("config get %s: %w", key, err)
	}
	return strings.TrimSpace(string(out)), true, nil
}

// ConfigSet writes a local git config value.
func (r *Repo) ConfigSet(ctx context.Context, key, value string) error {
	if _, err := r.git(ctx, "config", "--local", key, value); err != nil {
		return fmt.Errorf("config set %s: %w", key, err)
	}
	return nil
}

// ConfigUnset removes a local git config key. A key that was never set is
// not an error.
func (r *Repo) ConfigUnset(ctx context.Context, key string) error {
	if _, err := r.git(ctx, "config", "--local", "--unset-all", key); err != nil {
		var exitErr *executil.ExitError
		if errors.As(err, &exitErr) && exitErr.Code == 5 {
			return nil
		}
		return fmt.Errorf("config unset %s: %w", key, err)
	}
	return nil
}

// HashObject writes data as a blob into the object database and returns its id.
func (r *Repo) HashObject(ctx context.Context, data []byte) (string, error) {
	out, err := r.gitInput(ctx, data, "hash-object", "-w", "--stdin")
	if err != nil {
		return "", fmt.Errorf("hash-object: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// NormalizePath converts p to a slash-separated path relative to the
// repository root. Paths already relative are cleaned in place.
func (r *Repo) NormalizePath(p string) string {
	if filepath.IsAbs(p) {
		if rel, err := filepath.Rel(r.root, p); err == nil {
			p = rel
		}
	}
	return filepath.ToSlash(filepath.Clean(p))
}
