package diffview

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/remarklabs/remark/internal/core/git"
)

// DefaultContextLines matches git's own default diff context.
const DefaultContextLines = 3

// Source produces the file diffs for a view, synthesizing entries for
// untracked files so they can be reviewed like any other change.
type Source struct {
	repo    *git.Repo
	context int
}

// NewSource returns a source over repo. contextLines <= 0 selects the
// default.
func NewSource(repo *git.Repo, contextLines int) *Source {
	if contextLines <= 0 {
		contextLines = DefaultContextLines
	}
	return &Source{repo: repo, context: contextLines}
}

// Files returns each changed file's diff for the view, sorted by path.
// Views that read the working tree also include untracked files rendered
// as entirely added content.
func (s *Source) Files(ctx context.Context, v git.View, paths ...string) ([]*FileDiff, error) {
	raw, err := s.repo.Diff(ctx, v, s.context, paths...)
	if err != nil {
		return nil, err
	}
	files, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse diff for %s: %w", v, err)
	}
	if v.Kind == git.ViewAll || v.Kind == git.ViewUnstaged {
		untracked, err := s.untrackedFiles(ctx, paths)
		if err != nil {
			return nil, err
		}
		files = append(files, untracked...)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// File returns the diff for one path within a view, or nil when the path has
// no changes there.
func (s *Source) File(ctx context.Context, v git.View, path string) (*FileDiff, error) {
	files, err := s.Files(ctx, v, path)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if f.Path == path {
			return f, nil
		}
	}
	return nil, nil
}

func (s *Source) untrackedFiles(ctx context.Context, filter []string) ([]*FileDiff, error) {
	paths, err := s.repo.UntrackedPaths(ctx)
	if err != nil {
		return nil, err
	}
	want := map[string]struct{}{}
	for _, p := range filter {
		want[p] = struct{}{}
	}
	var files []*FileDiff
	for _, p := range paths {
		if len(want) > 0 {
			if _, ok := want[p]; !ok {
				continue
			}
		}
		content, err := s.repo.ReadWorktree(p)
		if err != nil {
			return nil, err
		}
		files = append(files, SynthesizeUntracked(p, content))
	}
	return files, nil
}

// SynthesizeUntracked builds an all-added diff for a file git diff does not
// report. Binary content gets a binary stub so prompts stay readable.
func SynthesizeUntracked(path string, content []byte) *FileDiff {
	f := &FileDiff{Path: path, IsNew: true, IsUntracked: true}
	var raw strings.Builder
	fmt.Fprintf(&raw, "diff --git a/%s b/%s\n", path, path)
	raw.WriteString("new file mode 100644\n")
	if !utf8.Valid(content) {
		f.IsBinary = true
		fmt.Fprintf(&raw, "Binary files /dev/null and b/%s differ\n", path)
		f.raw = raw.String()
		return f
	}
	text := strings.TrimSuffix(string(content), "\n")
	raw.WriteString("--- /dev/null\n")
	fmt.Fprintf(&raw, "+++ b/%s\n", path)
	if text == "" && len(content) == 0 {
		f.raw = raw.String()
		return f
	}
	lines := strings.Split(text, "\n")
	fmt.Fprintf(&raw, "@@ -0,0 +1,%d @@\n", len(lines))
	hunk := Hunk{OldStart: 0, OldCount: 0, NewStart: 1, NewCount: len(lines)}
	for i, line := range lines {
		raw.WriteString("+")
		raw.WriteString(line)
		raw.WriteByte('\n')
		hunk.Lines = append(hunk.Lines, Line{Origin: OriginAdded, NewLine: i + 1, Text: line})
	}
	f.Hunks = append(f.Hunks, hunk)
	f.raw = raw.String()
	return f
}
