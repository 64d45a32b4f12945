package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/remarklabs/remark/internal/core/review"
)

// locatedComment is a comment placed at its display line in the buffer.
type locatedComment struct {
	key  review.LineKey
	file bool
	c    review.Comment
	// line is 0-based in the buffer; file comments sit on line 0.
	line int
}

// locate loads the record for path and positions each comment the way
// diagnostics do, so hover and code actions line up with what is shown.
func (s *Server) locate(ctx context.Context, path string) ([]locatedComment, error) {
	session, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	diff, err := session.Source().File(ctx, session.View(), path)
	if err != nil {
		return nil, err
	}
	rec, err := session.Load(ctx, path, diff)
	if err != nil {
		return nil, err
	}
	var out []locatedComment
	if rec.FileComment != nil {
		out = append(out, locatedComment{file: true, c: *rec.FileComment, line: 0})
	}
	for _, key := range rec.SortedLineKeys() {
		line := key.Line
		if key.Side == review.SideOld {
			line = displayLineForOld(diff, key.Line)
		}
		if line < 1 {
			line = 1
		}
		out = append(out, locatedComment{key: key, c: rec.LineComments[key], line: line - 1})
	}
	return out, nil
}

func (s *Server) hover(ctx context.Context, params HoverParams) (*Hover, error) {
	path, err := s.uriToPath(params.TextDocument.URI)
	if err != nil || s.ignored(path) {
		return nil, nil
	}
	located, err := s.locate(ctx, path)
	if err != nil {
		return nil, err
	}
	var parts []string
	for _, lc := range located {
		if lc.line != params.Position.Line {
			continue
		}
		parts = append(parts, hoverText(lc))
	}
	if len(parts) == 0 {
		return nil, nil
	}
	line := params.Position.Line
	return &Hover{
		Contents: MarkupContent{Kind: "markdown", Value: strings.Join(parts, "\n\n---\n\n")},
		Range:    &Range{Start: Position{Line: line}, End: Position{Line: line}},
	}, nil
}

func hoverText(lc locatedComment) string {
	var title string
	switch {
	case lc.file:
		title = "**File comment**"
	case lc.key.Side == review.SideOld:
		title = fmt.Sprintf("**Review comment** (old line %d)", lc.key.Line)
	default:
		title = fmt.Sprintf("**Review comment** (line %d)", lc.key.Line)
	}
	text := title + "\n\n" + strings.TrimRight(lc.c.Body, "\n")
	if lc.c.Resolved {
		text += "\n\n_Resolved._"
	}
	return text
}

func (s *Server) codeActions(ctx context.Context, params CodeActionParams) ([]CodeAction, error) {
	path, err := s.uriToPath(params.TextDocument.URI)
	if err != nil || s.ignored(path) {
		return nil, nil
	}
	located, err := s.locate(ctx, path)
	if err != nil {
		return nil, err
	}
	uri := params.TextDocument.URI
	var actions []CodeAction
	for _, lc := range located {
		if lc.line < params.Range.Start.Line || lc.line > params.Range.End.Line {
			continue
		}
		args := commandArgs{URI: uri}
		label := "file comment"
		if !lc.file {
			args.Line = lc.key.Line
			args.Side = lc.key.Side.String()
			label = fmt.Sprintf("comment on line %d", lc.key.Line)
		}
		cmd, title := CmdResolve, "Resolve "+label
		if lc.c.Resolved {
			cmd, title = CmdUnresolve, "Unresolve "+label
		}
		actions = append(actions, CodeAction{
			Title:   title,
			Kind:    "quickfix",
			Command: &Command{Title: title, Command: cmd, Arguments: marshalArgs(args)},
		})
	}
	addArgs := commandArgs{URI: uri, Line: params.Range.Start.Line + 1, Side: review.SideNew.String()}
	actions = append(actions, CodeAction{
		Title:   "Add review comment",
		Command: &Command{Title: "Add review comment", Command: CmdAddDraftComment, Arguments: marshalArgs(addArgs)},
	})
	actions = append(actions, CodeAction{
		Title:   "Open review prompt",
		Command: &Command{Title: "Open review prompt", Command: CmdOpenPrompt, Arguments: marshalArgs(commandArgs{URI: uri})},
	})
	return actions, nil
}

func marshalArgs(args commandArgs) []json.RawMessage {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil
	}
	return []json.RawMessage{raw}
}
