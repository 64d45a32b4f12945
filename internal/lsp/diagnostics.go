package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/remarklabs/remark/internal/core/diffview"
	"github.com/remarklabs/remark/internal/core/review"
	"github.com/remarklabs/remark/internal/core/state"
)

// diagnosticsFor builds the annotations for one file. Unresolved comments
// are warnings, resolved ones hints. Old-side comments are displayed at
// their nearest surviving line with an "[old] " prefix since the old text
// is not in the buffer.
func (s *Server) diagnosticsFor(ctx context.Context, path string) ([]Diagnostic, error) {
	located, err := s.locate(ctx, path)
	if err != nil {
		return nil, err
	}
	var diags []Diagnostic
	for _, lc := range located {
		if lc.c.Resolved && !s.opts.IncludeResolved {
			continue
		}
		msg := firstLine(lc.c.Body)
		if !lc.file {
			msg = fmt.Sprintf("%s (line %d)", msg, lc.key.Line)
			if lc.key.Side == review.SideOld {
				msg = "[old] " + msg
			}
		}
		diags = append(diags, Diagnostic{
			Range:    Range{Start: Position{Line: lc.line}, End: Position{Line: lc.line}},
			Severity: severity(lc.c.Resolved),
			Source:   diagnosticSource,
			Message:  msg,
		})
	}
	return diags, nil
}

func severity(resolved bool) int {
	if resolved {
		return SeverityHint
	}
	return SeverityWarning
}

func firstLine(body string) string {
	body = strings.TrimSpace(body)
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		return body[:i]
	}
	return body
}

// displayLineForOld maps an old-side line to a new-side line the buffer
// still has: the removed line's position in its hunk, clamped to the
// nearest line carrying a new number.
func displayLineForOld(diff *diffview.FileDiff, oldLine int) int {
	if diff == nil {
		return 1
	}
	for _, h := range diff.Hunks {
		for i, l := range h.Lines {
			if l.OldLine != oldLine || l.Origin == diffview.OriginContext {
				continue
			}
			for j := i; j >= 0; j-- {
				if h.Lines[j].NewLine > 0 {
					return h.Lines[j].NewLine
				}
			}
			return h.NewStart
		}
	}
	return 1
}

// commandArgs is the single-object argument every remark command takes.
type commandArgs struct {
	URI     string `json:"uri"`
	Line    int    `json:"line,omitempty"`
	Side    string `json:"side,omitempty"`
	Message string `json:"message,omitempty"`
}

func (s *Server) executeCommand(ctx context.Context, params ExecuteCommandParams) error {
	var args commandArgs
	if len(params.Arguments) > 0 {
		if err := json.Unmarshal(params.Arguments[0], &args); err != nil {
			return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
		}
	}
	switch params.Command {
	case CmdResolve:
		return s.setResolved(ctx, args, true)
	case CmdUnresolve:
		return s.setResolved(ctx, args, false)
	case CmdAddDraftComment:
		return s.addDraftComment(ctx, args)
	case CmdOpenPrompt:
		session, err := s.session(ctx)
		if err != nil {
			return err
		}
		path, err := WritePrompt(ctx, session, s.log)
		if err != nil {
			return err
		}
		s.showDocument(ctx, path)
		return nil
	default:
		return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "unknown command " + params.Command}
	}
}

func (s *Server) target(args commandArgs) (state.Target, error) {
	if args.Line == 0 {
		return state.FileTarget(), nil
	}
	side := review.SideNew
	if args.Side != "" {
		var err error
		if side, err = review.ParseSide(args.Side); err != nil {
			return state.Target{}, err
		}
	}
	return state.LineTarget(review.LineKey{Side: side, Line: args.Line}), nil
}

func (s *Server) setResolved(ctx context.Context, args commandArgs, resolved bool) error {
	path, err := s.uriToPath(args.URI)
	if err != nil {
		return err
	}
	target, err := s.target(args)
	if err != nil {
		return err
	}
	session, err := s.session(ctx)
	if err != nil {
		return err
	}
	if err := session.SetResolved(ctx, path, target, resolved); err != nil {
		return err
	}
	s.publishDiagnostics(ctx, args.URI, path)
	return nil
}

// addDraftComment records a comment for the target. With a message it is
// saved directly; otherwise the draft gains a slot for it and the draft is
// opened in the editor so the user can fill it in.
func (s *Server) addDraftComment(ctx context.Context, args commandArgs) error {
	path, err := s.uriToPath(args.URI)
	if err != nil {
		return err
	}
	session, err := s.session(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(args.Message) != "" {
		target, err := s.target(args)
		if err != nil {
			return err
		}
		if err := session.AddComment(ctx, path, args.Message, target); err != nil {
			return err
		}
		s.publishDiagnostics(ctx, args.URI, path)
		return nil
	}
	target, err := s.target(args)
	if err != nil {
		return err
	}
	draftPath, err := EnsureDraftSlot(ctx, s.repo, session, s.log, path, target)
	if err != nil {
		return err
	}
	s.showDocument(ctx, draftPath)
	return nil
}
