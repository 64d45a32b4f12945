package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/jsonrpc2"

	"github.com/remarklabs/remark/internal/core/config"
	"github.com/remarklabs/remark/internal/core/diffview"
	"github.com/remarklabs/remark/internal/core/draft"
	"github.com/remarklabs/remark/internal/core/git"
	"github.com/remarklabs/remark/internal/core/notes"
	"github.com/remarklabs/remark/internal/core/prompt"
	"github.com/remarklabs/remark/internal/core/state"
)

// Workspace commands the server executes.
const (
	CmdResolve         = "remark.resolve"
	CmdUnresolve       = "remark.unresolve"
	CmdAddDraftComment = "remark.addDraftComment"
	CmdOpenPrompt      = "remark.openPrompt"
)

// diagnosticSource tags every diagnostic the server publishes.
const diagnosticSource = "remark"

// Options tune what the server surfaces.
type Options struct {
	// IncludeResolved also publishes resolved comments, as hints.
	IncludeResolved bool
	// DisableDiagnostics suppresses publishing entirely; commands,
	// hover and draft sync keep working.
	DisableDiagnostics bool
}

// Server is the remark language server. One instance serves one editor
// connection over stdio.
type Server struct {
	repo     *git.Repo
	settings config.Settings
	view     git.View
	opts     Options
	log      zerolog.Logger

	conn             *jsonrpc2.Conn
	showDocSupported bool
	shutdown         bool
}

// NewServer builds a server for repo with resolved settings and view.
func NewServer(repo *git.Repo, settings config.Settings, view git.View, opts Options, log zerolog.Logger) *Server {
	return &Server{
		repo:     repo,
		settings: settings,
		view:     view,
		opts:     opts,
		log:      log.With().Str("component", "lsp").Logger(),
	}
}

// stdio adapts the process streams to jsonrpc2.
type stdio struct {
	io.Reader
	io.Writer
}

func (stdio) Close() error { return nil }

// Serve runs the server over stdin/stdout until the client disconnects.
func (s *Server) Serve(ctx context.Context) error {
	stream := jsonrpc2.NewBufferedStream(stdio{os.Stdin, os.Stdout}, jsonrpc2.VSCodeObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.AsyncHandler(jsonrpc2.HandlerWithError(s.handle)))
	s.conn = conn
	<-conn.DisconnectNotify()
	return nil
}

func (s *Server) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	switch req.Method {
	case "initialize":
		var params InitializeParams
		if req.Params != nil {
			if err := json.Unmarshal(*req.Params, &params); err != nil {
				return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
			}
		}
		s.showDocSupported = params.Capabilities.Window.ShowDocument.Support
		return InitializeResult{
			Capabilities: ServerCapabilities{
				// 1 = full sync; the server only reacts to open and save.
				TextDocumentSync:   1,
				HoverProvider:      true,
				CodeActionProvider: true,
				ExecuteCommandProvider: ExecuteCommandOptions{
					Commands: []string{CmdResolve, CmdUnresolve, CmdAddDraftComment, CmdOpenPrompt},
				},
			},
			ServerInfo: ServerInfo{Name: "remark"},
		}, nil
	case "initialized":
		return nil, nil
	case "shutdown":
		s.shutdown = true
		return nil, nil
	case "exit":
		conn.Close()
		return nil, nil
	case "textDocument/didOpen":
		var params DidOpenTextDocumentParams
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, nil
		}
		s.onDocument(ctx, params.TextDocument.URI, false)
		return nil, nil
	case "textDocument/didSave":
		var params DidSaveTextDocumentParams
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, nil
		}
		s.onDocument(ctx, params.TextDocument.URI, true)
		return nil, nil
	case "textDocument/didClose":
		return nil, nil
	case "textDocument/hover":
		var params HoverParams
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
		}
		return s.hover(ctx, params)
	case "textDocument/codeAction":
		var params CodeActionParams
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
		}
		return s.codeActions(ctx, params)
	case "workspace/executeCommand":
		var params ExecuteCommandParams
		if err := json.Unmarshal(*req.Params, &params); err != nil {
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
		}
		if err := s.executeCommand(ctx, params); err != nil {
			s.log.Error().Err(err).Str("command", params.Command).Msg("command failed")
			return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: err.Error()}
		}
		return nil, nil
	default:
		if req.Notif {
			return nil, nil
		}
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: req.Method}
	}
}

// session builds a fresh review session. Sessions are per-event so the
// server tracks HEAD moving underneath it.
func (s *Server) session(ctx context.Context) (*state.Session, error) {
	store := notes.NewStore(s.repo, s.settings.NotesRef, s.log)
	source := diffview.NewSource(s.repo, s.settings.ContextLines)
	return state.NewSession(ctx, s.repo, store, source, s.view, s.log)
}

// onDocument reacts to a document opening or saving. Saving the draft
// document triggers a sync; any other tracked file gets its diagnostics
// refreshed.
func (s *Server) onDocument(ctx context.Context, uri string, saved bool) {
	abs, err := uriToFilename(uri)
	if err != nil {
		s.log.Debug().Err(err).Str("uri", uri).Msg("ignoring document")
		return
	}
	if abs == draft.Path(s.repo) {
		if saved {
			s.syncDraft(ctx)
		}
		return
	}
	path, err := s.uriToPath(uri)
	if err != nil {
		s.log.Debug().Err(err).Str("uri", uri).Msg("ignoring document outside repo")
		return
	}
	if s.ignored(path) {
		return
	}
	s.publishDiagnostics(ctx, uri, path)
}

func (s *Server) ignored(path string) bool {
	for _, pattern := range s.settings.Ignore {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}

func (s *Server) publishDiagnostics(ctx context.Context, uri, path string) {
	if s.opts.DisableDiagnostics {
		return
	}
	diags, err := s.diagnosticsFor(ctx, path)
	if err != nil {
		s.log.Error().Err(err).Str("path", path).Msg("diagnostics failed")
		return
	}
	if diags == nil {
		diags = []Diagnostic{}
	}
	if err := s.conn.Notify(ctx, "textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diags,
	}); err != nil {
		s.log.Error().Err(err).Msg("publish failed")
	}
}

func (s *Server) syncDraft(ctx context.Context) {
	session, err := s.session(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("draft sync: no session")
		return
	}
	sum, err := SyncDraftFile(ctx, s.repo, session, s.log)
	if err != nil {
		s.log.Error().Err(err).Msg("draft sync failed")
		s.showMessage(ctx, 1, fmt.Sprintf("remark draft sync failed: %v", err))
		return
	}
	if sum.Updated+sum.Deleted > 0 {
		s.log.Info().Int("updated", sum.Updated).Int("deleted", sum.Deleted).Msg("draft synced")
	}
}

func (s *Server) showMessage(ctx context.Context, typ int, msg string) {
	_ = s.conn.Notify(ctx, "window/showMessage", ShowMessageParams{Type: typ, Message: msg})
}

// showDocument asks the client to open uri, when the client said it can.
func (s *Server) showDocument(ctx context.Context, target string) {
	if !s.showDocSupported {
		return
	}
	var result struct {
		Success bool `json:"success"`
	}
	if err := s.conn.Call(ctx, "window/showDocument", ShowDocumentParams{URI: pathToURI(target), TakeFocus: true}, &result); err != nil {
		s.log.Debug().Err(err).Msg("showDocument failed")
	}
}

func (s *Server) uriToPath(uri string) (string, error) {
	abs, err := uriToFilename(uri)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(s.repo.Root(), abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("uri outside repository: %s", uri)
	}
	return filepath.ToSlash(rel), nil
}

func uriToFilename(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse uri %q: %w", uri, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported uri scheme %q", u.Scheme)
	}
	return filepath.FromSlash(u.Path), nil
}

func pathToURI(abs string) string {
	return "file://" + filepath.ToSlash(abs)
}

// SyncDraftFile reads the draft document from disk and reconciles it,
// updating the sync index. Shared by the server and the draft command.
func SyncDraftFile(ctx context.Context, repo *git.Repo, session *state.Session, log zerolog.Logger) (draft.Summary, error) {
	data, err := os.ReadFile(draft.Path(repo))
	if err != nil {
		return draft.Summary{}, fmt.Errorf("read draft: %w", err)
	}
	meta, err := draft.LoadMeta(draft.MetaPath(repo))
	if err != nil {
		return draft.Summary{}, err
	}
	if !meta.ShouldSync(data) {
		return draft.Summary{}, nil
	}
	doc, warns, err := draft.Parse(data)
	if err != nil {
		return draft.Summary{}, err
	}
	for _, w := range warns {
		log.Warn().Int("line", w.Line).Str("reason", w.Msg).Msg("skipped draft block")
	}
	rec := draft.NewReconciler(state.DraftStore(session), log)
	next, sum, err := rec.Sync(ctx, doc, meta)
	if err != nil {
		return sum, err
	}
	next.DraftHash = draft.ContentHash(data)
	if err := draft.SaveMeta(draft.MetaPath(repo), next); err != nil {
		return sum, err
	}
	return sum, nil
}

// EnsureDraftSlot makes sure the draft document has a comment slot for the
// target, creating the draft from current records when absent, and returns
// the draft path. Shared by the server and the add command.
func EnsureDraftSlot(ctx context.Context, repo *git.Repo, session *state.Session, log zerolog.Logger, path string, target state.Target) (string, error) {
	draftPath := draft.Path(repo)
	var doc *draft.Doc
	if data, err := os.ReadFile(draftPath); err == nil {
		var warns []draft.ParseError
		if doc, warns, err = draft.Parse(data); err != nil {
			return "", err
		}
		for _, w := range warns {
			log.Warn().Int("line", w.Line).Str("reason", w.Msg).Msg("skipped draft block")
		}
	} else {
		files, err := session.Source().Files(ctx, session.View())
		if err != nil {
			return "", err
		}
		if doc, err = draft.Generate(ctx, state.DraftStore(session), files); err != nil {
			return "", err
		}
	}
	section := doc.Section(path)
	if section == nil {
		doc.Files = append(doc.Files, draft.FileSection{Path: path})
		section = &doc.Files[len(doc.Files)-1]
	}
	if !target.File {
		found := false
		for _, l := range section.Lines {
			if l.Key == target.Line {
				found = true
				break
			}
		}
		if !found {
			section.Lines = append(section.Lines, draft.LineEntry{Key: target.Line})
		}
	}
	if err := os.MkdirAll(filepath.Dir(draftPath), 0o755); err != nil {
		return "", fmt.Errorf("create draft dir: %w", err)
	}
	if err := os.WriteFile(draftPath, draft.Render(doc), 0o644); err != nil {
		return "", fmt.Errorf("write draft: %w", err)
	}
	return draftPath, nil
}

// WritePrompt collates the current prompt to a temp file and returns its
// path. Used by the openPrompt command.
func WritePrompt(ctx context.Context, session *state.Session, log zerolog.Logger) (string, error) {
	collator := prompt.NewCollator(session, log)
	text, n, err := collator.Collate(ctx, prompt.FilterUnresolved)
	if err != nil {
		return "", err
	}
	if n == 0 {
		text = "No unresolved review comments.\n"
	}
	f, err := os.CreateTemp("", "remark-prompt-*.md")
	if err != nil {
		return "", fmt.Errorf("create prompt file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(text); err != nil {
		return "", fmt.Errorf("write prompt file: %w", err)
	}
	return f.Name(), nil
}
