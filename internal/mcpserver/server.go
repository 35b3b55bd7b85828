// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Quill note tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/audio"
	"github.com/starford/quill/internal/models"
	"github.com/starford/quill/internal/noteservice"
)

const (
	contractURI  = "quill://note-format"
	defaultLimit = 20
)

// Server wraps the MCP server with Quill tools.
type Server struct {
	mcp    *server.MCPServer
	notes  *noteservice.Service
	rec    audio.Recorder
	logger *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithRecorder enables the attach_audio tool.
func WithRecorder(rec audio.Recorder) Option {
	return func(s *Server) { s.rec = rec }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New creates a new MCP server with all Quill tools registered.
func New(notes *noteservice.Service, version string, opts ...Option) *Server {
	s := &Server{notes: notes, rec: audio.Unavailable{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = server.NewMCPServer(
		"Quill",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Case-insensitive substring search over note titles, text and tags. Newest first."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search text; blank matches every note")),
		mcp.WithString("tag", mcp.Description("Optional exact tag to narrow the results")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 20)")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes newest first, one line per note: id, title and tags."),
		mcp.WithString("tag", mcp.Description("Optional exact tag filter")),
		mcp.WithNumber("limit", mcp.Description("Page size (0 for all)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note by id. Returns JSON including the checksum to pass to update_note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note. At least one of title, text or audio_uri must be non-blank. "+
			"Read the contract first via the get_note_contract tool or the "+contractURI+" resource."),
		mcp.WithString("title", mcp.Description("Title; blank becomes \""+models.UntitledTitle+"\"")),
		mcp.WithString("text", mcp.Description("Body text")),
		mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("Free-form tags")),
		mcp.WithString("audio_uri", mcp.Description("Reference returned by attach_audio or an upload")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Update a note. Only the fields you pass are changed. "+
			"Pass checksum from read_note to refuse the write if the note changed meanwhile."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("text", mcp.Description("New body text")),
		mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("Replacement tag list")),
		mcp.WithString("audio_uri", mcp.Description("New audio reference; empty string detaches")),
		mcp.WithString("checksum", mcp.Description("Checksum from a previous read")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Permanently delete a note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithDestructiveHintAnnotation(true),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("add_tag",
		mcp.WithDescription("Add a tag to a note. Blank or duplicate tags are ignored."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Tag")),
	), s.addTag)

	s.mcp.AddTool(mcp.NewTool("remove_tag",
		mcp.WithDescription("Remove a tag from a note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Tag")),
	), s.removeTag)

	s.mcp.AddTool(mcp.NewTool("append_transcript",
		mcp.WithDescription("Append dictated text to the end of a note's text, separated by a space."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Recognised speech")),
	), s.appendTranscript)

	s.mcp.AddTool(mcp.NewTool("attach_audio",
		mcp.WithDescription("Store an audio clip given as a base64 data URI (data:audio/...;base64,...) "+
			"and attach it to a note, replacing any previous clip."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("data", mcp.Required(), mcp.Description("Base64 data URI of the clip")),
	), s.attachAudio)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the Quill note format contract. "+
			"Call this before creating or updating notes."),
	), s.getNoteContract)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Note Format Contract",
			mcp.WithResourceDescription("How Quill notes are stored and which fields they carry."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// toolError turns a service error into a tool result the model can act on.
// Unexpected errors are logged and reported without detail.
func (s *Server) toolError(ctx context.Context, op string, err error) *mcp.CallToolResult {
	var empty *apperr.EmptyNoteError
	var nf *apperr.NotFoundError
	switch {
	case errors.As(err, &empty):
		return mcp.NewToolResultError(empty.Error())
	case errors.As(err, &nf):
		return mcp.NewToolResultError(nf.Error())
	case errors.Is(err, apperr.ErrConflict):
		return mcp.NewToolResultError("checksum mismatch: read the note again before updating")
	case errors.Is(err, apperr.ErrInvalid), errors.Is(err, audio.ErrClipTooLarge):
		return mcp.NewToolResultError(err.Error())
	default:
		s.logger.ErrorContext(ctx, "mcp tool failed", slog.String("tool", op), slog.String("error", err.Error()))
		return mcp.NewToolResultError("internal error")
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) getNoteContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}
