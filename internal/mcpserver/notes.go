package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/quill/internal/audio"
	"github.com/starford/quill/internal/draft"
	"github.com/starford/quill/internal/models"
	"github.com/starford/quill/internal/noteservice"
)

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items, total, err := s.notes.ListNotes(ctx, noteservice.ListParams{
		Query: query,
		Tag:   req.GetString("tag", ""),
		Limit: req.GetInt("limit", defaultLimit),
	})
	if err != nil {
		return s.toolError(ctx, "search_notes", err), nil
	}
	if total == 0 {
		return mcp.NewToolResultText("no notes found"), nil
	}
	return jsonResult(items), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, total, err := s.notes.ListNotes(ctx, noteservice.ListParams{
		Tag:    req.GetString("tag", ""),
		Limit:  req.GetInt("limit", 0),
		Offset: req.GetInt("offset", 0),
	})
	if err != nil {
		return s.toolError(ctx, "list_notes", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d notes\n", total)
	for _, n := range items {
		fmt.Fprintf(&b, "%s\t%s", n.ID, n.Title)
		if len(n.Tags) > 0 {
			fmt.Fprintf(&b, "\t#%s", strings.Join(n.Tags, " #"))
		}
		b.WriteByte('\n')
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.notes.GetNote(ctx, id)
	if err != nil {
		return s.toolError(ctx, "read_note", err), nil
	}
	return jsonResult(n), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := s.notes.CreateNote(ctx, models.Draft{
		Title: req.GetString("title", ""),
		Text:  req.GetString("text", ""),
		Tags:  req.GetStringSlice("tags", nil),
		Audio: audio.NewRef(req.GetString("audio_uri", "")),
	})
	if err != nil {
		return s.toolError(ctx, "create_note", err), nil
	}
	return jsonResult(n), nil
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := req.GetArguments()
	n, err := s.notes.EditNote(ctx, id, req.GetString("checksum", ""), func(ed *draft.Editor) error {
		if _, ok := args["title"]; ok {
			ed.SetTitle(req.GetString("title", ""))
		}
		if _, ok := args["text"]; ok {
			ed.SetText(req.GetString("text", ""))
		}
		if _, ok := args["tags"]; ok {
			ed.SetTags(req.GetStringSlice("tags", nil))
		}
		if _, ok := args["audio_uri"]; ok {
			if uri := req.GetString("audio_uri", ""); uri != "" {
				ed.AttachAudio(audio.NewRef(uri))
			} else {
				ed.DetachAudio()
			}
		}
		return nil
	})
	if err != nil {
		return s.toolError(ctx, "update_note", err), nil
	}
	return jsonResult(n), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.notes.DeleteNote(ctx, id); err != nil {
		return s.toolError(ctx, "delete_note", err), nil
	}
	return mcp.NewToolResultText("deleted: " + id), nil
}

func (s *Server) addTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.tagTool(ctx, req, "add_tag", s.notes.AddTag)
}

func (s *Server) removeTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.tagTool(ctx, req, "remove_tag", s.notes.RemoveTag)
}

func (s *Server) tagTool(ctx context.Context, req mcp.CallToolRequest, op string,
	fn func(ctx context.Context, id, tag string) (noteservice.NoteDetail, error),
) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tag, err := req.RequireString("tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := fn(ctx, id, tag)
	if err != nil {
		return s.toolError(ctx, op, err), nil
	}
	return jsonResult(n), nil
}

func (s *Server) appendTranscript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.notes.AppendTranscript(ctx, id, []string{text})
	if err != nil {
		return s.toolError(ctx, "append_transcript", err), nil
	}
	return jsonResult(n), nil
}
