package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/quill/internal/audio"
	"github.com/starford/quill/internal/draft"
)

// clipFeeder is implemented by recorders whose bytes come from the caller.
type clipFeeder interface {
	Feed(h audio.Handle, r io.Reader) (int64, error)
	Discard(h audio.Handle)
}

func (s *Server) attachAudio(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.notes.GetNote(ctx, id); err != nil {
		return s.toolError(ctx, "attach_audio", err), nil
	}

	data, err := decodeDataURI(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	feeder, ok := s.rec.(clipFeeder)
	if !ok {
		return mcp.NewToolResultError("audio recording is disabled"), nil
	}
	rec := &uploadRecorder{rec: s.rec, feeder: feeder, data: data}

	// The clip is stored once; a retried edit re-attaches the same clip.
	var clip audio.Ref
	n, err := s.notes.EditNote(ctx, id, "", func(ed *draft.Editor) error {
		if _, ok := clip.URI(); ok {
			ed.AttachAudio(clip)
			return nil
		}
		if err := ed.StartRecording(ctx, rec); err != nil {
			return err
		}
		ref, err := ed.StopRecording(ctx, rec)
		if err != nil {
			return err
		}
		clip = ref
		return nil
	})
	if errors.Is(err, audio.ErrUnavailable) {
		return mcp.NewToolResultError("audio recording is disabled"), nil
	}
	if err != nil {
		return s.toolError(ctx, "attach_audio", err), nil
	}
	return jsonResult(n), nil
}

// uploadRecorder records a clip whose bytes are already known: starting a
// recording feeds them in one go.
type uploadRecorder struct {
	rec    audio.Recorder
	feeder clipFeeder
	data   []byte
}

func (u *uploadRecorder) StartRecording(ctx context.Context) (audio.Handle, error) {
	h, err := u.rec.StartRecording(ctx)
	if err != nil {
		return "", err
	}
	if _, err := u.feeder.Feed(h, bytes.NewReader(u.data)); err != nil {
		u.feeder.Discard(h)
		return "", err
	}
	return h, nil
}

func (u *uploadRecorder) StopRecording(ctx context.Context, h audio.Handle) (string, error) {
	return u.rec.StopRecording(ctx, h)
}

// decodeDataURI parses a data:audio/<type>;base64,<data> URI.
func decodeDataURI(uri string) ([]byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, fmt.Errorf("invalid data URI: must start with data:")
	}
	meta, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("invalid data URI: missing comma separator")
	}
	if !strings.Contains(meta, ";base64") {
		return nil, fmt.Errorf("only base64 data URIs are supported")
	}
	mime := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]
	if !strings.HasPrefix(mime, "audio/") {
		return nil, fmt.Errorf("unsupported MIME type in data URI: %s (want audio/*)", mime)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 data: %w", err)
		}
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty audio clip")
	}
	return data, nil
}
