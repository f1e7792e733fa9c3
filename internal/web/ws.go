package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// wsChunkSize is the binary frame size for streamed audio.
const wsChunkSize = 32 * 1024

// wsSpeakRequest is one client text frame: synthesize this and stream the
// audio back.
type wsSpeakRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id,omitempty"`
}

// wsControlFrame is a server-to-client text frame. Binary frames between
// start and end carry the MP3 bytes.
type wsControlFrame struct {
	Type    string `json:"type"` // "start", "end" or "error"
	JobID   string `json:"job_id,omitempty"`
	VoiceID string `json:"voice_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// handleTTSWS streams synthesized speech over a websocket. Each text frame
// starts a synthesis job; a new frame cancels the running one, so the
// client always hears its latest request.
func (s *Server) handleTTSWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("ws accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()

	var (
		jobCancel context.CancelFunc
		jobDone   chan struct{}
	)
	stopJob := func() {
		if jobCancel == nil {
			return
		}
		jobCancel()
		<-jobDone
		jobCancel, jobDone = nil, nil
	}
	defer stopJob()

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		var req wsSpeakRequest
		if err := json.Unmarshal(data, &req); err != nil {
			stopJob()
			s.wsError(ctx, ctx, conn, "", "frame must be JSON with a text field")
			continue
		}
		req.Text = strings.TrimSpace(req.Text)
		if req.Text == "" {
			stopJob()
			s.wsError(ctx, ctx, conn, "", "text is required")
			continue
		}
		if len(req.Text) > previewMaxChars {
			req.Text = req.Text[:previewMaxChars]
		}

		voiceID := req.VoiceID
		if voiceID == "" {
			voiceID = s.deps.Catalog.First("")
		}
		if !s.deps.Catalog.Has(voiceID) {
			stopJob()
			s.wsError(ctx, ctx, conn, "", "unknown voice id: "+voiceID)
			continue
		}

		// The previous job owns the write side until it is fully stopped.
		stopJob()

		jobCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		jobCancel, jobDone = cancel, done
		go func() {
			defer close(done)
			s.runSpeakJob(jobCtx, ctx, conn, req.Text, voiceID)
		}()
	}
}

// runSpeakJob synthesizes one utterance and writes the start frame, audio
// chunks and end frame. It is the connection's sole writer while it runs.
//
// Writes use connCtx, never jobCtx: the websocket library tears down the
// whole connection when a write context is cancelled, and a superseded job
// must exit quietly instead.
func (s *Server) runSpeakJob(jobCtx, connCtx context.Context, conn *websocket.Conn, text, voiceID string) {
	jobID := uuid.NewString()

	stream, err := s.deps.Chain.Open(jobCtx, text, voiceID, voiceID)
	if err != nil {
		s.wsError(jobCtx, connCtx, conn, jobID, err.Error())
		return
	}
	defer stream.Close()

	if err := writeControl(connCtx, conn, wsControlFrame{Type: "start", JobID: jobID, VoiceID: voiceID}); err != nil {
		return
	}

	buf := make([]byte, wsChunkSize)
	for {
		n, rerr := stream.Read(buf)
		if n > 0 {
			if jobCtx.Err() != nil {
				return
			}
			if err := conn.Write(connCtx, websocket.MessageBinary, buf[:n]); err != nil {
				return
			}
		}
		if rerr != nil {
			if rerr != io.EOF {
				s.wsError(jobCtx, connCtx, conn, jobID, rerr.Error())
				return
			}
			break
		}
	}

	if jobCtx.Err() != nil {
		return
	}
	_ = writeControl(connCtx, conn, wsControlFrame{Type: "end", JobID: jobID})
}

// wsError reports a job failure unless the job was superseded.
func (s *Server) wsError(jobCtx, connCtx context.Context, conn *websocket.Conn, jobID, msg string) {
	if jobCtx.Err() != nil {
		return
	}
	_ = writeControl(connCtx, conn, wsControlFrame{Type: "error", JobID: jobID, Error: msg})
}

func writeControl(ctx context.Context, conn *websocket.Conn, f wsControlFrame) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, b)
}
