package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"artgrid/core/journal"
)

const wsWriteTimeout = 10 * time.Second

// handleEventsWS streams journal records over a websocket. The optional
// cursor query parameter resumes from a journal sequence; the backlog is
// delivered before live events.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	if s == nil || s.node == nil {
		http.Error(w, "node unavailable", http.StatusServiceUnavailable)
		return
	}
	cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	if err := s.streamEvents(r.Context(), conn, cursor); err != nil {
		if status := websocket.CloseStatus(err); status == -1 {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (s *Server) streamEvents(ctx context.Context, conn *websocket.Conn, cursor string) error {
	updates, cancel, backlog, err := s.node.Subscribe(ctx, cursor)
	if err != nil {
		return err
	}
	defer cancel()

	for _, rec := range backlog {
		if err := writeEventRecord(ctx, conn, rec); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-updates:
			if !ok {
				return nil
			}
			if err := writeEventRecord(ctx, conn, rec); err != nil {
				return err
			}
		}
	}
}

func writeEventRecord(ctx context.Context, conn *websocket.Conn, rec journal.Record) error {
	payload := galleryEventResult{Sequence: rec.Sequence, Type: rec.Type, Attributes: rec.Attributes}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
