package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gyaneshwarpardhi/dlgsystem/internal/session"
)

const streamWriteWait = 5 * time.Second

var errUnknownCommand = errors.New("unknown stream command")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamMsg is a client command on the session stream.
type streamMsg struct {
	Type    string `json:"type"` // get | choose | reevaluate
	Index   int    `json:"index,omitempty"`
	FromAll bool   `json:"from_all,omitempty"`
}

// streamReply carries either a snapshot or an error.
type streamReply struct {
	Type     string            `json:"type"` // snapshot | error
	Snapshot *session.Snapshot `json:"snapshot,omitempty"`
	Error    string            `json:"error,omitempty"`
	Status   int               `json:"status,omitempty"`
}

// GET /v1/sessions/{id}/stream: play a session over a websocket. The
// current snapshot is sent on connect and after every command. The server
// closes the stream once the dialogue has ended.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	// Fail before upgrading so unknown sessions get a plain 404.
	snap, err := h.mgr.Get(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("stream upgrade failed", "session", id.String(), "err", err)
		return
	}
	defer conn.Close()

	if !sendSnapshot(conn, snap) || snap.Ended {
		closeStream(conn, "dialogue ended")
		return
	}

	for {
		var msg streamMsg
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("stream read ended", "session", id.String(), "err", err)
			}
			return
		}
		snap, err := h.streamCommand(r.Context(), id, msg)
		if err != nil {
			reply := streamReply{Type: "error", Error: err.Error(), Status: statusFor(err)}
			if snap.ID != uuid.Nil {
				reply.Snapshot = &snap
			}
			if !send(conn, reply) {
				return
			}
			if errors.Is(err, session.ErrNotFound) {
				closeStream(conn, "session not found")
				return
			}
			continue
		}
		if !sendSnapshot(conn, snap) {
			return
		}
		if snap.Ended {
			closeStream(conn, "dialogue ended")
			return
		}
	}
}

func (h *Handler) streamCommand(ctx context.Context, id uuid.UUID, msg streamMsg) (session.Snapshot, error) {
	switch msg.Type {
	case "get":
		return h.mgr.Get(ctx, id)
	case "choose":
		if msg.FromAll {
			return h.mgr.ChooseFromAll(ctx, id, msg.Index)
		}
		return h.mgr.Choose(ctx, id, msg.Index)
	case "reevaluate":
		return h.mgr.Reevaluate(ctx, id)
	}
	return session.Snapshot{}, fmt.Errorf("%w %q", errUnknownCommand, msg.Type)
}

func sendSnapshot(conn *websocket.Conn, snap session.Snapshot) bool {
	return send(conn, streamReply{Type: "snapshot", Snapshot: &snap})
}

func send(conn *websocket.Conn, reply streamReply) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	if err := conn.WriteJSON(reply); err != nil {
		slog.Debug("stream write failed", "err", err)
		return false
	}
	return true
}

func closeStream(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(streamWriteWait))
}
