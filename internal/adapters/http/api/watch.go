package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	service "github.com/okian/tqi/internal/app"
)

const (
	// watchBuffer is how many snapshots a slow client may lag before the
	// oldest pending versions are dropped.
	watchBuffer       = 16
	watchWriteTimeout = 10 * time.Second
)

// WatchDependencies stream session snapshots.
type WatchDependencies interface {
	Watch(ctx context.Context, id string, fn func(service.Snapshot)) (service.Snapshot, func(), error)
}

// WatchHandler streams every published snapshot of a session over a WebSocket.
type WatchHandler struct {
	deps     WatchDependencies
	upgrader websocket.Upgrader
}

// NewWatchHandler creates a new watch handler.
func NewWatchHandler(deps WatchDependencies) *WatchHandler {
	return &WatchHandler{
		deps: deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// HandleWatch handles GET /sessions/{id}/watch. The first message is the
// current snapshot; each accepted mutation then sends one more. Versions
// only increase, so a gap means the client fell behind.
func (h *WatchHandler) HandleWatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.watch_session"

	updates := make(chan service.Snapshot, watchBuffer)
	current, cancel, err := h.deps.Watch(r.Context(), r.PathValue("id"), func(s service.Snapshot) {
		offerLatest(updates, s)
	})
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		return
	}
	defer conn.Close()

	// The server's read deadline would end an idle stream.
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return
	}

	// Reads only detect the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	last := current.Version
	if err := send(conn, current); err != nil {
		return
	}
	for {
		select {
		case snap := <-updates:
			if snap.Version <= last {
				continue
			}
			last = snap.Version
			if err := send(conn, snap); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// offerLatest queues snap, evicting the oldest pending snapshot when updates
// is full so the newest version is always delivered. Listeners run one at a
// time, so there is a single producer.
func offerLatest(updates chan service.Snapshot, snap service.Snapshot) {
	for {
		select {
		case updates <- snap:
			return
		default:
		}
		select {
		case <-updates:
		default:
		}
	}
}

func send(conn *websocket.Conn, snap service.Snapshot) error {
	if err := conn.SetWriteDeadline(time.Now().Add(watchWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(snap)
}
