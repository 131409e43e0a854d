// Package gateway is the client-facing surface: players and spectators
// connect over a websocket, submit operations, and receive room deltas
// pushed from the notification fan-out.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/pixil98/go-war/internal/rooms"
	"github.com/pixil98/go-war/internal/store"
	"github.com/pixil98/go-war/internal/war"
)

// RoomService is the room lifecycle surface the gateway exposes.
type RoomService interface {
	Create(ctx context.Context, hostID, hostName string, cfg war.RoomConfig) (*war.Room, error)
	Join(ctx context.Context, roomID, playerID string) (*war.Room, error)
	Leave(ctx context.Context, roomID, playerID string) error
	Get(ctx context.Context, roomID string) (*rooms.Snapshot, error)
	List(ctx context.Context, filter store.RoomFilter) ([]*war.Room, error)
	ListBattles(ctx context.Context, roomID string, afterSeq uint64, limit int) ([]*war.Battle, error)
}

// ActionService is the serialized action submission path.
type ActionService interface {
	SubmitAction(ctx context.Context, roomID, playerID string, action war.ActionType, payload json.RawMessage) (*war.Battle, error)
}

// Subscriber provides room delta subscriptions.
type Subscriber interface {
	SubscribeRoom(roomID string, handler func(data []byte)) (func(), error)
}

type Gateway struct {
	addr        string
	rooms       RoomService
	actions     ActionService
	sub         Subscriber
	auth        Authenticator
	idleTimeout time.Duration
}

func New(addr string, rs RoomService, as ActionService, sub Subscriber, auth Authenticator, idleTimeout time.Duration) *Gateway {
	return &Gateway{
		addr:        addr,
		rooms:       rs,
		actions:     as,
		sub:         sub,
		auth:        auth,
		idleTimeout: idleTimeout,
	}
}

// Start serves websocket clients until the context is canceled.
func (g *Gateway) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", g.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	svr := &http.Server{
		Addr:        g.addr,
		Handler:     mux,
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- svr.ListenAndServe()
	}()

	slog.InfoContext(ctx, "gateway listening", "addr", g.addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return svr.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return fmt.Errorf("serving gateway on %s: %w", g.addr, err)
	}
}

func (g *Gateway) handleWS(w http.ResponseWriter, r *http.Request) {
	playerID, err := g.auth.Authenticate(r)
	if err != nil {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.WarnContext(r.Context(), "accepting websocket", "error", err)
		return
	}

	s := newSession(conn, playerID, g)
	s.run(r.Context())
}
