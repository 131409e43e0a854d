package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/pixil98/go-war/internal/store"
	"github.com/pixil98/go-war/internal/war"
)

// request is one client frame.
type request struct {
	Op       string          `json:"op"`
	RoomID   string          `json:"room_id,omitempty"`
	HostName string          `json:"host_name,omitempty"`
	Config   *war.RoomConfig `json:"config,omitempty"`
	Action   string          `json:"action,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	AfterSeq uint64          `json:"after_seq,omitempty"`
	Limit    int             `json:"limit,omitempty"`
	States   []war.RoomState `json:"states,omitempty"`
}

// response answers one request frame. Room deltas arrive as separate
// push frames carrying a "kind" field instead of "op".
type response struct {
	Op    string `json:"op"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`

	Room     *war.Room     `json:"room,omitempty"`
	Snapshot any           `json:"snapshot,omitempty"`
	Rooms    []*war.Room   `json:"rooms,omitempty"`
	Battle   *war.Battle   `json:"battle,omitempty"`
	Battles  []*war.Battle `json:"battles,omitempty"`
}

type session struct {
	conn     *websocket.Conn
	playerID string
	gw       *Gateway

	out chan []byte

	mu   sync.Mutex
	subs map[string]func()
}

func newSession(conn *websocket.Conn, playerID string, gw *Gateway) *session {
	return &session{
		conn:     conn,
		playerID: playerID,
		gw:       gw,
		out:      make(chan []byte, 64),
		subs:     make(map[string]func()),
	}
}

func (s *session) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.unwatchAll()
	defer s.conn.Close(websocket.StatusNormalClosure, "")

	go s.writeLoop(ctx)

	for {
		req, err := s.readRequest(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				slog.DebugContext(ctx, "session read", "player", s.playerID, "error", err)
			}
			return
		}

		resp := s.handle(ctx, req)
		data, err := json.Marshal(resp)
		if err != nil {
			slog.ErrorContext(ctx, "marshalling response", "op", req.Op, "error", err)
			return
		}
		if !s.send(ctx, data) {
			return
		}
	}
}

// readRequest reads the next frame, enforcing the idle timeout: a
// connection with no traffic for the configured window is closed.
func (s *session) readRequest(ctx context.Context) (*request, error) {
	readCtx := ctx
	if s.gw.idleTimeout > 0 {
		var cancel context.CancelFunc
		readCtx, cancel = context.WithTimeout(ctx, s.gw.idleTimeout)
		defer cancel()
	}

	_, data, err := s.conn.Read(readCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.conn.Close(websocket.StatusGoingAway, "idle timeout")
		}
		return nil, err
	}

	var req request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decoding request: %w", err)
	}
	return &req, nil
}

func (s *session) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-s.out:
			writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := s.conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// send queues a frame for the writer, dropping the connection instead
// of blocking the caller when the client cannot keep up.
func (s *session) send(ctx context.Context, data []byte) bool {
	select {
	case s.out <- data:
		return true
	case <-ctx.Done():
		return false
	default:
		s.conn.Close(websocket.StatusPolicyViolation, "client too slow")
		return false
	}
}

func (s *session) handle(ctx context.Context, req *request) *response {
	resp := &response{Op: req.Op}

	var err error
	switch req.Op {
	case "create_room":
		var cfg war.RoomConfig
		if req.Config != nil {
			cfg = *req.Config
		}
		resp.Room, err = s.gw.rooms.Create(ctx, s.playerID, req.HostName, cfg)

	case "join_room":
		resp.Room, err = s.gw.rooms.Join(ctx, req.RoomID, s.playerID)
		if err == nil {
			err = s.watch(req.RoomID)
		}

	case "leave_room":
		err = s.gw.rooms.Leave(ctx, req.RoomID, s.playerID)
		s.unwatch(req.RoomID)

	case "submit_action":
		resp.Battle, err = s.gw.actions.SubmitAction(ctx, req.RoomID, s.playerID, war.ActionType(req.Action), req.Payload)

	case "get_state":
		resp.Snapshot, err = s.gw.rooms.Get(ctx, req.RoomID)

	case "list_rooms":
		resp.Rooms, err = s.gw.rooms.List(ctx, store.RoomFilter{States: req.States})

	case "list_battles":
		resp.Battles, err = s.gw.rooms.ListBattles(ctx, req.RoomID, req.AfterSeq, req.Limit)

	case "watch":
		// Spectators attach freely: a watch is a subscription plus a
		// snapshot, with no lifecycle effect on the room.
		resp.Snapshot, err = s.gw.rooms.Get(ctx, req.RoomID)
		if err == nil {
			err = s.watch(req.RoomID)
		}

	case "unwatch":
		s.unwatch(req.RoomID)

	default:
		err = fmt.Errorf("unknown op: %q", req.Op)
	}

	if err != nil {
		resp.Error = userFacing(ctx, req.Op, err)
		return resp
	}
	resp.OK = true
	return resp
}

func (s *session) watch(roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[roomID]; ok {
		return nil
	}
	unsub, err := s.gw.sub.SubscribeRoom(roomID, func(data []byte) {
		s.send(context.Background(), data)
	})
	if err != nil {
		return fmt.Errorf("subscribing to room %s: %w", roomID, err)
	}
	s.subs[roomID] = unsub
	return nil
}

func (s *session) unwatch(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if unsub, ok := s.subs[roomID]; ok {
		unsub()
		delete(s.subs, roomID)
	}
}

func (s *session) unwatchAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for roomID, unsub := range s.subs {
		unsub()
		delete(s.subs, roomID)
	}
}

// userFacing maps an error to the message sent to the client.
// Expected rejections pass through; anything else is a systemic
// failure that gets logged and masked.
func userFacing(ctx context.Context, op string, err error) string {
	if war.IsReject(err) {
		return err.Error()
	}
	for _, expected := range []error{
		war.ErrRoomNotFound, war.ErrRoomFull, war.ErrRoomNotJoinable,
		war.ErrAlreadyJoined, war.ErrNotAMember, war.ErrRoomNotActive,
		war.ErrNotYourTurn, war.ErrUnknownActionType, war.ErrConfigInvalid,
	} {
		if errors.Is(err, expected) {
			return err.Error()
		}
	}

	slog.ErrorContext(ctx, "operation failed", "op", op, "error", err)
	return "internal error"
}
