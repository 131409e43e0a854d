package reaper

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"

	"github.com/pixil98/go-war/internal/coordinator"
	"github.com/pixil98/go-war/internal/messaging"
	"github.com/pixil98/go-war/internal/store"
	"github.com/pixil98/go-war/internal/war"
)

type recordingPublisher struct {
	mu     sync.Mutex
	deltas []*messaging.Delta
}

func (p *recordingPublisher) PublishRoom(roomID string, delta *messaging.Delta) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deltas = append(p.deltas, delta)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.deltas)
}

func newTestReaper(t *testing.T, opts ...Opt) (*Reaper, *store.Bolt, *recordingPublisher) {
	t.Helper()
	st, err := store.OpenBolt(filepath.Join(t.TempDir(), "war.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	pub := &recordingPublisher{}
	return New(st, coordinator.NewLocks(), pub, opts...), st, pub
}

func seedRoom(t *testing.T, st *store.Bolt, room *war.Room, w *war.War) {
	t.Helper()
	err := st.Update("seed", func(tx store.Tx) error {
		if err := tx.PutRoom(room); err != nil {
			return err
		}
		if w != nil {
			return tx.PutWar(w)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seeding room: %v", err)
	}
}

func lobbyRoom(id string, idle time.Duration) *war.Room {
	now := time.Now()
	return &war.Room{
		ID:             id,
		HostID:         "alice",
		HostName:       "Alice",
		Config:         war.RoomConfig{TurnSeconds: 60, GameMode: war.GameModeSequential, MaxPlayers: 2},
		PlayerCount:    1,
		State:          war.RoomStateLobby,
		CreatedAt:      now.Add(-idle),
		LastActivityAt: now.Add(-idle),
	}
}

func TestSweepAbandonsStaleLobby(t *testing.T) {
	r, st, pub := newTestReaper(t)
	seedRoom(t, st, lobbyRoom("stale", 11*time.Minute), nil)
	seedRoom(t, st, lobbyRoom("fresh", time.Minute), nil)

	report, err := r.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweeping: %v", err)
	}

	testutil.AssertEqual(t, "lobbies abandoned", len(report.LobbiesAbandoned), 1)
	testutil.AssertEqual(t, "abandoned room", report.LobbiesAbandoned[0], "stale")
	testutil.AssertEqual(t, "wars expired", len(report.WarsExpired), 0)

	err = st.View(func(tx store.Tx) error {
		stale, err := tx.GetRoom("stale")
		if err != nil {
			return err
		}
		testutil.AssertEqual(t, "stale state", stale.State, war.RoomStateAbandoned)

		fresh, err := tx.GetRoom("fresh")
		if err != nil {
			return err
		}
		testutil.AssertEqual(t, "fresh state", fresh.State, war.RoomStateLobby)
		return nil
	})
	if err != nil {
		t.Fatalf("reading rooms: %v", err)
	}

	testutil.AssertEqual(t, "deltas", pub.count(), 1)
	testutil.AssertEqual(t, "delta kind", pub.deltas[0].Kind, messaging.DeltaRoom)
	testutil.AssertEqual(t, "delta state", pub.deltas[0].RoomState, war.RoomStateAbandoned)
}

func TestSweepExpiresIdleWar(t *testing.T) {
	r, st, pub := newTestReaper(t)

	now := time.Now()
	room := lobbyRoom("ghosted", 0)
	room.State = war.RoomStateActive
	room.PlayerCount = 2
	w := war.NewWar("ghosted", "alice", "bob", now.Add(-31*time.Minute))
	seedRoom(t, st, room, w)

	report, err := r.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweeping: %v", err)
	}
	testutil.AssertEqual(t, "wars expired", len(report.WarsExpired), 1)
	testutil.AssertEqual(t, "expired room", report.WarsExpired[0], "ghosted")

	err = st.View(func(tx store.Tx) error {
		room, err := tx.GetRoom("ghosted")
		if err != nil {
			return err
		}
		testutil.AssertEqual(t, "room state", room.State, war.RoomStateAbandoned)

		w, err := tx.GetWar("ghosted")
		if err != nil {
			return err
		}
		testutil.AssertEqual(t, "war status", w.Status, war.WarStatusResolved)
		if !strings.Contains(w.Outcome, "timeout") {
			t.Errorf("expected a timeout outcome, got %q", w.Outcome)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("reading room: %v", err)
	}

	testutil.AssertEqual(t, "deltas", pub.count(), 1)
	testutil.AssertEqual(t, "delta kind", pub.deltas[0].Kind, messaging.DeltaWar)
}

func TestSweepLeavesRecentWarAlone(t *testing.T) {
	r, st, pub := newTestReaper(t)

	room := lobbyRoom("busy", 0)
	room.State = war.RoomStateActive
	room.PlayerCount = 2
	seedRoom(t, st, room, war.NewWar("busy", "alice", "bob", time.Now().Add(-5*time.Minute)))

	report, err := r.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweeping: %v", err)
	}
	if !report.Empty() {
		t.Fatalf("expected an empty report, got %+v", report)
	}
	testutil.AssertEqual(t, "deltas", pub.count(), 0)
}

// A room is reaped at most once: the second sweep sees only terminal
// state and reports nothing.
func TestSweepIdempotent(t *testing.T) {
	r, st, pub := newTestReaper(t)
	seedRoom(t, st, lobbyRoom("stale", 11*time.Minute), nil)

	if _, err := r.Sweep(context.Background()); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	report, err := r.Sweep(context.Background())
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if !report.Empty() {
		t.Fatalf("expected an empty report, got %+v", report)
	}
	testutil.AssertEqual(t, "deltas", pub.count(), 1)
}

func TestSweepPurgesTerminalRoomsPastRetention(t *testing.T) {
	r, st, pub := newTestReaper(t, WithRetention(time.Hour))

	old := lobbyRoom("done", 2*time.Hour)
	old.State = war.RoomStateCompleted
	seedRoom(t, st, old, war.NewWar("done", "alice", "bob", time.Now().Add(-2*time.Hour)))

	recent := lobbyRoom("cooling", 10*time.Minute)
	recent.State = war.RoomStateAbandoned
	seedRoom(t, st, recent, nil)

	report, err := r.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweeping: %v", err)
	}
	testutil.AssertEqual(t, "rooms purged", len(report.RoomsPurged), 1)
	testutil.AssertEqual(t, "purged room", report.RoomsPurged[0], "done")

	err = st.View(func(tx store.Tx) error {
		if _, err := tx.GetRoom("done"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected done room gone, got %v", err)
		}
		if _, err := tx.GetWar("done"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("expected done war gone, got %v", err)
		}
		if _, err := tx.GetRoom("cooling"); err != nil {
			t.Errorf("expected cooling room kept, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("reading rooms: %v", err)
	}

	// Purging is housekeeping, not a state change anyone subscribes to.
	testutil.AssertEqual(t, "deltas", pub.count(), 0)
}

// Retention defaults to off: terminal rooms linger until configured
// otherwise.
func TestSweepKeepsTerminalRoomsWithoutRetention(t *testing.T) {
	r, st, _ := newTestReaper(t)

	old := lobbyRoom("done", 48*time.Hour)
	old.State = war.RoomStateCompleted
	seedRoom(t, st, old, nil)

	report, err := r.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweeping: %v", err)
	}
	if !report.Empty() {
		t.Fatalf("expected an empty report, got %+v", report)
	}
}

func TestSweepCustomThresholds(t *testing.T) {
	r, st, _ := newTestReaper(t, WithLobbyIdle(time.Second))
	seedRoom(t, st, lobbyRoom("stale", 2*time.Second), nil)

	report, err := r.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweeping: %v", err)
	}
	testutil.AssertEqual(t, "lobbies abandoned", len(report.LobbiesAbandoned), 1)
}
