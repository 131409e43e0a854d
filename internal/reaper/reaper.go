// Package reaper reclaims idle rooms and wars on a fixed interval,
// independent of client traffic. It competes for the same per-room
// locks as the turn coordinator, so a sweep never races an in-flight
// action.
package reaper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pixil98/go-war/internal/coordinator"
	"github.com/pixil98/go-war/internal/messaging"
	"github.com/pixil98/go-war/internal/store"
	"github.com/pixil98/go-war/internal/war"
)

const (
	DefaultSweepInterval = time.Minute
	DefaultLobbyIdle     = 10 * time.Minute
	DefaultWarIdle       = 30 * time.Minute
)

// Publisher pushes state deltas to a room's subscribers.
type Publisher interface {
	PublishRoom(roomID string, delta *messaging.Delta) error
}

type Reaper struct {
	store store.Store
	locks *coordinator.Locks
	pub   Publisher

	interval  time.Duration
	lobbyIdle time.Duration
	warIdle   time.Duration

	// retention is how long terminal rooms linger before teardown
	// deletes them and their battle logs. Zero disables purging.
	retention time.Duration
}

func New(st store.Store, locks *coordinator.Locks, pub Publisher, opts ...Opt) *Reaper {
	r := &Reaper{
		store:     st,
		locks:     locks,
		pub:       pub,
		interval:  DefaultSweepInterval,
		lobbyIdle: DefaultLobbyIdle,
		warIdle:   DefaultWarIdle,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Start runs sweeps on the configured interval until the context is
// canceled.
func (r *Reaper) Start(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			report, err := r.Sweep(ctx)
			if err != nil {
				return err
			}
			if !report.Empty() {
				slog.InfoContext(ctx, "cleanup sweep",
					"lobbies_abandoned", len(report.LobbiesAbandoned),
					"wars_expired", len(report.WarsExpired),
					"rooms_purged", len(report.RoomsPurged))
			}
		}
	}
}

// Report lists the rooms a sweep affected.
type Report struct {
	LobbiesAbandoned []string `json:"lobbies_abandoned"`
	WarsExpired      []string `json:"wars_expired"`
	RoomsPurged      []string `json:"rooms_purged"`
}

func (r *Report) Empty() bool {
	return len(r.LobbiesAbandoned) == 0 && len(r.WarsExpired) == 0 && len(r.RoomsPurged) == 0
}

// Sweep expires idle lobbies and wars and purges terminal rooms past
// retention. Idempotent: rooms already reaped are not affected again,
// so an immediate second sweep reports nothing.
func (r *Reaper) Sweep(ctx context.Context) (*Report, error) {
	var candidates []*war.Room
	err := r.store.View(func(tx store.Tx) error {
		var err error
		candidates, err = tx.ListRooms(store.RoomFilter{})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing rooms: %w", err)
	}

	report := &Report{}
	now := time.Now()
	for _, room := range candidates {
		if err := r.sweepRoom(ctx, room.ID, now, report); err != nil {
			return nil, fmt.Errorf("sweeping room %s: %w", room.ID, err)
		}
	}
	return report, nil
}

// sweepRoom re-reads the room under its exclusive lock before deciding
// anything: the listing snapshot may be stale by the time the lock is
// held.
func (r *Reaper) sweepRoom(ctx context.Context, roomID string, now time.Time, report *Report) error {
	var delta *messaging.Delta

	err := r.locks.WithRoom(roomID, func() error {
		return r.store.Update(fmt.Sprintf("sweep room %s", roomID), func(tx store.Tx) error {
			room, err := tx.GetRoom(roomID)
			if err != nil {
				// Raced with teardown; nothing to do.
				if errors.Is(err, store.ErrNotFound) {
					return nil
				}
				return err
			}

			switch room.State {
			case war.RoomStateLobby:
				if now.Sub(room.LastActivityAt) <= r.lobbyIdle {
					return nil
				}
				room.State = war.RoomStateAbandoned
				room.Touch(now)
				if err := tx.PutRoom(room); err != nil {
					return err
				}
				report.LobbiesAbandoned = append(report.LobbiesAbandoned, roomID)
				delta = &messaging.Delta{
					RoomID:    roomID,
					Kind:      messaging.DeltaRoom,
					RoomState: room.State,
				}

			case war.RoomStateActive:
				w, err := tx.GetWar(roomID)
				if err != nil {
					return err
				}
				if w.Status != war.WarStatusActive || now.Sub(w.LastTurnAt) <= r.warIdle {
					return nil
				}
				w.Resolve("timeout: war abandoned with no turns submitted")
				w.LastTurnAt = now
				if err := tx.PutWar(w); err != nil {
					return err
				}
				room.State = war.RoomStateAbandoned
				room.Touch(now)
				if err := tx.PutRoom(room); err != nil {
					return err
				}
				report.WarsExpired = append(report.WarsExpired, roomID)
				delta = &messaging.Delta{
					RoomID:    roomID,
					Kind:      messaging.DeltaWar,
					RoomState: room.State,
					War:       w,
				}

			case war.RoomStateCompleted, war.RoomStateAbandoned:
				if r.retention <= 0 || now.Sub(room.LastActivityAt) <= r.retention {
					return nil
				}
				if err := tx.DeleteRoom(roomID); err != nil {
					return err
				}
				report.RoomsPurged = append(report.RoomsPurged, roomID)
			}

			return nil
		})
	})
	if err != nil {
		return err
	}

	if delta != nil {
		if err := r.pub.PublishRoom(roomID, delta); err != nil {
			slog.WarnContext(ctx, "publishing reaper delta", "room", roomID, "error", err)
		}
	}
	return nil
}
