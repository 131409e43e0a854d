// Package coordinator serializes all war mutations. At most one action
// is in flight per room at any time; contenders for the same room queue
// on the room's lock while different rooms proceed in parallel.
package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pixil98/go-war/internal/battle"
	"github.com/pixil98/go-war/internal/messaging"
	"github.com/pixil98/go-war/internal/store"
	"github.com/pixil98/go-war/internal/war"
)

// Publisher pushes state deltas to a room's subscribers.
type Publisher interface {
	PublishRoom(roomID string, delta *messaging.Delta) error
}

type Coordinator struct {
	store store.Store
	locks *Locks
	pub   Publisher

	// rng feeds the battle resolver. Guarded because actions in
	// different rooms resolve concurrently.
	rngMu sync.Mutex
	rng   *rand.Rand

	nukeCooldown time.Duration
}

func New(st store.Store, locks *Locks, pub Publisher, rng *rand.Rand, nukeCooldown time.Duration) *Coordinator {
	return &Coordinator{
		store:        st,
		locks:        locks,
		pub:          pub,
		rng:          rng,
		nukeCooldown: nukeCooldown,
	}
}

// Locks exposes the room lock registry so lifecycle changes and the
// reaper sweep compete for the same per-room exclusivity.
func (c *Coordinator) Locks() *Locks {
	return c.locks
}

// SubmitAction runs one action through the serialized path: acquire the
// room lock, re-read current state, validate, resolve, commit the
// battle record and updated war atomically, then fan out the delta.
// Validation failures abort without any state mutation.
func (c *Coordinator) SubmitAction(ctx context.Context, roomID, playerID string, action war.ActionType, payload json.RawMessage) (*war.Battle, error) {
	if !action.Valid() {
		return nil, war.ErrUnknownActionType
	}

	release := c.locks.Acquire(roomID)
	defer release()

	now := time.Now()
	var record *war.Battle
	var warState *war.War

	err := c.store.Update(fmt.Sprintf("action %s in room %s", action, roomID), func(tx store.Tx) error {
		room, err := tx.GetRoom(roomID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return war.ErrRoomNotFound
			}
			return err
		}
		if room.State != war.RoomStateActive {
			return war.ErrRoomNotActive
		}

		w, err := tx.GetWar(roomID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return war.ErrRoomNotActive
			}
			return err
		}
		if w.Status != war.WarStatusActive {
			return war.ErrRoomNotActive
		}

		if err := c.checkTurn(room, w, playerID, now); err != nil {
			return err
		}

		if err := battle.Validate(action, playerID, w, c.nukeCooldown, now); err != nil {
			return err
		}

		outcome := c.resolve(action, playerID, w)
		battle.Apply(w, playerID, action, outcome, now)

		if room.Config.GameMode == war.GameModeSequential && w.Status == war.WarStatusActive {
			w.AdvanceTurn(playerID, now)
		}
		if outcome.Decisive {
			room.State = war.RoomStateCompleted
		}
		room.Touch(now)

		record = &war.Battle{
			ID:      uuid.NewString(),
			RoomID:  roomID,
			Actor:   playerID,
			Action:  action,
			Payload: payload,
			Outcome: outcome,
			At:      now,
		}
		if err := tx.AppendBattle(record); err != nil {
			return err
		}
		if err := tx.PutWar(w); err != nil {
			return err
		}
		if err := tx.PutRoom(room); err != nil {
			return err
		}

		warState = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	delta := &messaging.Delta{
		RoomID: roomID,
		Kind:   messaging.DeltaBattle,
		Seq:    record.Seq,
		Battle: record,
		War:    warState,
	}
	if err := c.pub.PublishRoom(roomID, delta); err != nil {
		slog.WarnContext(ctx, "publishing battle delta", "room", roomID, "error", err)
	}

	return record, nil
}

// checkTurn enforces turn ownership for sequential rooms. A turn owner
// who sits past the configured turn duration forfeits the turn: either
// combatant may act once the clock runs out.
func (c *Coordinator) checkTurn(room *war.Room, w *war.War, playerID string, now time.Time) error {
	if room.Config.GameMode != war.GameModeSequential {
		return nil
	}
	if w.TurnOwner == playerID {
		return nil
	}
	if now.Sub(w.TurnStartedAt) > room.Config.TurnDuration() {
		return nil
	}
	return war.ErrNotYourTurn
}

func (c *Coordinator) resolve(action war.ActionType, playerID string, w *war.War) war.Outcome {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return battle.Resolve(c.rng, action, playerID, w)
}
