// Package rooms owns the room lifecycle: creation, joining, leaving,
// and the lobby -> active -> completed/abandoned transitions. All
// mutations run under the room's exclusive lock and commit atomically,
// so player_count never drifts from the membership set.
package rooms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pixil98/go-war/internal/coordinator"
	"github.com/pixil98/go-war/internal/messaging"
	"github.com/pixil98/go-war/internal/store"
	"github.com/pixil98/go-war/internal/war"
)

// Publisher pushes state deltas to a room's subscribers.
type Publisher interface {
	PublishRoom(roomID string, delta *messaging.Delta) error
}

type Manager struct {
	store store.Store
	locks *coordinator.Locks
	pub   Publisher
}

func NewManager(st store.Store, locks *coordinator.Locks, pub Publisher) *Manager {
	return &Manager{
		store: st,
		locks: locks,
		pub:   pub,
	}
}

// Create allocates a room in the lobby state with the host as its first
// member.
func (m *Manager) Create(ctx context.Context, hostID, hostName string, cfg war.RoomConfig) (*war.Room, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", war.ErrConfigInvalid, err)
	}

	now := time.Now()
	room := &war.Room{
		ID:             uuid.NewString(),
		HostID:         hostID,
		HostName:       hostName,
		Config:         cfg,
		PlayerCount:    1,
		State:          war.RoomStateLobby,
		CreatedAt:      now,
		LastActivityAt: now,
	}

	err := m.store.Update(fmt.Sprintf("create room %s", room.ID), func(tx store.Tx) error {
		if err := tx.PutRoom(room); err != nil {
			return err
		}
		return tx.InsertMembership(&war.Membership{
			RoomID:   room.ID,
			PlayerID: hostID,
			JoinedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "room created", "room", room.ID, "host", hostName, "mode", cfg.GameMode)
	return room, nil
}

// Join adds a player to a lobby. Filling the last slot activates the
// room and creates its war.
func (m *Manager) Join(ctx context.Context, roomID, playerID string) (*war.Room, error) {
	var room *war.Room
	err := m.locks.WithRoom(roomID, func() error {
		return m.store.Update(fmt.Sprintf("join room %s", roomID), func(tx store.Tx) error {
			var err error
			room, err = getRoom(tx, roomID)
			if err != nil {
				return err
			}
			// Capacity outranks state: a room that filled up (and so
			// left the lobby) reports full, not unjoinable.
			if room.PlayerCount >= room.Config.MaxPlayers {
				return war.ErrRoomFull
			}
			if !room.Joinable() {
				return war.ErrRoomNotJoinable
			}

			now := time.Now()
			err = tx.InsertMembership(&war.Membership{
				RoomID:   roomID,
				PlayerID: playerID,
				JoinedAt: now,
			})
			if err != nil {
				if errors.Is(err, store.ErrAlreadyExists) {
					return war.ErrAlreadyJoined
				}
				return err
			}

			count, err := tx.CountMembers(roomID)
			if err != nil {
				return err
			}
			room.PlayerCount = count
			room.Touch(now)

			if count == room.Config.MaxPlayers {
				if err := m.activate(tx, room, now); err != nil {
					return err
				}
			}

			return tx.PutRoom(room)
		})
	})
	if err != nil {
		return nil, err
	}

	m.publish(ctx, roomID, &messaging.Delta{
		RoomID:    roomID,
		Kind:      messaging.DeltaRoom,
		RoomState: room.State,
	})
	return room, nil
}

// activate transitions a lobby to active play and creates the war,
// exactly once. Calling it for an already active room is a no-op.
func (m *Manager) activate(tx store.Tx, room *war.Room, now time.Time) error {
	if room.State == war.RoomStateActive {
		return nil
	}
	room.State = war.RoomStateActive

	members, err := tx.ListMembers(room.ID)
	if err != nil {
		return err
	}
	combatantA, combatantB, err := combatants(room.HostID, members)
	if err != nil {
		return err
	}

	return tx.PutWar(war.NewWar(room.ID, combatantA, combatantB, now))
}

// combatants picks the two warring sides: the host, and the earliest
// joined non-host member. Remaining members hold full memberships but
// fight on neither side.
func combatants(hostID string, members []*war.Membership) (string, string, error) {
	var others []*war.Membership
	for _, mb := range members {
		if mb.PlayerID != hostID {
			others = append(others, mb)
		}
	}
	if len(others) == 0 {
		return "", "", fmt.Errorf("no opponent to fight")
	}
	sort.Slice(others, func(i, j int) bool {
		if !others[i].JoinedAt.Equal(others[j].JoinedAt) {
			return others[i].JoinedAt.Before(others[j].JoinedAt)
		}
		return others[i].PlayerID < others[j].PlayerID
	})
	return hostID, others[0].PlayerID, nil
}

// Leave removes a player from a room. The last player leaving a lobby
// abandons it; a combatant leaving an active war forfeits it.
func (m *Manager) Leave(ctx context.Context, roomID, playerID string) error {
	var delta *messaging.Delta
	err := m.locks.WithRoom(roomID, func() error {
		return m.store.Update(fmt.Sprintf("leave room %s", roomID), func(tx store.Tx) error {
			room, err := getRoom(tx, roomID)
			if err != nil {
				return err
			}

			if err := tx.DeleteMembership(roomID, playerID); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return war.ErrNotAMember
				}
				return err
			}

			count, err := tx.CountMembers(roomID)
			if err != nil {
				return err
			}
			now := time.Now()
			room.PlayerCount = count
			room.Touch(now)

			switch {
			case room.State == war.RoomStateLobby && count == 0:
				room.State = war.RoomStateAbandoned
				delta = &messaging.Delta{
					RoomID:    roomID,
					Kind:      messaging.DeltaRoom,
					RoomState: room.State,
				}

			case room.State == war.RoomStateActive:
				w, err := tx.GetWar(roomID)
				if err != nil {
					return err
				}
				if opp := w.OpponentOf(playerID); opp != nil && w.Status == war.WarStatusActive {
					w.Resolve(fmt.Sprintf("forfeit: %s left the war, %s wins", playerID, opp.PlayerID))
					w.LastTurnAt = now
					if err := tx.PutWar(w); err != nil {
						return err
					}
					room.State = war.RoomStateCompleted
					delta = &messaging.Delta{
						RoomID:    roomID,
						Kind:      messaging.DeltaWar,
						RoomState: room.State,
						War:       w,
					}
				}
			}

			return tx.PutRoom(room)
		})
	})
	if err != nil {
		return err
	}

	if delta != nil {
		m.publish(ctx, roomID, delta)
	}
	return nil
}

// Snapshot is a committed, self-consistent view of a room for players
// and spectators alike.
type Snapshot struct {
	Room    *war.Room         `json:"room"`
	Members []*war.Membership `json:"members"`
	War     *war.War          `json:"war,omitempty"`
}

// Get returns the room's current committed state. The war is nil while
// the room is still a lobby.
func (m *Manager) Get(ctx context.Context, roomID string) (*Snapshot, error) {
	var snap Snapshot
	err := m.store.View(func(tx store.Tx) error {
		room, err := getRoom(tx, roomID)
		if err != nil {
			return err
		}
		members, err := tx.ListMembers(roomID)
		if err != nil {
			return err
		}
		w, err := tx.GetWar(roomID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}

		snap = Snapshot{Room: room, Members: members, War: w}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// List returns rooms matching the filter.
func (m *Manager) List(ctx context.Context, filter store.RoomFilter) ([]*war.Room, error) {
	var rooms []*war.Room
	err := m.store.View(func(tx store.Tx) error {
		var err error
		rooms, err = tx.ListRooms(filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

// ListBattles pages through a room's battle log so clients can
// reconstruct state deltas after a reconnect.
func (m *Manager) ListBattles(ctx context.Context, roomID string, afterSeq uint64, limit int) ([]*war.Battle, error) {
	var battles []*war.Battle
	err := m.store.View(func(tx store.Tx) error {
		if _, err := getRoom(tx, roomID); err != nil {
			return err
		}
		var err error
		battles, err = tx.ListBattles(roomID, afterSeq, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return battles, nil
}

func (m *Manager) publish(ctx context.Context, roomID string, delta *messaging.Delta) {
	if err := m.pub.PublishRoom(roomID, delta); err != nil {
		slog.WarnContext(ctx, "publishing room delta", "room", roomID, "error", err)
	}
}

func getRoom(tx store.Tx, roomID string) (*war.Room, error) {
	room, err := tx.GetRoom(roomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, war.ErrRoomNotFound
		}
		return nil, err
	}
	return room, nil
}
