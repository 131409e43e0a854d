// Package store is the transactional persistence boundary for rooms,
// memberships, wars, and battle logs. All multi-record mutations run
// inside a single transaction: readers only ever observe committed
// state, and a failed commit leaves nothing behind.
package store

import (
	"errors"

	"github.com/pixil98/go-war/internal/war"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness constraint was violated.
var ErrAlreadyExists = errors.New("record already exists")

// ErrTransient wraps commit failures worth retrying.
var ErrTransient = errors.New("transient store failure")

// RoomFilter narrows a room listing.
type RoomFilter struct {
	// States limits results to rooms in any of the given states.
	// Empty means all states.
	States []war.RoomState
}

func (f RoomFilter) matches(r *war.Room) bool {
	if len(f.States) == 0 {
		return true
	}
	for _, s := range f.States {
		if r.State == s {
			return true
		}
	}
	return false
}

// Tx is one transaction against the store. Mutations made through an
// update transaction commit atomically or not at all.
type Tx interface {
	PutRoom(r *war.Room) error
	GetRoom(id string) (*war.Room, error)
	ListRooms(filter RoomFilter) ([]*war.Room, error)
	// DeleteRoom tears down the room and everything it owns:
	// memberships, war, and battle log.
	DeleteRoom(id string) error

	// InsertMembership fails with ErrAlreadyExists if the (room, player)
	// pair is already present.
	InsertMembership(m *war.Membership) error
	DeleteMembership(roomID, playerID string) error
	ListMembers(roomID string) ([]*war.Membership, error)
	CountMembers(roomID string) (int, error)

	PutWar(w *war.War) error
	GetWar(roomID string) (*war.War, error)

	// AppendBattle assigns the next per-room sequence number and
	// records the entry. Battles are append-only.
	AppendBattle(b *war.Battle) error
	ListBattles(roomID string, afterSeq uint64, limit int) ([]*war.Battle, error)
}

// Store provides atomic read-modify-write access to the war state.
type Store interface {
	// Update runs fn in a read-write transaction. Transient commit
	// failures are retried a bounded number of times; op labels the
	// mutation (room, action) in retry logs so operators can tie a
	// contended commit to its source.
	Update(op string, fn func(tx Tx) error) error
	// View runs fn against a committed read-only snapshot.
	View(fn func(tx Tx) error) error
}
