package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/pixil98/go-war/internal/war"
)

const (
	roomBucket       = "rooms"
	membershipBucket = "memberships"
	warBucket        = "wars"
	battleBucket     = "battles"
)

const maxCommitAttempts = 3

// Bolt is a bbolt-backed Store. A single file holds four buckets; the
// battles bucket nests one sub-bucket per room so sequence numbers are
// monotonic per room and teardown is a single bucket delete.
type Bolt struct {
	db *bbolt.DB
}

// OpenBolt opens (creating if needed) the store file at path.
func OpenBolt(path string) (*Bolt, error) {
	if path == "" {
		return nil, fmt.Errorf("store path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening store db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{roomBucket, membershipBucket, warBucket, battleBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Bolt{db: db}, nil
}

// Start keeps the store open until the context is canceled, then closes
// the underlying database. It lets the store run as a service worker.
func (s *Bolt) Start(ctx context.Context) error {
	<-ctx.Done()
	return s.db.Close()
}

// Close closes the underlying database.
func (s *Bolt) Close() error {
	return s.db.Close()
}

// Update runs fn in a read-write transaction, retrying transient commit
// failures up to maxCommitAttempts before surfacing the error.
func (s *Bolt) Update(op string, fn func(tx Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		err = s.db.Update(func(btx *bbolt.Tx) error {
			return fn(&boltTx{tx: btx})
		})
		if err == nil || !isTransient(err) {
			return err
		}
		slog.Warn("store commit failed, retrying", "op", op, "attempt", attempt, "error", err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
}

// View runs fn against a read-only snapshot of committed state.
func (s *Bolt) View(fn func(tx Tx) error) error {
	return s.db.View(func(btx *bbolt.Tx) error {
		return fn(&boltTx{tx: btx})
	})
}

func isTransient(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, bbolt.ErrTimeout)
}

type boltTx struct {
	tx *bbolt.Tx
}

func (t *boltTx) PutRoom(r *war.Room) error {
	if r.ID == "" {
		return fmt.Errorf("room id is required")
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshalling room: %w", err)
	}
	return t.tx.Bucket([]byte(roomBucket)).Put([]byte(r.ID), data)
}

func (t *boltTx) GetRoom(id string) (*war.Room, error) {
	data := t.tx.Bucket([]byte(roomBucket)).Get([]byte(id))
	if data == nil {
		return nil, fmt.Errorf("room %s: %w", id, ErrNotFound)
	}
	var r war.Room
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshalling room: %w", err)
	}
	return &r, nil
}

func (t *boltTx) ListRooms(filter RoomFilter) ([]*war.Room, error) {
	var rooms []*war.Room
	err := t.tx.Bucket([]byte(roomBucket)).ForEach(func(_, data []byte) error {
		var r war.Room
		if err := json.Unmarshal(data, &r); err != nil {
			return fmt.Errorf("unmarshalling room: %w", err)
		}
		if filter.matches(&r) {
			rooms = append(rooms, &r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func (t *boltTx) DeleteRoom(id string) error {
	if err := t.tx.Bucket([]byte(roomBucket)).Delete([]byte(id)); err != nil {
		return err
	}

	// Memberships are keyed by room prefix.
	members := t.tx.Bucket([]byte(membershipBucket))
	c := members.Cursor()
	prefix := membershipPrefix(id)
	var keys [][]byte
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
	}
	for _, k := range keys {
		if err := members.Delete(k); err != nil {
			return err
		}
	}

	if err := t.tx.Bucket([]byte(warBucket)).Delete([]byte(id)); err != nil {
		return err
	}

	err := t.tx.Bucket([]byte(battleBucket)).DeleteBucket([]byte(id))
	if err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
		return err
	}
	return nil
}

func (t *boltTx) InsertMembership(m *war.Membership) error {
	key := membershipKey(m.RoomID, m.PlayerID)
	b := t.tx.Bucket([]byte(membershipBucket))
	if b.Get(key) != nil {
		return fmt.Errorf("membership %s/%s: %w", m.RoomID, m.PlayerID, ErrAlreadyExists)
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshalling membership: %w", err)
	}
	return b.Put(key, data)
}

func (t *boltTx) DeleteMembership(roomID, playerID string) error {
	key := membershipKey(roomID, playerID)
	b := t.tx.Bucket([]byte(membershipBucket))
	if b.Get(key) == nil {
		return fmt.Errorf("membership %s/%s: %w", roomID, playerID, ErrNotFound)
	}
	return b.Delete(key)
}

func (t *boltTx) ListMembers(roomID string) ([]*war.Membership, error) {
	var members []*war.Membership
	c := t.tx.Bucket([]byte(membershipBucket)).Cursor()
	prefix := membershipPrefix(roomID)
	for k, data := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, data = c.Next() {
		var m war.Membership
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("unmarshalling membership: %w", err)
		}
		members = append(members, &m)
	}
	return members, nil
}

func (t *boltTx) CountMembers(roomID string) (int, error) {
	count := 0
	c := t.tx.Bucket([]byte(membershipBucket)).Cursor()
	prefix := membershipPrefix(roomID)
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		count++
	}
	return count, nil
}

func (t *boltTx) PutWar(w *war.War) error {
	if w.RoomID == "" {
		return fmt.Errorf("war room id is required")
	}
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshalling war: %w", err)
	}
	return t.tx.Bucket([]byte(warBucket)).Put([]byte(w.RoomID), data)
}

func (t *boltTx) GetWar(roomID string) (*war.War, error) {
	data := t.tx.Bucket([]byte(warBucket)).Get([]byte(roomID))
	if data == nil {
		return nil, fmt.Errorf("war for room %s: %w", roomID, ErrNotFound)
	}
	var w war.War
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshalling war: %w", err)
	}
	return &w, nil
}

func (t *boltTx) AppendBattle(b *war.Battle) error {
	rb, err := t.tx.Bucket([]byte(battleBucket)).CreateBucketIfNotExists([]byte(b.RoomID))
	if err != nil {
		return fmt.Errorf("creating battle log for room %s: %w", b.RoomID, err)
	}
	seq, err := rb.NextSequence()
	if err != nil {
		return fmt.Errorf("assigning battle sequence: %w", err)
	}
	b.Seq = seq

	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshalling battle: %w", err)
	}
	return rb.Put(seqKey(seq), data)
}

func (t *boltTx) ListBattles(roomID string, afterSeq uint64, limit int) ([]*war.Battle, error) {
	rb := t.tx.Bucket([]byte(battleBucket)).Bucket([]byte(roomID))
	if rb == nil {
		return nil, nil
	}

	var battles []*war.Battle
	c := rb.Cursor()
	for k, data := c.Seek(seqKey(afterSeq + 1)); k != nil; k, data = c.Next() {
		if limit > 0 && len(battles) >= limit {
			break
		}
		var b war.Battle
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("unmarshalling battle: %w", err)
		}
		battles = append(battles, &b)
	}
	return battles, nil
}

func membershipKey(roomID, playerID string) []byte {
	return []byte(roomID + "/" + playerID)
}

func membershipPrefix(roomID string) []byte {
	return []byte(roomID + "/")
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
