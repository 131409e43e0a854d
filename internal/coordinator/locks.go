package coordinator

import "sync"

// Locks hands out one exclusive lock per room identifier. Every
// mutation path (client actions, lifecycle changes, the reaper sweep)
// acquires the room's lock first, so per-room execution is strictly
// serialized while different rooms proceed in parallel.
//
// Entries are reference counted and removed once the last holder
// releases, so the registry does not grow with dead rooms.
type Locks struct {
	mu    sync.Mutex
	rooms map[string]*roomLock
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

func NewLocks() *Locks {
	return &Locks{
		rooms: make(map[string]*roomLock),
	}
}

// Acquire blocks until the caller holds the room's exclusive lock and
// returns the release function. Contenders wait their turn.
func (l *Locks) Acquire(roomID string) (release func()) {
	l.mu.Lock()
	rl, ok := l.rooms[roomID]
	if !ok {
		rl = &roomLock{}
		l.rooms[roomID] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.mu.Lock()

	return func() {
		rl.mu.Unlock()

		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.rooms, roomID)
		}
		l.mu.Unlock()
	}
}

// WithRoom runs fn while holding the room's exclusive lock.
func (l *Locks) WithRoom(roomID string, fn func() error) error {
	release := l.Acquire(roomID)
	defer release()
	return fn()
}
