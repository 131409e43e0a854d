package war

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
)

// RoomState is the lifecycle state of a room.
type RoomState string

const (
	RoomStateLobby     RoomState = "lobby"
	RoomStateActive    RoomState = "active"
	RoomStateCompleted RoomState = "completed"
	RoomStateAbandoned RoomState = "abandoned"
)

// Terminal returns true for states a room never leaves.
func (s RoomState) Terminal() bool {
	return s == RoomStateCompleted || s == RoomStateAbandoned
}

// GameMode controls how turn ownership is enforced.
type GameMode string

const (
	// GameModeSequential alternates the turn between combatants.
	GameModeSequential GameMode = "sequential"
	// GameModeSimultaneous lets either combatant act at any time.
	// Execution is still serialized per room.
	GameModeSimultaneous GameMode = "simultaneous"
)

func (m GameMode) Valid() bool {
	return m == GameModeSequential || m == GameModeSimultaneous
}

func (m *GameMode) UnmarshalText(text []byte) error {
	mode := GameMode(text)
	if !mode.Valid() {
		return fmt.Errorf("unknown game mode: %s", text)
	}
	*m = mode
	return nil
}

// RoomConfig is the host-supplied configuration for a room.
type RoomConfig struct {
	TurnSeconds int      `json:"turn_seconds"`
	GameMode    GameMode `json:"game_mode"`
	MaxPlayers  int      `json:"max_players"`
}

func (c *RoomConfig) Validate() error {
	el := errors.NewErrorList()

	if c.MaxPlayers < 2 {
		el.Add(fmt.Errorf("max_players must be at least 2"))
	}
	if c.TurnSeconds <= 0 {
		el.Add(fmt.Errorf("turn_seconds must be positive"))
	}
	if !c.GameMode.Valid() {
		el.Add(fmt.Errorf("unknown game mode: %q", c.GameMode))
	}

	return el.Err()
}

// TurnDuration returns the configured turn length.
func (c *RoomConfig) TurnDuration() time.Duration {
	return time.Duration(c.TurnSeconds) * time.Second
}

// Room is a hosted session container: a lobby first, the shell around an
// active war after it fills.
type Room struct {
	ID             string     `json:"id"`
	HostID         string     `json:"host_id"`
	HostName       string     `json:"host_name"`
	Config         RoomConfig `json:"config"`
	PlayerCount    int        `json:"player_count"`
	State          RoomState  `json:"state"`
	CreatedAt      time.Time  `json:"created_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`
}

// Joinable reports whether new players may still enter.
func (r *Room) Joinable() bool {
	return r.State == RoomStateLobby
}

// Touch records activity on the room.
func (r *Room) Touch(now time.Time) {
	r.LastActivityAt = now
}

// Membership associates one player with one room. The (room, player)
// pair is unique; the store enforces it.
type Membership struct {
	RoomID   string    `json:"room_id"`
	PlayerID string    `json:"player_id"`
	JoinedAt time.Time `json:"joined_at"`
}
