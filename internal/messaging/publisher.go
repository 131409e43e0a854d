package messaging

import (
	"encoding/json"
	"fmt"

	"github.com/pixil98/go-war/internal/war"
)

// DeltaKind tags what changed in a room.
type DeltaKind string

const (
	// DeltaBattle carries a committed battle record plus the updated war.
	DeltaBattle DeltaKind = "battle"
	// DeltaWar carries a war status change with no battle (timeouts, forfeits).
	DeltaWar DeltaKind = "war"
	// DeltaRoom carries a room lifecycle change.
	DeltaRoom DeltaKind = "room"
)

// Delta is one state change broadcast to a room's subscribers after a
// committed mutation. Delivery is at-least-once; Seq lets clients drop
// duplicates.
type Delta struct {
	RoomID string    `json:"room_id"`
	Kind   DeltaKind `json:"kind"`
	Seq    uint64    `json:"seq,omitempty"`

	RoomState war.RoomState `json:"room_state,omitempty"`
	War       *war.War      `json:"war,omitempty"`
	Battle    *war.Battle   `json:"battle,omitempty"`
}

// RoomPublisher fans deltas out to everyone subscribed to a room.
type RoomPublisher struct {
	server *NatsServer
}

func NewRoomPublisher(server *NatsServer) *RoomPublisher {
	return &RoomPublisher{server: server}
}

func (p *RoomPublisher) PublishRoom(roomID string, delta *Delta) error {
	data, err := json.Marshal(delta)
	if err != nil {
		return fmt.Errorf("marshalling delta: %w", err)
	}
	return p.server.Publish(RoomSubject(roomID), data)
}
