package messaging

import (
	"testing"

	"github.com/pixil98/go-testutil"
)

func TestRoomSubject(t *testing.T) {
	testutil.AssertEqual(t, "subject", RoomSubject("abc-123"), "room.abc-123")
}

func TestPublishBeforeStart(t *testing.T) {
	s, err := NewNatsServer()
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}

	err = s.Publish("room.r1", []byte("{}"))
	testutil.AssertErrorContains(t, err, "not started")

	_, err = s.SubscribeRoom("r1", func([]byte) {})
	testutil.AssertErrorContains(t, err, "not started")
}
