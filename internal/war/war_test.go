package war

import (
	"errors"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
)

func TestWarSides(t *testing.T) {
	now := time.Now()
	w := NewWar("room-1", "alice", "bob", now)

	testutil.AssertEqual(t, "status", w.Status, WarStatusActive)
	testutil.AssertEqual(t, "turn owner", w.TurnOwner, "alice")

	if side := w.SideOf("alice"); side == nil || side.PlayerID != "alice" {
		t.Fatalf("expected alice's side, got %+v", side)
	}
	if opp := w.OpponentOf("alice"); opp == nil || opp.PlayerID != "bob" {
		t.Fatalf("expected bob as opponent, got %+v", opp)
	}
	if side := w.SideOf("mallory"); side != nil {
		t.Errorf("expected nil side for non-combatant, got %+v", side)
	}
	if opp := w.OpponentOf("mallory"); opp != nil {
		t.Errorf("expected nil opponent for non-combatant, got %+v", opp)
	}
}

func TestWarAdvanceTurn(t *testing.T) {
	now := time.Now()
	w := NewWar("room-1", "alice", "bob", now)

	later := now.Add(time.Minute)
	w.AdvanceTurn("alice", later)
	testutil.AssertEqual(t, "turn owner", w.TurnOwner, "bob")
	testutil.AssertEqual(t, "turn started", w.TurnStartedAt, later)

	w.AdvanceTurn("bob", later.Add(time.Minute))
	testutil.AssertEqual(t, "turn owner", w.TurnOwner, "alice")

	// Acting into a forfeited turn hands the turn back, not forward.
	w.AdvanceTurn("bob", later.Add(2*time.Minute))
	testutil.AssertEqual(t, "turn owner after forfeit", w.TurnOwner, "alice")
}

func TestWarResolveIsTerminal(t *testing.T) {
	w := NewWar("room-1", "alice", "bob", time.Now())

	w.Resolve("victory: alice")
	testutil.AssertEqual(t, "status", w.Status, WarStatusResolved)
	testutil.AssertEqual(t, "outcome", w.Outcome, "victory: alice")

	// The first outcome sticks.
	w.Resolve("victory: bob")
	testutil.AssertEqual(t, "outcome", w.Outcome, "victory: alice")
}

func TestSideDefeated(t *testing.T) {
	s := NewSide("alice")
	testutil.AssertEqual(t, "defeated", s.Defeated(), false)

	s.Troops = 0
	s.Aircraft = 0
	s.Ships = 0
	testutil.AssertEqual(t, "defeated", s.Defeated(), true)
	// Missiles and nukes alone do not keep a side fighting.
	testutil.AssertEqual(t, "capacity", s.FightingCapacity(), 0)
}

func TestActionTypeUnmarshalText(t *testing.T) {
	for _, valid := range []string{
		"ground_battle", "airstrike", "naval_battle",
		"missile_launch", "nuclear_attack", "fortify", "spy_operation",
	} {
		var a ActionType
		if err := a.UnmarshalText([]byte(valid)); err != nil {
			t.Errorf("%s: unexpected error: %v", valid, err)
		}
	}

	var a ActionType
	err := a.UnmarshalText([]byte("tactical_retreat"))
	if !errors.Is(err, ErrUnknownActionType) {
		t.Fatalf("expected ErrUnknownActionType, got %v", err)
	}
}

func TestIsReject(t *testing.T) {
	testutil.AssertEqual(t, "reject", IsReject(Rejectf("no troops available")), true)
	testutil.AssertEqual(t, "sentinel", IsReject(ErrRoomFull), false)
}
