package war

import "time"

// WarStatus is the lifecycle state of a war. Wars are born active:
// creation happens atomically with room activation, so there is no
// pending window to model. Resolved is terminal.
type WarStatus string

const (
	WarStatusActive   WarStatus = "active"
	WarStatusResolved WarStatus = "resolved"
)

// Side is one combatant's force and resource ledger.
type Side struct {
	PlayerID string `json:"player_id"`

	Troops   int `json:"troops"`
	Aircraft int `json:"aircraft"`
	Ships    int `json:"ships"`
	Missiles int `json:"missiles"`
	Nukes    int `json:"nukes"`

	Fuel int `json:"fuel"`
	Ammo int `json:"ammo"`

	Fortification int `json:"fortification"`
	Morale        int `json:"morale"`

	LastNukeAt time.Time `json:"last_nuke_at,omitzero"`
}

// FightingCapacity is the side's remaining combat strength. A side with
// zero capacity has lost the war.
func (s *Side) FightingCapacity() int {
	return s.Troops + s.Aircraft + s.Ships
}

func (s *Side) Defeated() bool {
	return s.FightingCapacity() <= 0
}

// NewSide returns a combatant ledger with the standard starting forces.
func NewSide(playerID string) Side {
	return Side{
		PlayerID: playerID,
		Troops:   100,
		Aircraft: 20,
		Ships:    12,
		Missiles: 6,
		Nukes:    2,
		Fuel:     500,
		Ammo:     400,
		Morale:   100,
	}
}

// War is the authoritative combat state for one room. It is mutated only
// through the turn coordinator's serialized path.
type War struct {
	RoomID string    `json:"room_id"`
	Status WarStatus `json:"status"`
	Sides  [2]Side   `json:"sides"`

	// TurnOwner is the player whose turn it is in sequential mode.
	TurnOwner     string    `json:"turn_owner"`
	TurnStartedAt time.Time `json:"turn_started_at"`
	LastTurnAt    time.Time `json:"last_turn_at"`

	// Outcome describes how the war ended. Set only when resolved.
	Outcome string `json:"outcome,omitempty"`
}

// NewWar creates an active war between two combatants. The first
// combatant owns the opening turn.
func NewWar(roomID, combatantA, combatantB string, now time.Time) *War {
	return &War{
		RoomID:        roomID,
		Status:        WarStatusActive,
		Sides:         [2]Side{NewSide(combatantA), NewSide(combatantB)},
		TurnOwner:     combatantA,
		TurnStartedAt: now,
		LastTurnAt:    now,
	}
}

// SideOf returns the side controlled by the given player, or nil.
func (w *War) SideOf(playerID string) *Side {
	for i := range w.Sides {
		if w.Sides[i].PlayerID == playerID {
			return &w.Sides[i]
		}
	}
	return nil
}

// OpponentOf returns the side opposing the given player, or nil if the
// player is not a combatant.
func (w *War) OpponentOf(playerID string) *Side {
	for i := range w.Sides {
		if w.Sides[i].PlayerID == playerID {
			return &w.Sides[1-i]
		}
	}
	return nil
}

// AdvanceTurn hands the turn to the actor's opponent. Keying off the
// actor rather than the current owner matters when a turn was
// forfeited: the player who stepped in does not keep the turn.
func (w *War) AdvanceTurn(actor string, now time.Time) {
	if opp := w.OpponentOf(actor); opp != nil {
		w.TurnOwner = opp.PlayerID
	}
	w.TurnStartedAt = now
}

// Resolve marks the war finished with the given outcome. Calling it on
// an already resolved war is a no-op so the first outcome sticks.
func (w *War) Resolve(outcome string) {
	if w.Status == WarStatusResolved {
		return
	}
	w.Status = WarStatusResolved
	w.Outcome = outcome
}
