package war

import (
	"encoding/json"
	"fmt"
	"time"
)

// ActionType is one of the fixed set of military actions.
type ActionType string

const (
	ActionGroundBattle  ActionType = "ground_battle"
	ActionAirstrike     ActionType = "airstrike"
	ActionNavalBattle   ActionType = "naval_battle"
	ActionMissileLaunch ActionType = "missile_launch"
	ActionNuclearAttack ActionType = "nuclear_attack"
	ActionFortify       ActionType = "fortify"
	ActionSpyOperation  ActionType = "spy_operation"
)

func (a ActionType) Valid() bool {
	switch a {
	case ActionGroundBattle, ActionAirstrike, ActionNavalBattle,
		ActionMissileLaunch, ActionNuclearAttack, ActionFortify, ActionSpyOperation:
		return true
	}
	return false
}

func (a *ActionType) UnmarshalText(text []byte) error {
	action := ActionType(text)
	if !action.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownActionType, text)
	}
	*a = action
	return nil
}

// SideDelta is the signed change an outcome applies to one side's
// ledger. Losses are negative.
type SideDelta struct {
	Troops   int `json:"troops,omitempty"`
	Aircraft int `json:"aircraft,omitempty"`
	Ships    int `json:"ships,omitempty"`
	Missiles int `json:"missiles,omitempty"`
	Nukes    int `json:"nukes,omitempty"`

	Fuel int `json:"fuel,omitempty"`
	Ammo int `json:"ammo,omitempty"`

	Fortification int `json:"fortification,omitempty"`
	Morale        int `json:"morale,omitempty"`
}

// IntelReport is what a successful spy operation reveals about the
// enemy ledger.
type IntelReport struct {
	Enemy  Side `json:"enemy"`
	Caught bool `json:"caught"`
}

// Outcome is the resolved result of one action.
type Outcome struct {
	Summary     string       `json:"summary"`
	ActorDelta  SideDelta    `json:"actor_delta"`
	TargetDelta SideDelta    `json:"target_delta"`
	Intel       *IntelReport `json:"intel,omitempty"`

	// Decisive is set when the action ends the war.
	Decisive bool   `json:"decisive,omitempty"`
	Winner   string `json:"winner,omitempty"`
}

// Battle is one immutable log entry: an executed action and its
// outcome. Entries are append-only; Seq is monotonic per room.
type Battle struct {
	ID      string          `json:"id"`
	RoomID  string          `json:"room_id"`
	Seq     uint64          `json:"seq"`
	Actor   string          `json:"actor"`
	Action  ActionType      `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Outcome Outcome         `json:"outcome"`
	At      time.Time       `json:"at"`
}
