package battle

import (
	"time"

	"github.com/pixil98/go-war/internal/war"
)

// MaxFortification caps how far a side can dig in.
const MaxFortification = 5

// actionCost is what a side must have on hand to attempt an action.
type actionCost struct {
	fuel int
	ammo int
}

var costs = map[war.ActionType]actionCost{
	war.ActionGroundBattle:  {fuel: 0, ammo: 10},
	war.ActionAirstrike:     {fuel: 20, ammo: 10},
	war.ActionNavalBattle:   {fuel: 30, ammo: 15},
	war.ActionMissileLaunch: {fuel: 10, ammo: 0},
	war.ActionNuclearAttack: {fuel: 0, ammo: 0},
	war.ActionFortify:       {fuel: 5, ammo: 0},
	war.ActionSpyOperation:  {fuel: 5, ammo: 0},
}

// Validate decides whether the actor may execute the action against the
// war's current ledger. Pure: it never mutates state. Returns nil when
// the action is legal, a RejectError naming the reason otherwise.
func Validate(action war.ActionType, actorID string, w *war.War, nukeCooldown time.Duration, now time.Time) error {
	if w.Status != war.WarStatusActive {
		return war.ErrRoomNotActive
	}

	actor := w.SideOf(actorID)
	if actor == nil {
		return war.Rejectf("you are not a combatant in this war")
	}
	if w.OpponentOf(actorID) == nil {
		return war.Rejectf("no opposing side to target")
	}

	cost := costs[action]
	if actor.Fuel < cost.fuel {
		return war.Rejectf("insufficient fuel: need %d, have %d", cost.fuel, actor.Fuel)
	}
	if actor.Ammo < cost.ammo {
		return war.Rejectf("insufficient ammunition: need %d, have %d", cost.ammo, actor.Ammo)
	}

	switch action {
	case war.ActionGroundBattle:
		if actor.Troops <= 0 {
			return war.Rejectf("no troops available")
		}
	case war.ActionAirstrike:
		if actor.Aircraft <= 0 {
			return war.Rejectf("no aircraft available")
		}
	case war.ActionNavalBattle:
		if actor.Ships <= 0 {
			return war.Rejectf("no ships available")
		}
	case war.ActionMissileLaunch:
		if actor.Missiles <= 0 {
			return war.Rejectf("no missiles available")
		}
	case war.ActionNuclearAttack:
		if actor.Nukes <= 0 {
			return war.Rejectf("no nuclear weapons available")
		}
		if !actor.LastNukeAt.IsZero() {
			if elapsed := now.Sub(actor.LastNukeAt); elapsed < nukeCooldown {
				return war.Rejectf("nuclear weapons recharging for another %s", (nukeCooldown - elapsed).Round(time.Second))
			}
		}
	case war.ActionFortify:
		if actor.Fortification >= MaxFortification {
			return war.Rejectf("fortifications are already at maximum")
		}
	case war.ActionSpyOperation:
		// Fuel cost only.
	default:
		return war.ErrUnknownActionType
	}

	return nil
}
