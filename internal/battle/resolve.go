package battle

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/pixil98/go-war/internal/war"
)

// Resolve computes the outcome of a legal action against the war's
// current state. Pure: the random source is injected so outcomes are
// reproducible, and the war itself is not mutated; callers commit the
// returned deltas through Apply.
func Resolve(rng *rand.Rand, action war.ActionType, actorID string, w *war.War) war.Outcome {
	actor := w.SideOf(actorID)
	target := w.OpponentOf(actorID)

	cost := costs[action]
	out := war.Outcome{
		ActorDelta: war.SideDelta{Fuel: -cost.fuel, Ammo: -cost.ammo},
	}

	switch action {
	case war.ActionGroundBattle:
		resolveGround(rng, actor, target, &out)
	case war.ActionAirstrike:
		resolveAirstrike(rng, actor, target, &out)
	case war.ActionNavalBattle:
		resolveNaval(rng, actor, target, &out)
	case war.ActionMissileLaunch:
		resolveMissile(rng, actor, target, &out)
	case war.ActionNuclearAttack:
		resolveNuclear(rng, actor, target, &out)
	case war.ActionFortify:
		out.ActorDelta.Fortification = 1
		out.ActorDelta.Morale = 5
		out.Summary = fmt.Sprintf("%s digs in and fortifies their positions", actor.PlayerID)
	case war.ActionSpyOperation:
		resolveSpy(rng, actor, target, &out)
	}

	// The war is decided when an attack leaves the target without any
	// fighting capacity.
	remaining := target.FightingCapacity() +
		out.TargetDelta.Troops + out.TargetDelta.Aircraft + out.TargetDelta.Ships
	if remaining <= 0 && isAttack(action) {
		out.Decisive = true
		out.Winner = actor.PlayerID
		out.Summary = fmt.Sprintf("%s; %s has no fighting capacity left", out.Summary, target.PlayerID)
	}

	return out
}

func isAttack(action war.ActionType) bool {
	switch action {
	case war.ActionGroundBattle, war.ActionAirstrike, war.ActionNavalBattle,
		war.ActionMissileLaunch, war.ActionNuclearAttack:
		return true
	}
	return false
}

func resolveGround(rng *rand.Rand, actor, target *war.Side, out *war.Outcome) {
	attack := RollDice(rng, actor.Troops/10+1, 6, actor.Morale/20)
	defense := RollDice(rng, target.Troops/10+1, 6, target.Fortification*2)

	if attack > defense {
		losses := clampLoss(target.Troops, RollDice(rng, 2, 10, attack-defense))
		out.TargetDelta.Troops = -losses
		out.TargetDelta.Morale = -losses / 4
		out.ActorDelta.Troops = -clampLoss(actor.Troops, RollDice(rng, 1, 6, 0))
		out.Summary = fmt.Sprintf("%s %s %s's ground forces, inflicting %d casualties",
			actor.PlayerID, AssaultVerb(losses), target.PlayerID, losses)
		return
	}

	losses := clampLoss(actor.Troops, RollDice(rng, 2, 6, defense-attack))
	out.ActorDelta.Troops = -losses
	out.ActorDelta.Morale = -losses / 4
	out.Summary = fmt.Sprintf("%s's assault is repelled by %s's defenses, losing %d troops",
		actor.PlayerID, target.PlayerID, losses)
}

func resolveAirstrike(rng *rand.Rand, actor, target *war.Side, out *war.Outcome) {
	sorties := actor.Aircraft
	if sorties > 10 {
		sorties = 10
	}
	damage := clampLoss(target.Troops, RollDice(rng, sorties, 8, 0))
	out.TargetDelta.Troops = -damage
	if target.Fortification > 0 && rng.IntN(2) == 0 {
		out.TargetDelta.Fortification = -1
	}
	// Flak: each sortie risks an airframe.
	shotDown := 0
	for range sorties {
		if rng.IntN(10) == 0 {
			shotDown++
		}
	}
	out.ActorDelta.Aircraft = -clampLoss(actor.Aircraft, shotDown)
	out.Summary = fmt.Sprintf("%s's airstrike hits %s, inflicting %d casualties (%d aircraft lost)",
		actor.PlayerID, target.PlayerID, damage, shotDown)
}

func resolveNaval(rng *rand.Rand, actor, target *war.Side, out *war.Outcome) {
	attack := RollDice(rng, actor.Ships, 6, 0)
	defense := RollDice(rng, target.Ships, 6, 0)

	if attack > defense {
		sunk := clampLoss(target.Ships, (attack-defense)/4+1)
		out.TargetDelta.Ships = -sunk
		out.TargetDelta.Morale = -sunk
		out.Summary = fmt.Sprintf("%s wins the naval engagement against %s, sinking %d ships",
			actor.PlayerID, target.PlayerID, sunk)
		return
	}

	sunk := clampLoss(actor.Ships, (defense-attack)/4+1)
	out.ActorDelta.Ships = -sunk
	out.ActorDelta.Morale = -sunk
	out.Summary = fmt.Sprintf("%s's fleet is beaten back by %s, losing %d ships",
		actor.PlayerID, target.PlayerID, sunk)
}

func resolveMissile(rng *rand.Rand, actor, target *war.Side, out *war.Outcome) {
	out.ActorDelta.Missiles = -1
	damage := clampLoss(target.Troops, RollDice(rng, 4, 10, 5))
	out.TargetDelta.Troops = -damage
	out.TargetDelta.Morale = -3
	if target.Fortification > 0 {
		out.TargetDelta.Fortification = -1
	}
	out.Summary = fmt.Sprintf("%s's missile strike on %s inflicts %d casualties",
		actor.PlayerID, target.PlayerID, damage)
}

func resolveNuclear(rng *rand.Rand, actor, target *war.Side, out *war.Outcome) {
	out.ActorDelta.Nukes = -1
	troops := clampLoss(target.Troops, target.Troops/2+RollDice(rng, 2, 10, 0))
	aircraft := clampLoss(target.Aircraft, target.Aircraft/2)
	ships := clampLoss(target.Ships, target.Ships/3)
	out.TargetDelta.Troops = -troops
	out.TargetDelta.Aircraft = -aircraft
	out.TargetDelta.Ships = -ships
	out.TargetDelta.Fortification = -target.Fortification
	out.TargetDelta.Morale = -30
	out.Summary = fmt.Sprintf("%s unleashes a nuclear attack on %s: %d troops, %d aircraft, and %d ships destroyed",
		actor.PlayerID, target.PlayerID, troops, aircraft, ships)
}

func resolveSpy(rng *rand.Rand, actor, target *war.Side, out *war.Outcome) {
	caught := rng.IntN(4) == 0
	out.Intel = &war.IntelReport{Enemy: *target, Caught: caught}
	if caught {
		out.ActorDelta.Morale = -5
		out.Summary = fmt.Sprintf("%s's spy gathers intelligence on %s but is caught",
			actor.PlayerID, target.PlayerID)
		return
	}
	out.Summary = fmt.Sprintf("%s's spy reports on %s's military strength undetected",
		actor.PlayerID, target.PlayerID)
}

// Apply commits an outcome's deltas to the war's ledgers. Values are
// clamped at zero and fortification at its cap.
func Apply(w *war.War, actorID string, action war.ActionType, out war.Outcome, now time.Time) {
	actor := w.SideOf(actorID)
	target := w.OpponentOf(actorID)

	applyDelta(actor, out.ActorDelta)
	applyDelta(target, out.TargetDelta)

	if action == war.ActionNuclearAttack {
		actor.LastNukeAt = now
	}
	w.LastTurnAt = now

	if out.Decisive {
		w.Resolve(fmt.Sprintf("victory: %s", out.Winner))
	}
}

func applyDelta(s *war.Side, d war.SideDelta) {
	s.Troops = clampZero(s.Troops + d.Troops)
	s.Aircraft = clampZero(s.Aircraft + d.Aircraft)
	s.Ships = clampZero(s.Ships + d.Ships)
	s.Missiles = clampZero(s.Missiles + d.Missiles)
	s.Nukes = clampZero(s.Nukes + d.Nukes)
	s.Fuel = clampZero(s.Fuel + d.Fuel)
	s.Ammo = clampZero(s.Ammo + d.Ammo)
	s.Morale = clampZero(s.Morale + d.Morale)

	s.Fortification = clampZero(s.Fortification + d.Fortification)
	if s.Fortification > MaxFortification {
		s.Fortification = MaxFortification
	}
}

func clampLoss(have, want int) int {
	if want > have {
		return have
	}
	if want < 0 {
		return 0
	}
	return want
}

func clampZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
