package battle

import "math/rand/v2"

// RollDice rolls NdS + modifier, with a minimum result of 0.
func RollDice(rng *rand.Rand, dice, sides, mod int) int {
	total := mod
	for range dice {
		total += rng.IntN(sides) + 1
	}
	if total < 0 {
		total = 0
	}
	return total
}

var assaultMessages = []struct {
	maxLosses int
	verb      string // "{actor} {verb} {target} forces"
}{
	{0, "is repelled by"},
	{3, "skirmishes with"},
	{8, "engages"},
	{15, "batters"},
	{25, "breaks through"},
	{40, "routs"},
	{60, "overruns"},
	{90, "crushes"},
}

// AssaultVerb returns the battle-report verb for a casualty count.
func AssaultVerb(losses int) string {
	for _, msg := range assaultMessages {
		if losses <= msg.maxLosses {
			return msg.verb
		}
	}
	return "annihilates"
}
