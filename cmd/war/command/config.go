package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
)

type Config struct {
	// Operator-level staleness policy. Durations are strings like
	// "10m"; empty fields fall back to package defaults.
	SweepInterval      string `json:"sweep_interval,omitempty"`
	LobbyIdleThreshold string `json:"lobby_idle_threshold,omitempty"`
	WarIdleThreshold   string `json:"war_idle_threshold,omitempty"`
	RoomRetention      string `json:"room_retention,omitempty"`

	// NukeCooldown is the recharge time between nuclear attacks.
	NukeCooldown string `json:"nuke_cooldown,omitempty"`

	Storage StorageConfig `json:"storage"`
	Nats    NatsConfig    `json:"nats"`
	Gateway GatewayConfig `json:"gateway"`
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	for name, val := range map[string]string{
		"sweep_interval":       c.SweepInterval,
		"lobby_idle_threshold": c.LobbyIdleThreshold,
		"war_idle_threshold":   c.WarIdleThreshold,
		"room_retention":       c.RoomRetention,
		"nuke_cooldown":        c.NukeCooldown,
	} {
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			el.Add(fmt.Errorf("parsing %s: %w", name, err))
		} else if d <= 0 {
			el.Add(fmt.Errorf("%s must be positive", name))
		}
	}

	el.Add(c.Storage.validate())
	el.Add(c.Nats.validate())
	el.Add(c.Gateway.validate())

	return el.Err()
}

// duration returns the parsed value of a validated duration field, or
// def when the field is unset.
func duration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}
