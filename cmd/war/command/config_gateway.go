package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-war/internal/gateway"
)

const defaultPlayerHeader = "X-Player-Id"

type GatewayConfig struct {
	Addr string `json:"addr"`

	// PlayerHeader names the identity header set by the upstream
	// authentication proxy.
	PlayerHeader string `json:"player_header,omitempty"`

	// IdleTimeout closes connections with no traffic. Empty disables it.
	IdleTimeout string `json:"idle_timeout,omitempty"`
}

func (c *GatewayConfig) validate() error {
	el := errors.NewErrorList()

	if c.Addr == "" {
		el.Add(fmt.Errorf("gateway addr is required"))
	}
	if c.IdleTimeout != "" {
		_, err := time.ParseDuration(c.IdleTimeout)
		if err != nil {
			el.Add(fmt.Errorf("parsing idle_timeout: %w", err))
		}
	}

	return el.Err()
}

func (c *GatewayConfig) buildGateway(rs gateway.RoomService, as gateway.ActionService, sub gateway.Subscriber) *gateway.Gateway {
	header := c.PlayerHeader
	if header == "" {
		header = defaultPlayerHeader
	}
	return gateway.New(c.Addr, rs, as, sub, &gateway.HeaderAuth{Header: header}, duration(c.IdleTimeout, 0))
}
