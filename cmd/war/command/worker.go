package command

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/pixil98/go-service"
	"github.com/pixil98/go-war/internal/coordinator"
	"github.com/pixil98/go-war/internal/messaging"
	"github.com/pixil98/go-war/internal/reaper"
	"github.com/pixil98/go-war/internal/rooms"
)

const defaultNukeCooldown = 5 * time.Minute

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	// Messaging fan-out
	natsServer, err := cfg.Nats.buildNatsServer()
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}
	publisher := messaging.NewRoomPublisher(natsServer)

	// State store
	st, err := cfg.Storage.buildStore()
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	// One lock registry serializes every mutation path per room.
	locks := coordinator.NewLocks()

	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	coord := coordinator.New(st, locks, publisher, rng, duration(cfg.NukeCooldown, defaultNukeCooldown))
	roomManager := rooms.NewManager(st, locks, publisher)

	sweeper := reaper.New(st, locks, publisher,
		reaper.WithSweepInterval(duration(cfg.SweepInterval, reaper.DefaultSweepInterval)),
		reaper.WithLobbyIdle(duration(cfg.LobbyIdleThreshold, reaper.DefaultLobbyIdle)),
		reaper.WithWarIdle(duration(cfg.WarIdleThreshold, reaper.DefaultWarIdle)),
		reaper.WithRetention(duration(cfg.RoomRetention, 0)),
	)

	gw := cfg.Gateway.buildGateway(roomManager, coord, natsServer)

	return service.WorkerList{
		"store":   st,
		"nats":    natsServer,
		"reaper":  sweeper,
		"gateway": gw,
	}, nil
}
