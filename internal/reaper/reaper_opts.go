package reaper

import "time"

type Opt func(*Reaper)

func WithSweepInterval(d time.Duration) Opt {
	return func(r *Reaper) {
		r.interval = d
	}
}

func WithLobbyIdle(d time.Duration) Opt {
	return func(r *Reaper) {
		r.lobbyIdle = d
	}
}

func WithWarIdle(d time.Duration) Opt {
	return func(r *Reaper) {
		r.warIdle = d
	}
}

func WithRetention(d time.Duration) Opt {
	return func(r *Reaper) {
		r.retention = d
	}
}
