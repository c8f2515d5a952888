package server

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"

	"github.com/nestegg-labs/nestegg/session"
)

// Sweeper evicts expired sessions on a cron schedule. The redis lock keeps
// replicas from sweeping simultaneously; with no redis client each process
// sweeps on its own.
type Sweeper struct {
	Sessions session.Store
	Schedule string
	Rdb      *redis.Client
	Stop     chan struct{}

	logger *log.Logger
	last   time.Time
}

func (s *Sweeper) Start() {
	if s.logger == nil {
		s.logger = log.New(log.Writer(), "[SWEEP] ", log.LstdFlags)
	}
	ticker := time.NewTicker(time.Minute)
	go func() {
		for {
			select {
			case <-s.Stop:
				ticker.Stop()
				return
			case <-ticker.C:
				s.tick(time.Now())
			}
		}
	}()
}

func (s *Sweeper) tick(now time.Time) {
	if !s.due(now) {
		return
	}
	s.last = now

	if s.Rdb != nil {
		ctx := context.Background()
		ok, _ := s.Rdb.SetNX(ctx, "nestegg:sweep:lock", "1", time.Minute).Result()
		if !ok {
			return
		}
		defer s.Rdb.Del(ctx, "nestegg:sweep:lock")
	}

	if n := s.Sessions.Sweep(now); n > 0 {
		s.logger.Printf("evicted %d expired sessions", n)
	}
}

// due checks the cron schedule against the last sweep. An unparseable
// schedule degrades to hourly.
func (s *Sweeper) due(now time.Time) bool {
	if s.last.IsZero() {
		return true
	}
	expr, err := cronexpr.Parse(s.Schedule)
	if err != nil {
		return now.Sub(s.last) >= time.Hour
	}
	next := expr.Next(s.last)
	return !next.After(now)
}
