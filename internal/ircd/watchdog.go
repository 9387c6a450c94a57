package ircd

import (
	"context"
	"time"
)

// watchdogLoop periodically raises EventTick so the event loop can
// sweep connections for idleness without any locking: the sweep itself
// always runs on the single event loop goroutine.
func (s *Server) watchdogLoop(ctx context.Context) {
	defer s.wg.Done()

	interval := s.Config.WakeupTime
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.newEvent(Event{Type: EventTick})
		}
	}
}

// checkWatchdog implements spec section 4.8: a connection idle for
// PingTime gets a PING; one that has owed a PONG for DeadTime since
// that PING and still hasn't spoken is evicted.
func (s *Server) checkWatchdog() {
	now := time.Now()
	pingAfter := s.Config.PingTime
	if pingAfter <= 0 {
		pingAfter = 180 * time.Second
	}
	deadAfter := s.Config.DeadTime
	if deadAfter <= 0 {
		deadAfter = 180 * time.Second
	}

	var dead []*Client
	for _, c := range s.clients {
		if !c.Registered() {
			continue
		}
		if c.pingMissed > 0 {
			if now.Sub(c.lastPing) >= deadAfter {
				dead = append(dead, c)
			}
			continue
		}
		if now.Sub(c.lastActivity) >= pingAfter {
			s.sendFrom(c, "", "PING", ":"+s.Config.ServerName)
			c.pingMissed++
			c.lastPing = now
		}
	}

	for _, c := range dead {
		s.quitClient(c, "Connection reset by peer")
	}
}
