// Package retention purges aged-out entries on a cron schedule.
package retention

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/evlog/evlog/internal/syslog"
)

// Purger deletes entries received before a cutoff and reports how many
// went away.
type Purger interface {
	PurgeBefore(receivedBefore string) (int64, error)
}

// Service runs the purge on schedule. Markers survive purges; that is
// the store's contract, not ours.
type Service struct {
	store Purger
	keep  time.Duration
	cron  *cron.Cron
}

// New builds a retention service keeping entries for keep, firing on
// the given cron schedule ("@hourly", "0 3 * * *", ...).
func New(store Purger, keep time.Duration, schedule string) (*Service, error) {
	if keep <= 0 {
		return nil, fmt.Errorf("retention: keep duration must be positive, got %s", keep)
	}
	s := &Service{store: store, keep: keep, cron: cron.New()}
	if _, err := s.cron.AddFunc(schedule, func() { s.RunNow() }); err != nil {
		return nil, fmt.Errorf("retention: invalid schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Service) Start() {
	log.Printf("[retention] keeping entries for %s", s.keep)
	s.cron.Start()
}

// Stop halts the scheduler and waits for an in-flight purge to finish.
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
}

// RunNow purges immediately, outside the schedule.
func (s *Service) RunNow() {
	cutoff := syslog.FormatTime(time.Now().Add(-s.keep))
	n, err := s.store.PurgeBefore(cutoff)
	if err != nil {
		log.Printf("[retention] purge: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[retention] purged %d entries older than %s", n, cutoff)
	}
}
