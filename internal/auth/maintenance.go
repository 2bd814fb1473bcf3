package auth

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"
)

// Maintenance schedules periodic blacklist and refresh-token-store cleanup
// on a cron.Cron instance, so callers running in-memory backends don't
// need to wire their own ticker goroutines.
type Maintenance struct {
	cron *cron.Cron
	svc  *Service
}

// NewMaintenance builds a Maintenance scheduler bound to svc. Call Start to
// begin running cleanup passes in the background.
func NewMaintenance(svc *Service) *Maintenance {
	return &Maintenance{
		cron: cron.New(),
		svc:  svc,
	}
}

// Start schedules the blacklist sweep every 5 minutes and the refresh
// token store sweep every hour, then starts the cron scheduler.
func (m *Maintenance) Start(ctx context.Context, tokens ITokenStore) error {
	if _, err := m.cron.AddFunc("*/5 * * * *", func() {
		removed := m.svc.CleanupBlacklist()
		if removed > 0 {
			log.Printf("auth: blacklist cleanup removed %d expired entries", removed)
		}
	}); err != nil {
		return err
	}

	if _, err := m.cron.AddFunc("0 * * * *", func() {
		if err := tokens.RemoveExpired(ctx); err != nil {
			log.Printf("auth: refresh token cleanup failed: %v", err)
		}
	}); err != nil {
		return err
	}

	m.cron.Start()
	return nil
}

// Stop halts the scheduler, waiting for any in-flight job to finish.
func (m *Maintenance) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
}
