package settings

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const minRefreshInterval = time.Second

// Poller periodically reloads the settings snapshot so that writes made by
// other replicas become visible.
type Poller struct {
	db       *gorm.DB
	interval time.Duration
}

// NewPoller constructs a settings poller. A zero interval defers to the
// RefreshIntervalKey setting on every cycle.
func NewPoller(db *gorm.DB, interval time.Duration) *Poller {
	if db == nil {
		return nil
	}
	return &Poller{db: db, interval: interval}
}

// Run reloads the snapshot until ctx is cancelled. It always returns nil so it
// can sit in an errgroup next to the HTTP server.
func (p *Poller) Run(ctx context.Context) error {
	if p == nil {
		return nil
	}
	log.Infof("settings poller started (interval=%s)", p.nextInterval())
	for {
		timer := time.NewTimer(p.nextInterval())
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return nil
		case <-timer.C:
		}
		if errRefresh := RefreshDBConfigSnapshot(ctx, p.db); errRefresh != nil && ctx.Err() == nil {
			log.WithError(errRefresh).Warn("settings poller: refresh failed")
		}
	}
}

func (p *Poller) nextInterval() time.Duration {
	interval := p.interval
	if interval <= 0 {
		interval = time.Duration(Int(RefreshIntervalKey, DefaultRefreshInterval)) * time.Second
	}
	if interval < minRefreshInterval {
		interval = minRefreshInterval
	}
	return interval
}
