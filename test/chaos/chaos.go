// Package chaos breaks database connections under a running workload.
package chaos

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

const killOwnConnection = `
SELECT pg_terminate_backend(pid)
FROM pg_stat_activity
WHERE application_name = $1 AND pid <> pg_backend_pid()
ORDER BY random()
LIMIT 1`

// Terminator kills connections that carry a given application_name, so only
// the workload's own pool is hit and other clients of the server are spared.
type Terminator struct {
	pool    *pgxpool.Pool
	appName string
	every   time.Duration
	odds    int
	log     logrus.FieldLogger
	kills   atomic.Int64
}

// NewTerminator targets the connections pool opened under appName.
func NewTerminator(pool *pgxpool.Pool, appName string, log logrus.FieldLogger) *Terminator {
	return &Terminator{pool: pool, appName: appName, every: 2 * time.Second, odds: 5, log: log}
}

// Run kills one tagged connection on roughly one tick in five until ctx ends
// or stop closes.
func (t *Terminator) Run(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(t.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if rand.Intn(t.odds) != 0 {
				continue
			}
			var killed bool
			err := t.pool.QueryRow(ctx, killOwnConnection, t.appName).Scan(&killed)
			if err != nil {
				// No other tagged connection was open, or ours was the victim.
				t.log.WithError(err).Debug("chaos: no connection terminated")
				continue
			}
			if killed {
				t.log.WithField("kills", t.kills.Add(1)).Debug("chaos: connection terminated")
			}
		}
	}
}

// Kills reports how many connections Run has terminated.
func (t *Terminator) Kills() int64 {
	return t.kills.Load()
}
