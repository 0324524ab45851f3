package doctor

import (
	"context"
	"time"

	"github.com/steveyegge/sqlhealth/internal/sqlserver"
	"github.com/steveyegge/sqlhealth/internal/telemetry"
)

// Connect makes a single connectivity attempt. It returns a
// *ConnectivityError when the server cannot be reached.
func (d *Doctor) Connect(ctx context.Context, db sqlserver.Querier) error {
	start := time.Now()
	err := db.Ping(ctx)
	elapsed := time.Since(start)
	telemetry.RecordProbe(ctx, d.RunID, d.Target, durationMs(elapsed), err)
	d.logger().Debug().Str("target", d.Target).Dur("elapsed", elapsed).Err(err).Msg("probe")
	if err != nil {
		return &ConnectivityError{Target: d.Target, Err: err}
	}
	return nil
}

// Probe reports whether the server accepts a connection.
func (d *Doctor) Probe(ctx context.Context, db sqlserver.Querier) bool {
	return d.Connect(ctx, db) == nil
}
