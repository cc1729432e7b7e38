// Package report periodically logs the scheduler counters and optionally
// pushes them to an API server.
package report

import (
	"context"
	"time"

	"github.com/Gthulhu/scx_serverless/plugin/serverless"
	"github.com/Gthulhu/scx_serverless/plugin/util"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// StatsSource is implemented by *serverless.Scheduler.
type StatsSource interface {
	Stats() serverless.Stats
}

// Reporter samples a StatsSource on a fixed interval.
type Reporter struct {
	source    StatsSource
	interval  time.Duration
	mode      string
	sessionID string
	client    *MetricsClient
	log       zerolog.Logger
}

// NewReporter creates a reporter. client may be nil to only log.
func NewReporter(source StatsSource, interval time.Duration, mode string, client *MetricsClient, log zerolog.Logger) *Reporter {
	return &Reporter{
		source:    source,
		interval:  interval,
		mode:      mode,
		sessionID: uuid.NewString(),
		client:    client,
		log:       log.With().Str("component", "report").Logger(),
	}
}

// SessionID identifies this reporter in pushed snapshots.
func (r *Reporter) SessionID() string {
	return r.sessionID
}

// Start reports every interval in a background goroutine until ctx is done.
// A non-positive interval disables reporting.
func (r *Reporter) Start(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Report(ctx)
			}
		}
	}()
}

// Report takes one snapshot, logs it and pushes it when a client is set.
func (r *Reporter) Report(ctx context.Context) Snapshot {
	snap := Snapshot{
		SessionID: r.sessionID,
		Mode:      r.mode,
		Timestamp: util.Now(),
		Stats:     r.source.Stats(),
	}
	r.log.Info().
		Uint64("enqueues", snap.NrUserEnqueues).
		Uint64("dispatches", snap.NrDispatches).
		Uint64("failed", snap.NrDispatchesFailed).
		Uint64("curr", snap.NrCurrEnqueued).
		Uint64("cmdline_failures", snap.NrCmdlineFailures).
		Uint64("slice_assigned", snap.NrSliceAssigned).
		Uint64("wait_errors", snap.NrWaitErrors).
		Uint64("inbound_errors", snap.NrInboundErrors).
		Msg("stats")

	if r.client != nil {
		sent, err := r.client.SendMetrics(ctx, snap)
		if err != nil {
			r.log.Warn().Err(err).Msg("failed to send metrics")
		} else if sent {
			r.log.Debug().Msg("sent metrics to API server")
		}
	}
	return snap
}
