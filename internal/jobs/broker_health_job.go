// Package jobs provides scheduled background tasks, built on
// github.com/robfig/cron/v3. Currently a single job: the broker health probe,
// which watches the AMQP connection and ships its findings through the
// centralized log publisher.
package jobs

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// ConnectionProbe reports whether the broker connection is alive.
// *amqp091.Connection satisfies it via IsClosed.
type ConnectionProbe interface {
	IsClosed() bool
}

// LogShipper is the slice of the centralized log publisher the probe uses.
type LogShipper interface {
	Info(ctx context.Context, message string, data map[string]any)
	Error(ctx context.Context, message string, data map[string]any, err error)
}

// BrokerHealthJob probes the broker connection every 30 seconds. A lost
// connection is reported locally (the broker cannot carry its own obituary);
// recovery is shipped through the log publisher again.
type BrokerHealthJob struct {
	probe   ConnectionProbe
	shipper LogShipper
	cron    *cron.Cron
	logger  *slog.Logger

	wasAlive bool
}

// NewBrokerHealthJob creates the health probe job.
func NewBrokerHealthJob(probe ConnectionProbe, shipper LogShipper, logger *slog.Logger) *BrokerHealthJob {
	return &BrokerHealthJob{
		probe:    probe,
		shipper:  shipper,
		cron:     cron.New(),
		logger:   logger.With("component", "broker_health_job"),
		wasAlive: true,
	}
}

// IsAlive reports the current connection state. Used by the HTTP health
// endpoint.
func (j *BrokerHealthJob) IsAlive() bool {
	return !j.probe.IsClosed()
}

// Start begins probing every 30 seconds.
func (j *BrokerHealthJob) Start() error {
	_, err := j.cron.AddFunc("@every 30s", j.check)
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Broker health job started (probing every 30s)")
	return nil
}

// Stop stops the probe.
func (j *BrokerHealthJob) Stop() {
	j.cron.Stop()
	j.logger.InfoContext(context.Background(), "Broker health job stopped")
}

func (j *BrokerHealthJob) check() {
	ctx := context.Background()
	alive := j.IsAlive()

	switch {
	case !alive && j.wasAlive:
		j.logger.ErrorContext(ctx, "Broker connection lost")
	case alive && !j.wasAlive:
		j.logger.InfoContext(ctx, "Broker connection restored")
		j.shipper.Info(ctx, "Broker connection restored", nil)
	case alive:
		j.shipper.Info(ctx, "Broker connection healthy", nil)
	}

	j.wasAlive = alive
}
