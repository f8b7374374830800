package jobs

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/marcus-crane/scrapeboard/models"
)

const (
	WarmJobName  = "warm"
	PruneJobName = "prune"

	PruneInterval = time.Hour
)

type Refresher interface {
	Refresh() ([]models.ScrapeRecord, error)
}

type Pruner interface {
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

type Options struct {
	RefreshInterval time.Duration
	// Retention of zero disables pruning.
	Retention time.Duration
}

// SetupInBackground registers jobs on a new scheduler. The scheduler is not
// started; callers decide whether background work should run.
func SetupInBackground(opts Options, refresher Refresher, pruner Pruner) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}

	if _, err := s.NewJob(
		gocron.DurationJob(opts.RefreshInterval),
		gocron.NewTask(WarmDashboard, refresher),
		gocron.WithName(WarmJobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		s.Shutdown()
		return nil, err
	}

	if pruner != nil && opts.Retention > 0 {
		if _, err := s.NewJob(
			gocron.DurationJob(PruneInterval),
			gocron.NewTask(PruneRecords, pruner, opts.Retention, time.Now),
			gocron.WithName(PruneJobName),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			s.Shutdown()
			return nil, err
		}
	}

	slog.Info("Jobs scheduled. Scheduler not running yet.", slog.Int("jobs", len(s.Jobs())))

	return s, nil
}

func WarmDashboard(refresher Refresher) {
	records, err := refresher.Refresh()
	if err != nil {
		slog.Error("Failed to warm dashboard", slog.String("error", err.Error()))
		return
	}
	slog.Debug("Warmed dashboard", slog.Int("count", len(records)))
}

func PruneRecords(pruner Pruner, retention time.Duration, now func() time.Time) {
	cutoff := now().Add(-retention)
	deleted, err := pruner.DeleteOlderThan(cutoff)
	if err != nil {
		slog.Error("Failed to prune old records", slog.String("error", err.Error()))
		return
	}
	if deleted > 0 {
		slog.Info("Pruned old records", slog.Int64("deleted", deleted), slog.Time("cutoff", cutoff))
	}
}
