package scheduler

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/avramidis/eigenspin/internal/modules/runs"
)

// PruneRunsJob removes finished runs older than the retention window.
type PruneRunsJob struct {
	log       zerolog.Logger
	repo      *runs.Repository
	retention time.Duration
}

// NewPruneRunsJob creates a new run pruning job
func NewPruneRunsJob(repo *runs.Repository, retention time.Duration, log zerolog.Logger) *PruneRunsJob {
	return &PruneRunsJob{
		log:       log.With().Str("job", "prune_runs").Logger(),
		repo:      repo,
		retention: retention,
	}
}

// Name returns the job name
func (j *PruneRunsJob) Name() string {
	return "prune_runs"
}

// Run deletes expired runs
func (j *PruneRunsJob) Run() error {
	cutoff := time.Now().Add(-j.retention)
	deleted, err := j.repo.PruneOlderThan(cutoff)
	if err != nil {
		return err
	}

	if deleted > 0 {
		j.log.Info().Int64("deleted", deleted).Msg("Expired runs removed")
	}
	return nil
}
