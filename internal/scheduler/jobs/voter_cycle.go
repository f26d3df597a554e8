package jobs

import (
	"context"

	"github.com/wonny/futuquant/internal/voter"
	"github.com/wonny/futuquant/pkg/logger"
)

// VoterCycleJob runs one voter evaluation pass per minute. Deployments
// that prefer the standalone loop use `quant voter` instead; the job
// exists so a single scheduler process can carry the whole pipeline.
type VoterCycleJob struct {
	runner *voter.Runner
	logger *logger.Logger
}

// NewVoterCycleJob creates a new voter cycle job
func NewVoterCycleJob(runner *voter.Runner, log *logger.Logger) *VoterCycleJob {
	return &VoterCycleJob{
		runner: runner,
		logger: log,
	}
}

// Name returns the job name
func (j *VoterCycleJob) Name() string {
	return "voter_cycle"
}

// Schedule returns the cron schedule (every minute)
func (j *VoterCycleJob) Schedule() string {
	return "0 * * * * *"
}

// Run executes one voter cycle
func (j *VoterCycleJob) Run(ctx context.Context) error {
	return j.runner.RunOnce(ctx)
}
