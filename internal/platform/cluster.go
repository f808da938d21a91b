package platform

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// ClusterProvider serves SLURM-scheduled hosts: host resources,
// accelerator inventory, and job state queried from the scheduler. No
// external sink. A missing scheduler tool or job id yields an empty
// JobInfo, never an error.
type ClusterProvider struct {
	name   string
	logger *zap.Logger

	gpuQuery func(ctx context.Context) ([]byte, error)
	jobQuery func(ctx context.Context, jobID string) ([]byte, error)
	getenv   func(string) string
}

// NewClusterProvider builds the cluster-scheduler variant.
func NewClusterProvider(name string, logger *zap.Logger) *ClusterProvider {
	return &ClusterProvider{
		name:   name,
		logger: logger,
		gpuQuery: func(ctx context.Context) ([]byte, error) {
			return exec.CommandContext(ctx, "nvidia-smi",
				"--query-gpu=name,memory.total,utilization.gpu",
				"--format=csv,noheader,nounits").Output()
		},
		jobQuery: func(ctx context.Context, jobID string) ([]byte, error) {
			return exec.CommandContext(ctx, "squeue",
				"-j", jobID, "-h", "-o", "%P|%T|%M|%l|%N").Output()
		},
		getenv: os.Getenv,
	}
}

// Name implements Provider.
func (p *ClusterProvider) Name() string { return p.name }

// ResourceSnapshot implements Provider.
func (p *ClusterProvider) ResourceSnapshot(ctx context.Context) Snapshot {
	snap := sampleHost(ctx, p.logger)
	snap.GPUs = queryGPUs(ctx, p.gpuQuery, p.logger)
	return snap
}

// JobInfo implements Provider. Sourced from squeue keyed by the job id
// in the process environment.
func (p *ClusterProvider) JobInfo(ctx context.Context) JobInfo {
	jobID := p.getenv("SLURM_JOB_ID")
	if jobID == "" {
		return JobInfo{}
	}

	out, err := p.jobQuery(ctx, jobID)
	if err != nil {
		p.logger.Debug("scheduler query unavailable",
			zap.String("job_id", jobID), zap.Error(err))
		return JobInfo{}
	}

	fields := strings.Split(strings.TrimSpace(string(out)), "|")
	if len(fields) < 5 {
		return JobInfo{}
	}
	return JobInfo{
		JobID:     jobID,
		Partition: strings.TrimSpace(fields[0]),
		State:     strings.TrimSpace(fields[1]),
		Elapsed:   strings.TrimSpace(fields[2]),
		TimeLimit: strings.TrimSpace(fields[3]),
		NodeList:  strings.TrimSpace(fields[4]),
	}
}

// EmitMetric implements Provider. Clusters have no metrics sink.
func (p *ClusterProvider) EmitMetric(ctx context.Context, m Metric) error { return nil }
