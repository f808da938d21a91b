package platform

import (
	"context"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// NotebookProvider serves interactive environments such as hosted
// notebooks: host resources plus accelerator info when a GPU query tool
// is present. No scheduler, no external sink.
type NotebookProvider struct {
	name   string
	logger *zap.Logger

	// gpuQuery runs the accelerator query, overridable in tests.
	gpuQuery func(ctx context.Context) ([]byte, error)
}

// NewNotebookProvider builds the interactive-environment variant.
func NewNotebookProvider(name string, logger *zap.Logger) *NotebookProvider {
	return &NotebookProvider{
		name:   name,
		logger: logger,
		gpuQuery: func(ctx context.Context) ([]byte, error) {
			return exec.CommandContext(ctx, "nvidia-smi",
				"--query-gpu=name,memory.total,utilization.gpu",
				"--format=csv,noheader,nounits").Output()
		},
	}
}

// Name implements Provider.
func (p *NotebookProvider) Name() string { return p.name }

// ResourceSnapshot implements Provider, adding accelerator inventory.
// A missing GPU query tool is normal, not an error.
func (p *NotebookProvider) ResourceSnapshot(ctx context.Context) Snapshot {
	snap := sampleHost(ctx, p.logger)
	snap.GPUs = queryGPUs(ctx, p.gpuQuery, p.logger)
	return snap
}

// JobInfo implements Provider.
func (p *NotebookProvider) JobInfo(ctx context.Context) JobInfo { return JobInfo{} }

// EmitMetric implements Provider. Notebooks have no metrics sink.
func (p *NotebookProvider) EmitMetric(ctx context.Context, m Metric) error { return nil }

// queryGPUs parses "name, memory.total, utilization.gpu" CSV lines.
func queryGPUs(ctx context.Context, query func(ctx context.Context) ([]byte, error), logger *zap.Logger) []GPU {
	out, err := query(ctx)
	if err != nil {
		logger.Debug("gpu query unavailable", zap.Error(err))
		return nil
	}

	var gpus []GPU
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		fields := strings.Split(line, ",")
		if len(fields) < 3 {
			continue
		}
		gpu := GPU{Name: strings.TrimSpace(fields[0])}
		gpu.MemoryTotalMB, _ = strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		gpu.UtilizationPct, _ = strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		gpus = append(gpus, gpu)
	}
	return gpus
}
