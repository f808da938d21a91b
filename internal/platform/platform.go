// Package platform abstracts where a benchmark runs. Each environment
// gets its own provider variant, selected explicitly at startup rather
// than probed at call time. A provider degrades to partial data when a
// capability is missing; it never fails a run over it.
package platform

import (
	"context"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

// GPU describes one accelerator as reported by the environment.
type GPU struct {
	Name           string  `json:"name"`
	MemoryTotalMB  float64 `json:"memory_total_mb"`
	UtilizationPct float64 `json:"utilization_pct"`
}

// Snapshot is a point-in-time resource reading. Fields a variant cannot
// populate stay at their zero value.
type Snapshot struct {
	Hostname      string    `json:"hostname"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	MemoryUsedMB  float64   `json:"memory_used_mb"`
	DiskPercent   float64   `json:"disk_percent"`
	GPUs          []GPU     `json:"gpus,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// JobInfo is scheduler-reported job state. Empty outside a cluster.
type JobInfo struct {
	JobID     string `json:"job_id,omitempty"`
	Partition string `json:"partition,omitempty"`
	State     string `json:"state,omitempty"`
	Elapsed   string `json:"elapsed,omitempty"`
	TimeLimit string `json:"time_limit,omitempty"`
	NodeList  string `json:"node_list,omitempty"`
}

// Metric is one data point for an external metrics sink.
type Metric struct {
	Name  string
	Value float64
	Unit  string
}

// Units accepted by EmitMetric.
const (
	UnitMilliseconds = "Milliseconds"
	UnitCountPerSec  = "Count/Second"
	UnitPercent      = "Percent"
)

// Provider is the per-environment capability set.
type Provider interface {
	// Name identifies the platform in snapshots and metric dimensions.
	Name() string
	// ResourceSnapshot samples the host. Always returns a usable
	// snapshot; unavailable fields are zero.
	ResourceSnapshot(ctx context.Context) Snapshot
	// JobInfo returns scheduler job state, empty where there is none.
	JobInfo(ctx context.Context) JobInfo
	// EmitMetric pushes one data point to the external sink, a no-op
	// for variants without one.
	EmitMetric(ctx context.Context, m Metric) error
}

// RunMetrics maps one run's headline numbers to the sink's metric
// names. Error rate is a percentage, not a ratio.
func RunMetrics(meanLatencyMS, throughputRPS, errorRatePct float64, snap Snapshot) []Metric {
	return []Metric{
		{Name: "Latency", Value: meanLatencyMS, Unit: UnitMilliseconds},
		{Name: "Throughput", Value: throughputRPS, Unit: UnitCountPerSec},
		{Name: "ErrorRate", Value: errorRatePct, Unit: UnitPercent},
		{Name: "CPUUtilization", Value: snap.CPUPercent, Unit: UnitPercent},
		{Name: "MemoryUtilization", Value: snap.MemoryPercent, Unit: UnitPercent},
	}
}

// sampleHost reads CPU/memory/disk via gopsutil. Each probe that errors
// leaves its fields zero.
func sampleHost(ctx context.Context, logger *zap.Logger) Snapshot {
	snap := Snapshot{Timestamp: time.Now()}

	if host, err := os.Hostname(); err == nil {
		snap.Hostname = host
	}

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err != nil {
		logger.Debug("cpu sample unavailable", zap.Error(err))
	} else if len(percents) > 0 {
		snap.CPUPercent = percents[0]
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		logger.Debug("memory sample unavailable", zap.Error(err))
	} else {
		snap.MemoryPercent = vm.UsedPercent
		snap.MemoryUsedMB = float64(vm.Used) / 1024 / 1024
	}

	if du, err := disk.UsageWithContext(ctx, "/"); err != nil {
		logger.Debug("disk sample unavailable", zap.Error(err))
	} else {
		snap.DiskPercent = du.UsedPercent
	}

	return snap
}
