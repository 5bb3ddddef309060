package cluster

import (
	"fmt"

	"github.com/inference-sim/capacity-sim/sim"
)

// Config describes a homogeneous cluster deployment and its control-loop
// cadence. All durations are in ticks (microseconds).
type Config struct {
	Seed            int64 `yaml:"seed"`
	Horizon         int64 `yaml:"horizon"`          // events after this tick are not processed
	InitialReplicas int   `yaml:"initial_replicas"` // pool size at t=0

	MaxBatchSize  int     `yaml:"max_batch_size"` // per-replica batch cap (0 = unbounded)
	ServiceRate   float64 `yaml:"service_rate"`   // tokens per tick per replica
	ServiceJitter float64 `yaml:"service_jitter"` // fractional service-time jitter, [0,1)

	DispatchInterval int64 `yaml:"dispatch_interval"` // Schedule() flush cadence
	TuneInterval     int64 `yaml:"tune_interval"`     // Tune() evaluation cadence
	ScaleUpDelay     int64 `yaml:"scale_up_delay"`    // provisioning latency for a new replica
	ScaleDownDelay   int64 `yaml:"scale_down_delay"`  // latency before a scale-down starts draining

	Scheduler  sim.SchedulerConfig  `yaml:"scheduler"`
	Autoscaler sim.AutoscalerConfig `yaml:"autoscaler"`
}

// DefaultConfig returns a runnable single-model cluster configuration.
func DefaultConfig() Config {
	return Config{
		Seed:             42,
		Horizon:          600_000_000, // 10 minutes
		InitialReplicas:  2,
		MaxBatchSize:     8,
		ServiceRate:      0.02, // 20k tokens/sec
		ServiceJitter:    0.1,
		DispatchInterval: 1_000_000,
		TuneInterval:     5_000_000,
		ScaleUpDelay:     30_000_000,
		ScaleDownDelay:   5_000_000,
		Scheduler:        sim.SchedulerConfig{Policy: sim.PolicyRoundRobin},
		Autoscaler:       sim.DefaultAutoscalerConfig(),
	}
}

// Validate checks the config for values the simulator cannot run with.
func (c Config) Validate() error {
	if c.Horizon <= 0 {
		return fmt.Errorf("cluster: horizon must be positive, got %d", c.Horizon)
	}
	if c.InitialReplicas < 1 {
		return fmt.Errorf("cluster: initial replicas must be at least 1, got %d", c.InitialReplicas)
	}
	if c.ServiceRate <= 0 {
		return fmt.Errorf("cluster: service rate must be positive, got %v", c.ServiceRate)
	}
	if c.ServiceJitter < 0 || c.ServiceJitter >= 1 {
		return fmt.Errorf("cluster: service jitter must be in [0,1), got %v", c.ServiceJitter)
	}
	if c.MaxBatchSize < 0 {
		return fmt.Errorf("cluster: max batch size must be non-negative, got %d", c.MaxBatchSize)
	}
	if c.DispatchInterval <= 0 || c.TuneInterval <= 0 {
		return fmt.Errorf("cluster: dispatch and tune intervals must be positive")
	}
	if c.ScaleUpDelay < 0 || c.ScaleDownDelay < 0 {
		return fmt.Errorf("cluster: scale delays must be non-negative")
	}
	if err := c.Scheduler.Validate(); err != nil {
		return err
	}
	return c.Autoscaler.Validate()
}
