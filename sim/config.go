package sim

import "fmt"

// AutoscalerConfig groups the autoscaler's tunables. All durations are in
// ticks. Up and down envelope parameters are independent: a short, recent
// window for scale-up reacts to bursts while a longer scale-down window
// avoids shedding capacity on a lull.
type AutoscalerConfig struct {
	WindowSizeUp   int64 `yaml:"window_size_up"`   // min window for scale-up demand
	WindowSizeDown int64 `yaml:"window_size_down"` // min window for scale-down demand
	LookbackUp     int64 `yaml:"lookback_up"`      // lookback horizon for scale-up demand
	LookbackDown   int64 `yaml:"lookback_down"`    // lookback horizon for scale-down demand

	ThroughputAlpha   float64 `yaml:"throughput_alpha"`   // EMA smoothing factor, (0,1]
	InitialThroughput float64 `yaml:"initial_throughput"` // tokens/tick, must be > 0

	StabilizationDelay int64 `yaml:"stabilization_delay"` // min ticks after a scale-up before scale-down

	// ScaleUpThreshold (>= 1) gates scale-up: only when the target exceeds
	// effective replicas times the threshold. 0 disables the gate.
	ScaleUpThreshold float64 `yaml:"scale_up_threshold"`
	// ScaleDownThreshold (<= 1) gates scale-down: only when the target is
	// below effective replicas times the threshold. 0 disables the gate.
	ScaleDownThreshold float64 `yaml:"scale_down_threshold"`

	MaxScalePerDecision int `yaml:"max_scale_per_decision"` // cap on |delta| per Tune; 0 = uncapped
	MinReplicas         int `yaml:"min_replicas"`           // floor never violated by scale-down

	Envelope    string `yaml:"envelope"`     // "sampled" (default) or "bucketed"
	BucketWidth int64  `yaml:"bucket_width"` // ticks per bucket, bucketed strategy only
}

// DefaultAutoscalerConfig returns a config with the stock tunables.
func DefaultAutoscalerConfig() AutoscalerConfig {
	return AutoscalerConfig{
		WindowSizeUp:        20_000_000, // 20s in microsecond ticks
		WindowSizeDown:      20_000_000,
		LookbackUp:          80_000_000,
		LookbackDown:        80_000_000,
		ThroughputAlpha:     0.5,
		InitialThroughput:   1.0,
		StabilizationDelay:  10_000_000,
		MaxScalePerDecision: 0,
		MinReplicas:         1,
		Envelope:            EnvelopeSampled,
	}
}

// Validate checks the config for values the autoscaler cannot operate with.
func (c AutoscalerConfig) Validate() error {
	if c.WindowSizeUp <= 0 || c.WindowSizeDown <= 0 {
		return fmt.Errorf("autoscaler: window sizes must be positive (up=%d, down=%d)", c.WindowSizeUp, c.WindowSizeDown)
	}
	if c.LookbackUp < c.WindowSizeUp || c.LookbackDown < c.WindowSizeDown {
		return fmt.Errorf("autoscaler: lookback must be at least the window size")
	}
	if c.ThroughputAlpha <= 0 || c.ThroughputAlpha > 1 {
		return fmt.Errorf("autoscaler: throughput alpha must be in (0,1], got %v", c.ThroughputAlpha)
	}
	if c.InitialThroughput <= 0 {
		return fmt.Errorf("autoscaler: initial throughput must be positive, got %v", c.InitialThroughput)
	}
	if c.StabilizationDelay < 0 {
		return fmt.Errorf("autoscaler: stabilization delay must be non-negative, got %d", c.StabilizationDelay)
	}
	if c.ScaleUpThreshold != 0 && c.ScaleUpThreshold < 1 {
		return fmt.Errorf("autoscaler: scale-up threshold must be >= 1 when set, got %v", c.ScaleUpThreshold)
	}
	if c.ScaleDownThreshold != 0 && (c.ScaleDownThreshold < 0 || c.ScaleDownThreshold > 1) {
		return fmt.Errorf("autoscaler: scale-down threshold must be in (0,1] when set, got %v", c.ScaleDownThreshold)
	}
	if c.MaxScalePerDecision < 0 {
		return fmt.Errorf("autoscaler: max scale per decision must be non-negative, got %d", c.MaxScalePerDecision)
	}
	if c.MinReplicas < 1 {
		return fmt.Errorf("autoscaler: min replicas must be at least 1, got %d", c.MinReplicas)
	}
	if c.Envelope == EnvelopeBucketed && c.BucketWidth <= 0 {
		return fmt.Errorf("autoscaler: bucketed envelope requires positive bucket width, got %d", c.BucketWidth)
	}
	return nil
}

// SchedulerConfig selects the global scheduling policy.
type SchedulerConfig struct {
	Policy string `yaml:"policy"` // "round-robin" (default) or "lor"
}

// Validate checks the policy name.
func (c SchedulerConfig) Validate() error {
	switch c.Policy {
	case "", PolicyRoundRobin, PolicyLOR:
		return nil
	default:
		return fmt.Errorf("scheduler: unknown policy %q (available: %v)", c.Policy, GetAvailableSchedulerPolicies())
	}
}
