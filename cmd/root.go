package cmd

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/capacity-sim/sim"
	"github.com/inference-sim/capacity-sim/sim/cluster"
	"github.com/inference-sim/capacity-sim/sim/workload"
)

var (
	// CLI flags for the simulation run
	seed         int64  // Seed for random workload generation
	horizon      int64  // Total simulation horizon (in ticks)
	logLevel     string // Log verbosity level
	scenarioPath string // Optional YAML scenario file overriding flags

	// Cluster configs
	initialReplicas  int     // Replica pool size at t=0
	maxBatchSize     int     // Max requests per replica batch
	serviceRate      float64 // Tokens per tick per replica
	serviceJitter    float64 // Fractional service-time jitter
	dispatchInterval int64   // Global Schedule() flush cadence (ticks)
	tuneInterval     int64   // Autoscaler Tune() cadence (ticks)
	scaleUpDelay     int64   // Replica provisioning delay (ticks)
	scaleDownDelay   int64   // Scale-down start delay (ticks)
	schedulerPolicy  string  // Global scheduling policy

	// Autoscaler configs
	windowSizeUp        int64
	windowSizeDown      int64
	lookbackUp          int64
	lookbackDown        int64
	throughputAlpha     float64
	initialThroughput   float64
	stabilizationDelay  int64
	scaleUpThreshold    float64
	scaleDownThreshold  float64
	maxScalePerDecision int
	minReplicas         int
	envelopeKind        string
	bucketWidth         int64

	// Workload configs
	rate              float64
	maxRequests       int
	arrivalProcess    string
	arrivalCV         float64
	prefillTokensMean int
	prefillTokensStd  int
	prefillTokensMin  int
	prefillTokensMax  int
	decodeTokensMean  int
	decodeTokensStd   int
	decodeTokensMin   int
	decodeTokensMax   int
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "capacity-sim",
	Short: "Routing and autoscaling simulator for multi-replica inference serving",
}

// runCmd executes the simulation using parameters from CLI flags or a
// YAML scenario file.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the cluster simulation",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg, spec := buildConfig()
		if scenarioPath != "" {
			cfg, spec, err = LoadScenario(scenarioPath)
			if err != nil {
				logrus.Fatalf("unable to read scenario file: %v", err)
			}
		}
		if err := cfg.Validate(); err != nil {
			logrus.Fatalf("invalid cluster config: %v", err)
		}
		if err := spec.Validate(); err != nil {
			logrus.Fatalf("invalid workload spec: %v", err)
		}

		logrus.Infof("Starting simulation: policy=%s, envelope=%s, horizon=%d ticks, rate=%.2f req/s",
			cfg.Scheduler.Policy, cfg.Autoscaler.Envelope, cfg.Horizon, spec.Rate)

		startTime := time.Now()

		cs := cluster.NewClusterSimulator(cfg)
		rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed))
		requests := workload.Generate(spec, rng.ForSubsystem(sim.SubsystemWorkload))
		cs.Run(requests)

		cs.Metrics().Print(cfg.Horizon)
		logrus.Infof("Simulation complete in %v.", time.Since(startTime))
	},
}

// buildConfig assembles the cluster config and workload spec from CLI flags.
func buildConfig() (cluster.Config, workload.Spec) {
	cfg := cluster.Config{
		Seed:             seed,
		Horizon:          horizon,
		InitialReplicas:  initialReplicas,
		MaxBatchSize:     maxBatchSize,
		ServiceRate:      serviceRate,
		ServiceJitter:    serviceJitter,
		DispatchInterval: dispatchInterval,
		TuneInterval:     tuneInterval,
		ScaleUpDelay:     scaleUpDelay,
		ScaleDownDelay:   scaleDownDelay,
		Scheduler:        sim.SchedulerConfig{Policy: schedulerPolicy},
		Autoscaler: sim.AutoscalerConfig{
			WindowSizeUp:        windowSizeUp,
			WindowSizeDown:      windowSizeDown,
			LookbackUp:          lookbackUp,
			LookbackDown:        lookbackDown,
			ThroughputAlpha:     throughputAlpha,
			InitialThroughput:   initialThroughput,
			StabilizationDelay:  stabilizationDelay,
			ScaleUpThreshold:    scaleUpThreshold,
			ScaleDownThreshold:  scaleDownThreshold,
			MaxScalePerDecision: maxScalePerDecision,
			MinReplicas:         minReplicas,
			Envelope:            envelopeKind,
			BucketWidth:         bucketWidth,
		},
	}
	spec := workload.Spec{
		Rate:           rate,
		MaxRequests:    maxRequests,
		ArrivalProcess: arrivalProcess,
		CV:             arrivalCV,
		PrefillTokens:  workload.TokenSpec{Mean: prefillTokensMean, Stdev: prefillTokensStd, Min: prefillTokensMin, Max: prefillTokensMax},
		DecodeTokens:   workload.TokenSpec{Mean: decodeTokensMean, Stdev: decodeTokensStd, Min: decodeTokensMin, Max: decodeTokensMax},
	}
	return cfg, spec
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	defaults := cluster.DefaultConfig()
	wlDefaults := workload.DefaultSpec()

	runCmd.Flags().Int64Var(&seed, "seed", defaults.Seed, "Seed for random workload generation")
	runCmd.Flags().Int64Var(&horizon, "horizon", defaults.Horizon, "Total simulation horizon (in ticks)")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "YAML scenario file (overrides other flags)")

	// Cluster configs
	runCmd.Flags().IntVar(&initialReplicas, "initial-replicas", defaults.InitialReplicas, "Replica pool size at t=0")
	runCmd.Flags().IntVar(&maxBatchSize, "max-batch-size", defaults.MaxBatchSize, "Maximum requests per replica batch (0 = unbounded)")
	runCmd.Flags().Float64Var(&serviceRate, "service-rate", defaults.ServiceRate, "Tokens per tick per replica")
	runCmd.Flags().Float64Var(&serviceJitter, "service-jitter", defaults.ServiceJitter, "Fractional service-time jitter in [0,1)")
	runCmd.Flags().Int64Var(&dispatchInterval, "dispatch-interval", defaults.DispatchInterval, "Schedule() flush cadence (in ticks)")
	runCmd.Flags().Int64Var(&tuneInterval, "tune-interval", defaults.TuneInterval, "Autoscaler evaluation cadence (in ticks)")
	runCmd.Flags().Int64Var(&scaleUpDelay, "scale-up-delay", defaults.ScaleUpDelay, "Replica provisioning delay (in ticks)")
	runCmd.Flags().Int64Var(&scaleDownDelay, "scale-down-delay", defaults.ScaleDownDelay, "Scale-down start delay (in ticks)")
	runCmd.Flags().StringVar(&schedulerPolicy, "policy", defaults.Scheduler.Policy, "Global scheduling policy (round-robin, lor)")

	// Autoscaler configs
	runCmd.Flags().Int64Var(&windowSizeUp, "window-size-up", defaults.Autoscaler.WindowSizeUp, "Scale-up demand window size (in ticks)")
	runCmd.Flags().Int64Var(&windowSizeDown, "window-size-down", defaults.Autoscaler.WindowSizeDown, "Scale-down demand window size (in ticks)")
	runCmd.Flags().Int64Var(&lookbackUp, "lookback-up", defaults.Autoscaler.LookbackUp, "Scale-up lookback horizon (in ticks)")
	runCmd.Flags().Int64Var(&lookbackDown, "lookback-down", defaults.Autoscaler.LookbackDown, "Scale-down lookback horizon (in ticks)")
	runCmd.Flags().Float64Var(&throughputAlpha, "throughput-alpha", defaults.Autoscaler.ThroughputAlpha, "EMA smoothing factor in (0,1]")
	runCmd.Flags().Float64Var(&initialThroughput, "initial-throughput", defaults.Autoscaler.InitialThroughput, "Initial replica throughput estimate (tokens/tick)")
	runCmd.Flags().Int64Var(&stabilizationDelay, "stabilization-delay", defaults.Autoscaler.StabilizationDelay, "Delay after scale-up before scale-down is considered (in ticks)")
	runCmd.Flags().Float64Var(&scaleUpThreshold, "scale-up-threshold", 0, "Over-provision threshold factor >= 1 (0 = disabled)")
	runCmd.Flags().Float64Var(&scaleDownThreshold, "scale-down-threshold", 0, "Under-provision threshold factor <= 1 (0 = disabled)")
	runCmd.Flags().IntVar(&maxScalePerDecision, "max-scale-per-decision", defaults.Autoscaler.MaxScalePerDecision, "Cap on |delta| per tune decision (0 = uncapped)")
	runCmd.Flags().IntVar(&minReplicas, "min-replicas", defaults.Autoscaler.MinReplicas, "Minimum replica floor for scale-down")
	runCmd.Flags().StringVar(&envelopeKind, "envelope", defaults.Autoscaler.Envelope, "Rate envelope strategy (sampled, bucketed)")
	runCmd.Flags().Int64Var(&bucketWidth, "bucket-width", defaults.Autoscaler.BucketWidth, "Bucket width for bucketed envelope (in ticks)")

	// Workload configs
	runCmd.Flags().Float64Var(&rate, "rate", wlDefaults.Rate, "Request arrivals per second")
	runCmd.Flags().IntVar(&maxRequests, "max-requests", wlDefaults.MaxRequests, "Number of requests to generate")
	runCmd.Flags().StringVar(&arrivalProcess, "arrival-process", wlDefaults.ArrivalProcess, "Arrival process (poisson, gamma)")
	runCmd.Flags().Float64Var(&arrivalCV, "arrival-cv", wlDefaults.CV, "Coefficient of variation for gamma arrivals")
	runCmd.Flags().IntVar(&prefillTokensMean, "prefill-tokens", wlDefaults.PrefillTokens.Mean, "Average prefill token count")
	runCmd.Flags().IntVar(&prefillTokensStd, "prefill-tokens-stdev", wlDefaults.PrefillTokens.Stdev, "Stddev prefill token count")
	runCmd.Flags().IntVar(&prefillTokensMin, "prefill-tokens-min", wlDefaults.PrefillTokens.Min, "Min prefill token count")
	runCmd.Flags().IntVar(&prefillTokensMax, "prefill-tokens-max", wlDefaults.PrefillTokens.Max, "Max prefill token count")
	runCmd.Flags().IntVar(&decodeTokensMean, "decode-tokens", wlDefaults.DecodeTokens.Mean, "Average decode token count")
	runCmd.Flags().IntVar(&decodeTokensStd, "decode-tokens-stdev", wlDefaults.DecodeTokens.Stdev, "Stddev decode token count")
	runCmd.Flags().IntVar(&decodeTokensMin, "decode-tokens-min", wlDefaults.DecodeTokens.Min, "Min decode token count")
	runCmd.Flags().IntVar(&decodeTokensMax, "decode-tokens-max", wlDefaults.DecodeTokens.Max, "Max decode token count")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
