package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/capacity-sim/sim/cluster"
	"github.com/inference-sim/capacity-sim/sim/workload"
)

// Scenario bundles a cluster configuration with a workload spec so a full
// experiment can be captured in one YAML file and replayed exactly.
type Scenario struct {
	Cluster  cluster.Config `yaml:"cluster"`
	Workload workload.Spec  `yaml:"workload"`
}

// LoadScenario reads and parses a YAML scenario file. Fields omitted in the
// file keep their default values.
func LoadScenario(path string) (cluster.Config, workload.Spec, error) {
	scenario := Scenario{
		Cluster:  cluster.DefaultConfig(),
		Workload: workload.DefaultSpec(),
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return scenario.Cluster, scenario.Workload, fmt.Errorf("read scenario: %w", err)
	}
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return scenario.Cluster, scenario.Workload, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	return scenario.Cluster, scenario.Workload, nil
}
