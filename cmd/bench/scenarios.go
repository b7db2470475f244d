package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lfring/ringbench/internal/ringutil"
	"github.com/lfring/ringbench/internal/testbench"
)

// scenarioFile is the YAML schema for a benchmark scenario file:
//
//	capacity: 1024
//	duration: 5s
//	scenarios:
//	  - producers: 1
//	    consumers: 1
//	  - producers: 4
//	    consumers: 4
type scenarioFile struct {
	Capacity  uint64 `yaml:"capacity"`
	Duration  string `yaml:"duration"`
	Scenarios []struct {
		Producers int `yaml:"producers"`
		Consumers int `yaml:"consumers"`
	} `yaml:"scenarios"`
}

// Scenarios is the resolved benchmark plan.
type Scenarios struct {
	Capacity uint64
	Duration time.Duration
	Configs  []testbench.Config
}

// defaultScenarios mirrors the concurrency ladder the driver always used
// before scenario files existed.
func defaultScenarios() *Scenarios {
	return &Scenarios{
		Capacity: 1024,
		Duration: 5 * time.Second,
		Configs: []testbench.Config{
			{NumProducers: 1, NumConsumers: 1},
			{NumProducers: 2, NumConsumers: 2},
			{NumProducers: 4, NumConsumers: 4},
			{NumProducers: 10, NumConsumers: 10},
		},
	}
}

// loadScenarios reads and validates a YAML scenario file. An empty path
// returns the default plan.
func loadScenarios(path string) (*Scenarios, error) {
	if path == "" {
		return defaultScenarios(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sf scenarioFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, err)
	}

	out := defaultScenarios()
	if sf.Capacity != 0 {
		if !ringutil.IsPow2(sf.Capacity) || sf.Capacity < 2 {
			return nil, fmt.Errorf("capacity %d is not a power of two >= 2", sf.Capacity)
		}
		out.Capacity = sf.Capacity
	}
	if sf.Duration != "" {
		d, err := time.ParseDuration(sf.Duration)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q: %w", sf.Duration, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("duration must be positive, got %v", d)
		}
		out.Duration = d
	}
	if len(sf.Scenarios) > 0 {
		out.Configs = out.Configs[:0]
		for i, s := range sf.Scenarios {
			if s.Producers < 1 || s.Consumers < 1 {
				return nil, fmt.Errorf("scenario %d: producers and consumers must be >= 1", i)
			}
			out.Configs = append(out.Configs, testbench.Config{
				NumProducers: s.Producers,
				NumConsumers: s.Consumers,
			})
		}
	}
	return out, nil
}
