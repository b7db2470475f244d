package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lfring/ringbench/internal/testbench"
)

func writeScenarioFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenariosDefaults(t *testing.T) {
	s, err := loadScenarios("")
	require.NoError(t, err)
	require.Equal(t, uint64(1024), s.Capacity)
	require.Equal(t, 5*time.Second, s.Duration)
	require.NotEmpty(t, s.Configs)
}

func TestLoadScenariosFile(t *testing.T) {
	path := writeScenarioFile(t, `
capacity: 256
duration: 750ms
scenarios:
  - producers: 1
    consumers: 1
  - producers: 8
    consumers: 2
`)
	s, err := loadScenarios(path)
	require.NoError(t, err)
	require.Equal(t, uint64(256), s.Capacity)
	require.Equal(t, 750*time.Millisecond, s.Duration)
	require.Equal(t, []testbench.Config{
		{NumProducers: 1, NumConsumers: 1},
		{NumProducers: 8, NumConsumers: 2},
	}, s.Configs)
}

func TestLoadScenariosRejectsBadCapacity(t *testing.T) {
	path := writeScenarioFile(t, "capacity: 1000\n")
	_, err := loadScenarios(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "power of two")
}

func TestLoadScenariosRejectsBadDuration(t *testing.T) {
	path := writeScenarioFile(t, "duration: sometimes\n")
	_, err := loadScenarios(path)
	require.Error(t, err)
}

func TestLoadScenariosRejectsZeroRoles(t *testing.T) {
	path := writeScenarioFile(t, `
scenarios:
  - producers: 0
    consumers: 1
`)
	_, err := loadScenarios(path)
	require.Error(t, err)
}

func TestSupportsConfig(t *testing.T) {
	var spsc, mpmc Implementation
	for _, impl := range getImplementations() {
		switch impl.pkgName {
		case "spscring":
			spsc = impl
		case "mpmcring":
			mpmc = impl
		}
	}
	require.NotNil(t, spsc.newQueue)
	require.NotNil(t, mpmc.newQueue)

	oneByOne := testbench.Config{NumProducers: 1, NumConsumers: 1}
	fourByFour := testbench.Config{NumProducers: 4, NumConsumers: 4}

	require.True(t, spsc.supportsConfig(oneByOne))
	require.False(t, spsc.supportsConfig(fourByFour), "SPSC must never run multi-role scenarios")
	require.True(t, mpmc.supportsConfig(oneByOne))
	require.True(t, mpmc.supportsConfig(fourByFour))
}
