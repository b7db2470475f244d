package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/lfring/ringbench/internal/queue"
	"github.com/lfring/ringbench/internal/testbench"
	"github.com/lfring/ringbench/pkg/buffered"
	"github.com/lfring/ringbench/pkg/mpmcring"
	"github.com/lfring/ringbench/pkg/spscring"
)

// benchQueue is the runtime interface the driver measures. Every queue in
// the repository satisfies it for *int payloads.
type benchQueue = queue.Ring[*int]

// BenchmarkResult holds results for one test run.
type BenchmarkResult struct {
	Implementation      string  `json:"implementation"`
	NumProducers        int     `json:"num_producers"`
	NumConsumers        int     `json:"num_consumers"`
	Capacity            uint64  `json:"capacity"`
	NumMessages         int64   `json:"num_messages"`          // produced count
	NumMessagesConsumed int64   `json:"num_messages_consumed"` // consumed count
	TestDuration        string  `json:"test_duration"`         // e.g. "5s"
	ActualElapsed       string  `json:"actual_elapsed"`        // measured time
	Throughput          float64 `json:"throughput_msgs_sec"`   // based on consumed count
	Timestamp           int64   `json:"timestamp"`
	GoVersion           string  `json:"go_version"`
}

// SystemInfo holds system information recorded alongside each session.
type SystemInfo struct {
	NumCPU            int     `json:"num_cpu"`
	TrueCPU           int     `json:"true_cpu,omitempty"`
	SimulatedCPUCount int     `json:"simulated_cpu_count,omitempty"`
	CPUModel          string  `json:"cpu_model,omitempty"`
	CPUSpeedMHz       float64 `json:"cpu_speed_mhz,omitempty"`
	GOARCH            string  `json:"go_arch"`
	TotalMemory       uint64  `json:"total_memory_bytes,omitempty"`
}

// FullReport represents a complete benchmark session.
type FullReport struct {
	SessionTime string            `json:"session_time"`
	SystemInfo  SystemInfo        `json:"system_info"`
	Benchmarks  []BenchmarkResult `json:"benchmarks"`
}

// Implementation describes one queue implementation under test.
type Implementation struct {
	name        string
	pkgName     string
	description string
	features    []string
	newQueue    func(capacity uint64) benchQueue
}

// hasFeature reports whether the implementation advertises the feature.
func (impl Implementation) hasFeature(feature string) bool {
	for _, f := range impl.features {
		if f == feature {
			return true
		}
	}
	return false
}

// supportsConfig reports whether the implementation may run under the
// given producer/consumer counts. SPSC-only queues are restricted to the
// 1p/1c scenario; running them with more roles would be contract misuse,
// not a measurement.
func (impl Implementation) supportsConfig(cfg testbench.Config) bool {
	if cfg.NumProducers <= 1 && cfg.NumConsumers <= 1 {
		return true
	}
	return impl.hasFeature("MPMC")
}

// getImplementations enumerates the queue implementations under test.
func getImplementations() []Implementation {
	return []Implementation{
		{
			name:        "BufferedChannel",
			pkgName:     "buffered",
			description: "Buffered Go channel baseline with non-blocking push/pop.",
			features:    []string{"MPMC", "FIFO"},
			newQueue: func(capacity uint64) benchQueue {
				return buffered.New[*int](capacity)
			},
		},
		{
			name:        "SPSCRing",
			pkgName:     "spscring",
			description: "Wait-free single-producer/single-consumer ring with cached cursors.",
			features:    []string{"SPSC", "FIFO", "Cache-Optimized"},
			newQueue: func(capacity uint64) benchQueue {
				return spscring.New[*int](capacity)
			},
		},
		{
			name:        "MPMCRing",
			pkgName:     "mpmcring",
			description: "Lock-free multi-producer/multi-consumer ring with per-slot sequence numbers.",
			features:    []string{"MPMC", "Cache-Optimized"},
			newQueue: func(capacity uint64) benchQueue {
				return mpmcring.New[*int](capacity)
			},
		},
	}
}

func main() {
	testIterations := flag.Int("iter", 5, "Number of test iterations per concurrency setting")
	cpuMaxFlag := flag.Int("cpu", 0, "If non-zero, test only that GOMAXPROCS value; if 0, test common CPU/vCPU values up to runtime.NumCPU()")
	jsonExport := flag.Bool("json", false, "Export results as JSON to "+defaultResultsFile)
	markdownTable := flag.Bool("markdown-table", false, "Output markdown table from the results file and exit")
	jsonFileForMarkdown := flag.String("jsonfile", defaultResultsFile, "Path to JSON file for markdown table")
	progressFlag := flag.Bool("progress", false, "Display a progress bar with ETA")
	scenarioPath := flag.String("scenarios", "", "Path to a YAML scenario file (see bench.yaml); defaults used when empty")
	flag.Parse()

	if *markdownTable {
		if err := outputMarkdownTable(os.Stdout, *jsonFileForMarkdown); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	scenarios, err := loadScenarios(*scenarioPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading scenarios: %v\n", err)
		os.Exit(1)
	}

	trueCPUCount := runtime.NumCPU()
	var cpuSettings []int
	commonCPUs := []int{1, 2, 3, 4, 6, 8, 12, 16, 32, 48, 56, 64, 96, 128, 192, 256}

	if *cpuMaxFlag > 0 {
		desired := *cpuMaxFlag
		if desired > trueCPUCount {
			desired = trueCPUCount
		}
		cpuSettings = []int{desired}
	} else {
		for _, v := range commonCPUs {
			if v <= trueCPUCount {
				cpuSettings = append(cpuSettings, v)
			}
		}
	}

	impls := getImplementations()
	totalTests := 0
	for _, cfg := range scenarios.Configs {
		for _, impl := range impls {
			if impl.supportsConfig(cfg) {
				totalTests += len(cpuSettings) * (*testIterations)
			}
		}
	}

	var bar *progressbar.ProgressBar
	if *progressFlag {
		bar = progressbar.NewOptions(totalTests,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("benchmarking"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionClearOnFinish(),
		)
	}

	var allSessions []FullReport

	for _, cpus := range cpuSettings {
		runtime.GOMAXPROCS(cpus)
		sysInfo := gatherSystemInfo()
		sysInfo.NumCPU = cpus
		sysInfo.TrueCPU = trueCPUCount
		sysInfo.SimulatedCPUCount = cpus

		fmt.Printf("\n=============================\n")
		fmt.Printf("GOMAXPROCS = %d\n", cpus)
		fmt.Printf("=============================\n")

		var results []BenchmarkResult

		for _, cfg := range scenarios.Configs {
			fmt.Printf("  [Concurrency: producers=%d, consumers=%d]\n", cfg.NumProducers, cfg.NumConsumers)
			for iteration := 1; iteration <= *testIterations; iteration++ {
				fmt.Printf("    iteration %d/%d\n", iteration, *testIterations)
				for _, impl := range impls {
					if !impl.supportsConfig(cfg) {
						continue
					}
					runtime.GC()
					q := impl.newQueue(scenarios.Capacity)
					time.Sleep(250 * time.Millisecond)

					produced, consumed, actualTime := testbench.RunTimedTest(
						q,
						cfg,
						scenarios.Duration,
						func(i int) *int {
							v := i
							return &v
						},
					)
					throughput := float64(consumed) / actualTime.Seconds()

					fmt.Printf("    %s => produced=%d, consumed=%d, throughput=%.0f msg/s, took=%v\n",
						impl.name, produced, consumed, throughput, actualTime)

					if bar != nil {
						bar.Add(1)
					}

					results = append(results, BenchmarkResult{
						Implementation:      impl.name,
						NumProducers:        cfg.NumProducers,
						NumConsumers:        cfg.NumConsumers,
						Capacity:            scenarios.Capacity,
						NumMessages:         produced,
						NumMessagesConsumed: consumed,
						TestDuration:        scenarios.Duration.String(),
						ActualElapsed:       actualTime.String(),
						Throughput:          throughput,
						Timestamp:           time.Now().Unix(),
						GoVersion:           runtime.Version(),
					})
				}
			}
		}

		allSessions = append(allSessions, FullReport{
			SessionTime: time.Now().Format(time.RFC3339),
			SystemInfo:  sysInfo,
			Benchmarks:  results,
		})
	}

	if bar != nil {
		bar.Finish()
		fmt.Fprintln(os.Stderr)
	}

	if *jsonExport {
		if err := appendSessions(defaultResultsFile, allSessions); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing results: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nWrote results to %s\n", defaultResultsFile)
	}
}

const defaultResultsFile = "bench-results.json"

// appendSessions appends the new sessions to any existing results file.
func appendSessions(filename string, sessions []FullReport) error {
	var previous []FullReport
	if data, err := os.ReadFile(filename); err == nil && len(data) > 0 {
		// A corrupt results file is not fatal; start a fresh history.
		json.Unmarshal(data, &previous)
	}
	updated := append(previous, sessions...)
	data, err := json.MarshalIndent(updated, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

// gatherSystemInfo collects basic CPU and memory details.
func gatherSystemInfo() SystemInfo {
	info := SystemInfo{
		NumCPU: runtime.NumCPU(),
		GOARCH: runtime.GOARCH,
	}
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		info.CPUModel = infos[0].ModelName
		info.CPUSpeedMHz = infos[0].Mhz
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.TotalMemory = vm.Total
	}
	return info
}

// outputMarkdownTable loads the JSON results file and writes a Markdown
// summary of the last session, sorted by throughput.
func outputMarkdownTable(w *os.File, jsonFile string) error {
	data, err := os.ReadFile(jsonFile)
	if err != nil {
		return fmt.Errorf("reading %q: %w", jsonFile, err)
	}
	var sessions []FullReport
	if err := json.Unmarshal(data, &sessions); err != nil {
		return fmt.Errorf("unmarshalling %q: %w", jsonFile, err)
	}
	if len(sessions) == 0 {
		return fmt.Errorf("no sessions found in %q", jsonFile)
	}

	implMeta := make(map[string]Implementation)
	for _, impl := range getImplementations() {
		implMeta[impl.name] = impl
	}

	type tableRow struct {
		implementation string
		pkgName        string
		features       string
		throughput     float64
	}
	last := sessions[len(sessions)-1]
	var rows []tableRow
	for _, bench := range last.Benchmarks {
		meta := implMeta[bench.Implementation]
		rows = append(rows, tableRow{
			implementation: bench.Implementation,
			pkgName:        meta.pkgName,
			features:       strings.Join(meta.features, ", "),
			throughput:     bench.Throughput,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].throughput > rows[j].throughput
	})

	fmt.Fprintln(w, "## Last Session Benchmark Summary")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "| Implementation   | Package   | Features                    | Throughput (msgs/sec) |")
	fmt.Fprintln(w, "|------------------|-----------|-----------------------------|-----------------------|")
	for _, r := range rows {
		fmt.Fprintf(w, "| %-16s | %-9s | %-27s | %21.0f |\n",
			r.implementation, r.pkgName, r.features, r.throughput)
	}
	return nil
}
