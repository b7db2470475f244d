package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// BenchmarkResult mirrors the schema written by cmd/bench.
type BenchmarkResult struct {
	Implementation      string  `json:"implementation"`
	NumProducers        int     `json:"num_producers"`
	NumConsumers        int     `json:"num_consumers"`
	Capacity            uint64  `json:"capacity"`
	NumMessages         int64   `json:"num_messages"`
	NumMessagesConsumed int64   `json:"num_messages_consumed"`
	TestDuration        string  `json:"test_duration"`
	ActualElapsed       string  `json:"actual_elapsed"`
	Throughput          float64 `json:"throughput_msgs_sec"`
	Timestamp           int64   `json:"timestamp"`
	GoVersion           string  `json:"go_version"`
}

// SystemInfo mirrors the schema written by cmd/bench.
type SystemInfo struct {
	NumCPU            int     `json:"num_cpu"`
	TrueCPU           int     `json:"true_cpu,omitempty"`
	SimulatedCPUCount int     `json:"simulated_cpu_count,omitempty"`
	CPUModel          string  `json:"cpu_model,omitempty"`
	CPUSpeedMHz       float64 `json:"cpu_speed_mhz,omitempty"`
	GOARCH            string  `json:"go_arch"`
	TotalMemory       uint64  `json:"total_memory_bytes,omitempty"`
}

// FullReport mirrors the schema written by cmd/bench.
type FullReport struct {
	SessionTime string            `json:"session_time"`
	SystemInfo  SystemInfo        `json:"system_info"`
	Benchmarks  []BenchmarkResult `json:"benchmarks"`
}

// concurrencyStats holds min/median/max throughput for one concurrency level.
type concurrencyStats struct {
	x      float64 // category index on the X axis
	orig   float64 // original concurrency value (producers + consumers)
	min    float64
	median float64
	max    float64
}

// statsPoints implements plotter.XYer and plotter.YErrorer so stats can be
// drawn as a line with error bars.
type statsPoints []concurrencyStats

func (s statsPoints) Len() int                { return len(s) }
func (s statsPoints) XY(i int) (x, y float64) { return s[i].x, s[i].median }
func (s statsPoints) YError(i int) (low, high float64) {
	return s[i].median - s[i].min, s[i].max - s[i].median
}

// categoryTicks renders a categorical X axis: positions 0,1,2,... with the
// concurrency values as labels.
type categoryTicks struct {
	positions []float64
	labels    []string
}

func (ct categoryTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	for i, pos := range ct.positions {
		if pos >= min && pos <= max {
			ticks = append(ticks, plot.Tick{Value: pos, Label: ct.labels[i]})
		}
	}
	return ticks
}

// buildStats aggregates throughput samples per concurrency level.
func buildStats(samples map[float64][]float64) []concurrencyStats {
	var out []concurrencyStats
	for conc, values := range samples {
		if len(values) == 0 {
			continue
		}
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		out = append(out, concurrencyStats{
			orig:   conc,
			min:    sorted[0],
			median: sorted[len(sorted)/2],
			max:    sorted[len(sorted)-1],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].orig < out[j].orig })
	return out
}

func main() {
	jsonFile := flag.String("jsonfile", "bench-results.json", "Path to JSON file containing benchmark sessions")
	outputPrefix := flag.String("out", "benchmark_graph", "Output graph image filename prefix")
	flag.Parse()

	data, err := os.ReadFile(*jsonFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading JSON file: %v\n", err)
		os.Exit(1)
	}
	var sessions []FullReport
	if err := json.Unmarshal(data, &sessions); err != nil {
		fmt.Fprintf(os.Stderr, "Error unmarshalling JSON: %v\n", err)
		os.Exit(1)
	}

	// Group by CPU count -> implementation -> concurrency -> throughput samples.
	byCPU := make(map[int]map[string]map[float64][]float64)
	for _, session := range sessions {
		cpus := session.SystemInfo.SimulatedCPUCount
		if cpus == 0 {
			cpus = session.SystemInfo.NumCPU
		}
		if _, ok := byCPU[cpus]; !ok {
			byCPU[cpus] = make(map[string]map[float64][]float64)
		}
		for _, b := range session.Benchmarks {
			if b.NumMessagesConsumed == 0 {
				continue
			}
			x := float64(b.NumProducers + b.NumConsumers)
			implMap := byCPU[cpus]
			if _, ok := implMap[b.Implementation]; !ok {
				implMap[b.Implementation] = make(map[float64][]float64)
			}
			implMap[b.Implementation][x] = append(implMap[b.Implementation][x], b.Throughput)
		}
	}

	for cpus, implMap := range byCPU {
		if err := renderPlot(cpus, implMap, *outputPrefix); err != nil {
			fmt.Fprintf(os.Stderr, "Error rendering plot for %d CPU(s): %v\n", cpus, err)
		}
	}
}

func renderPlot(cpus int, implMap map[string]map[float64][]float64, outputPrefix string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Throughput (min / median / max) vs. concurrency, %d CPU(s)", cpus)
	p.X.Label.Text = "NumProducers + NumConsumers"
	p.Y.Label.Text = "Throughput (msgs/sec)"
	p.Legend.Top = true
	p.Legend.Left = true
	p.Add(plotter.NewGrid())

	// Categorical X axis over the union of concurrency values.
	concSet := make(map[float64]struct{})
	for _, samples := range implMap {
		for conc := range samples {
			concSet[conc] = struct{}{}
		}
	}
	var concValues []float64
	for v := range concSet {
		concValues = append(concValues, v)
	}
	sort.Float64s(concValues)

	concIndex := make(map[float64]float64)
	var positions []float64
	var labels []string
	for i, v := range concValues {
		concIndex[v] = float64(i)
		positions = append(positions, float64(i))
		labels = append(labels, strconv.FormatFloat(v, 'f', -1, 64))
	}
	p.X.Tick.Marker = categoryTicks{positions: positions, labels: labels}

	var implNames []string
	for name := range implMap {
		implNames = append(implNames, name)
	}
	sort.Strings(implNames)

	colors := plotutil.SoftColors
	shapes := []draw.GlyphDrawer{
		draw.CircleGlyph{},
		draw.SquareGlyph{},
		draw.TriangleGlyph{},
		draw.CrossGlyph{},
		draw.PlusGlyph{},
	}

	// Slight horizontal offset so implementations do not overlap.
	offsetRange := 0.4
	offsetStep := offsetRange / float64(len(implNames))
	startOffset := -offsetRange/2 + offsetStep/2

	for i, name := range implNames {
		stats := buildStats(implMap[name])
		if len(stats) == 0 {
			continue
		}
		for j := range stats {
			stats[j].x = concIndex[stats[j].orig] + startOffset + float64(i)*offsetStep
		}
		sp := statsPoints(stats)

		line, err := plotter.NewLine(sp)
		if err != nil {
			return err
		}
		line.Color = colors[i%len(colors)]

		points, err := plotter.NewScatter(sp)
		if err != nil {
			return err
		}
		points.GlyphStyle.Radius = vg.Points(5)
		points.Color = colors[i%len(colors)]
		points.Shape = shapes[i%len(shapes)]

		errBars, err := plotter.NewYErrorBars(sp)
		if err != nil {
			return err
		}
		errBars.Color = colors[i%len(colors)]

		p.Add(line, points, errBars)
		p.Legend.Add(name, line, points)
	}

	filename := fmt.Sprintf("%s_%d.png", outputPrefix, cpus)
	if err := p.Save(12*vg.Inch, 9*vg.Inch, filename); err != nil {
		return err
	}
	fmt.Printf("Graph for %d CPU(s) saved to %s\n", cpus, filename)
	return nil
}
