// Command tracereport turns a recorded MARV run (internal/tracedata) into
// an offline pose-trail plot and an HTML summary. It is a post-hoc
// reporting tool, not the live maze-painting GUI spec.md excludes — it
// runs after a test finishes, against a file on disk.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/reinhardtvbm/marv-harness/internal/tracedata"
)

var (
	tracePath = flag.String("trace", "", "path to a tracedata-recorded run (required)")
	plotOut   = flag.String("plot-out", "pose-trail.png", "output path for the pose-trail PNG")
	htmlOut   = flag.String("html-out", "pose-trail.html", "output path for the HTML timeline")
)

func main() {
	flag.Parse()
	if *tracePath == "" {
		log.Fatal("tracereport: -trace is required")
	}

	samples, err := tracedata.LoadSamples(*tracePath)
	if err != nil {
		log.Fatalf("tracereport: %v", err)
	}
	if len(samples) == 0 {
		log.Fatal("tracereport: trace file has no samples")
	}

	if err := writePosePlot(samples, *plotOut); err != nil {
		log.Fatalf("tracereport: plotting pose trail: %v", err)
	}

	summary := summarize(samples)
	if err := writeHTMLTimeline(samples, summary, *htmlOut); err != nil {
		log.Fatalf("tracereport: writing HTML timeline: %v", err)
	}

	log.Printf("tracereport: %d samples, mean step %.3f (stddev %.3f) -> %s, %s",
		len(samples), summary.meanStep, summary.stddevStep, *plotOut, *htmlOut)
}

type stepSummary struct {
	meanStep   float64
	stddevStep float64
}

// summarize computes the mean and standard deviation of the per-tick
// displacement, using gonum/stat the way the teacher computes speed
// percentiles from a sorted sample slice.
func summarize(samples []tracedata.Sample) stepSummary {
	if len(samples) < 2 {
		return stepSummary{}
	}
	steps := make([]float64, 0, len(samples)-1)
	for i := 1; i < len(samples); i++ {
		dx := samples[i].X - samples[i-1].X
		dy := samples[i].Y - samples[i-1].Y
		steps = append(steps, math.Sqrt(dx*dx+dy*dy))
	}
	mean, stddev := stat.MeanStdDev(steps, nil)
	return stepSummary{meanStep: mean, stddevStep: stddev}
}

// writePosePlot renders the (x, y) pose trail to a PNG, grounded on the
// teacher's GridPlotter time-series plots.
func writePosePlot(samples []tracedata.Sample, path string) error {
	pts := make(plotter.XYs, len(samples))
	for i, s := range samples {
		pts[i].X = s.X
		pts[i].Y = s.Y
	}

	p := plot.New()
	p.Title.Text = "MARV pose trail"
	p.X.Label.Text = "x (maze px)"
	p.Y.Label.Text = "y (maze px)"

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	p.Add(line)

	return p.Save(8*vg.Inch, 8*vg.Inch, path)
}

// writeHTMLTimeline renders a go-echarts line chart of the pose trail
// alongside the run's summary statistics, the same pattern the teacher
// uses to serve a debug chart as a standalone HTML page.
func writeHTMLTimeline(samples []tracedata.Sample, summary stepSummary, path string) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "MARV pose trail", Theme: "dark"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "MARV pose trail",
			Subtitle: fmt.Sprintf("%d samples, mean step %.3f (stddev %.3f)", len(samples), summary.meanStep, summary.stddevStep),
		}),
	)

	ticks := make([]string, len(samples))
	xs := make([]opts.LineData, len(samples))
	ys := make([]opts.LineData, len(samples))
	for i, s := range samples {
		ticks[i] = fmt.Sprintf("%d", s.Tick)
		xs[i] = opts.LineData{Value: s.X}
		ys[i] = opts.LineData{Value: s.Y}
	}

	line.SetXAxis(ticks).
		AddSeries("x", xs).
		AddSeries("y", ys)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
