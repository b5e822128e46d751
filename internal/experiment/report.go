package experiment

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/evacsim/internal/world"
)

// Summary aggregates the runs of one exit combination.
type Summary struct {
	Combination    world.ExitSet `json:"-"`
	Name           string        `json:"combination"`
	Runs           int           `json:"runs"`
	Completed      int           `json:"completed"` // Runs in which everyone left
	MeanTicks      float64       `json:"mean_ticks"`
	MinTicks       int           `json:"min_ticks"`
	MaxTicks       int           `json:"max_ticks"`
	MeanEvacuation float64       `json:"mean_evacuation"`
	ExitShare      []float64     `json:"exit_share"` // Share of evacuees per branch, A, B, C
}

// Summarize groups results by exit combination, in first-seen order.
func Summarize(results []RunResult) []Summary {
	var out []Summary
	index := make(map[world.ExitSet]int)
	evacuees := make(map[world.ExitSet][world.NumBranches]int)

	for _, r := range results {
		i, ok := index[r.Combination]
		if !ok {
			i = len(out)
			index[r.Combination] = i
			out = append(out, Summary{
				Combination: r.Combination,
				Name:        r.ComboName,
				MinTicks:    r.TotalTicks,
				MaxTicks:    r.TotalTicks,
			})
		}
		s := &out[i]
		s.Runs++
		if r.FullyEvacuated {
			s.Completed++
		}
		s.MeanTicks += float64(r.TotalTicks)
		s.MeanEvacuation += float64(r.EvacuationTime)
		s.MinTicks = min(s.MinTicks, r.TotalTicks)
		s.MaxTicks = max(s.MaxTicks, r.TotalTicks)

		counts := evacuees[r.Combination]
		for b, e := range r.Exits {
			counts[b] += e.Count
		}
		evacuees[r.Combination] = counts
	}

	for i := range out {
		s := &out[i]
		s.MeanTicks /= float64(s.Runs)
		s.MeanEvacuation /= float64(s.Runs)

		counts := evacuees[s.Combination]
		total := 0
		for _, n := range counts {
			total += n
		}
		s.ExitShare = make([]float64, world.NumBranches)
		for b, n := range counts {
			if total > 0 {
				s.ExitShare[b] = float64(n) / float64(total)
			}
		}
	}
	return out
}

// WriteCSV writes one "run" row per result followed by one "summary" row per
// exit combination.
func WriteCSV(w io.Writer, results []RunResult) error {
	round2 := func(x float64) float64 { return math.Round(x*100) / 100 }

	if _, err := fmt.Fprintln(w, "section,run_id,combination,replication,seed,total_ticks,evacuation_time,fully_evacuated,safe,population,exit_a,exit_b,exit_c,unreachable,runs,completed,mean_ticks,min_ticks,max_ticks"); err != nil {
		return err
	}
	for _, r := range results {
		var counts [world.NumBranches]int
		for b, e := range r.Exits {
			counts[b] = e.Count
		}
		_, err := fmt.Fprintf(w, "run,%s,%s,%d,%d,%d,%d,%t,%d,%d,%d,%d,%d,%d,,,,,\n",
			r.ID, r.ComboName, r.Replication, r.Seed, r.TotalTicks, r.EvacuationTime,
			r.FullyEvacuated, r.Safe, r.Population, counts[0], counts[1], counts[2],
			r.Diagnostics.Unreachable)
		if err != nil {
			return err
		}
	}
	for _, s := range Summarize(results) {
		_, err := fmt.Fprintf(w, "summary,,%s,,,,%.2f,,,,%.2f,%.2f,%.2f,,%d,%d,%.2f,%d,%d\n",
			s.Name, round2(s.MeanEvacuation), round2(s.ExitShare[0]), round2(s.ExitShare[1]), round2(s.ExitShare[2]),
			s.Runs, s.Completed, round2(s.MeanTicks), s.MinTicks, s.MaxTicks)
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteCSVReport writes the CSV report to the given path or directory.
// If reportPath is a directory, a timestamped file is created inside it.
// If reportPath is a file, a timestamp is suffixed before the extension.
func WriteCSVReport(reportPath string, results []RunResult) (string, error) {
	if reportPath == "" {
		return "", nil
	}
	ts := time.Now().Format("20060102-150405")
	outPath := reportPath
	if fi, err := os.Stat(outPath); err == nil && fi.IsDir() {
		outPath = filepath.Join(outPath, fmt.Sprintf("report-%s.csv", ts))
	} else {
		ext := filepath.Ext(outPath)
		base := strings.TrimSuffix(outPath, ext)
		outPath = fmt.Sprintf("%s-%s%s", base, ts, ext)
	}
	if dir := filepath.Dir(outPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}

	f, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := WriteCSV(f, results); err != nil {
		return "", err
	}
	slog.Info("CSV report written", "path", outPath, "runs", len(results))
	return outPath, nil
}

// PrintConsoleReport prints a human-readable summary.
func PrintConsoleReport(w io.Writer, results []RunResult) {
	fmt.Fprintln(w, "=== Evacuation Report ===")
	fmt.Fprintf(w, "Runs: %s\n", humanize.Comma(int64(len(results))))
	for _, s := range Summarize(results) {
		fmt.Fprintf(w, "%-16s runs=%d complete=%d mean=%.1f ticks (min %s, max %s) after alarm=%.1f  A/B/C=%.0f%%/%.0f%%/%.0f%%\n",
			s.Name, s.Runs, s.Completed, s.MeanTicks,
			humanize.Comma(int64(s.MinTicks)), humanize.Comma(int64(s.MaxTicks)), s.MeanEvacuation,
			100*s.ExitShare[0], 100*s.ExitShare[1], 100*s.ExitShare[2])
	}
}
