package driver

import (
	"encoding/json"
	"fmt"
	"io"

	"loom/internal/observ"
)

// slowestUnits is how many unit phases a timing report lists.
const slowestUnits = 5

type unitTiming struct {
	Unit       string  `json:"unit"`
	Phase      string  `json:"phase"`
	DurationMS float64 `json:"duration_ms"`
}

type timingPayload struct {
	Kind    string               `json:"kind"`
	TotalMS float64              `json:"total_ms"`
	Phases  []observ.PhaseReport `json:"phases"`
	Slowest []unitTiming         `json:"slowest,omitempty"`
}

// WriteTimings prints the phases recorded by timer as an aligned table, or
// as a single JSON object when asJSON is set.
func WriteTimings(w io.Writer, timer *observ.Timer, asJSON bool) error {
	if timer == nil {
		return nil
	}
	if !asJSON {
		if _, err := io.WriteString(w, timer.Summary()); err != nil {
			return err
		}
		for _, p := range timer.Slowest(slowestUnits) {
			if _, err := fmt.Fprintf(w, "  slow: %-8s %7.2f ms  %s\n", p.Name, millis(p), p.Unit); err != nil {
				return err
			}
		}
		return nil
	}
	report := timer.Report()
	payload := timingPayload{Kind: "build", TotalMS: report.TotalMS, Phases: report.Phases}
	for _, p := range timer.Slowest(slowestUnits) {
		payload.Slowest = append(payload.Slowest, unitTiming{Unit: p.Unit, Phase: p.Name, DurationMS: millis(p)})
	}
	enc := json.NewEncoder(w)
	return enc.Encode(payload)
}

func millis(p observ.Phase) float64 {
	return float64(p.Dur.Microseconds()) / 1000
}
