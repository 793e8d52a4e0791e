// Package health probes the external collaborators (language model, speech
// synthesizer) and aggregates the results for the REST health endpoint.
package health

import (
	"context"
	"fmt"
	"time"
)

// Target is one collaborator to probe. Probe reports reachability; probes are
// expected to be cheap (a tag listing, a HEAD request).
type Target struct {
	Name  string
	Probe func(ctx context.Context) bool
}

type CheckResult struct {
	Name      string `json:"name"`
	OK        bool   `json:"ok"`
	LatencyMs int64  `json:"latency_ms"`
}

type Status struct {
	OK        bool          `json:"ok"`
	Checks    []CheckResult `json:"checks"`
	CheckedAt time.Time     `json:"checked_at"`
}

func (s Status) String() string {
	status := "OK"
	if !s.OK {
		status = "FAIL"
	}
	out := fmt.Sprintf("Health: %s\n", status)
	for _, c := range s.Checks {
		mark := "✓"
		if !c.OK {
			mark = "✗"
		}
		out += fmt.Sprintf("  %s %s (%dms)\n", mark, c.Name, c.LatencyMs)
	}
	return out
}

// CheckAll probes every target and returns the combined status. A single
// unreachable collaborator marks the whole service degraded.
func CheckAll(ctx context.Context, targets ...Target) Status {
	checks := make([]CheckResult, 0, len(targets))
	allOK := true
	for _, t := range targets {
		start := time.Now()
		ok := t.Probe(ctx)
		checks = append(checks, CheckResult{
			Name:      t.Name,
			OK:        ok,
			LatencyMs: time.Since(start).Milliseconds(),
		})
		if !ok {
			allOK = false
		}
	}
	return Status{OK: allOK, Checks: checks, CheckedAt: time.Now().UTC()}
}
