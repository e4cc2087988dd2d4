// Package report summarises recorded check results and renders them for
// the console, as JSON and as JUnit XML.
package report

import (
	"strings"

	"github.com/jmylchreest/calcprobe/internal/models"
	"github.com/jmylchreest/calcprobe/internal/probe"
)

// criticalMarkers flag failures that block a deployment outright.
var criticalMarkers = []string{"Route:", "Backend", "SPA Routing"}

// Thresholds are the success-rate bands for the readiness verdict.
type Thresholds struct {
	Ready       float64
	MostlyReady float64
}

// DefaultThresholds returns the 85% / 70% bands.
func DefaultThresholds() Thresholds {
	return Thresholds{Ready: 85, MostlyReady: 70}
}

// CategoryStat counts passes within one result category.
type CategoryStat struct {
	Name   string `json:"name"`
	Passed int    `json:"passed"`
	Total  int    `json:"total"`
}

// Summary aggregates a run's results.
type Summary struct {
	Total       int            `json:"total"`
	Passed      int            `json:"passed"`
	Failed      int            `json:"failed"`
	Warnings    int            `json:"warnings"`
	Info        int            `json:"info"`
	Skipped     int            `json:"skipped"`
	SuccessRate float64        `json:"success_rate"`
	Categories  []CategoryStat `json:"categories"`
	Failures    []probe.Result `json:"failures,omitempty"`
	Warns       []probe.Result `json:"warnings_list,omitempty"`
	Critical    int            `json:"critical_failures"`
	Verdict     models.Verdict `json:"verdict"`
}

// Summarize counts results by status and category and derives the verdict.
// Categories keep the order in which they first appear.
func Summarize(results []probe.Result, t Thresholds) Summary {
	s := Summary{Total: len(results), Categories: []CategoryStat{}}
	index := make(map[string]int)

	for _, r := range results {
		switch r.Status {
		case probe.StatusPass:
			s.Passed++
		case probe.StatusFail:
			s.Failed++
			s.Failures = append(s.Failures, r)
			if isCritical(r) {
				s.Critical++
			}
		case probe.StatusWarn:
			s.Warnings++
			s.Warns = append(s.Warns, r)
		case probe.StatusInfo:
			s.Info++
		case probe.StatusSkip:
			s.Skipped++
		}

		cat := r.Category()
		i, ok := index[cat]
		if !ok {
			i = len(s.Categories)
			index[cat] = i
			s.Categories = append(s.Categories, CategoryStat{Name: cat})
		}
		s.Categories[i].Total++
		if r.Status == probe.StatusPass {
			s.Categories[i].Passed++
		}
	}

	s.SuccessRate = probe.Percent(s.Passed, s.Total)
	s.Verdict = verdict(s.Critical, s.SuccessRate, t)
	return s
}

func isCritical(r probe.Result) bool {
	for _, m := range criticalMarkers {
		if strings.Contains(r.Name, m) {
			return true
		}
	}
	return false
}

func verdict(critical int, rate float64, t Thresholds) models.Verdict {
	switch {
	case critical == 0 && rate >= t.Ready:
		return models.VerdictReady
	case critical == 0 && rate >= t.MostlyReady:
		return models.VerdictMostlyReady
	default:
		return models.VerdictNotReady
	}
}

// ExitCode is 0 when nothing failed and 1 otherwise.
func (s Summary) ExitCode() int {
	if s.Failed > 0 {
		return 1
	}
	return 0
}

// Describe returns the one-line readiness assessment for the verdict.
func Describe(v models.Verdict) string {
	switch v {
	case models.VerdictReady:
		return "READY FOR DEPLOYMENT - Application meets deployment standards"
	case models.VerdictMostlyReady:
		return "MOSTLY READY - Minor optimizations recommended before deployment"
	default:
		return "NOT READY - Critical issues must be resolved before deployment"
	}
}
