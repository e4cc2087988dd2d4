package report

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jmylchreest/calcprobe/internal/models"
	"github.com/jmylchreest/calcprobe/internal/probe"
)

const ruleWidth = 80

// Palette.
var (
	colorPass    = lipgloss.Color("#8BC34A")
	colorFail    = lipgloss.Color("#E53935")
	colorWarn    = lipgloss.Color("#FFC107")
	colorInfo    = lipgloss.Color("#2196F3")
	colorSkip    = lipgloss.Color("#9E9E9E")
	colorHeading = lipgloss.Color("#101F38")
)

type consoleStyles struct {
	status  map[probe.Status]lipgloss.Style
	heading lipgloss.Style
	muted   lipgloss.Style
	verdict map[models.Verdict]lipgloss.Style
}

func newConsoleStyles(w io.Writer, color bool) consoleStyles {
	if !color {
		plain := lipgloss.NewStyle()
		return consoleStyles{
			status:  map[probe.Status]lipgloss.Style{},
			heading: plain,
			muted:   plain,
			verdict: map[models.Verdict]lipgloss.Style{},
		}
	}

	r := lipgloss.NewRenderer(w)
	return consoleStyles{
		status: map[probe.Status]lipgloss.Style{
			probe.StatusPass: r.NewStyle().Foreground(colorPass).Bold(true),
			probe.StatusFail: r.NewStyle().Foreground(colorFail).Bold(true),
			probe.StatusWarn: r.NewStyle().Foreground(colorWarn).Bold(true),
			probe.StatusInfo: r.NewStyle().Foreground(colorInfo),
			probe.StatusSkip: r.NewStyle().Foreground(colorSkip),
		},
		heading: r.NewStyle().Bold(true).Foreground(colorHeading),
		muted:   r.NewStyle().Foreground(colorSkip),
		verdict: map[models.Verdict]lipgloss.Style{
			models.VerdictReady:       r.NewStyle().Foreground(colorPass).Bold(true),
			models.VerdictMostlyReady: r.NewStyle().Foreground(colorWarn).Bold(true),
			models.VerdictNotReady:    r.NewStyle().Foreground(colorFail).Bold(true),
		},
	}
}

// Console prints check lines as they are recorded and the closing summary.
// It implements probe.Sink.
type Console struct {
	mu     sync.Mutex
	w      io.Writer
	styles consoleStyles
	p      *message.Printer
}

// NewConsole writes to w, styled when color is set and w is a terminal.
func NewConsole(w io.Writer, color bool) *Console {
	return &Console{
		w:      w,
		styles: newConsoleStyles(w, color),
		p:      message.NewPrinter(language.English),
	}
}

var _ probe.Sink = (*Console)(nil)

// Emit prints one result line.
func (c *Console) Emit(r probe.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	line := r.Line()
	tag := "[" + string(r.Status) + "]"
	if style, ok := c.styles.status[r.Status]; ok {
		line = style.Render(tag) + strings.TrimPrefix(line, tag)
	}
	fmt.Fprintln(c.w, line)
}

// Header prints the banner shown before the first check.
func (c *Console) Header(r *Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rule()
	fmt.Fprintln(c.w, c.styles.heading.Render("calcprobe run "+r.RunID))
	c.rule()
	fmt.Fprintf(c.w, "Frontend: %s\n", r.FrontendURL)
	if r.BackendURL != "" {
		fmt.Fprintf(c.w, "Backend:  %s\n", r.BackendURL)
	}
	fmt.Fprintf(c.w, "Mode:     %s\n", r.Mode)
	fmt.Fprintf(c.w, "Suites:   %s\n\n", strings.Join(r.Suites, ", "))
}

// Summary prints totals, per-category counts, the FAIL and WARN listings
// and the readiness verdict.
func (c *Console) Summary(r *Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := r.Summary
	fmt.Fprintln(c.w)
	c.rule()
	fmt.Fprintln(c.w, c.styles.heading.Render("TEST SUMMARY"))
	c.rule()

	fmt.Fprintln(c.w, "\nOVERALL RESULTS:")
	c.p.Fprintf(c.w, "   Total Tests: %d\n", s.Total)
	c.p.Fprintf(c.w, "   Passed: %d\n", s.Passed)
	c.p.Fprintf(c.w, "   Failed: %d\n", s.Failed)
	c.p.Fprintf(c.w, "   Warnings: %d\n", s.Warnings)
	c.p.Fprintf(c.w, "   Info: %d\n", s.Info)
	c.p.Fprintf(c.w, "   Skipped: %d\n", s.Skipped)
	if s.Total > 0 {
		fmt.Fprintf(c.w, "   Success Rate: %.1f%%\n", s.SuccessRate)
	}
	fmt.Fprintf(c.w, "   Duration: %s\n", r.Duration().Round(time.Millisecond))

	if len(s.Categories) > 0 {
		fmt.Fprintln(c.w, "\nCATEGORY ANALYSIS:")
		for _, cat := range s.Categories {
			c.p.Fprintf(c.w, "   %s: %d/%d passed\n", cat.Name, cat.Passed, cat.Total)
		}
	}

	c.listing("CRITICAL ISSUES REQUIRING ATTENTION:", s.Failures)
	c.listing("WARNINGS FOR OPTIMIZATION:", s.Warns)

	fmt.Fprintln(c.w, "\nDEPLOYMENT READINESS ASSESSMENT:")
	assessment := Describe(s.Verdict)
	if style, ok := c.styles.verdict[s.Verdict]; ok {
		assessment = style.Render(assessment)
	}
	fmt.Fprintf(c.w, "   %s\n", assessment)

	c.p.Fprintf(c.w, "\nAPPLICATION STATUS: %d/%d checks passed\n", s.Passed, s.Total)
	c.rule()
}

func (c *Console) listing(title string, results []probe.Result) {
	if len(results) == 0 {
		return
	}
	fmt.Fprintf(c.w, "\n%s\n", title)
	for _, r := range results {
		if r.Details == "" {
			fmt.Fprintf(c.w, "   • %s\n", r.Name)
			continue
		}
		fmt.Fprintf(c.w, "   • %s: %s\n", r.Name, r.Details)
	}
}

func (c *Console) rule() {
	fmt.Fprintln(c.w, c.styles.muted.Render(strings.Repeat("=", ruleWidth)))
}
