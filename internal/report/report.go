// Package report renders run progress and the final score summary for a
// terminal.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ahrav/examsolve/internal/domain"
)

const rule = "=================================================="

// Console writes human-readable progress lines. It is not safe for
// concurrent use.
type Console struct {
	w      io.Writer
	green  func(a ...any) string
	red    func(a ...any) string
	yellow func(a ...any) string
	cyan   func(a ...any) string
	bold   func(a ...any) string
}

// NewConsole creates a Console writing to w. Colors are emitted only when
// colored is true.
func NewConsole(w io.Writer, colored bool) *Console {
	paint := func(attrs ...color.Attribute) func(a ...any) string {
		c := color.New(attrs...)
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintFunc()
	}
	return &Console{
		w:      w,
		green:  paint(color.FgGreen),
		red:    paint(color.FgRed),
		yellow: paint(color.FgYellow),
		cyan:   paint(color.FgCyan),
		bold:   paint(color.Bold),
	}
}

// Loaded announces the size of the input document.
func (c *Console) Loaded(count, maxScore int) {
	fmt.Fprintf(c.w, "loaded %d problems (max score %d)\n", count, maxScore)
}

// Resumed announces answers found from an earlier run.
func (c *Console) Resumed(completed, remaining int) {
	fmt.Fprintf(c.w, "%s found %d previous answers, %d remaining\n",
		c.cyan("[resume]"), completed, remaining)
}

// AllSolved announces that nothing is left to do.
func (c *Console) AllSolved() {
	fmt.Fprintln(c.w, c.green("all problems already solved"))
}

// Progress prints one line per recorded answer.
func (c *Console) Progress(index, total int, a domain.Answer) {
	mark := c.red(a.Mark())
	if a.IsCorrect {
		mark = c.green(a.Mark())
	}
	fmt.Fprintf(c.w, "[%d/%d] problem %d (%d pts): %s (+%d)\n",
		index, total, a.ProblemID, a.Score, mark, a.EarnedScore())
}

// Summary prints the aggregate of the result log.
func (c *Console) Summary(s domain.Summary, interrupted bool) {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", rule)
	if interrupted {
		fmt.Fprintln(&b, c.yellow("interrupted, progress saved"))
	}
	fmt.Fprintln(&b, c.bold("result summary"))
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "total problems: %d\n", s.Total)
	fmt.Fprintf(&b, "correct: %s\n", c.green(s.Correct))
	fmt.Fprintf(&b, "wrong: %s\n", c.red(s.Wrong()))
	fmt.Fprintf(&b, "accuracy: %.1f%%\n", s.Accuracy())
	fmt.Fprintf(&b, "score: %d / %d (%.1f%%)\n", s.Earned, s.MaxPoints, s.ScoreRate())
	fmt.Fprintln(&b, rule)
	_, _ = io.WriteString(c.w, b.String())
}
