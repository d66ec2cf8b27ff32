package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/roach88/uispec/internal/runner"
)

// progressObserver draws a bar that advances as cases finish.
type progressObserver struct {
	runner.NopObserver

	w      io.Writer
	bar    *progressbar.ProgressBar
	suite  string
	passed int
	failed int
}

func newProgressObserver(w io.Writer) *progressObserver {
	return &progressObserver{w: w}
}

func (p *progressObserver) RunStarted(r *runner.Report) {
	p.passed, p.failed = 0, 0
	p.suite = r.Suite
	p.bar = progressbar.NewOptions(len(r.Cases),
		progressbar.OptionSetDescription(p.describe(r.Suite)),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        color.CyanString("█"),
			SaucerHead:    color.CyanString("█"),
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(p.w, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func (p *progressObserver) CaseFinished(c *runner.CaseResult) {
	if p.bar == nil {
		return
	}
	if c.Status == runner.StatusPassed {
		p.passed++
	} else {
		p.failed++
	}
	p.bar.Describe(p.describe(p.suite))
	_ = p.bar.Add(1)
}

func (p *progressObserver) RunFinished(*runner.Report) {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

func (p *progressObserver) describe(suite string) string {
	return color.CyanString("%s ", suite) +
		color.GreenString("[passed: %d]", p.passed) + " " +
		color.RedString("[failed: %d]", p.failed)
}
