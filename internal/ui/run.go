package ui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"loom/internal/driver"
)

type buildOutcome struct {
	results []*driver.UnitResult
	err     error
}

// RunBuild compiles units while rendering progress to out. The build runs in
// the background; the view closes once every unit has finished.
func RunBuild(ctx context.Context, out io.Writer, title string, units []string, opts driver.Options) ([]*driver.UnitResult, error) {
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan buildOutcome, 1)

	go func() {
		o := opts
		o.Sink = driver.ChannelSink{Ch: events}
		res, err := driver.CompileUnits(ctx, units, o)
		outcomeCh <- buildOutcome{results: res, err: err}
		close(events)
	}()

	model := NewProgressModel(title, units, events)
	program := tea.NewProgram(model, tea.WithOutput(out), tea.WithInput(nil), tea.WithContext(ctx))
	_, uiErr := program.Run()
	if uiErr != nil {
		// keep draining so the build goroutine can finish
		go func() {
			for range events {
			}
		}()
	}
	outcome := <-outcomeCh
	if uiErr != nil && outcome.err == nil && ctx.Err() == nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
