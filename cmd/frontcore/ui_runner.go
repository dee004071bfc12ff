package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"frontcore/internal/driver"
	"frontcore/internal/ui"
)

type analyzeOutcome struct {
	result *driver.Result
	err    error
}

// analyzeWithUI runs driver.Analyze while a progress view follows its
// events on stdout.
func analyzeWithUI(ctx context.Context, title string, cfg driver.Config, inputs []driver.Input) (*driver.Result, error) {
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan analyzeOutcome, 1)

	go func() {
		runCfg := cfg
		runCfg.Progress = driver.ChannelSink{Ch: events}
		res, err := driver.Analyze(ctx, runCfg, inputs)
		outcomeCh <- analyzeOutcome{result: res, err: err}
		close(events)
	}()

	files := make([]string, len(inputs))
	for i, in := range inputs {
		files[i] = in.Path
	}
	program := tea.NewProgram(ui.NewProgressModel(title, files, events), tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	// the view may quit before the run ends
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
