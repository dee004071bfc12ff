package main

import (
	"fmt"
	"strings"
)

// uiMode selects the progress view of analyze.
type uiMode uint8

const (
	uiAuto uiMode = iota
	uiOn
	uiOff
)

var uiModeNames = [...]string{uiAuto: "auto", uiOn: "on", uiOff: "off"}

func (m uiMode) String() string {
	if int(m) < len(uiModeNames) {
		return uiModeNames[m]
	}
	return fmt.Sprintf("uiMode(%d)", m)
}

func readUIMode(value string) (uiMode, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return uiAuto, nil
	}
	for m, name := range uiModeNames {
		if name == value {
			return uiMode(m), nil
		}
	}
	return uiAuto, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
}

// autoUIInputs is the input count from which auto mode shows progress;
// a single file finishes before the view has drawn.
const autoUIInputs = 2

// showProgress reports whether analyze renders the progress view for
// inputs files. The view replaces the pretty report only, so quiet runs
// and machine formats never get it.
func showProgress(opts analyzeOptions, inputs int, tty bool) bool {
	if opts.quiet || opts.format != "pretty" {
		return false
	}
	switch opts.ui {
	case uiOn:
		return true
	case uiOff:
		return false
	}
	return tty && inputs >= autoUIInputs
}
