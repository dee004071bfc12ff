package main

import (
	"fmt"
	"io"

	"frontcore/internal/driver"
	"frontcore/internal/observ"
)

func printTimings(out io.Writer, timer *observ.Timer, res *driver.Result) {
	if out == nil || timer == nil {
		return
	}
	summary := timer.Summary()
	if res != nil && res.Cached {
		summary += "  (served from cache)\n"
	}
	if _, err := fmt.Fprint(out, summary); err != nil {
		panic(err)
	}
}
