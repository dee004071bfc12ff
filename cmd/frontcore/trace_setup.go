package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"frontcore/internal/config"
	"frontcore/internal/trace"
)

// setupTracing builds the tracer described by cfg and the trace flags and
// attaches it to the command context. The returned cleanup flushes it.
func setupTracing(cmd *cobra.Command, cfg *config.Config) (func(), error) {
	root := cmd.Root()

	ringSize, err := root.PersistentFlags().GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	heartbeatInterval, err := root.PersistentFlags().GetDuration("trace-heartbeat")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	tcfg, err := cfg.TraceConfig()
	if err != nil {
		return nil, err
	}
	// an output file alone asks for phase tracing
	if tcfg.Level == trace.LevelOff && tcfg.OutputPath != "" {
		tcfg.Level = trace.LevelPhase
	}
	if tcfg.Level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}
	tcfg.RingSize = ringSize
	tcfg.Heartbeat = heartbeatInterval

	tracer, err := trace.New(tcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)
	root.SetContext(ctx)

	var heartbeat *trace.Heartbeat
	if heartbeatInterval > 0 {
		heartbeat = trace.StartHeartbeat(tracer, heartbeatInterval)
	}
	return func() {
		if heartbeat != nil {
			heartbeat.Stop()
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}, nil
}
