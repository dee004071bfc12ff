package trace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Tracer receives events. Implementations must be safe for concurrent use.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	Close() error
	Level() Level
	Enabled() bool
}

// Mode selects where events go.
type Mode uint8

const (
	ModeStream Mode = iota + 1
	ModeRing
	ModeBoth
)

var modeNames = map[Mode]string{ModeStream: "stream", ModeRing: "ring", ModeBoth: "both"}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return "unknown"
}

// ParseMode reads a mode name; the empty string means stream.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModeStream, nil
	}
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return ModeStream, fmt.Errorf("trace mode %q: want stream, ring or both", s)
}

const defaultRingSize = 4096

// Config describes a tracer for New.
type Config struct {
	Level  Level
	Mode   Mode
	Format Format
	// Output wins over OutputPath. An empty path or "-" is stderr.
	Output     io.Writer
	OutputPath string
	RingSize   int
	Heartbeat  time.Duration
}

// New builds the tracer cfg asks for. LevelOff yields Nop.
func New(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	if cfg.RingSize <= 0 {
		cfg.RingSize = defaultRingSize
	}
	if cfg.Format == FormatAuto {
		cfg.Format = FormatText
		if strings.HasSuffix(cfg.OutputPath, ".ndjson") {
			cfg.Format = FormatNDJSON
		}
	}
	if cfg.Mode == ModeRing {
		return NewRing(cfg.RingSize, cfg.Level), nil
	}
	if cfg.Mode != ModeStream && cfg.Mode != ModeBoth {
		return nil, fmt.Errorf("trace mode %v not supported", cfg.Mode)
	}
	out, err := cfg.output()
	if err != nil {
		return nil, err
	}
	w := NewWriter(out, cfg.Level, cfg.Format)
	if cfg.Mode == ModeStream {
		return w, nil
	}
	return Fanout(cfg.Level, w, NewRing(cfg.RingSize, cfg.Level)), nil
}

func (cfg Config) output() (io.Writer, error) {
	switch {
	case cfg.Output != nil:
		return cfg.Output, nil
	case cfg.OutputPath == "" || cfg.OutputPath == "-":
		return os.Stderr, nil
	}
	f, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("open trace output: %w", err)
	}
	return f, nil
}

type nopTracer struct{}

func (nopTracer) Emit(*Event)   {}
func (nopTracer) Flush() error  { return nil }
func (nopTracer) Close() error  { return nil }
func (nopTracer) Level() Level  { return LevelOff }
func (nopTracer) Enabled() bool { return false }

// Nop drops everything.
var Nop Tracer = nopTracer{}

type fanout struct {
	level Level
	to    []Tracer
}

// Fanout copies every event to each of to.
func Fanout(level Level, to ...Tracer) Tracer {
	return &fanout{level: level, to: to}
}

func (f *fanout) Emit(ev *Event) {
	for _, t := range f.to {
		cp := *ev
		t.Emit(&cp)
	}
}

func (f *fanout) Flush() error {
	var errs []error
	for _, t := range f.to {
		errs = append(errs, t.Flush())
	}
	return errors.Join(errs...)
}

func (f *fanout) Close() error {
	var errs []error
	for _, t := range f.to {
		errs = append(errs, t.Close())
	}
	return errors.Join(errs...)
}

func (f *fanout) Level() Level  { return f.level }
func (f *fanout) Enabled() bool { return f.level > LevelOff }

// admits reports whether a tracer at level keeps ev.
func admits(level Level, ev *Event) bool {
	return ev.Kind == KindHeartbeat || level.ShouldEmit(ev.Scope)
}
