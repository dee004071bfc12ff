package driver

import "time"

// Stage is one step of Analyze.
type Stage string

const (
	StageRead    Stage = "read"
	StageLower   Stage = "lower"
	StageResolve Stage = "resolve"
	StageEmit    Stage = "emit"
)

// Status is the state of a file within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
	// StatusCached marks files whose result came from the disk cache.
	StatusCached Status = "cached"
)

// Event reports progress for one input, or for the whole run when File is
// empty.
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes events. OnEvent is called from the goroutine
// running Analyze.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(ev Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- ev
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(Event)

func (f SinkFunc) OnEvent(ev Event) { f(ev) }

type progress struct {
	sink  ProgressSink
	files []string
}

func (p progress) file(path string, stage Stage, status Status, err error) {
	if p.sink == nil {
		return
	}
	p.sink.OnEvent(Event{File: path, Stage: stage, Status: status, Err: err})
}

// stage reports a run-wide event followed by one event per file.
func (p progress) stage(stage Stage, status Status, err error, elapsed time.Duration) {
	if p.sink == nil {
		return
	}
	p.sink.OnEvent(Event{Stage: stage, Status: status, Err: err, Elapsed: elapsed})
	for _, f := range p.files {
		p.sink.OnEvent(Event{File: f, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
	}
}
