package trace

import (
	"bufio"
	"io"
	"os"
	"sync"
)

// Ring keeps the most recent events in memory, for crash dumps and tests.
type Ring struct {
	mu    sync.Mutex
	level Level
	buf   []Event
	// next is the slot the next event overwrites once buf is full.
	next int
}

// NewRing returns a ring holding up to size events.
func NewRing(size int, level Level) *Ring {
	if size <= 0 {
		size = defaultRingSize
	}
	return &Ring{level: level, buf: make([]Event, 0, size)}
}

func (r *Ring) Emit(ev *Event) {
	if !admits(r.level, ev) {
		return
	}
	r.mu.Lock()
	if len(r.buf) < cap(r.buf) {
		r.buf = append(r.buf, *ev)
	} else {
		r.buf[r.next] = *ev
		r.next = (r.next + 1) % len(r.buf)
	}
	r.mu.Unlock()
}

// Snapshot returns the kept events, oldest first.
func (r *Ring) Snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}

// Dump writes the kept events to w.
func (r *Ring) Dump(w io.Writer, format Format) error {
	var line []byte
	for _, ev := range r.Snapshot() {
		line = ev.Append(line[:0], format)
		if _, err := w.Write(line); err != nil {
			return err
		}
	}
	return nil
}

func (r *Ring) Flush() error  { return nil }
func (r *Ring) Close() error  { return nil }
func (r *Ring) Level() Level  { return r.level }
func (r *Ring) Enabled() bool { return r.level > LevelOff }

// Writer encodes events to an io.Writer through a buffer. Write errors are
// kept until Flush so a broken output never fails an analysis.
type Writer struct {
	mu     sync.Mutex
	level  Level
	format Format
	dst    io.Writer
	bw     *bufio.Writer
	line   []byte
	err    error
}

// NewWriter returns a tracer writing to w.
func NewWriter(w io.Writer, level Level, format Format) *Writer {
	return &Writer{level: level, format: format, dst: w, bw: bufio.NewWriter(w)}
}

func (t *Writer) Emit(ev *Event) {
	if !admits(t.level, ev) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return
	}
	t.line = ev.Append(t.line[:0], t.format)
	_, t.err = t.bw.Write(t.line)
}

func (t *Writer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	t.err = t.bw.Flush()
	return t.err
}

// Close flushes and closes the destination when it is an io.Closer other
// than the standard streams.
func (t *Writer) Close() error {
	err := t.Flush()
	if t.dst == os.Stderr || t.dst == os.Stdout {
		return err
	}
	if c, ok := t.dst.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (t *Writer) Level() Level  { return t.level }
func (t *Writer) Enabled() bool { return t.level > LevelOff }
