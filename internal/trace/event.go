package trace

import (
	"encoding/json"
	"maps"
	"slices"
	"strconv"
	"time"
)

// Kind is the type of an event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
	KindHeartbeat
)

var kindNames = [...]string{KindSpanBegin: "begin", KindSpanEnd: "end", KindPoint: "point", KindHeartbeat: "heartbeat"}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

// marker prefixes the event name in text output.
func (k Kind) marker() string {
	switch k {
	case KindSpanBegin:
		return "> "
	case KindSpanEnd:
		return "< "
	case KindHeartbeat:
		return "~ "
	}
	return "* "
}

// Scope is the granularity of an event. Lower values are coarser.
type Scope uint8

const (
	ScopeDriver      Scope = iota + 1 // a command or a whole analysis
	ScopePass                         // read, lower, resolve, emit
	ScopePackage                      // one package
	ScopeDeclaration                  // one class or callable
	ScopeNode                         // call sites and storage computations
)

var scopeNames = [...]string{ScopeDriver: "driver", ScopePass: "pass", ScopePackage: "package", ScopeDeclaration: "declaration", ScopeNode: "node"}

func (s Scope) String() string {
	if int(s) < len(scopeNames) && scopeNames[s] != "" {
		return scopeNames[s]
	}
	return "unknown"
}

// Event is one trace record.
type Event struct {
	Time     time.Time
	Seq      uint64
	Kind     Kind
	Scope    Scope
	SpanID   uint64
	ParentID uint64
	GID      uint64
	Name     string
	Detail   string
	Extra    map[string]string
}

// Format is the encoding of events in a trace output.
type Format uint8

const (
	FormatAuto Format = iota // by output file extension
	FormatText
	FormatNDJSON
)

// Append encodes ev as one line and appends it to dst.
func (ev *Event) Append(dst []byte, format Format) []byte {
	if format == FormatNDJSON {
		return ev.appendJSON(dst)
	}
	return ev.appendText(dst)
}

// appendText renders "[seq] scope > name (detail) {k=v, ...}".
func (ev *Event) appendText(dst []byte) []byte {
	seq := strconv.FormatUint(ev.Seq, 10)
	dst = append(dst, '[')
	for range 6 - len(seq) {
		dst = append(dst, ' ')
	}
	dst = append(dst, seq...)
	dst = append(dst, "] "...)
	scope := ev.Scope.String()
	dst = append(dst, scope...)
	for range 12 - len(scope) {
		dst = append(dst, ' ')
	}
	if ev.ParentID != 0 {
		dst = append(dst, "  "...)
	}
	dst = append(dst, ev.Kind.marker()...)
	dst = append(dst, ev.Name...)
	if ev.Detail != "" {
		dst = append(dst, " ("...)
		dst = append(dst, ev.Detail...)
		dst = append(dst, ')')
	}
	if len(ev.Extra) > 0 {
		dst = append(dst, " {"...)
		for i, k := range slices.Sorted(maps.Keys(ev.Extra)) {
			if i > 0 {
				dst = append(dst, ", "...)
			}
			dst = append(dst, k...)
			dst = append(dst, '=')
			dst = append(dst, ev.Extra[k]...)
		}
		dst = append(dst, '}')
	}
	return append(dst, '\n')
}

type eventJSON struct {
	Time     string            `json:"time"`
	Seq      uint64            `json:"seq"`
	Kind     string            `json:"kind"`
	Scope    string            `json:"scope"`
	SpanID   uint64            `json:"span_id,omitempty"`
	ParentID uint64            `json:"parent_id,omitempty"`
	GID      uint64            `json:"gid,omitempty"`
	Name     string            `json:"name"`
	Detail   string            `json:"detail,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
}

func (ev *Event) appendJSON(dst []byte) []byte {
	data, err := json.Marshal(eventJSON{
		Time:     ev.Time.UTC().Format(time.RFC3339Nano),
		Seq:      ev.Seq,
		Kind:     ev.Kind.String(),
		Scope:    ev.Scope.String(),
		SpanID:   ev.SpanID,
		ParentID: ev.ParentID,
		GID:      ev.GID,
		Name:     ev.Name,
		Detail:   ev.Detail,
		Extra:    ev.Extra,
	})
	if err != nil {
		return dst
	}
	dst = append(dst, data...)
	return append(dst, '\n')
}
