package trace

import (
	"fmt"
	"strings"
)

// Level controls how much is traced.
type Level uint8

const (
	LevelOff    Level = iota
	LevelError        // crash dumps only
	LevelPhase        // driver and passes
	LevelDetail       // plus packages and declarations
	LevelDebug        // everything
)

var levelNames = [...]string{"off", "error", "phase", "detail", "debug"}

// deepest is the finest scope each level records; zero records nothing.
var deepest = [...]Scope{LevelPhase: ScopePass, LevelDetail: ScopeDeclaration, LevelDebug: ScopeNode}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel reads a level name; the empty string means off.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return LevelOff, nil
	}
	for i, name := range levelNames {
		if name == s {
			return Level(i), nil
		}
	}
	return LevelOff, fmt.Errorf("trace level %q: want one of %s", s, strings.Join(levelNames[:], ", "))
}

// ShouldEmit reports whether events of scope are recorded at l.
func (l Level) ShouldEmit(scope Scope) bool {
	if int(l) >= len(deepest) {
		return false
	}
	return scope != 0 && scope <= deepest[l]
}
