// Package ui renders analysis progress in the terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"frontcore/internal/driver"
)

// row is one input file. label is what the status column shows.
type row struct {
	path  string
	label string
	share float64
	err   error
}

func (r *row) finished() bool { return r.share >= 1 }

type styles struct {
	title, queued, busy, ok, bad, dim lipgloss.Style
}

func newStyles() styles {
	fg := func(c string) lipgloss.Style { return lipgloss.NewStyle().Foreground(lipgloss.Color(c)) }
	return styles{
		title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7")),
		queued: fg("7"),
		busy:   fg("6"),
		ok:     fg("2"),
		bad:    fg("1"),
		dim:    fg("8"),
	}
}

func (s styles) status(label string) lipgloss.Style {
	switch label {
	case "queued":
		return s.queued
	case "done", "cached":
		return s.ok
	case "error":
		return s.bad
	}
	return s.busy
}

type progressModel struct {
	title  string
	events <-chan driver.Event
	rows   []row
	byPath map[string]*row
	phase  string
	width  int
	done   bool

	spin spinner.Model
	bar  progress.Model
	st   styles
}

type eventMsg driver.Event
type doneMsg struct{}

// NewProgressModel follows the events of one driver.Analyze run until the
// channel closes. Repeated paths in files are shown once.
func NewProgressModel(title string, files []string, events <-chan driver.Event) tea.Model {
	m := &progressModel{
		title:  title,
		events: events,
		byPath: make(map[string]*row, len(files)),
		width:  80,
		spin:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(76)),
		st:     newStyles(),
	}
	m.spin.Style = m.st.busy
	for _, f := range files {
		if _, dup := m.byPath[f]; !dup {
			m.byPath[f] = nil
			m.rows = append(m.rows, row{path: f, label: "queued"})
		}
	}
	for i := range m.rows {
		m.byPath[m.rows[i].path] = &m.rows[i]
	}
	return m
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.next)
}

// next waits for the following driver event.
func (m *progressModel) next() tea.Msg {
	ev, ok := <-m.events
	if !ok {
		return doneMsg{}
	}
	return eventMsg(ev)
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case eventMsg:
		cmd = tea.Batch(m.apply(driver.Event(msg)), m.next)
	case doneMsg:
		m.done = true
		cmd = tea.Quit
	case spinner.TickMsg:
		if !m.done {
			m.spin, cmd = m.spin.Update(msg)
		}
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = msg.Width - 4
		}
	case progress.FrameMsg:
		var bar tea.Model
		bar, cmd = m.bar.Update(msg)
		m.bar = bar.(progress.Model)
	}
	return m, cmd
}

func (m *progressModel) apply(ev driver.Event) tea.Cmd {
	if ev.File == "" {
		if ev.Status == driver.StatusWorking {
			m.phase = stageLabel(ev.Stage)
		}
		return nil
	}
	r := m.byPath[ev.File]
	if r == nil || r.err != nil {
		return nil
	}
	r.label = statusLabel(ev.Stage, ev.Status)
	r.share = max(r.share, share(ev.Stage, ev.Status))
	if ev.Status == driver.StatusError {
		r.err = ev.Err
		if r.err == nil {
			r.err = fmt.Errorf("%s failed", ev.Stage)
		}
	}
	return m.bar.SetPercent(m.percent())
}

func (m *progressModel) percent() float64 {
	if len(m.rows) == 0 {
		return 0
	}
	var sum float64
	for i := range m.rows {
		sum += m.rows[i].share
	}
	return sum / float64(len(m.rows))
}

func (m *progressModel) View() string {
	if len(m.rows) == 0 {
		return ""
	}
	head := m.title
	if m.phase != "" {
		head += " (" + m.phase + ")"
	}
	if m.done {
		head = "done: " + head
	} else {
		head = m.spin.View() + " " + head
	}

	var b strings.Builder
	b.WriteString(m.st.title.Render(head) + "\n\n")
	const labelWidth = 10
	pathWidth := max(m.width-labelWidth-4, 20)
	finished := 0
	var failed []*row
	for i := range m.rows {
		r := &m.rows[i]
		if r.finished() {
			finished++
		}
		if r.err != nil {
			failed = append(failed, r)
		}
		label := m.st.status(r.label).Render(fmt.Sprintf("%*s", labelWidth, r.label))
		fmt.Fprintf(&b, "  %s %s\n", label, truncate(r.path, pathWidth))
	}
	b.WriteString("\n")
	pct := m.percent()
	if m.done {
		pct = 1
	}
	b.WriteString(m.bar.ViewAs(pct) + "\n")
	b.WriteString(m.st.dim.Render(fmt.Sprintf("%d/%d files", finished, len(m.rows))) + "\n")
	for _, r := range failed {
		b.WriteString(m.st.bad.Render(truncate(r.path+": "+r.err.Error(), m.width-2)) + "\n")
	}
	return b.String()
}

// weights holds the share of a file's work behind it once a stage starts
// and once it finishes. Emission covers the module, not single files.
var weights = map[driver.Stage][2]float64{
	driver.StageRead:    {0.05, 0.15},
	driver.StageLower:   {0.2, 0.35},
	driver.StageResolve: {0.5, 1},
}

func share(stage driver.Stage, status driver.Status) float64 {
	switch status {
	case driver.StatusQueued:
		return 0
	case driver.StatusError, driver.StatusCached:
		return 1
	}
	w, ok := weights[stage]
	if !ok {
		return 1
	}
	if status == driver.StatusDone {
		return w[1]
	}
	return w[0]
}

var (
	workingLabels = map[driver.Stage]string{
		driver.StageRead:    "reading",
		driver.StageLower:   "lowering",
		driver.StageResolve: "resolving",
		driver.StageEmit:    "emitting",
	}
	doneLabels = map[driver.Stage]string{
		driver.StageRead:  "read",
		driver.StageLower: "lowered",
	}
)

func statusLabel(stage driver.Stage, status driver.Status) string {
	switch status {
	case driver.StatusWorking:
		return stageLabel(stage)
	case driver.StatusDone:
		if l, ok := doneLabels[stage]; ok {
			return l
		}
		return "done"
	}
	return string(status)
}

func stageLabel(stage driver.Stage) string {
	if l, ok := workingLabels[stage]; ok {
		return l
	}
	return string(stage)
}

// truncate shortens s to width terminal cells, ending in "..." when there
// is room for it. A non-positive width keeps s.
func truncate(s string, width int) string {
	switch {
	case width <= 0 || runewidth.StringWidth(s) <= width:
		return s
	case width <= 3:
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}
