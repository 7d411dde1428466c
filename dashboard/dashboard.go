// Package dashboard provides an interactive TUI for stepping a trace
// through an engine.Engine one access at a time, modeled on the
// teacher's cpu.Debug/model (hejops-gone/cpu/debugger.go). Not part of
// the spec's core (SPEC_FULL.md §1); it exists purely so the engine is
// exercisable and observable by a human.
package dashboard

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/davecgh/go-spew/spew"

	"github.com/ramyadhadidi/DPC2/engine"
	"github.com/ramyadhadidi/DPC2/heuristic"
	"github.com/ramyadhadidi/DPC2/refhost"
	"github.com/ramyadhadidi/DPC2/trace"
)

const cpuNum int32 = 0

type model struct {
	eng   *engine.Engine
	host  *refhost.Host
	trace *trace.Reader

	last     trace.Access
	step     int
	err      error
	done     bool
	prevFill int
}

// Init loads nothing up front — the trace reader is already positioned
// at its first record — and initializes the engine's CPU 0, matching
// the teacher's Init calling LoadProgram before the first tick.
func (m model) Init() tea.Cmd {
	m.eng.Initialize(cpuNum, m.host)
	return nil
}

// Update steps one trace record per space/"j" keypress, exactly the
// teacher's single-step control scheme.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q":
			return m, tea.Quit

		case " ", "j":
			if m.done {
				return m, nil
			}
			access, err := m.trace.Next()
			if err != nil {
				m.done = true
				return m, nil
			}
			m.last = access
			m.prevFill = len(m.host.Fills())
			m.host.RecordDemand(access.Addr)
			if err := m.eng.Operate(cpuNum, access.Addr, access.IP, access.CacheHit, m.host); err != nil {
				m.err = err
				return m, tea.Quit
			}
			m.step++
		}
	}
	return m, nil
}

// fillsSinceLastStep renders the prefetches issued by the most recent
// Operate call, if any.
func (m model) fillsSinceLastStep() string {
	fills := m.host.Fills()
	if m.prevFill >= len(fills) {
		return "(none)"
	}
	var lines []string
	for _, f := range fills[m.prevFill:] {
		lines = append(lines, fmt.Sprintf("  -> %#x [%s]", f.Addr, f.Level))
	}
	return strings.Join(lines, "\n")
}

func (m model) status() string {
	return fmt.Sprintf(`
step: %d
cycle: %d | ip: %#x | addr: %#x | hit: %t
active heuristic: %s
scores: %v
accuracy so far: %.2f
issued this step:
%s
`,
		m.step,
		m.last.Cycle, m.last.IP, m.last.Addr, m.last.CacheHit,
		m.eng.Active(cpuNum),
		m.eng.Scores(cpuNum),
		m.host.Accuracy(),
		m.fillsSinceLastStep(),
	)
}

func (m model) scoreBars() string {
	scores := m.eng.Scores(cpuNum)
	var b strings.Builder
	for i := 0; i < heuristic.NSandbox; i++ {
		id := heuristic.ID(i)
		marker := "  "
		if id == m.eng.Active(cpuNum) {
			marker = "* "
		}
		fmt.Fprintf(&b, "%s%-10s %s\n", marker, id, strings.Repeat("#", clampBar(scores[i])))
	}
	return b.String()
}

func clampBar(score int) int {
	if score > 40 {
		return 40
	}
	if score < 0 {
		return 0
	}
	return score
}

// View renders the dashboard: the status block, a per-heuristic score
// bar chart, and a go-spew dump of every fill issued so far, mirroring the
// teacher's page-table + status + spew.Sdump layout.
func (m model) View() string {
	if m.err != nil {
		return fmt.Sprintf("fatal: %v\n", m.err)
	}
	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.status(),
		m.scoreBars(),
		"",
		spew.Sdump(m.host.Fills()),
	)
}

// Run loads tr through eng/h interactively, starting a bubbletea TUI the
// user steps with space/"j" and exits with "q". Mirrors Cpu.Debug's
// shape: construct the model, run the program, surface any terminal
// error once the TUI exits.
func Run(eng *engine.Engine, h *refhost.Host, tr *trace.Reader) error {
	final, err := tea.NewProgram(model{eng: eng, host: h, trace: tr}).Run()
	if err != nil {
		return err
	}
	m := final.(model)
	return m.err
}
