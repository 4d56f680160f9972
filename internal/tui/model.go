package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/adiwenz/crescendo-sub001/internal/exercise"
	"github.com/adiwenz/crescendo-sub001/internal/model"
	"github.com/adiwenz/crescendo-sub001/internal/sequence"
	"github.com/adiwenz/crescendo-sub001/internal/session"
	"github.com/adiwenz/crescendo-sub001/internal/store"
)

var (
	onStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	nearStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	offStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	targetStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	glideStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	laneAxisStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	countdownStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	resultStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
)

const tickEvery = 50 * time.Millisecond

type tickMsg time.Time

// Model implements the Bubble Tea practice UI. It polls the session
// controller on a fixed tick and never blocks in Update.
type Model struct {
	controller *session.Controller
	store      *store.Store
	cfg        model.SessionConfig
	ex         exercise.Exercise
	seq        sequence.Result

	// OnFinish is invoked once per completed take, for persistence.
	OnFinish func(session.Outcome)

	width  int
	height int

	trace         []model.PitchFrame
	lastFrameTime float64
	outcome       *session.Outcome
	statusErr     string

	lastScore float64
	bestScore float64
	hasLast   bool
}

// NewModel constructs a practice TUI model.
func NewModel(controller *session.Controller, st *store.Store, cfg model.SessionConfig, ex exercise.Exercise, seq sequence.Result) *Model {
	m := &Model{
		controller: controller,
		store:      st,
		cfg:        cfg,
		ex:         ex,
		seq:        seq,
	}
	m.loadFooterStats()
	return m
}

// Init implements tea.Model. The session starts immediately.
func (m *Model) Init() tea.Cmd {
	if err := m.controller.Start(); err != nil {
		m.statusErr = err.Error()
	}
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(tickEvery, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		m.poll()
		return m, tick()
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.finish()
			m.controller.Teardown()
			return m, tea.Quit
		case "x", "esc":
			if m.replaying() {
				m.stopReplay()
			} else {
				m.finish()
			}
			return m, nil
		case "r":
			m.replay()
			return m, nil
		case "s":
			m.restart()
			return m, nil
		default:
			return m, nil
		}
	default:
		return m, nil
	}
}

// poll pulls the latest controller snapshot into the view state.
func (m *Model) poll() {
	snap := m.controller.Snapshot()
	if snap.HasFrame && snap.LastFrame.Time > m.lastFrameTime {
		m.lastFrameTime = snap.LastFrame.Time
		m.trace = append(m.trace, snap.LastFrame)
		m.trimTrace(snap.Now)
	}
	if snap.Phase == model.PhaseFinished && m.outcome == nil {
		m.finish()
	}
}

// trimTrace drops frames that scrolled out of the lane window.
func (m *Model) trimTrace(now float64) {
	cutoff := now - laneWindowSec
	i := 0
	for i < len(m.trace) && m.trace[i].Time < cutoff {
		i++
	}
	if i > 0 {
		m.trace = m.trace[i:]
	}
}

func (m *Model) finish() {
	if m.outcome != nil {
		return
	}
	outcome, err := m.controller.Stop()
	if err != nil {
		m.statusErr = err.Error()
		return
	}
	m.outcome = &outcome
	if m.OnFinish != nil {
		m.OnFinish(outcome)
	}
	m.lastScore = outcome.Result.Overall
	m.hasLast = true
	if m.lastScore > m.bestScore {
		m.bestScore = m.lastScore
	}
}

func (m *Model) replaying() bool {
	return m.controller.Snapshot().Phase == model.PhaseReplay
}

// replay sweeps the finished take through the lane again.
func (m *Model) replay() {
	if m.outcome == nil || m.replaying() {
		return
	}
	if err := m.controller.Replay(); err != nil {
		m.statusErr = err.Error()
	}
}

func (m *Model) stopReplay() {
	if _, err := m.controller.Stop(); err != nil {
		m.statusErr = err.Error()
	}
}

func (m *Model) restart() {
	snap := m.controller.Snapshot()
	if snap.Phase != model.PhaseIdle && snap.Phase != model.PhaseFinished {
		return
	}
	m.trace = nil
	m.lastFrameTime = 0
	m.outcome = nil
	m.statusErr = ""
	if err := m.controller.Start(); err != nil {
		m.statusErr = err.Error()
	}
}

func (m *Model) loadFooterStats() {
	ctx := context.Background()
	best, err := m.store.BestScore(ctx, m.ex.CategoryID, m.cfg.Difficulty)
	if err != nil {
		logErrf("failed to load best score: %v\n", err)
		return
	}
	m.bestScore = best
	attempts, err := m.store.ListAttempts(ctx, model.StatsConfig{Category: m.ex.CategoryID})
	if err != nil {
		logErrf("failed to load attempt stats: %v\n", err)
		return
	}
	if len(attempts) > 0 {
		m.lastScore = attempts[len(attempts)-1].Score
		m.hasLast = true
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	snap := m.controller.Snapshot()

	header := m.renderHeader(snap)
	footer := m.renderFooter(snap)

	laneHeight := m.height - 3
	if laneHeight < 2 {
		return header + "\n" + footer
	}

	var body string
	switch {
	case snap.Phase == model.PhaseReplay && m.outcome != nil:
		lo, hi := m.laneRange()
		body = renderLane(m.seq.Notes, m.outcome.Frames, snap.Now, m.width, laneHeight, lo, hi)
	case m.outcome != nil:
		body = m.renderResult(laneHeight)
	default:
		lo, hi := m.laneRange()
		body = renderLane(m.seq.Notes, m.trace, snap.Now, m.width, laneHeight, lo, hi)
	}
	return header + "\n" + body + "\n" + footer
}

// laneRange pads the rendered midi span around the transposed sequence.
func (m *Model) laneRange() (int, int) {
	lo, hi := m.cfg.LowestMidi, m.cfg.HighestMidi
	specLo, specHi := m.ex.MidiRange()
	if specLo+m.seq.Transpose-2 > lo {
		lo = specLo + m.seq.Transpose - 2
	}
	if specHi+m.seq.Transpose+2 < hi {
		hi = specHi + m.seq.Transpose + 2
	}
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}

func (m *Model) renderHeader(snap session.Snapshot) string {
	title := fmt.Sprintf("%s [%s]", m.ex.Name, m.cfg.Difficulty)
	switch snap.Phase {
	case model.PhaseCountdown:
		remaining := m.cfg.LeadInSec - snap.Now
		if remaining < 0 {
			remaining = 0
		}
		return title + "  " + countdownStyle.Render(fmt.Sprintf("starting in %.0f…", remaining+0.5))
	case model.PhasePreloading:
		return title + "  " + countdownStyle.Render("preparing…")
	default:
		return title
	}
}

func (m *Model) renderResult(height int) string {
	o := m.outcome
	lines := []string{
		resultStyle.Render(fmt.Sprintf("Score %.1f  %s", o.Result.Overall, starsLine(o.Result.Stars))),
	}
	if o.Hold != nil {
		status := "not held"
		if o.Hold.Succeeded {
			status = "held"
		}
		lines = append(lines, fmt.Sprintf("Hold: best %.1fs (%s)", o.Hold.BestSec, status))
	}
	lines = append(lines, "", footerStyle.Render("r replay · s retry · q quit"))
	content := strings.Join(lines, "\n")
	return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, content)
}

func (m *Model) renderFooter(snap session.Snapshot) string {
	segments := []string{fmt.Sprintf("%s %.1f/%.1fs", snap.Phase, snap.Now, snap.TotalSec)}
	if m.hasLast {
		segments = append(segments, fmt.Sprintf("Last %.1f", m.lastScore))
	}
	if m.bestScore > 0 {
		segments = append(segments, fmt.Sprintf("Best %.1f", m.bestScore))
	}
	if m.statusErr != "" {
		segments = append(segments, "error: "+m.statusErr)
	}
	return footerStyle.Render(strings.Join(segments, "  ·  "))
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
