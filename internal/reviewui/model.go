// Package reviewui provides the Bubble Tea review interface.
package reviewui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/adiwenz/crescendo-sub001/internal/contour"
	"github.com/adiwenz/crescendo-sub001/internal/exercise"
	"github.com/adiwenz/crescendo-sub001/internal/model"
	"github.com/adiwenz/crescendo-sub001/internal/review"
	"github.com/adiwenz/crescendo-sub001/internal/scoring"
	"github.com/adiwenz/crescendo-sub001/internal/session"
	"github.com/adiwenz/crescendo-sub001/internal/stats"
	"github.com/adiwenz/crescendo-sub001/internal/store"
)

const (
	tabAttempts = iota
	tabSegments
	tabStats
)

const (
	plotHeight  = 10
	seekTimeout = 2 * time.Second
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	segmentStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	cardStyle       = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	modalStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
)

// Model implements the Bubble Tea review UI.
type Model struct {
	store   *store.Store
	cfg     model.StatsConfig
	catalog []exercise.Exercise
	player  session.Player

	// ArchiveDir holds compressed contour archives, tried when an attempt
	// row carries no contour.
	ArchiveDir string

	attempts []model.AttemptAggregate
	errMsg   string

	tabs         []string
	activeTab    int
	attemptTable table.Model
	segmentView  viewport.Model
	statsView    viewport.Model

	take        review.Take
	takeAttempt model.ExerciseAttempt
	segments    []model.TargetSegment
	segmentIdx  int
	replay      review.Replay

	offsetMode  bool
	offsetInput textinput.Model
	offsetError string

	width  int
	height int
}

// NewModel constructs a review UI model. player is optional; without one,
// segment jumps only report the seek position.
func NewModel(st *store.Store, cfg model.StatsConfig, catalog []exercise.Exercise, player session.Player, manualOffsetMs float64) *Model {
	m := &Model{
		store:   st,
		cfg:     cfg,
		catalog: catalog,
		player:  player,
		tabs:    []string{"Attempts", "Segments", "Stats"},
		replay:  review.Replay{ManualOffsetMs: manualOffsetMs},
	}
	m.initOffsetInput()
	m.segmentView = viewport.New(0, 0)
	m.statsView = viewport.New(0, 0)
	m.attemptTable = buildAttemptTable(nil, 0, 1)
	m.refreshAttempts()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || (!m.offsetMode && msg.String() == "q") {
			return m, tea.Quit
		}
		if m.offsetMode {
			return m.updateOffsetInput(msg)
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "o":
			return m.startOffsetInput()
		case "enter":
			return m.handleEnter()
		case "up", "k":
			if m.activeTab == tabSegments {
				m.moveSegment(-1)
				return m, nil
			}
		case "down", "j":
			if m.activeTab == tabSegments {
				m.moveSegment(1)
				return m, nil
			}
		}
		switch m.activeTab {
		case tabAttempts:
			var cmd tea.Cmd
			m.attemptTable, cmd = m.attemptTable.Update(msg)
			return m, cmd
		case tabSegments:
			var cmd tea.Cmd
			m.segmentView, cmd = m.segmentView.Update(msg)
			return m, cmd
		default:
			var cmd tea.Cmd
			m.statsView, cmd = m.statsView.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.offsetMode {
		return fitLines(m.renderOffsetModal(), m.width, m.height)
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) handleEnter() (tea.Model, tea.Cmd) {
	switch m.activeTab {
	case tabAttempts:
		m.loadSelectedAttempt()
		if !m.take.Empty() {
			m.activeTab = tabSegments
			m.renderTabContents()
		}
		return m, tea.ClearScreen
	case tabSegments:
		m.jumpToSegment()
		return m, nil
	default:
		return m, nil
	}
}

func (m *Model) refreshAttempts() {
	attempts, err := m.store.ListAttempts(context.Background(), m.cfg)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
	m.attempts = attempts
	width := m.width
	if width <= 0 {
		width = 80
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.attemptTable = buildAttemptTable(attempts, width, bodyHeight)
	m.renderTabContents()
}

// loadSelectedAttempt rebuilds the take behind the attempt table cursor.
// Segments without recorded audio are dropped before labeling.
func (m *Model) loadSelectedAttempt() {
	idx := m.attemptTable.Cursor()
	if idx < 0 || idx >= len(m.attempts) {
		return
	}
	// The table shows newest first; attempts are stored oldest first.
	agg := m.attempts[len(m.attempts)-1-idx]
	attempt, err := m.store.GetAttempt(context.Background(), agg.AttemptID)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
	m.takeAttempt = attempt
	m.take = review.FromAttempt(attempt)
	if m.take.Empty() && m.ArchiveDir != "" {
		m.take.Frames = contour.ReadArchive(m.ArchiveDir, attempt.ID)
	}
	m.segments = review.FilterSegments(m.take.Segments, m.take.Frames)
	m.segmentIdx = 0
}

func (m *Model) jumpToSegment() {
	if m.segmentIdx < 0 || m.segmentIdx >= len(m.segments) {
		return
	}
	seg := m.segments[m.segmentIdx]
	target := review.SeekTarget(seg)
	if m.player == nil {
		m.errMsg = fmt.Sprintf("no player; segment starts at %.1fs", target)
		return
	}
	if err := m.player.Seek(m.replay.ReferenceTime(target), seekTimeout); err != nil {
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
}

func (m *Model) moveSegment(delta int) {
	if len(m.segments) == 0 {
		return
	}
	next := m.segmentIdx + delta
	if next < 0 {
		next = 0
	}
	if next >= len(m.segments) {
		next = len(m.segments) - 1
	}
	m.segmentIdx = next
	m.renderTabContents()
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	if m.activeTab == tabAttempts {
		m.attemptTable.Focus()
	} else {
		m.attemptTable.Blur()
	}
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.segmentView.Width = m.width
	m.segmentView.Height = bodyHeight
	m.statsView.Width = m.width
	m.statsView.Height = bodyHeight
	m.attemptTable.SetWidth(m.width)
	m.attemptTable.SetHeight(maxInt(1, bodyHeight-1))
	promptWidth := lipgloss.Width(m.offsetInput.Prompt)
	m.offsetInput.Width = maxInt(10, modalInnerWidth(m.width)-promptWidth)
}

func (m *Model) renderTabContents() {
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.segmentView.SetContent(m.renderSegments())
	m.statsView.SetContent(m.renderStats(width))
}

func (m *Model) renderHeader() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	tabs := lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	summary := fmt.Sprintf("Offset: %+.0fms", m.replay.ManualOffsetMs+m.replay.SystemOffsetMs)
	if m.cfg.Category != "" {
		summary += "  category=" + m.cfg.Category
	}
	return padLines(tabs, m.width) + "\n" + headerStyle.Render(summary)
}

func (m *Model) renderBody() string {
	switch m.activeTab {
	case tabAttempts:
		if len(m.attempts) == 0 {
			return "No attempts found."
		}
		return tableMutedStyle.Render(m.attemptTable.View())
	case tabSegments:
		return m.segmentView.View()
	default:
		return m.statsView.View()
	}
}

func (m *Model) renderFooter() string {
	help := "Nav: left/right  Select: enter  Offset: o  Quit: q"
	if m.activeTab == tabSegments {
		help = "Nav: left/right  Segment: up/down  Jump: enter  Offset: o  Quit: q"
	}
	out := headerStyle.Render(help)
	if m.errMsg != "" {
		out += "\n" + errorStyle.Render(m.errMsg)
	}
	return out
}

// renderSegments lists the playable segments of the loaded take with their
// labels and seek targets.
func (m *Model) renderSegments() string {
	if m.take.Empty() {
		return "No take loaded. Select an attempt and press Enter."
	}
	ex, _ := exercise.FindByID(m.catalog, m.takeAttempt.ExerciseID)
	baseMidi, _ := ex.MidiRange()
	lines := []string{
		headerStyle.Render(fmt.Sprintf("%s · %s · recorded %.1fs",
			m.takeAttempt.ExerciseID,
			m.takeAttempt.CompletedAt.Format("2006-01-02 15:04"),
			review.RecordedEnd(m.take.Frames))),
		"",
	}
	if len(m.segments) == 0 {
		lines = append(lines, "No playable segments in this take.")
		return strings.Join(lines, "\n")
	}
	for i, seg := range m.segments {
		label := review.LabelSegment(ex.Family, m.take.Notes, seg, baseMidi)
		line := fmt.Sprintf("%2d. %-12s %.1fs → seek %.1fs", i+1, label, seg.StartSec, review.SeekTarget(seg))
		if i == m.segmentIdx {
			line = segmentStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderStats(width int) string {
	if len(m.attempts) == 0 {
		return "No attempts found."
	}
	var best, total float64
	for _, a := range m.attempts {
		total += a.Score
		if a.Score > best {
			best = a.Score
		}
	}
	count := float64(len(m.attempts))
	cards := []string{
		metricCard("Attempts", fmt.Sprintf("%d", len(m.attempts))),
		metricCard("Avg Score", fmt.Sprintf("%.1f", total/count)),
		metricCard("Best Score", fmt.Sprintf("%.1f", best)),
	}
	var header string
	if width < 80 {
		header = strings.Join(cards, "\n")
	} else {
		header = lipgloss.JoinHorizontal(lipgloss.Top, cards...)
	}

	scores := make([]float64, len(m.attempts))
	for i, a := range m.attempts {
		scores[i] = a.Score
	}
	window := m.cfg.CurveWindow
	if window <= 0 {
		window = 5
	}
	var buf bytes.Buffer
	if err := stats.PlotScores(&buf, "Score Curve", stats.MovingAverage(scores, window), stats.PlotWidthFor(width), plotHeight); err != nil {
		return header + "\n" + fmt.Sprintf("Failed to render curve: %v", err)
	}
	return strings.TrimRight(header+"\n\n"+buf.String(), "\n")
}

func (m *Model) initOffsetInput() {
	m.offsetInput = textinput.New()
	m.offsetInput.Prompt = "Offset (ms): "
	m.offsetInput.Placeholder = "0"
	m.offsetInput.Cursor.SetMode(cursor.CursorBlink)
}

func (m *Model) startOffsetInput() (tea.Model, tea.Cmd) {
	m.offsetMode = true
	m.offsetError = ""
	m.offsetInput.SetValue(strconv.FormatFloat(m.replay.ManualOffsetMs, 'f', -1, 64))
	return m, m.offsetInput.Focus()
}

func (m *Model) updateOffsetInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.offsetMode = false
		m.offsetError = ""
		return m, nil
	case tea.KeyEnter:
		raw := strings.TrimSpace(m.offsetInput.Value())
		if raw == "" {
			raw = "0"
		}
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			m.offsetError = "invalid offset (use milliseconds)"
			return m, nil
		}
		m.replay.ManualOffsetMs = parsed
		m.offsetMode = false
		m.offsetError = ""
		return m, nil
	}
	var cmd tea.Cmd
	m.offsetInput, cmd = m.offsetInput.Update(msg)
	return m, cmd
}

func (m *Model) renderOffsetModal() string {
	title := cardValueStyle.Render("Reference Track Offset")
	body := []string{
		title,
		m.offsetInput.View(),
		headerStyle.Render("Positive delays the reference track. Recorded audio never shifts."),
		headerStyle.Render("Enter to apply / Esc to cancel"),
	}
	if m.offsetError != "" {
		body = append(body, errorStyle.Render(m.offsetError))
	}
	box := modalStyle.Width(modalWidth(m.width)).Render(strings.Join(body, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func buildAttemptTable(attempts []model.AttemptAggregate, width, height int) table.Model {
	columns := []table.Column{
		{Title: "When", Width: 16},
		{Title: "Exercise", Width: 18},
		{Title: "Difficulty", Width: 10},
		{Title: "Score", Width: 6},
		{Title: "Stars", Width: 5},
	}
	rows := make([]table.Row, 0, len(attempts))
	// Newest first in the table.
	for i := len(attempts) - 1; i >= 0; i-- {
		a := attempts[i]
		rows = append(rows, table.Row{
			a.CompletedAt.Local().Format("2006-01-02 15:04"),
			a.ExerciseID,
			a.Difficulty.String(),
			fmt.Sprintf("%.1f", a.Score),
			fmt.Sprintf("%d", scoring.Stars(a.Score)),
		})
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(maxInt(1, height-1)),
		table.WithFocused(true),
	)
	t.SetWidth(width)
	t.SetStyles(attemptTableStyles())
	return t
}

func attemptTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func modalWidth(width int) int {
	return maxInt(40, minInt(width-4, 80))
}

func modalInnerWidth(width int) int {
	w := modalWidth(width)
	w -= 6 // 2 border + 4 padding
	if w < 10 {
		return 10
	}
	return w
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}
