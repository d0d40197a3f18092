// Package tui is the terminal shell for a local player controller.
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/trantuankiet11884/novel-audio/internal/domain"
	"github.com/trantuankiet11884/novel-audio/internal/player"
)

const (
	// RateStep is the change applied by one rate key press.
	RateStep = 0.25

	transientErrorDelay = 5 * time.Second
	contextSentences    = 2
	defaultWidth        = 80
)

// Player is the controller surface the shell drives.
type Player interface {
	SelectChapter(index int) error
	PlayPause() error
	SkipForward() error
	SkipBack() error
	NextChapter() error
	PrevChapter() error
	SetVoice(voiceID string) error
	SetRate(rate float64) error
	Snapshot() domain.PlayerSnapshot
	ChapterText() (chapterIndex int, segments []string)
}

var _ Player = (*player.Controller)(nil)

// Options configure a Model.
type Options struct {
	StartChapter int
	MinRate      float64
	MaxRate      float64
}

// Model is the root bubbletea model for the terminal player.
type Model struct {
	player Player
	events <-chan player.Event
	opts   Options

	snap     domain.PlayerSnapshot
	segments []string
	// chapter the segments belong to, -1 before the first load
	segmentsChapter int

	errorMessage   string
	errorTransient bool

	width    int
	height   int
	quitting bool
}

// New creates a Model reading controller notifications from events.
func New(p Player, events <-chan player.Event, opts Options) Model {
	if opts.MinRate <= 0 {
		opts.MinRate = player.DefaultConfig().MinRate
	}
	if opts.MaxRate <= 0 {
		opts.MaxRate = player.DefaultConfig().MaxRate
	}
	return Model{
		player:          p,
		events:          events,
		opts:            opts,
		snap:            p.Snapshot(),
		segmentsChapter: -1,
	}
}

// Forward returns an event listener that feeds ch without blocking the
// controller. Every event carries a full snapshot, so a dropped one is
// superseded by the next.
func Forward(ch chan<- player.Event) func(player.Event) {
	return func(ev player.Event) {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Init loads the starting chapter and begins listening for events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		commandCmd(func() error { return m.player.SelectChapter(m.opts.StartChapter) }),
		waitForEventCmd(m.events),
	)
}

// Quitting reports whether the user asked to leave.
func (m Model) Quitting() bool {
	return m.quitting
}

// waitForEventCmd reads the next controller notification.
func waitForEventCmd(events <-chan player.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return EventsClosedMsg{}
		}
		return PlayerEventMsg{Event: ev}
	}
}

// commandCmd runs a controller command off the update loop.
func commandCmd(fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return CommandErrorMsg{Err: err}
		}
		return nil
	}
}

// clearTransientErrorCmd fires after a delay to clear transient errors.
func clearTransientErrorCmd() tea.Cmd {
	return tea.Tick(transientErrorDelay, func(time.Time) tea.Msg {
		return ClearTransientErrorMsg{}
	})
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case PlayerEventMsg:
		m.applyEvent(msg.Event)
		return m, waitForEventCmd(m.events)

	case EventsClosedMsg:
		return m, nil

	case CommandErrorMsg:
		m.errorMessage = msg.Err.Error()
		m.errorTransient = true
		return m, clearTransientErrorCmd()

	case ClearTransientErrorMsg:
		if m.errorTransient {
			m.errorMessage = ""
			m.errorTransient = false
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) applyEvent(ev player.Event) {
	m.snap = ev.Snapshot

	switch ev.Type {
	case player.EventError:
		if ev.Err != nil {
			m.errorMessage = ev.Err.Error()
			m.errorTransient = false
		}
	case player.EventChapterChanged:
		m.segments = nil
		m.segmentsChapter = -1
		m.errorMessage = ""
	}

	// Display segments arrive with the first ready state of a chapter.
	if m.segmentsChapter != m.snap.State.ChapterIndex && !m.snap.State.IsLoading {
		chapter, segs := m.player.ChapterText()
		if chapter == m.snap.State.ChapterIndex && len(segs) > 0 {
			m.segments = segs
			m.segmentsChapter = chapter
		}
	}
}

// handleKey maps a key press to a controller command.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		m.quitting = true
		return m, tea.Quit

	case KeySpace:
		return m, commandCmd(m.player.PlayPause)

	case KeyRight:
		return m, commandCmd(m.player.SkipForward)

	case KeyLeft:
		return m, commandCmd(m.player.SkipBack)

	case KeyNextChapter:
		return m, commandCmd(m.player.NextChapter)

	case KeyPrevChapter:
		return m, commandCmd(m.player.PrevChapter)

	case KeyCycleVoice:
		next := domain.NextVoice(m.snap.State.SelectedVoice).ID
		return m, commandCmd(func() error { return m.player.SetVoice(next) })

	case KeyRateUp, KeyRateUpAlt:
		return m, m.rateCmd(RateStep)

	case KeyRateDown:
		return m, m.rateCmd(-RateStep)
	}

	return m, nil
}

// rateCmd steps the playback rate, staying inside the allowed range.
func (m Model) rateCmd(delta float64) tea.Cmd {
	current := m.snap.State.PlaybackRate
	next := math.Round((current+delta)/RateStep) * RateStep
	next = min(max(next, m.opts.MinRate), m.opts.MaxRate)
	if next == current {
		return nil
	}
	return commandCmd(func() error { return m.player.SetRate(next) })
}

// View renders the player.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	width := m.width
	if width <= 0 {
		width = defaultWidth
	}
	inner := max(width-4, 20)

	var b strings.Builder

	title := m.snap.Novel.Title
	if title == "" {
		title = m.snap.Novel.ID
	}
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("  ")
	b.WriteString(ChapterStyle.Render(fmt.Sprintf("Chapter %d/%d",
		m.snap.State.ChapterIndex+1, max(m.snap.Novel.TotalChapters, 1))))
	b.WriteString("\n\n")

	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(renderProgress(m.snap.State.CurrentTime, m.snap.State.Duration, inner-16))
	b.WriteString(" ")
	b.WriteString(StatusStyle.Render(fmt.Sprintf("%s / %s",
		formatClock(m.snap.State.CurrentTime), formatClock(m.snap.State.Duration))))
	b.WriteString("\n\n")

	if text := m.renderText(inner); text != "" {
		b.WriteString(text)
		b.WriteString("\n\n")
	}

	if m.errorMessage != "" {
		b.WriteString(ErrorTextStyle.Render(m.errorMessage))
		b.WriteString("\n\n")
	}

	b.WriteString(renderFooter())

	return FrameStyle.Render(b.String())
}

func (m Model) renderStatus() string {
	var status string
	switch {
	case m.snap.State.IsLoading:
		status = LoadingStyle.Render("◌ loading")
	case m.snap.State.IsPlaying:
		status = PlayingStyle.Render("▶ playing")
	default:
		status = StatusStyle.Render("⏸ " + string(m.snap.Status))
	}

	voice := m.snap.State.SelectedVoice
	if v, ok := domain.LookupVoice(voice); ok {
		voice = v.Name
	}

	segment := ""
	if m.snap.SegmentCount > 0 {
		segment = fmt.Sprintf("  part %d/%d", m.snap.SegmentIndex+1, m.snap.SegmentCount)
	}

	return status + StatusStyle.Render(fmt.Sprintf("  voice %s  rate %.2fx%s", voice, m.snap.State.PlaybackRate, segment))
}

// renderText shows the sentence nearest the playhead with a little context.
func (m Model) renderText(width int) string {
	if len(m.segments) == 0 {
		return ""
	}
	cur := m.currentSentence()
	lo := max(cur-contextSentences, 0)
	hi := min(cur+contextSentences+1, len(m.segments))

	wrap := lipgloss.NewStyle().Width(width)
	lines := make([]string, 0, hi-lo)
	for i := lo; i < hi; i++ {
		style := DimStyle
		if i == cur {
			style = CurrentSentenceStyle
		}
		lines = append(lines, style.Inherit(wrap).Render(m.segments[i]))
	}
	return strings.Join(lines, "\n")
}

// currentSentence estimates which display sentence is being spoken from the
// position within the chapter's synthesis segments.
func (m Model) currentSentence() int {
	if m.snap.SegmentCount == 0 || len(m.segments) == 0 {
		return 0
	}
	within := 0.0
	if m.snap.State.Duration > 0 {
		within = m.snap.State.CurrentTime / m.snap.State.Duration
	}
	fraction := (float64(m.snap.SegmentIndex) + within) / float64(m.snap.SegmentCount)
	idx := int(fraction * float64(len(m.segments)))
	return min(max(idx, 0), len(m.segments)-1)
}

func renderProgress(current, duration float64, width int) string {
	width = max(width, 10)
	filled := 0
	if duration > 0 {
		filled = int(math.Round(current / duration * float64(width)))
		filled = min(max(filled, 0), width)
	}
	return ProgressFillStyle.Render(strings.Repeat("━", filled)) +
		ProgressEmptyStyle.Render(strings.Repeat("─", width-filled))
}

func renderFooter() string {
	keys := []struct{ key, desc string }{
		{"space", "play/pause"},
		{"←/→", "skip"},
		{"[/]", "chapter"},
		{"v", "voice"},
		{"+/-", "rate"},
		{"q", "quit"},
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, FooterKeyStyle.Render(k.key)+" "+FooterDescStyle.Render(k.desc))
	}
	return strings.Join(parts, "  ")
}

// formatClock renders seconds as m:ss.
func formatClock(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
