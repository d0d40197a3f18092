package tui

import (
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trantuankiet11884/novel-audio/internal/domain"
	"github.com/trantuankiet11884/novel-audio/internal/player"
)

type fakePlayer struct {
	mu       sync.Mutex
	calls    []string
	voice    string
	rate     float64
	chapter  int
	snap     domain.PlayerSnapshot
	segments []string
	err      error
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{
		snap: domain.PlayerSnapshot{
			ID:     "ply-1",
			Novel:  domain.Novel{ID: "n7", Title: "Test Novel", TotalChapters: 3},
			Status: domain.StatusIdle,
			State:  domain.PlaybackState{SelectedVoice: domain.DefaultVoice().ID, PlaybackRate: 1},
		},
	}
}

func (f *fakePlayer) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakePlayer) SelectChapter(index int) error {
	f.chapter = index
	return f.record("select")
}
func (f *fakePlayer) PlayPause() error   { return f.record("play_pause") }
func (f *fakePlayer) SkipForward() error { return f.record("skip_forward") }
func (f *fakePlayer) SkipBack() error    { return f.record("skip_back") }
func (f *fakePlayer) NextChapter() error { return f.record("next") }
func (f *fakePlayer) PrevChapter() error { return f.record("prev") }
func (f *fakePlayer) SetVoice(voiceID string) error {
	f.voice = voiceID
	return f.record("voice")
}
func (f *fakePlayer) SetRate(rate float64) error {
	f.rate = rate
	return f.record("rate")
}
func (f *fakePlayer) Snapshot() domain.PlayerSnapshot { return f.snap }
func (f *fakePlayer) ChapterText() (int, []string) {
	return f.snap.State.ChapterIndex, f.segments
}

func (f *fakePlayer) lastCall() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return ""
	}
	return f.calls[len(f.calls)-1]
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func press(t *testing.T, m Model, key tea.KeyMsg) (Model, tea.Msg) {
	t.Helper()
	updated, cmd := m.Update(key)
	model := updated.(Model)
	if cmd == nil {
		return model, nil
	}
	return model, cmd()
}

func TestNewModel(t *testing.T) {
	p := newFakePlayer()
	m := New(p, make(chan player.Event), Options{})

	assert.Equal(t, "n7", m.snap.Novel.ID)
	assert.Equal(t, -1, m.segmentsChapter)
	assert.InDelta(t, 0.5, m.opts.MinRate, 0.0001)
	assert.InDelta(t, 3.0, m.opts.MaxRate, 0.0001)
	assert.False(t, m.Quitting())
}

func TestKeyBindings(t *testing.T) {
	tests := []struct {
		name string
		key  tea.KeyMsg
		want string
	}{
		{"space toggles", tea.KeyMsg{Type: tea.KeySpace}, "play_pause"},
		{"right skips forward", tea.KeyMsg{Type: tea.KeyRight}, "skip_forward"},
		{"left skips back", tea.KeyMsg{Type: tea.KeyLeft}, "skip_back"},
		{"bracket next", runeKey(']'), "next"},
		{"bracket prev", runeKey('['), "prev"},
		{"v cycles voice", runeKey('v'), "voice"},
		{"plus raises rate", runeKey('+'), "rate"},
		{"equals raises rate", runeKey('='), "rate"},
		{"minus lowers rate", runeKey('-'), "rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakePlayer()
			m := New(p, make(chan player.Event), Options{})

			_, msg := press(t, m, tt.key)
			assert.Nil(t, msg)
			assert.Equal(t, tt.want, p.lastCall())
		})
	}
}

func TestVoiceCyclesCatalog(t *testing.T) {
	p := newFakePlayer()
	m := New(p, make(chan player.Event), Options{})

	press(t, m, runeKey('v'))
	assert.Equal(t, domain.Voices[1].ID, p.voice)
}

func TestRateSteps(t *testing.T) {
	p := newFakePlayer()
	m := New(p, make(chan player.Event), Options{})

	press(t, m, runeKey('+'))
	assert.InDelta(t, 1.25, p.rate, 0.0001)

	press(t, m, runeKey('-'))
	assert.InDelta(t, 0.75, p.rate, 0.0001)
}

func TestRateClampedAtBounds(t *testing.T) {
	p := newFakePlayer()
	p.snap.State.PlaybackRate = 3
	m := New(p, make(chan player.Event), Options{})

	_, cmd := m.Update(runeKey('+'))
	assert.Nil(t, cmd, "no command at the upper bound")
	assert.Empty(t, p.calls)

	p.snap.State.PlaybackRate = 0.5
	m = New(p, make(chan player.Event), Options{})
	_, cmd = m.Update(runeKey('-'))
	assert.Nil(t, cmd)
}

func TestQuit(t *testing.T) {
	for _, key := range []tea.KeyMsg{runeKey('q'), runeKey('Q'), {Type: tea.KeyCtrlC}} {
		m := New(newFakePlayer(), make(chan player.Event), Options{})

		updated, cmd := m.Update(key)
		model := updated.(Model)
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
		assert.True(t, model.Quitting())
		assert.Empty(t, model.View())
	}
}

func TestCommandErrorIsTransient(t *testing.T) {
	p := newFakePlayer()
	p.err = errors.New("player is loading")
	m := New(p, make(chan player.Event), Options{})

	m, msg := press(t, m, tea.KeyMsg{Type: tea.KeySpace})
	require.IsType(t, CommandErrorMsg{}, msg)

	updated, cmd := m.Update(msg)
	m = updated.(Model)
	assert.NotNil(t, cmd)
	assert.Equal(t, "player is loading", m.errorMessage)
	assert.Contains(t, m.View(), "player is loading")

	updated, _ = m.Update(ClearTransientErrorMsg{})
	assert.Empty(t, updated.(Model).errorMessage)
}

func TestInitSelectsStartChapter(t *testing.T) {
	p := newFakePlayer()
	events := make(chan player.Event, 1)
	m := New(p, events, Options{StartChapter: 2})

	require.NotNil(t, m.Init())
	// The batch runs concurrently under a real program; run the load directly.
	msg := commandCmd(func() error { return p.SelectChapter(m.opts.StartChapter) })()
	assert.Nil(t, msg)
	assert.Equal(t, 2, p.chapter)
}

func TestPlayerEventLoadsSegments(t *testing.T) {
	p := newFakePlayer()
	p.segments = []string{"First sentence of the chapter.", "Second sentence follows here."}
	events := make(chan player.Event, 1)
	m := New(p, events, Options{})

	loading := p.snap
	loading.Status = domain.StatusLoading
	loading.State.IsLoading = true
	updated, cmd := m.Update(PlayerEventMsg{Event: player.Event{Type: player.EventState, Snapshot: loading}})
	m = updated.(Model)
	assert.NotNil(t, cmd, "keeps listening")
	assert.Empty(t, m.segments, "segments wait for the load to finish")

	ready := p.snap
	ready.Status = domain.StatusReady
	ready.SegmentCount = 1
	updated, _ = m.Update(PlayerEventMsg{Event: player.Event{Type: player.EventState, Snapshot: ready}})
	m = updated.(Model)
	assert.Equal(t, p.segments, m.segments)
	assert.Equal(t, 0, m.segmentsChapter)
	assert.Contains(t, m.View(), "First sentence of the chapter.")
}

func TestSegmentsFromAnotherChapterAreIgnored(t *testing.T) {
	p := newFakePlayer()
	p.segments = []string{"Text of the chapter that just started loading."}
	m := New(p, make(chan player.Event), Options{})

	// The event describes chapter 0 while the player has moved on to chapter 1.
	stale := p.snap
	p.snap.State.ChapterIndex = 1
	updated, _ := m.Update(PlayerEventMsg{Event: player.Event{Type: player.EventState, Snapshot: stale}})
	m = updated.(Model)
	assert.Empty(t, m.segments)
	assert.Equal(t, -1, m.segmentsChapter)
}

func TestChapterChangeResetsSegments(t *testing.T) {
	p := newFakePlayer()
	p.segments = []string{"Old chapter text that is long enough."}
	m := New(p, make(chan player.Event), Options{})
	updated, _ := m.Update(PlayerEventMsg{Event: player.Event{Type: player.EventState, Snapshot: p.snap}})
	m = updated.(Model)
	require.NotEmpty(t, m.segments)

	next := p.snap
	next.State.ChapterIndex = 1
	next.State.IsLoading = true
	updated, _ = m.Update(PlayerEventMsg{Event: player.Event{Type: player.EventChapterChanged, Snapshot: next}})
	m = updated.(Model)
	assert.Empty(t, m.segments)
	assert.Equal(t, -1, m.segmentsChapter)
	assert.Contains(t, m.View(), "Chapter 2/3")
}

func TestPlayerErrorIsSticky(t *testing.T) {
	p := newFakePlayer()
	m := New(p, make(chan player.Event), Options{})

	updated, _ := m.Update(PlayerEventMsg{Event: player.Event{
		Type:     player.EventError,
		Snapshot: p.snap,
		Err:      errors.New("fetch failed"),
	}})
	m = updated.(Model)
	updated, _ = m.Update(ClearTransientErrorMsg{})
	assert.Equal(t, "fetch failed", updated.(Model).errorMessage)
}

func TestEventsClosed(t *testing.T) {
	events := make(chan player.Event)
	close(events)

	assert.IsType(t, EventsClosedMsg{}, waitForEventCmd(events)())
}

func TestForwardNeverBlocks(t *testing.T) {
	ch := make(chan player.Event, 1)
	fwd := Forward(ch)

	fwd(player.Event{Type: player.EventState})
	fwd(player.Event{Type: player.EventError})

	assert.Len(t, ch, 1)
	assert.Equal(t, player.EventState, (<-ch).Type)
}

func TestCurrentSentence(t *testing.T) {
	p := newFakePlayer()
	m := New(p, make(chan player.Event), Options{})
	m.segments = make([]string, 10)

	m.snap.SegmentCount = 2
	m.snap.SegmentIndex = 1
	m.snap.State.Duration = 100
	m.snap.State.CurrentTime = 50
	assert.Equal(t, 7, m.currentSentence())

	m.snap.State.CurrentTime = 100
	assert.Equal(t, 9, m.currentSentence())
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "0:00", formatClock(0))
	assert.Equal(t, "1:05", formatClock(65.9))
	assert.Equal(t, "0:00", formatClock(-3))
}

func TestView(t *testing.T) {
	p := newFakePlayer()
	p.snap.State.IsPlaying = true
	p.snap.State.Duration = 125
	p.snap.State.CurrentTime = 61
	p.snap.SegmentCount = 4
	m := New(p, make(chan player.Event), Options{})

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	view := updated.(Model).View()

	assert.Contains(t, view, "Test Novel")
	assert.Contains(t, view, "Chapter 1/3")
	assert.Contains(t, view, "playing")
	assert.Contains(t, view, "1:01 / 2:05")
	assert.Contains(t, view, "Hoai My")
	assert.Contains(t, view, "part 1/4")
}
