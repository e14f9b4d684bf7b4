package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/soma-recovery/internal/handlers"
	"github.com/jwebster45206/soma-recovery/pkg/engine"
	"github.com/jwebster45206/soma-recovery/pkg/library"
	"github.com/jwebster45206/soma-recovery/pkg/proximity"
	"github.com/jwebster45206/soma-recovery/pkg/state"
	"github.com/jwebster45206/soma-recovery/pkg/world"
)

// Terminals report key repeats, not key releases. A movement key counts as
// held until this long after its last repeat.
const keyHoldWindow = 300 * time.Millisecond

const noticeDuration = 4 * time.Second

type direction int

const (
	dirForward direction = iota
	dirBack
	dirLeft
	dirRight
)

type libraryStage int

const (
	libraryShelf libraryStage = iota
	libraryReading
	libraryQuiz
)

// ConsoleUI is the BubbleTea model that runs the game.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config *ConsoleConfig
	driver driver
	layout *world.Layout
	keys   keyMap
	help   help.Model

	dopamineBar   progress.Model
	healthBar     progress.Model
	confidenceBar progress.Model

	view   handlers.SessionResponse
	ready  bool
	width  int
	height int
	err    error

	held      map[direction]time.Time
	interact  bool
	lastFrame time.Time

	notice      string
	noticeUntil time.Time

	libStage  libraryStage
	bookIdx   int
	answerIdx int

	// Quit confirmation state
	showQuitModal bool
	pausedForQuit bool
}

type frameMsg time.Time

// snapshotMsg carries the initial view. Unlike frameResultMsg it does not
// schedule a frame, so only one tick loop ever runs.
type snapshotMsg struct {
	resp handlers.SessionResponse
	err  error
}

type frameResultMsg struct {
	resp handlers.SessionResponse
	err  error
}

type actionResultMsg struct {
	req  handlers.ActionRequest
	resp handlers.SessionResponse
	err  error
}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(12)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")). // green
			Bold(true)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")). // red
			Bold(true)

	hudPanelStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			PaddingTop(1)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

func newBar() progress.Model {
	return progress.New(progress.WithDefaultGradient(), progress.WithWidth(24))
}

func NewConsoleUI(cfg *ConsoleConfig, d driver, layout *world.Layout) ConsoleUI {
	return ConsoleUI{
		config:        cfg,
		driver:        d,
		layout:        layout,
		keys:          defaultKeyMap(),
		help:          help.New(),
		dopamineBar:   newBar(),
		healthBar:     newBar(),
		confidenceBar: newBar(),
		held:          make(map[direction]time.Time),
	}
}

func frameTick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(m.refresh(), frameTick(m.config.frameInterval()))
}

func (m ConsoleUI) refresh() tea.Cmd {
	return func() tea.Msg {
		resp, err := m.driver.Snapshot(context.Background())
		return snapshotMsg{resp: resp, err: err}
	}
}

func (m ConsoleUI) sendFrame(in engine.Input, dt float64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.config.Timeout)
		defer cancel()
		resp, err := m.driver.Frame(ctx, in, dt)
		return frameResultMsg{resp: resp, err: err}
	}
}

func (m ConsoleUI) sendAction(req handlers.ActionRequest) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.config.Timeout)
		defer cancel()
		resp, err := m.driver.Action(ctx, req)
		return actionResultMsg{req: req, resp: resp, err: err}
	}
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		return m, nil

	case frameMsg:
		now := time.Time(msg)
		dt := 0.0
		if !m.lastFrame.IsZero() {
			dt = now.Sub(m.lastFrame).Seconds()
		}
		m.lastFrame = now
		in := m.currentInput(now)
		m.interact = false
		return m, m.sendFrame(in, dt)

	case snapshotMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.applyView(msg.resp)
		}
		return m, nil

	case frameResultMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.applyView(msg.resp)
		}
		return m, frameTick(m.config.frameInterval())

	case actionResultMsg:
		if msg.err != nil {
			m.setNotice(msg.err.Error())
			return m, nil
		}
		m.applyView(msg.resp)
		if msg.resp.Result != nil {
			m.setNotice(actionNotice(msg.req, *msg.resp.Result))
		}
		return m, nil

	case tea.KeyMsg:
		if m.showQuitModal {
			return m.updateQuitModal(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *ConsoleUI) applyView(resp handlers.SessionResponse) {
	wasActive := m.view.State.Interaction.Active
	m.view = resp
	if resp.Frame != nil && resp.Frame.Trigger == proximity.TriggerTemptation {
		m.setNotice("An old friend offers you soma. You feel the pull.")
	}
	if !wasActive && resp.State.Interaction.Active {
		m.libStage = libraryShelf
		m.answerIdx = 0
	}
}

func (m *ConsoleUI) setNotice(text string) {
	if text == "" {
		return
	}
	m.notice = text
	m.noticeUntil = time.Now().Add(noticeDuration)
}

// currentInput samples the held movement keys for a frame at now.
func (m ConsoleUI) currentInput(now time.Time) engine.Input {
	held := func(d direction) bool {
		t, ok := m.held[d]
		return ok && now.Sub(t) <= keyHoldWindow
	}
	return engine.Input{
		Forward:  held(dirForward),
		Back:     held(dirBack),
		Left:     held(dirLeft),
		Right:    held(dirRight),
		Interact: m.interact,
	}
}

func (m ConsoleUI) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	gs := m.view.State

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.showQuitModal = true
		if gs.Phase == state.PhasePlaying {
			m.pausedForQuit = true
			return m, m.sendAction(handlers.ActionRequest{Action: handlers.ActionPause})
		}
		return m, nil
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	switch gs.Phase {
	case state.PhaseIntro:
		if key.Matches(msg, m.keys.Confirm) {
			return m, m.sendAction(handlers.ActionRequest{Action: handlers.ActionStart})
		}
		return m, nil
	case state.PhasePaused:
		if key.Matches(msg, m.keys.Pause, m.keys.Confirm) {
			return m, m.sendAction(handlers.ActionRequest{Action: handlers.ActionResume})
		}
		return m, nil
	}

	if gs.Interaction.Active {
		return m.handleInteractionKey(msg)
	}

	now := time.Now()
	switch {
	case key.Matches(msg, m.keys.Pause):
		return m, m.sendAction(handlers.ActionRequest{Action: handlers.ActionPause})
	case key.Matches(msg, m.keys.Interact):
		m.interact = true
	case key.Matches(msg, m.keys.Up):
		m.held[dirForward] = now
	case key.Matches(msg, m.keys.Down):
		m.held[dirBack] = now
	case key.Matches(msg, m.keys.Left):
		m.held[dirLeft] = now
	case key.Matches(msg, m.keys.Right):
		m.held[dirRight] = now
	}
	return m, nil
}

func (m ConsoleUI) handleInteractionKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	leave := handlers.ActionRequest{Action: handlers.ActionLeave}

	switch m.view.State.Interaction.Kind {
	case state.InteractionLibrary:
		return m.handleLibraryKey(msg)

	case state.InteractionExercise:
		switch {
		case key.Matches(msg, m.keys.Confirm):
			return m, m.sendAction(handlers.ActionRequest{Action: handlers.ActionExercise})
		case key.Matches(msg, m.keys.Back):
			return m, m.sendAction(leave)
		}

	case state.InteractionConversation:
		switch {
		case key.Matches(msg, m.keys.Confirm):
			return m, m.sendAction(handlers.ActionRequest{Action: handlers.ActionConverse})
		case key.Matches(msg, m.keys.Back):
			return m, m.sendAction(leave)
		}

	case state.InteractionTemptation:
		if key.Matches(msg, m.keys.Confirm) {
			return m, m.sendAction(handlers.ActionRequest{Action: handlers.ActionResist})
		}
	}
	return m, nil
}

func (m ConsoleUI) handleLibraryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	books := library.All()
	book := books[m.bookIdx]

	switch m.libStage {
	case libraryShelf:
		switch {
		case key.Matches(msg, m.keys.Up):
			m.bookIdx = (m.bookIdx - 1 + len(books)) % len(books)
		case key.Matches(msg, m.keys.Down):
			m.bookIdx = (m.bookIdx + 1) % len(books)
		case key.Matches(msg, m.keys.Confirm):
			m.libStage = libraryReading
		case key.Matches(msg, m.keys.Back):
			return m, m.sendAction(handlers.ActionRequest{Action: handlers.ActionLeave})
		}

	case libraryReading:
		switch {
		case key.Matches(msg, m.keys.Confirm):
			m.libStage = libraryQuiz
			m.answerIdx = 0
		case key.Matches(msg, m.keys.Back):
			m.libStage = libraryShelf
		}

	case libraryQuiz:
		n := len(book.Quiz.Options)
		switch {
		case key.Matches(msg, m.keys.Up):
			m.answerIdx = (m.answerIdx - 1 + n) % n
		case key.Matches(msg, m.keys.Down):
			m.answerIdx = (m.answerIdx + 1) % n
		case key.Matches(msg, m.keys.Confirm):
			m.libStage = libraryShelf
			return m, m.sendAction(handlers.ActionRequest{
				Action: handlers.ActionRead,
				BookID: book.ID,
				Answer: m.answerIdx,
			})
		case key.Matches(msg, m.keys.Back):
			m.libStage = libraryReading
		}
	}
	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "ctrl+c":
		return m, tea.Quit
	case "n", "N", "esc", "q":
		m.showQuitModal = false
		if m.pausedForQuit {
			m.pausedForQuit = false
			return m, m.sendAction(handlers.ActionRequest{Action: handlers.ActionResume})
		}
	}
	return m, nil
}

// actionNotice turns an action result into a line for the player.
func actionNotice(req handlers.ActionRequest, res handlers.ActionResult) string {
	switch res.Action {
	case handlers.ActionExercise:
		return "Workout complete. You feel stronger."
	case handlers.ActionConverse:
		if res.Success {
			return fmt.Sprintf("Good talk. You earned %s.", formatMoney(state.ConversationPay))
		}
		return "You're too distracted to hold a conversation."
	case handlers.ActionResist:
		if res.Success {
			return "You walked away. Dopamine +5."
		}
		return "You relapsed. Dopamine -30, and it cost you " + formatMoney(state.RelapseCost) + "."
	case handlers.ActionRead:
		switch engine.ReadOutcome(res.Outcome) {
		case engine.ReadCompleted:
			if b, err := library.Get(req.BookID); err == nil {
				return fmt.Sprintf("You finished %q. Dopamine +%.0f.", b.Title, state.ReadBookReward)
			}
			return "You finished the book."
		case engine.ReadAlreadyRead:
			return "You've already read this one."
		case engine.ReadWrongAnswer:
			return "That's not right. Read it again and retry."
		case engine.ReadTooDistracted:
			return "You can't focus on the words. Get some exercise first."
		}
	}
	return ""
}

func (m ConsoleUI) View() string {
	if !m.ready || m.width == 0 || m.height == 0 {
		return "\n  Initializing..."
	}

	if m.showQuitModal {
		return m.renderQuitModal()
	}

	gs := m.view.State
	switch {
	case gs.Phase == state.PhaseIntro:
		return m.renderIntroModal()
	case gs.Phase == state.PhasePaused:
		return m.renderPauseModal()
	case gs.Interaction.Active:
		return m.renderInteractionModal()
	}

	hud := m.renderHUD()
	hudWidth := lipgloss.Width(hud)
	cols := max(m.width-hudWidth-4, 10)
	rows := max(m.height-4, 5)

	return lipgloss.JoinHorizontal(lipgloss.Top, renderMap(gs, cols, rows), hud)
}

func (m ConsoleUI) renderHUD() string {
	gs := m.view.State
	s := gs.Stats

	var b strings.Builder
	b.WriteString(titleStyle.Render("SOMA: RECOVERY") + "\n")
	if m.layout != nil {
		b.WriteString(promptStyle.Render(m.layout.Name) + "\n")
	}
	b.WriteString("\n")

	bar := func(label string, p progress.Model, v float64) {
		b.WriteString(labelStyle.Render(label) + p.ViewAs(v/state.StatMax) + fmt.Sprintf(" %3.0f\n", v))
	}
	bar("Dopamine", m.dopamineBar, s.Dopamine)
	bar("Health", m.healthBar, s.Health)
	bar("Confidence", m.confidenceBar, s.Confidence)
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("Money") + formatMoney(s.Money) + "\n")
	b.WriteString(labelStyle.Render("Debt") + formatMoney(s.Debt) + "\n")
	b.WriteString(labelStyle.Render("Books read") + fmt.Sprintf("%d/%d\n", len(gs.BooksRead), len(library.All())))
	b.WriteString(labelStyle.Render("Talks") + fmt.Sprintf("%d\n", gs.ConversationCount))
	b.WriteString(labelStyle.Render("Walked") + fmt.Sprintf("%.0fs\n", gs.WalkingTime))
	b.WriteString(labelStyle.Render("Position") + fmt.Sprintf("%.1f, %.1f\n", gs.Position.X, gs.Position.Y))
	b.WriteString("\n")

	if m.view.Frame != nil {
		if hint := renderHint(m.view.Frame.Hint); hint != "" {
			b.WriteString(hint + "\n")
		}
	}
	if m.notice != "" && time.Now().Before(m.noticeUntil) {
		b.WriteString(noticeStyle.Render(wordwrap.String(m.notice, 36)) + "\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render(wordwrap.String("Error: "+m.err.Error(), 36)) + "\n")
	}

	b.WriteString("\n" + m.help.View(m.keys))
	return hudPanelStyle.Width(42).Render(b.String())
}

func (m ConsoleUI) place(title, body string) string {
	width := m.modalWidth()
	content := modalTitleStyle.Width(width).Render(title) + "\n\n" + body
	modal := modalStyle.Width(width + 4).Render(content)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) modalWidth() int {
	return min(64, max(m.width-8, 20))
}

func (m ConsoleUI) renderIntroModal() string {
	story := "Year 2075. You lost everything to soma."
	if m.layout != nil && m.layout.Story != "" {
		story = m.layout.Story
	}
	body := wordwrap.String(story, m.modalWidth()) + "\n\n" +
		wordwrap.String("Walk to stay active, read at the library, work out at the gym and talk to people who got clean. Keep your distance from anyone still using.", m.modalWidth()) +
		"\n\n" + promptStyle.Render("Press Enter to begin")
	return m.place("SOMA: RECOVERY", body)
}

func (m ConsoleUI) renderPauseModal() string {
	return m.place("Paused", promptStyle.Render("Press P or Enter to resume, Q to quit"))
}

func (m ConsoleUI) renderQuitModal() string {
	return m.place("Quit?", "Are you sure you want to quit?\n\n"+promptStyle.Render("y: yes    n: no"))
}

func (m ConsoleUI) renderInteractionModal() string {
	in := m.view.State.Interaction
	width := m.modalWidth()

	footer := ""
	if m.notice != "" && time.Now().Before(m.noticeUntil) {
		footer = "\n\n" + noticeStyle.Render(wordwrap.String(m.notice, width))
	}

	switch in.Kind {
	case state.InteractionLibrary:
		return m.renderLibrary(footer)

	case state.InteractionExercise:
		body := wordwrap.String("The gym smells of rubber and effort. A workout raises your dopamine, and your health follows.", width) +
			footer + "\n\n" + promptStyle.Render("enter: work out    esc: leave")
		return m.place("Gym", body)

	case state.InteractionConversation:
		msg := "..."
		if in.Target != nil && in.Target.NPC != nil && in.Target.NPC.Message != "" {
			msg = in.Target.NPC.Message
		}
		body := modalItemStyle.Render(wordwrap.String("\""+msg+"\"", width)) +
			footer + "\n\n" + promptStyle.Render("enter: talk    esc: leave")
		return m.place("Conversation", body)

	case state.InteractionTemptation:
		body := errorStyle.Render(wordwrap.String("Someone you used with steps in close and offers you soma.", width)) + "\n\n" +
			wordwrap.String(fmt.Sprintf("You need at least %.0f dopamine to walk away. You have %.0f.",
				state.ResistThreshold, m.view.State.Stats.Dopamine), width) +
			footer + "\n\n" + promptStyle.Render("enter: try to resist")
		return m.place("Temptation", body)
	}
	return m.place(proximity.KindLabel(string(in.Kind)), footer)
}

func (m ConsoleUI) renderLibrary(footer string) string {
	width := m.modalWidth()
	books := library.All()
	book := books[m.bookIdx]

	var b strings.Builder
	switch m.libStage {
	case libraryShelf:
		for i, bk := range books {
			line := bk.Title
			if m.view.State.HasReadBook(bk.ID) {
				line += " (read)"
			}
			if i == m.bookIdx {
				b.WriteString(modalSelectedItemStyle.Render("> "+line) + "\n")
			} else {
				b.WriteString(modalItemStyle.Render("  "+line) + "\n")
			}
		}
		b.WriteString("\n" + wordwrap.String(book.Description, width))
		b.WriteString(footer)
		b.WriteString("\n\n" + promptStyle.Render("↑/↓: choose    enter: read    esc: leave"))
		return m.place("Library", b.String())

	case libraryReading:
		b.WriteString(wordwrap.String(book.Content, width))
		b.WriteString("\n\n" + promptStyle.Render("enter: take the quiz    esc: back"))
		return m.place(book.Title, b.String())
	}

	b.WriteString(wordwrap.String(book.Quiz.Question, width) + "\n\n")
	for i, opt := range book.Quiz.Options {
		line := wordwrap.String(opt, width-2)
		if i == m.answerIdx {
			b.WriteString(modalSelectedItemStyle.Render("> "+line) + "\n")
		} else {
			b.WriteString(modalItemStyle.Render("  "+line) + "\n")
		}
	}
	b.WriteString("\n" + promptStyle.Render("↑/↓: choose    enter: answer    esc: back"))
	return m.place("Quiz: "+book.Title, b.String())
}
