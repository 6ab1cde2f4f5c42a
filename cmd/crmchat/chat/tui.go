package chatcmder

import (
	"context"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func init() {
	// Force TrueColor profile to fix lipgloss color detection issue
	// See: https://github.com/charmbracelet/lipgloss/issues/439
	renderer := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(termenv.TrueColor))
	renderer.SetColorProfile(termenv.TrueColor)
	lipgloss.SetDefaultRenderer(renderer)
}

var (
	chatTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	chatMutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	chatUserStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	chatBotStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	chatErrorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	chatBorderStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238"))
)

const (
	roleUser  = "user"
	roleBot   = "assistant"
	roleError = "error"

	inputHeight = 3
	headerLines = 2
)

type chatLine struct {
	role string
	text string
}

type answerMsg struct {
	text string
	err  error
}

type chatModel struct {
	asker   asker
	ctx     context.Context
	target  string
	lines   []chatLine
	input   textinput.Model
	view    viewport.Model
	spinner spinner.Model
	waiting bool
	ready   bool
	width   int
}

func newChatModel(ctx context.Context, a asker, target string) chatModel {
	ti := textinput.New()
	ti.Placeholder = "Ask about a policy..."
	ti.Prompt = "› "
	ti.CharLimit = 2000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))

	return chatModel{
		asker:   a,
		ctx:     ctx,
		target:  target,
		input:   ti,
		spinner: sp,
	}
}

func (m chatModel) Init() bubbletea.Cmd {
	return textinput.Blink
}

func (m chatModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	var cmds []bubbletea.Cmd

	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		height := max(msg.Height-inputHeight-headerLines, 1)
		if !m.ready {
			m.view = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.view.Width = msg.Width
			m.view.Height = height
		}
		m.input.Width = max(msg.Width-6, 10)
		m.refresh()
		return m, nil

	case bubbletea.KeyMsg:
		switch msg.Type {
		case bubbletea.KeyCtrlC, bubbletea.KeyCtrlD, bubbletea.KeyEsc:
			return m, bubbletea.Quit
		case bubbletea.KeyEnter:
			return m.submit()
		}

	case answerMsg:
		m.waiting = false
		if msg.err != nil {
			m.lines = append(m.lines, chatLine{role: roleError, text: msg.err.Error()})
		} else {
			m.lines = append(m.lines, chatLine{role: roleBot, text: msg.text})
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd bubbletea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd bubbletea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	if m.ready {
		m.view, cmd = m.view.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, bubbletea.Batch(cmds...)
}

func (m chatModel) submit() (bubbletea.Model, bubbletea.Cmd) {
	question := strings.TrimSpace(m.input.Value())
	if question == "" || m.waiting {
		return m, nil
	}
	if question == "/exit" {
		return m, bubbletea.Quit
	}

	m.input.Reset()
	m.lines = append(m.lines, chatLine{role: roleUser, text: question})
	m.waiting = true
	m.refresh()

	return m, bubbletea.Batch(m.spinner.Tick, askCmd(m.ctx, m.asker, question))
}

func askCmd(ctx context.Context, a asker, question string) bubbletea.Cmd {
	return func() bubbletea.Msg {
		text, err := a.Ask(ctx, question)
		return answerMsg{text: text, err: err}
	}
}

func (m *chatModel) refresh() {
	if !m.ready {
		return
	}
	m.view.SetContent(m.transcript())
	m.view.GotoBottom()
}

func (m chatModel) transcript() string {
	width := max(m.width-4, 20)
	wrap := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	for i, line := range m.lines {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch line.role {
		case roleUser:
			b.WriteString(chatUserStyle.Render("you> "))
			b.WriteString(wrap.Render(line.text))
		case roleBot:
			b.WriteString(chatBotStyle.Render("assistant> "))
			b.WriteString(wrap.Render(line.text))
		case roleError:
			b.WriteString(chatErrorStyle.Render("error> "))
			b.WriteString(wrap.Render(line.text))
		}
	}
	return b.String()
}

func (m chatModel) View() string {
	header := chatTitleStyle.Render("crmchat") + " " + chatMutedStyle.Render(m.target)

	status := chatMutedStyle.Render("enter to send · esc to quit")
	if m.waiting {
		status = m.spinner.View() + " " + chatMutedStyle.Render("thinking...")
	}

	body := m.transcript()
	if m.ready {
		body = m.view.View()
	}

	return strings.Join([]string{
		header,
		body,
		chatBorderStyle.Width(max(m.width-2, 10)).Render(m.input.View()),
		status,
	}, "\n")
}
