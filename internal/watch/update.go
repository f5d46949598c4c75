package watch

import (
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/latuang/petd/internal/gateway"
)

var errStreamClosed = errors.New("event stream closed by daemon")

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		return m, nil

	case connectedMsg:
		m.connected = true
		m.events = msg.events
		return m, tea.Batch(waitForEvent(m.events), fetchState(m.addr))

	case stateMsg:
		m.avatar = msg.settings.Avatar
		m.minutes = msg.settings.Minutes
		m.lines = msg.settings.Lines
		return m, nil

	case eventMsg:
		cmd := m.apply(gateway.Event(msg))
		return m, tea.Batch(waitForEvent(m.events), cmd)

	case bubbleExpiredMsg:
		// Only the newest bubble's expiry clears the screen.
		if msg.seq == m.bubbleSeq {
			m.bubble = ""
		}
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, tea.Quit

	default:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
}

// apply folds one broadcast event into the model.
func (m *Model) apply(ev gateway.Event) tea.Cmd {
	switch ev.Type {
	case gateway.EventNudge:
		return m.speak(pickLine(m.lines))
	case gateway.EventSay:
		return m.speak(ev.Text)
	case gateway.EventLinesUpdated:
		m.lines = ev.Lines
	case gateway.EventAvatarChanged:
		m.avatar = ev.Name
	case gateway.EventPeriodChanged:
		m.minutes = ev.Minutes
	}
	return nil
}

func (m *Model) speak(text string) tea.Cmd {
	m.bubble = text
	m.bubbleSeq++
	seq := m.bubbleSeq
	return tea.Tick(bubbleFor, func(time.Time) tea.Msg {
		return bubbleExpiredMsg{seq: seq}
	})
}
