// Package watch is a terminal surface for the pet: it subscribes to the
// daemon's event stream and renders nudges and speak lines. It holds no
// core logic; like every surface it just consumes gateway events.
package watch

import (
	"bufio"
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/latuang/petd/internal/gateway"
)

// fallbackLine is shown for a nudge when the pool is empty.
const fallbackLine = "Time for a tiny step?"

// bubbleFor is how long a spoken line stays on screen.
const bubbleFor = 5 * time.Second

type eventMsg gateway.Event

type connectedMsg struct {
	events <-chan gateway.Event
}

type errMsg struct{ err error }

type bubbleExpiredMsg struct{ seq int }

type Model struct {
	addr    string
	spin    spinner.Model
	events  <-chan gateway.Event

	connected bool
	avatar    string
	lines     []string
	bubble    string
	bubbleSeq int
	minutes   int
	err       error
}

func NewModel(addr string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{addr: addr, spin: sp}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, connect(m.addr))
}

// connect opens the daemon's event stream and pumps decoded events into a
// channel the update loop can wait on.
func connect(addr string) tea.Cmd {
	return func() tea.Msg {
		httpResp, err := http.Get("http://" + addr + "/api/events")
		if err != nil {
			return errMsg{err}
		}

		events := make(chan gateway.Event, 16)
		go func() {
			defer httpResp.Body.Close()
			defer close(events)
			scanner := bufio.NewScanner(httpResp.Body)
			for scanner.Scan() {
				line := scanner.Bytes()
				if !bytes.HasPrefix(line, []byte("data: ")) {
					continue
				}
				var ev gateway.Event
				if err := json.Unmarshal(bytes.TrimPrefix(line, []byte("data: ")), &ev); err != nil {
					continue
				}
				events <- ev
			}
		}()

		return connectedMsg{events: events}
	}
}

// waitForEvent blocks until the stream produces the next event.
func waitForEvent(events <-chan gateway.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return errMsg{err: errStreamClosed}
		}
		return eventMsg(ev)
	}
}

// fetchState pulls the settings snapshot and line pool in one round trip
// each, so nudges have a pool to pick from before any event arrives.
func fetchState(addr string) tea.Cmd {
	return func() tea.Msg {
		settings, err := post(addr, gateway.Request{Type: gateway.TypeGetSettings})
		if err != nil {
			return errMsg{err}
		}
		lines, err := post(addr, gateway.Request{Type: gateway.TypeGetLines})
		if err != nil {
			return errMsg{err}
		}
		settings.Lines = lines.Lines
		return stateMsg{settings: settings}
	}
}

type stateMsg struct {
	settings gateway.Response
}

func post(addr string, req gateway.Request) (gateway.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return gateway.Response{}, err
	}
	httpResp, err := http.Post("http://"+addr+"/api/message", "application/json", bytes.NewReader(body))
	if err != nil {
		return gateway.Response{}, err
	}
	defer httpResp.Body.Close()

	var resp gateway.Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return gateway.Response{}, err
	}
	return resp, nil
}

// pickLine chooses a random line from the pool, like the page overlay does
// on a nudge.
func pickLine(lines []string) string {
	if len(lines) == 0 {
		return fallbackLine
	}
	return lines[rand.Intn(len(lines))]
}
