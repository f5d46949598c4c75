package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/latuang/petd/internal/constants"
	"github.com/latuang/petd/internal/gateway"
	"github.com/latuang/petd/internal/settings"
	"github.com/latuang/petd/internal/stats"
	"github.com/latuang/petd/internal/storage"
)

type noopRescheduler struct{}

func (noopRescheduler) Reschedule(time.Duration) {}

func newTestServer(t *testing.T) (*Server, *gateway.Gateway) {
	t.Helper()
	store := storage.NewJSONStore(filepath.Join(t.TempDir(), "petd.json"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	gw := gateway.New(store, settings.New(store), stats.New(store), noopRescheduler{}, nil, nil)
	return New("127.0.0.1:0", gw, nil), gw
}

func postMessage(t *testing.T, s *Server, body string, origin string) gateway.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/message", strings.NewReader(body))
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (failures ride inside the envelope)", rec.Code)
	}
	var resp gateway.Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestMessage_RoundTrip(t *testing.T) {
	s, _ := newTestServer(t)

	resp := postMessage(t, s, `{"type":"PET_GET_SETTINGS"}`, "")
	if !resp.OK {
		t.Fatalf("get settings failed: %s", resp.Error)
	}
	if resp.Minutes != constants.DefaultPeriodMinutes {
		t.Errorf("minutes = %d, want %d", resp.Minutes, constants.DefaultPeriodMinutes)
	}
}

func TestMessage_FailureStaysHTTP200(t *testing.T) {
	s, _ := newTestServer(t)

	resp := postMessage(t, s, `{"type":"NO_SUCH_TYPE"}`, "")
	if resp.OK {
		t.Error("unknown type should not succeed")
	}
	if resp.Error != "Unknown message type" {
		t.Errorf("error = %q, want Unknown message type", resp.Error)
	}
}

func TestMessage_OriginRejectionEchoesOrigin(t *testing.T) {
	s, _ := newTestServer(t)

	resp := postMessage(t, s, `{"type":"PET_GET_LINES"}`, "https://evil.example")
	if resp.OK {
		t.Error("disallowed origin should not succeed")
	}
	if resp.Error != "Origin not allowed" || resp.Got != "https://evil.example" {
		t.Errorf("envelope = %+v, want Origin not allowed with got echoed", resp)
	}
}

func TestMessage_RejectsGet(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/message", nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestMessage_InvalidBody(t *testing.T) {
	s, _ := newTestServer(t)

	resp := postMessage(t, s, `{not json`, "")
	if resp.OK {
		t.Error("invalid body should not succeed")
	}
	if !strings.Contains(resp.Error, "invalid request body") {
		t.Errorf("error = %q, want invalid request body", resp.Error)
	}
}

func TestEvents_RejectsUnknownOrigin(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestEvents_StreamsBroadcasts(t *testing.T) {
	s, gw := newTestServer(t)

	srv := httptest.NewServer(s.http.Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/events")
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q, want text/event-stream", ct)
	}

	// Wait for the subscriber to register before broadcasting.
	deadline := time.Now().Add(2 * time.Second)
	for gw.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	gw.Broadcast(gateway.Event{Type: gateway.EventSay, Text: "hello"})

	ev, err := readEvent(resp.Body)
	if err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	if ev.Type != gateway.EventSay || ev.Text != "hello" {
		t.Errorf("event = %+v, want PET_SAY hello", ev)
	}
}

func TestEvents_DeliversPendingEchoOnConnect(t *testing.T) {
	s, _ := newTestServer(t)

	// Persist an echo before any surface connects, as say-now does.
	if !postMessageOK(t, s, `{"type":"PET_SAY_NOW","text":"missed me"}`) {
		t.Fatal("say now failed")
	}

	srv := httptest.NewServer(s.http.Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/events")
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer resp.Body.Close()

	ev, err := readEvent(resp.Body)
	if err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	if ev.Type != gateway.EventSay || ev.Text != "missed me" {
		t.Errorf("event = %+v, want the buffered PET_SAY", ev)
	}
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func postMessageOK(t *testing.T, s *Server, body string) bool {
	t.Helper()
	return postMessage(t, s, body, "").OK
}

// readEvent scans one SSE data frame off the stream.
func readEvent(r io.Reader) (gateway.Event, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Bytes()
		if data, ok := bytes.CutPrefix(line, []byte("data: ")); ok {
			var ev gateway.Event
			err := json.Unmarshal(data, &ev)
			return ev, err
		}
	}
	if err := scanner.Err(); err != nil {
		return gateway.Event{}, err
	}
	return gateway.Event{}, http.ErrBodyReadAfterClose
}
