package network

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/unlock-remote/device/internal/display"
)

type fakeLink struct {
	mu         sync.Mutex
	upAfter    int
	begins     int
	polls      int
	lastSSID   string
	beginError error
}

func (f *fakeLink) Begin(_ context.Context, ssid, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.begins++
	f.lastSSID = ssid
	return f.beginError
}

func (f *fakeLink) Connected(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	return f.upAfter >= 0 && f.polls > f.upAfter
}

func (f *fakeLink) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.begins, f.polls
}

type textDisplay struct {
	mu   sync.Mutex
	text strings.Builder
}

func (d *textDisplay) Clear()                     {}
func (d *textDisplay) SetBacklight(bool)          {}
func (d *textDisplay) SetTextColor(display.Color) {}
func (d *textDisplay) DrawBattery(int, bool)      {}

func (d *textDisplay) Print(s string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text.WriteString(s)
}
func (d *textDisplay) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text.String()
}

func TestEnsureConnectedPollsUntilUp(t *testing.T) {
	link := &fakeLink{upAfter: 3}
	m := NewManager(link, Credentials{SSID: "home", Passphrase: "pw"}, time.Millisecond)

	var transitions []string
	m.OnStateChange(func(prev, cur State) {
		transitions = append(transitions, prev.String()+"->"+cur.String())
	})

	screen := &textDisplay{}
	if err := m.EnsureConnected(context.Background(), screen); err != nil {
		t.Fatalf("EnsureConnected error: %v", err)
	}

	if m.State() != Connected {
		t.Fatalf("expected connected, got %s", m.State())
	}
	if got := screen.String(); got != "CONNECTING...\nCONNECTED!" {
		t.Fatalf("unexpected progress output: %q", got)
	}
	begins, polls := link.calls()
	if begins != 1 || polls != 4 || link.lastSSID != "home" {
		t.Fatalf("unexpected link calls: begins=%d polls=%d ssid=%q", begins, polls, link.lastSSID)
	}
	want := []string{"disconnected->connecting", "connecting->connected"}
	if strings.Join(transitions, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected transitions: %v", transitions)
	}
}

func TestEnsureConnectedNoopWhenConnected(t *testing.T) {
	link := &fakeLink{upAfter: 0}
	m := NewManager(link, Credentials{SSID: "home"}, time.Millisecond)
	if err := m.EnsureConnected(context.Background(), &textDisplay{}); err != nil {
		t.Fatalf("first EnsureConnected error: %v", err)
	}
	beginsBefore, pollsBefore := link.calls()

	screen := &textDisplay{}
	if err := m.EnsureConnected(context.Background(), screen); err != nil {
		t.Fatalf("second EnsureConnected error: %v", err)
	}

	begins, polls := link.calls()
	if begins != beginsBefore || polls != pollsBefore {
		t.Fatalf("expected no link calls, got begins=%d polls=%d", begins-beginsBefore, polls-pollsBefore)
	}
	if screen.String() != "" {
		t.Fatalf("expected no output, got %q", screen.String())
	}
}

func TestEnsureConnectedKeepsPollingAfterBeginError(t *testing.T) {
	link := &fakeLink{upAfter: 1, beginError: errors.New("radio off")}
	m := NewManager(link, Credentials{SSID: "home"}, time.Millisecond)

	if err := m.EnsureConnected(context.Background(), &textDisplay{}); err != nil {
		t.Fatalf("EnsureConnected error: %v", err)
	}
	if !m.Connected() {
		t.Fatalf("expected connected")
	}
}

func TestEnsureConnectedStopsOnContext(t *testing.T) {
	link := &fakeLink{upAfter: -1}
	m := NewManager(link, Credentials{SSID: "home"}, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := m.EnsureConnected(ctx, &textDisplay{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if m.State() != Disconnected {
		t.Fatalf("expected disconnected after giving up, got %s", m.State())
	}
}

func TestEnsureConnectedTimeoutOption(t *testing.T) {
	link := &fakeLink{upAfter: -1}
	m := NewManager(link, Credentials{SSID: "home"}, time.Millisecond, WithTimeout(10*time.Millisecond))

	if err := m.EnsureConnected(context.Background(), &textDisplay{}); err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestRefreshDetectsLostLink(t *testing.T) {
	link := &fakeLink{upAfter: 0}
	m := NewManager(link, Credentials{SSID: "home"}, time.Millisecond)
	if got := m.Refresh(context.Background()); got != Connected {
		t.Fatalf("expected connected, got %s", got)
	}

	link.mu.Lock()
	link.upAfter = -1
	link.mu.Unlock()

	if got := m.Refresh(context.Background()); got != Disconnected {
		t.Fatalf("expected disconnected, got %s", got)
	}
	begins, _ := link.calls()
	if begins != 0 {
		t.Fatalf("Refresh must not join, got %d begins", begins)
	}
}

func TestProbeLink(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"method not allowed", http.StatusMethodNotAllowed},
		{"ok", http.StatusOK},
		{"relay failing", http.StatusServiceUnavailable},
		{"relay crashing", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodHead {
					t.Errorf("expected HEAD, got %s", r.Method)
				}
				w.WriteHeader(tt.status)
			}))

			link := NewProbeLink(server.URL)
			if !link.Connected(context.Background()) {
				t.Fatalf("status %d: expected an answering relay to count as connected", tt.status)
			}

			server.Close()
			if link.Connected(context.Background()) {
				t.Fatalf("expected closed server to count as disconnected")
			}
		})
	}
}

func TestRefreshKeepsLinkWhenRelayFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	m := NewManager(NewProbeLink(server.URL), Credentials{SSID: "home"}, 10*time.Millisecond)
	if err := m.EnsureConnected(context.Background(), &textDisplay{}); err != nil {
		t.Fatalf("EnsureConnected: %v", err)
	}
	if got := m.Refresh(context.Background()); got != Connected {
		t.Fatalf("expected connected while the relay answers 503, got %s", got)
	}
}

func TestNmcliLink(t *testing.T) {
	var mu sync.Mutex
	var commands, inputs []string
	state := "disconnected"
	run := func(_ context.Context, stdin string, name string, args ...string) ([]byte, error) {
		mu.Lock()
		defer mu.Unlock()
		commands = append(commands, name+" "+strings.Join(args, " "))
		inputs = append(inputs, stdin)
		return []byte(state + "\n"), nil
	}

	link := NewNmcliLink(run)
	if link.Connected(context.Background()) {
		t.Fatalf("expected disconnected")
	}

	mu.Lock()
	state = "connected"
	mu.Unlock()
	if !link.Connected(context.Background()) {
		t.Fatalf("expected connected")
	}

	if err := link.Begin(context.Background(), "", "pw"); err == nil {
		t.Fatalf("expected error for empty ssid")
	}

	mu.Lock()
	defer mu.Unlock()
	if commands[0] != "nmcli -t -f STATE general" {
		t.Fatalf("unexpected command: %q", commands[0])
	}
}

func TestNmcliLinkPassphraseOnStdin(t *testing.T) {
	type invocation struct {
		stdin string
		cmd   string
	}
	calls := make(chan invocation, 1)
	run := func(_ context.Context, stdin string, name string, args ...string) ([]byte, error) {
		calls <- invocation{stdin: stdin, cmd: name + " " + strings.Join(args, " ")}
		return nil, nil
	}

	if err := NewNmcliLink(run).Begin(context.Background(), "home", "s3cret"); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	select {
	case got := <-calls:
		if got.cmd != "nmcli --ask --wait 0 device wifi connect home" {
			t.Fatalf("unexpected command: %q", got.cmd)
		}
		if strings.Contains(got.cmd, "s3cret") {
			t.Fatalf("passphrase leaked into arguments: %q", got.cmd)
		}
		if got.stdin != "s3cret\n" {
			t.Fatalf("expected passphrase on stdin, got %q", got.stdin)
		}
	case <-time.After(time.Second):
		t.Fatalf("nmcli connect was not run")
	}
}
