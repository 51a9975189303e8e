package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/atomic"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/helpify-project/pairlink/internal/clearance"
	"github.com/helpify-project/pairlink/internal/passphrase"
	"github.com/helpify-project/pairlink/internal/ratelimit"
	"github.com/helpify-project/pairlink/internal/room"
	"github.com/helpify-project/pairlink/internal/router"
)

const testRoom = "brave-falcon-quiet-otter"

type fakeVerifier struct {
	ok    atomic.Bool
	calls atomic.Int32
}

func (v *fakeVerifier) Verify(context.Context, string, string) (bool, error) {
	v.calls.Inc()
	return v.ok.Load(), nil
}

type testEnv struct {
	url       string
	registry  *room.Registry
	verifier  *fakeVerifier
	clearance *clearance.Issuer
}

type testOptions struct {
	development bool
	burst       int
}

func newTestEnv(t *testing.T, opts testOptions) *testEnv {
	t.Helper()

	reg := room.NewRegistry(room.Config{
		Logger: zaptest.NewLogger(t, zaptest.Level(zapcore.WarnLevel)),
	})
	t.Cleanup(func() { _ = reg.Close() })

	if opts.burst == 0 {
		opts.burst = 100
	}

	static := t.TempDir()
	if err := os.WriteFile(filepath.Join(static, "index.html"), []byte("<html></html>"), 0o644); err != nil {
		t.Fatalf("write index.html: %v", err)
	}

	env := &testEnv{
		registry:  reg,
		verifier:  &fakeVerifier{},
		clearance: clearance.New("", time.Minute),
	}

	env.verifier.ok.Store(true)

	r := mux.NewRouter()
	r.Use(ClientIP(false), SecurityHeaders)
	router.Mount(r,
		&HealthController{},
		&APIController{
			Registry:    reg,
			Passphrases: passphrase.Default(),
			Limiter:     ratelimit.NewKeyed(ratelimit.Config{Every: time.Hour, Burst: opts.burst}),
			Verifier:    env.verifier,
			Clearance:   env.clearance,
			SiteKey:     "site-key",
			Development: opts.development,
		},
		&SignalController{
			Registry:    reg,
			Verifier:    env.verifier,
			Clearance:   env.clearance,
			Development: opts.development,
		},
		&StaticController{Dir: static},
	)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	env.url = ts.URL
	return env
}

func (e *testEnv) wsURL(name string, query string) string {
	return "ws" + strings.TrimPrefix(e.url, "http") + "/ws/" + name + "?" + query
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	c, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial %s: %v (status %d)", url, err, status)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func dialStatus(t *testing.T, url string) int {
	t.Helper()
	c, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		_ = c.Close()
		t.Fatalf("dial %s succeeded", url)
	}
	if resp == nil {
		t.Fatalf("dial %s: %v without response", url, err)
	}
	return resp.StatusCode
}

func readText(t *testing.T, c *websocket.Conn) string {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(data)
}

func readClose(t *testing.T, c *websocket.Conn) *websocket.CloseError {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, _, err := c.ReadMessage()
		if err == nil {
			continue
		}
		ce, ok := err.(*websocket.CloseError)
		if !ok {
			t.Fatalf("read err=%v, want close error", err)
		}
		return ce
	}
}

func send(t *testing.T, c *websocket.Conn, text string) {
	t.Helper()
	if err := c.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func getStatus(t *testing.T, e *testEnv, name string) room.Status {
	t.Helper()
	resp, err := http.Get(e.url + "/api/rooms/" + name + "/status")
	if err != nil {
		t.Fatalf("status request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status code=%d", resp.StatusCode)
	}
	var st room.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	return st
}

func TestPairingEndToEnd(t *testing.T) {
	env := newTestEnv(t, testOptions{development: true})

	if st := getStatus(t, env, testRoom); st.Exists || st.PeerCount != 0 {
		t.Fatalf("status before connect=%+v", st)
	}

	sender := dial(t, env.wsURL(testRoom, "role=sender"))
	if st := getStatus(t, env, testRoom); !st.Exists || st.PeerCount != 1 {
		t.Fatalf("status with sender=%+v", st)
	}

	receiver := dial(t, env.wsURL(testRoom, "role=receiver"))
	if st := getStatus(t, env, testRoom); st.PeerCount != 2 {
		t.Fatalf("status with receiver=%+v", st)
	}

	offer := `{"type":"offer","sdp":"v=0\r\n"}`
	send(t, sender, offer)
	if got := readText(t, receiver); got != offer {
		t.Fatalf("receiver got %q, want offer", got)
	}

	answer := `{"type":"answer","sdp":"v=0\r\n"}`
	send(t, receiver, answer)
	if got := readText(t, sender); got != answer {
		t.Fatalf("sender got %q, want answer", got)
	}

	send(t, sender, "disconnect")
	if ce := readClose(t, sender); ce.Code != room.CloseNormal || ce.Text != "Disconnected" {
		t.Fatalf("sender close=(%d, %q)", ce.Code, ce.Text)
	}
	if got := readText(t, receiver); got != `{"type":"peer-disconnected"}` {
		t.Fatalf("receiver got %q, want peer-disconnected", got)
	}
	if st := getStatus(t, env, testRoom); st.PeerCount != 1 {
		t.Fatalf("status after disconnect=%+v", st)
	}
}

func TestSignalRoomFull(t *testing.T) {
	env := newTestEnv(t, testOptions{development: true})

	dial(t, env.wsURL(testRoom, "role=sender"))
	dial(t, env.wsURL(testRoom, "role=receiver"))

	if status := dialStatus(t, env.wsURL(testRoom, "role=receiver")); status != http.StatusTooManyRequests {
		t.Fatalf("third connection status=%d, want 429", status)
	}
	if st := getStatus(t, env, testRoom); st.PeerCount != 2 {
		t.Fatalf("PeerCount=%d after rejected connection", st.PeerCount)
	}
}

func TestSignalOversizedMessage(t *testing.T) {
	env := newTestEnv(t, testOptions{development: true})

	sender := dial(t, env.wsURL(testRoom, "role=sender"))
	receiver := dial(t, env.wsURL(testRoom, "role=receiver"))

	send(t, sender, strings.Repeat("a", room.MaxMessageLength+1))
	if ce := readClose(t, sender); ce.Code != room.CloseMessageTooBig || ce.Text != "Message too large" {
		t.Fatalf("sender close=(%d, %q)", ce.Code, ce.Text)
	}
	if got := readText(t, receiver); got != `{"type":"peer-disconnected"}` {
		t.Fatalf("receiver got %q", got)
	}
}

func TestSignalRejections(t *testing.T) {
	tests := []struct {
		name   string
		room   string
		query  string
		notice string
		code   int
	}{
		{
			name:   "malformed passphrase",
			room:   "Not-A-Code",
			query:  "role=sender",
			notice: `{"type":"error","code":"INVALID_CODE","message":"Invalid code format."}`,
			code:   room.CloseInvalidRoom,
		},
		{
			name:   "receiver without sender",
			room:   testRoom,
			query:  "role=receiver",
			notice: `{"type":"error","code":"INVALID_CODE","message":"Invalid code. No sender found with this code."}`,
			code:   room.CloseInvalidRoom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, testOptions{development: true})
			c := dial(t, env.wsURL(tt.room, tt.query))

			if got := readText(t, c); got != tt.notice {
				t.Fatalf("notice=%q, want %q", got, tt.notice)
			}
			if ce := readClose(t, c); ce.Code != tt.code || ce.Text != "Invalid code" {
				t.Fatalf("close=(%d, %q), want (%d, Invalid code)", ce.Code, ce.Text, tt.code)
			}
		})
	}
}

func TestSignalRequiresUpgrade(t *testing.T) {
	env := newTestEnv(t, testOptions{development: true})

	resp, err := http.Get(env.url + "/ws/" + testRoom)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Fatalf("status=%d, want 426", resp.StatusCode)
	}
}

func TestSignalVerification(t *testing.T) {
	env := newTestEnv(t, testOptions{})

	if status := dialStatus(t, env.wsURL(testRoom, "role=sender")); status != http.StatusForbidden {
		t.Fatalf("without token status=%d, want 403", status)
	}

	env.verifier.ok.Store(false)
	if status := dialStatus(t, env.wsURL(testRoom, "role=sender&token=bad")); status != http.StatusForbidden {
		t.Fatalf("rejected token status=%d, want 403", status)
	}

	// The test client connects from loopback.
	clearance, _ := env.clearance.Issue("127.0.0.1")
	calls := env.verifier.calls.Load()
	dial(t, env.wsURL(testRoom, "role=sender&token="+clearance))
	if got := env.verifier.calls.Load(); got != calls {
		t.Fatalf("clearance still called the verifier")
	}

	env.verifier.ok.Store(true)
	dial(t, env.wsURL(testRoom, "role=receiver&token=good"))
	if st := getStatus(t, env, testRoom); st.PeerCount != 2 {
		t.Fatalf("PeerCount=%d, want 2", st.PeerCount)
	}
}
