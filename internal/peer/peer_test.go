package peer_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/pion/logging"
	"github.com/pion/transport/v4/vnet"
	"github.com/pion/webrtc/v4"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/helpify-project/pairlink/internal/controllers"
	"github.com/helpify-project/pairlink/internal/peer"
	"github.com/helpify-project/pairlink/internal/room"
	"github.com/helpify-project/pairlink/internal/router"
)

const testRoom = "brave-falcon-quiet-otter"

func newRelay(t *testing.T) (string, *room.Registry) {
	t.Helper()

	reg := room.NewRegistry(room.Config{
		Logger: zaptest.NewLogger(t, zaptest.Level(zapcore.WarnLevel)),
	})
	t.Cleanup(func() { _ = reg.Close() })

	r := mux.NewRouter()
	r.Use(controllers.ClientIP(false))
	router.Mount(r, &controllers.SignalController{Registry: reg, Development: true})

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts.URL, reg
}

func newVNetAPIs(t *testing.T) (*webrtc.API, *webrtc.API) {
	t.Helper()

	vr, err := vnet.NewRouter(&vnet.RouterConfig{
		CIDR:          "10.0.0.0/24",
		LoggerFactory: logging.NewDefaultLoggerFactory(),
	})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	t.Cleanup(func() { _ = vr.Stop() })

	var apis []*webrtc.API
	for _, ip := range []string{"10.0.0.1", "10.0.0.2"} {
		n, err := vnet.NewNet(&vnet.NetConfig{StaticIPs: []string{ip}})
		if err != nil {
			t.Fatalf("new net %s: %v", ip, err)
		}
		if err := vr.AddNet(n); err != nil {
			t.Fatalf("add net %s: %v", ip, err)
		}

		api, err := peer.NewAPI(zaptest.NewLogger(t, zaptest.Level(zapcore.WarnLevel)), func(se *webrtc.SettingEngine) {
			se.SetNet(n)
		})
		if err != nil {
			t.Fatalf("new api: %v", err)
		}
		apis = append(apis, api)
	}

	if err := vr.Start(); err != nil {
		t.Fatalf("start router: %v", err)
	}
	return apis[0], apis[1]
}

func waitForPeers(t *testing.T, reg *room.Registry, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		st, err := reg.Status(context.Background(), testRoom)
		if err == nil && st.PeerCount == n {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("room never reached %d peers (last %+v, err %v)", n, st, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestTransferOverRelay(t *testing.T) {
	server, reg := newRelay(t)
	senderAPI, receiverAPI := newVNetAPIs(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sendURL, err := peer.SignalURL(server, testRoom, room.RoleSender, "")
	if err != nil {
		t.Fatalf("SignalURL: %v", err)
	}
	receiveURL, err := peer.SignalURL(server, testRoom, room.RoleReceiver, "")
	if err != nil {
		t.Fatalf("SignalURL: %v", err)
	}

	payload := []byte("the quick brown fox")
	sendErr := make(chan error, 1)
	go func() {
		sendErr <- peer.Send(ctx, sendURL, payload, peer.Options{API: senderAPI})
	}()
	waitForPeers(t, reg, 1)

	got, err := peer.Receive(ctx, receiveURL, peer.Options{API: receiverAPI})
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("received %q, want %q", got, payload)
	}
	if err := <-sendErr; err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestReceiveWithoutSender(t *testing.T) {
	server, _ := newRelay(t)

	u, err := peer.SignalURL(server, testRoom, room.RoleReceiver, "")
	if err != nil {
		t.Fatalf("SignalURL: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = peer.Receive(ctx, u, peer.Options{})
	var rejected *peer.RejectedError
	if !errors.As(err, &rejected) || rejected.Code != "INVALID_CODE" {
		t.Fatalf("err=%v, want INVALID_CODE rejection", err)
	}
}

func TestSendRejectsLargePayload(t *testing.T) {
	err := peer.Send(context.Background(), "ws://127.0.0.1:1/ws/"+testRoom, make([]byte, peer.MaxPayload+1), peer.Options{})
	if !errors.Is(err, peer.ErrPayloadTooLarge) {
		t.Fatalf("err=%v, want ErrPayloadTooLarge", err)
	}
}

func TestSignalURL(t *testing.T) {
	tests := []struct {
		server string
		token  string
		want   string
	}{
		{server: "http://127.0.0.1:3009", want: "ws://127.0.0.1:3009/ws/" + testRoom + "?role=sender"},
		{server: "https://pair.example/base/", token: "t", want: "wss://pair.example/base/ws/" + testRoom + "?role=sender&token=t"},
	}

	for _, tt := range tests {
		got, err := peer.SignalURL(tt.server, testRoom, room.RoleSender, tt.token)
		if err != nil {
			t.Fatalf("SignalURL(%q): %v", tt.server, err)
		}
		if got != tt.want {
			t.Fatalf("SignalURL(%q)=%q, want %q", tt.server, got, tt.want)
		}
	}

	if _, err := peer.SignalURL("ftp://x", testRoom, room.RoleSender, ""); err == nil {
		t.Fatalf("ftp scheme accepted")
	}
}

func TestRequestPassphrase(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/passphrase" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"passphrase":"` + testRoom + `"}`))
	}))
	defer ts.Close()

	got, err := peer.RequestPassphrase(context.Background(), nil, ts.URL+"/")
	if err != nil {
		t.Fatalf("RequestPassphrase: %v", err)
	}
	if got != testRoom {
		t.Fatalf("passphrase=%q, want %q", got, testRoom)
	}
}

func TestRequestPassphraseRateLimited(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"Rate limit exceeded. Try again later."}`))
	}))
	defer ts.Close()

	if _, err := peer.RequestPassphrase(context.Background(), nil, ts.URL); err == nil {
		t.Fatalf("rate limited request succeeded")
	}
}
