package peer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/helpify-project/pairlink/internal/room"
)

const (
	keepAliveInterval = 20 * time.Second
	writeWait         = 10 * time.Second
)

var ErrPeerDisconnected = errors.New("peer disconnected")

// RejectedError is the server's explanation for refusing the connection.
type RejectedError struct {
	Code    string
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("rejected by server: %s: %s", e.Code, e.Message)
}

// ClosedError reports that the server closed the signaling connection.
type ClosedError struct {
	Code   int
	Reason string
}

func (e *ClosedError) Error() string {
	return fmt.Sprintf("signaling closed: %d %s", e.Code, e.Reason)
}

type envelope struct {
	Type    string `json:"type"`
	SDP     string `json:"sdp,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// SignalURL builds the websocket address of a room on server, which is the
// http(s) base URL of the relay.
func SignalURL(server, passphrase string, role room.Role, token string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server scheme %q", u.Scheme)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/" + url.PathEscape(passphrase)
	q := url.Values{}
	q.Set("role", string(role))
	if token != "" {
		q.Set("token", token)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// signalConn is a client connection to a relay room.
type signalConn struct {
	ws  *websocket.Conn
	log *zap.Logger

	writeMu sync.Mutex

	messages chan envelope
	done     chan struct{}
	err      error
}

func dialSignal(ctx context.Context, dialer *websocket.Dialer, rawURL string, header http.Header, log *zap.Logger) (*signalConn, error) {
	ws, resp, err := dialer.DialContext(ctx, rawURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial signaling: %w (HTTP %s)", err, resp.Status)
		}
		return nil, fmt.Errorf("dial signaling: %w", err)
	}

	sc := &signalConn{
		ws:       ws,
		log:      log,
		messages: make(chan envelope, 8),
		done:     make(chan struct{}),
	}
	go sc.readLoop()
	go sc.keepAlive()
	return sc, nil
}

func (sc *signalConn) readLoop() {
	defer close(sc.done)

	for {
		typ, data, err := sc.ws.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				sc.err = &ClosedError{Code: ce.Code, Reason: ce.Text}
			} else {
				sc.err = err
			}
			return
		}
		if typ != websocket.TextMessage || string(data) == "pong" {
			continue
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			sc.log.Debug("ignoring signaling message", zap.Error(err))
			continue
		}

		switch env.Type {
		case "peer-disconnected":
			sc.err = ErrPeerDisconnected
			return
		case "error":
			sc.err = &RejectedError{Code: env.Code, Message: env.Message}
			return
		}
		select {
		case sc.messages <- env:
		default:
			sc.log.Warn("dropping signaling message, nobody is reading", zap.String("type", env.Type))
		}
	}
}

func (sc *signalConn) keepAlive() {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sc.done:
			return
		case <-ticker.C:
			if err := sc.write([]byte("ping")); err != nil {
				return
			}
		}
	}
}

func (sc *signalConn) write(data []byte) error {
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()

	_ = sc.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return sc.ws.WriteMessage(websocket.TextMessage, data)
}

func (sc *signalConn) send(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := sc.write(data); err != nil {
		// Prefer the server's reason over the write error it caused.
		select {
		case <-sc.done:
			if sc.err != nil {
				return sc.err
			}
		default:
		}
		return err
	}
	return nil
}

// expect waits for the next message of type typ, skipping anything else.
func (sc *signalConn) expect(ctx context.Context, typ string) (envelope, error) {
	for {
		select {
		case env := <-sc.messages:
			if env.Type == typ {
				return env, nil
			}
			sc.log.Debug("skipping signaling message", zap.String("type", env.Type))
		case <-sc.done:
			// Drain what arrived before the connection ended.
			for {
				select {
				case env := <-sc.messages:
					if env.Type == typ {
						return env, nil
					}
				default:
					return envelope{}, sc.err
				}
			}
		case <-ctx.Done():
			return envelope{}, ctx.Err()
		}
	}
}

// close leaves the room and waits briefly for the server's close frame.
func (sc *signalConn) close() {
	if err := sc.write([]byte("disconnect")); err == nil {
		select {
		case <-sc.done:
		case <-time.After(writeWait):
		}
	}
	_ = sc.ws.Close()
}
