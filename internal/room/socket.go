package room

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/multierr"
)

const (
	writeWait  = 10 * time.Second
	closeGrace = 2 * time.Second

	// Frames are capped in bytes well above MaxMessageLength UTF-16 units
	// of UTF-8 so the length check in the actor decides what is too large.
	maxFrameBytes = 4*MaxMessageLength + 1024
)

var _ Conn = (*Socket)(nil)

// Socket adapts a websocket connection to Conn.
type Socket struct {
	ws *websocket.Conn

	writeMu sync.Mutex

	mu          sync.Mutex
	attachment  Attachment
	closing     bool
	closeCode   int
	closeReason string
}

func NewSocket(ws *websocket.Conn) *Socket {
	return &Socket{ws: ws}
}

func (s *Socket) Send(text string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return s.ws.WriteMessage(websocket.TextMessage, []byte(text))
}

// Close starts the closing handshake. The read pump finishes it when the
// client answers or closeGrace runs out.
func (s *Socket) Close(code int, reason string) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	s.closeCode = code
	s.closeReason = reason
	s.mu.Unlock()

	err := s.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
	if errors.Is(err, websocket.ErrCloseSent) {
		err = nil
	}
	if err != nil {
		return multierr.Append(err, s.ws.Close())
	}
	return s.ws.SetReadDeadline(time.Now().Add(closeGrace))
}

func (s *Socket) Attachment() Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attachment
}

func (s *Socket) SetAttachment(a Attachment) {
	s.mu.Lock()
	s.attachment = a
	s.mu.Unlock()
}

func (s *Socket) closedLocally() (int, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCode, s.closeReason, s.closing
}

// Serve attaches ws to the reserved slot and reads from it until it closes.
func (t *Ticket) Serve(ws *websocket.Conn) {
	// The http.Server read timeout still applies to the hijacked connection.
	_ = ws.SetReadDeadline(time.Time{})

	s := NewSocket(ws)
	t.Attach(s)
	t.reg.pump(t.room, s)
}

// pump reads client frames. Text "ping" is answered here so keep-alives
// never wake a suspended actor.
func (r *Registry) pump(name string, s *Socket) {
	defer s.ws.Close()

	s.ws.SetReadLimit(maxFrameBytes)
	for {
		typ, data, err := s.ws.ReadMessage()
		if err != nil {
			r.dispatch(name, s.readFailure(err))
			return
		}
		if typ != websocket.TextMessage {
			continue
		}

		text := string(data)
		if text == autoPing {
			_ = s.Send(autoPong)
			continue
		}
		r.dispatch(name, messageEvent{conn: s, payload: text})
	}
}

// readFailure turns the error that ended the read loop into a room event.
func (s *Socket) readFailure(err error) event {
	if code, reason, ok := s.closedLocally(); ok {
		return closeEvent{conn: s, code: code, reason: reason}
	}

	if errors.Is(err, websocket.ErrReadLimit) {
		_ = s.Close(CloseMessageTooBig, "Message too large")
		return closeEvent{conn: s, code: CloseMessageTooBig, reason: "Message too large"}
	}

	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return closeEvent{conn: s, code: ce.Code, reason: ce.Text}
	}
	return errorEvent{conn: s, err: err}
}

// Reject tells a client why it was turned away and closes the connection.
// It is used for upgrades that never reach a room.
func Reject(ws *websocket.Conn, code int, reason string, notice Notice) {
	defer ws.Close()

	s := NewSocket(ws)
	_ = s.Send(notice.String())
	if err := s.Close(code, reason); err != nil {
		return
	}

	// Wait for the client's close frame so it sees ours before the TCP
	// connection goes away.
	for {
		if _, _, err := ws.NextReader(); err != nil {
			return
		}
	}
}
