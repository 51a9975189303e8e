package room

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const storeTimeout = 5 * time.Second

type event interface{}

type (
	statusEvent struct {
		reply chan Status
	}

	admitEvent struct {
		role  Role
		reply chan admission
	}

	attachEvent struct {
		id   string
		conn Conn
	}

	cancelEvent struct {
		id string
	}

	messageEvent struct {
		conn    Conn
		payload string
	}

	closeEvent struct {
		conn   Conn
		code   int
		reason string
	}

	errorEvent struct {
		conn Conn
		err  error
	}

	expireEvent struct {
		done func()
	}
)

type admission struct {
	id  string
	err error
}

// actor owns one room's sessions. Only its run goroutine touches sessions
// and reserved; everything else talks to it through the inbox.
type actor struct {
	host  *host
	cfg   *Config
	log   *zap.Logger
	inbox chan event

	sessions map[Conn]*Session
	reserved map[string]struct{}
}

func newActor(h *host, cfg *Config) *actor {
	return &actor{
		host:     h,
		cfg:      cfg,
		log:      cfg.Logger.With(zap.String("room", h.name)),
		inbox:    make(chan event, 16),
		sessions: make(map[Conn]*Session),
		reserved: make(map[string]struct{}),
	}
}

func (a *actor) run() {
	a.rehydrate()

	idle := time.NewTimer(a.cfg.HibernateAfter)
	defer idle.Stop()

	for {
		select {
		case ev := <-a.inbox:
			a.host.received()
			a.handle(ev)
		case <-idle.C:
			if a.host.suspend(a) {
				a.log.Debug("room actor suspended", zap.Int("sessions", len(a.sessions)))
				return
			}
		}

		if !idle.Stop() {
			select {
			case <-idle.C:
			default:
			}
		}
		idle.Reset(a.cfg.HibernateAfter)
	}
}

// rehydrate rebuilds the session set from the attachments of the host's
// open connections.
func (a *actor) rehydrate() {
	for _, conn := range a.host.liveConns() {
		att := conn.Attachment()
		if att.SessionID == "" {
			continue
		}
		a.sessions[conn] = &Session{ID: att.SessionID, Conn: conn}
	}

	if len(a.sessions) > 0 {
		a.log.Debug("room actor rehydrated", zap.Int("sessions", len(a.sessions)))
	}
}

func (a *actor) handle(ev event) {
	switch ev := ev.(type) {
	case statusEvent:
		ev.reply <- a.status()
	case admitEvent:
		ev.reply <- a.admit(ev.role)
	case attachEvent:
		a.attach(ev.id, ev.conn)
	case cancelEvent:
		delete(a.reserved, ev.id)
	case messageEvent:
		a.relay(ev.conn, ev.payload)
	case closeEvent:
		a.closed(ev.conn, ev.code, ev.reason)
	case errorEvent:
		a.failed(ev.conn, ev.err)
	case expireEvent:
		a.expire()
		if ev.done != nil {
			ev.done()
		}
	default:
		a.log.Warn("unknown room event", zap.Any("event", ev))
	}
}

func (a *actor) occupancy() int {
	return len(a.sessions) + len(a.reserved)
}

func (a *actor) status() Status {
	n := a.occupancy()
	return Status{Exists: n > 0, PeerCount: n}
}

func (a *actor) admit(role Role) admission {
	n := a.occupancy()
	if n >= MaxPeers {
		return admission{err: ErrRoomFull}
	}
	if role == RoleReceiver && a.cfg.Policy == SenderFirst && n == 0 {
		return admission{err: ErrNoSender}
	}

	id := uuid.NewString()
	a.reserved[id] = struct{}{}
	return admission{id: id}
}

func (a *actor) attach(id string, conn Conn) {
	if _, ok := a.reserved[id]; !ok {
		// The reservation was voided by an expiry.
		if err := conn.Close(CloseNormal, "Room expired"); err != nil {
			a.log.Debug("close failed", zap.String("session", id), zap.Error(err))
		}
		a.log.Info("session refused, room expired", zap.String("session", id))
		return
	}
	delete(a.reserved, id)

	conn.SetAttachment(Attachment{SessionID: id})
	a.sessions[conn] = &Session{ID: id, Conn: conn}
	a.host.track(conn)

	a.log.Info("session accepted", zap.String("session", id), zap.Int("sessions", len(a.sessions)))
	a.scheduleExpiry()
}

// scheduleExpiry sets the room deadline unless this lifetime already has one.
func (a *actor) scheduleExpiry() {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	at := a.cfg.Now().Add(a.cfg.Lifetime)
	set, err := a.cfg.Deadlines.SetIfAbsent(ctx, a.host.name, at)
	if err != nil {
		a.log.Error("failed to schedule room expiry", zap.Error(err))
		return
	}
	if set {
		a.log.Debug("room expiry scheduled", zap.Time("at", at))
	}
}

func (a *actor) relay(from Conn, payload string) {
	if _, ok := a.sessions[from]; !ok {
		return
	}

	if messageLength(payload) > MaxMessageLength {
		a.closeSession(from, CloseMessageTooBig, "Message too large")
		return
	}
	if payload == disconnectMessage {
		a.closeSession(from, CloseNormal, "Disconnected")
		return
	}

	for conn, sess := range a.sessions {
		if conn == from {
			continue
		}
		if err := conn.Send(payload); err != nil {
			a.log.Debug("relay failed", zap.String("session", sess.ID), zap.Error(err))
		}
	}
}

// closeSession closes a session from the server side.
func (a *actor) closeSession(conn Conn, code int, reason string) {
	sess, ok := a.sessions[conn]
	if !ok {
		return
	}

	if err := conn.Close(code, reason); err != nil {
		a.log.Debug("close failed", zap.String("session", sess.ID), zap.Error(err))
	}
	a.remove(conn)
	a.log.Info("session closed by server", zap.String("session", sess.ID), zap.Int("code", code))
	a.notifyPeers()
}

// closed handles a connection the client (or its transport) already closed.
func (a *actor) closed(conn Conn, code int, reason string) {
	sess, ok := a.sessions[conn]
	if !ok {
		return
	}

	a.remove(conn)
	a.log.Info("session closed",
		zap.String("session", sess.ID),
		zap.Int("code", code),
		zap.String("reason", reason),
	)
	a.notifyPeers()
}

func (a *actor) failed(conn Conn, err error) {
	sess, ok := a.sessions[conn]
	if !ok {
		return
	}

	a.remove(conn)
	a.log.Info("session failed", zap.String("session", sess.ID), zap.Error(err))
	a.notifyPeers()
	if err := conn.Close(CloseInternalError, "WebSocket error"); err != nil {
		a.log.Debug("close failed", zap.String("session", sess.ID), zap.Error(err))
	}
}

func (a *actor) remove(conn Conn) {
	delete(a.sessions, conn)
	a.host.untrack(conn)
}

func (a *actor) notifyPeers() {
	for conn, sess := range a.sessions {
		if err := conn.Send(peerDisconnected); err != nil {
			a.log.Debug("peer notification failed", zap.String("session", sess.ID), zap.Error(err))
		}
	}
}

// expire force-closes the room once its deadline has passed. Fires for a
// deadline that is missing or still in the future are ignored.
func (a *actor) expire() {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	at, ok, err := a.cfg.Deadlines.Get(ctx, a.host.name)
	if err != nil {
		a.log.Error("failed to load room expiry", zap.Error(err))
		return
	}
	if !ok || at.After(a.cfg.Now()) {
		return
	}

	for conn, sess := range a.sessions {
		if err := conn.Close(CloseNormal, "Room expired"); err != nil {
			a.log.Debug("close failed", zap.String("session", sess.ID), zap.Error(err))
		}
		a.remove(conn)
	}
	for id := range a.reserved {
		delete(a.reserved, id)
	}

	if err := a.cfg.Deadlines.Delete(ctx, a.host.name); err != nil {
		a.log.Error("failed to clear room expiry", zap.Error(err))
	}
	a.log.Info("room expired")
}

// messageLength counts UTF-16 code units, the unit browsers report for a
// websocket text message. Runes outside the basic plane take two.
func messageLength(s string) int {
	n := 0
	for _, r := range s {
		if r > 0xFFFF {
			n += 2
		} else {
			n++
		}
	}
	return n
}
