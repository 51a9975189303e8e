package room

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	DefaultLifetime       = 10 * time.Minute
	DefaultHibernateAfter = 30 * time.Second
)

// Config tunes a Registry. Zero values fall back to defaults.
type Config struct {
	// Lifetime is how long a room lives after its first session is accepted.
	Lifetime time.Duration
	// HibernateAfter is how long an actor may idle before it drops its
	// in-memory state. Connections stay open while it sleeps.
	HibernateAfter time.Duration
	Policy         Policy
	Deadlines      DeadlineStore
	Logger         *zap.Logger
	Now            func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Lifetime <= 0 {
		c.Lifetime = DefaultLifetime
	}
	if c.HibernateAfter <= 0 {
		c.HibernateAfter = DefaultHibernateAfter
	}
	if c.Deadlines == nil {
		c.Deadlines = NewMemoryDeadlines()
	}
	if c.Logger == nil {
		c.Logger = zap.L()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Registry maps passphrases to rooms. A room comes into existence the first
// time it is addressed and is forgotten once it has neither connections nor
// an awake actor.
type Registry struct {
	cfg    Config
	log    *zap.Logger
	closed atomic.Bool

	mu    sync.Mutex
	hosts map[string]*host
}

func NewRegistry(cfg Config) *Registry {
	cfg = cfg.withDefaults()
	return &Registry{
		cfg:   cfg,
		log:   cfg.Logger,
		hosts: make(map[string]*host),
	}
}

// Deadlines returns the store backing room expiry.
func (r *Registry) Deadlines() DeadlineStore {
	return r.cfg.Deadlines
}

// Len returns the number of rooms currently held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hosts)
}

// Status reports whether the room has peers. Probing a room nobody has
// addressed creates nothing.
func (r *Registry) Status(ctx context.Context, name string) (Status, error) {
	r.mu.Lock()
	h, ok := r.hosts[name]
	r.mu.Unlock()
	if !ok {
		return Status{}, nil
	}

	// A disposed host means the room emptied out in the meantime.
	reply := make(chan Status, 1)
	if !h.dispatch(statusEvent{reply: reply}) {
		return Status{}, nil
	}

	select {
	case st := <-reply:
		return st, nil
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

// Admit reserves a place in the room for a connection that is about to be
// upgraded. The returned ticket must be either served or cancelled.
func (r *Registry) Admit(ctx context.Context, name string, role Role) (*Ticket, error) {
	if r.closed.Load() {
		return nil, ErrRegistryClosed
	}

	reply := make(chan admission, 1)
	r.dispatch(name, admitEvent{role: role, reply: reply})

	select {
	case res := <-reply:
		if res.err != nil {
			return nil, res.err
		}
		return &Ticket{reg: r, room: name, id: res.id, role: role}, nil
	case <-ctx.Done():
		go func() {
			if res := <-reply; res.err == nil {
				r.dispatch(name, cancelEvent{id: res.id})
			}
		}()
		return nil, ctx.Err()
	}
}

// Expire asks the room to close itself if its deadline has passed. done, if
// set, runs once the room has handled the request.
func (r *Registry) Expire(name string, done func()) {
	r.dispatch(name, expireEvent{done: done})
}

// Close stops admitting connections and closes every open one.
func (r *Registry) Close() (err error) {
	r.closed.Store(true)

	r.mu.Lock()
	hosts := make([]*host, 0, len(r.hosts))
	for _, h := range r.hosts {
		hosts = append(hosts, h)
	}
	r.mu.Unlock()

	n := 0
	for _, h := range hosts {
		for _, conn := range h.liveConns() {
			err = multierr.Append(err, conn.Close(CloseGoingAway, "Server shutting down"))
			n++
		}
	}
	r.log.Info("closed registry", zap.Int("rooms", len(hosts)), zap.Int("connections", n))
	return
}

func (r *Registry) dispatch(name string, ev event) {
	for {
		if r.host(name).dispatch(ev) {
			return
		}
	}
}

func (r *Registry) host(name string) *host {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.hosts[name]
	if !ok {
		h = &host{
			name:  name,
			reg:   r,
			conns: make(map[Conn]struct{}),
		}
		r.hosts[name] = h
	}
	return h
}

func (r *Registry) forget(h *host) {
	r.mu.Lock()
	if r.hosts[h.name] == h {
		delete(r.hosts, h.name)
	}
	r.mu.Unlock()
}

// host is the part of a room that outlives its actor: the open connections
// and the bookkeeping needed to wake an actor on demand.
type host struct {
	name string
	reg  *Registry

	mu       sync.Mutex
	actor    *actor
	pending  int
	disposed bool
	conns    map[Conn]struct{}
}

// dispatch queues ev for the room's actor, waking one if needed. It returns
// false if the host was disposed and the caller must look the room up again.
func (h *host) dispatch(ev event) bool {
	h.mu.Lock()
	if h.disposed {
		h.mu.Unlock()
		return false
	}

	a := h.actor
	if a == nil {
		a = newActor(h, &h.reg.cfg)
		h.actor = a
		go a.run()
	}
	h.pending++
	h.mu.Unlock()

	a.inbox <- ev
	return true
}

func (h *host) received() {
	h.mu.Lock()
	h.pending--
	h.mu.Unlock()
}

// suspend lets an idle actor go away. It refuses while events are queued or
// slots are reserved.
func (h *host) suspend(a *actor) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.actor != a || h.pending > 0 || len(a.reserved) > 0 {
		return false
	}

	h.actor = nil
	if len(h.conns) == 0 {
		h.disposed = true
		h.reg.forget(h)
	}
	return true
}

func (h *host) awake() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.actor != nil
}

func (h *host) track(conn Conn) {
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *host) untrack(conn Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
}

func (h *host) liveConns() []Conn {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns := make([]Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	return conns
}

// Ticket is an admitted but not yet attached connection.
type Ticket struct {
	reg  *Registry
	room string
	id   string
	role Role
}

func (t *Ticket) Room() string      { return t.room }
func (t *Ticket) SessionID() string { return t.id }
func (t *Ticket) Role() Role        { return t.role }

// Attach binds conn to the reserved slot.
func (t *Ticket) Attach(conn Conn) {
	t.reg.dispatch(t.room, attachEvent{id: t.id, conn: conn})
}

// Cancel releases the reserved slot.
func (t *Ticket) Cancel() {
	t.reg.dispatch(t.room, cancelEvent{id: t.id})
}
