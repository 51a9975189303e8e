package controllers

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/helpify-project/pairlink/internal/cctx"
	"github.com/helpify-project/pairlink/internal/clearance"
	"github.com/helpify-project/pairlink/internal/passphrase"
	"github.com/helpify-project/pairlink/internal/room"
	"github.com/helpify-project/pairlink/internal/router"
)

var _ router.Controller = (*SignalController)(nil)

var (
	wsPool = new(sync.Pool)
)

var (
	invalidFormat = room.Notice{Type: "error", Code: "INVALID_CODE", Message: "Invalid code format."}
	noSender      = room.Notice{Type: "error", Code: "INVALID_CODE", Message: "Invalid code. No sender found with this code."}
	serverError   = room.Notice{Type: "error", Code: "SERVER_ERROR", Message: "Could not verify code. Please try again."}
)

// SignalController pairs websocket clients by passphrase and relays their
// signaling messages.
type SignalController struct {
	Registry    *room.Registry
	Verifier    Verifier
	Clearance   *clearance.Issuer
	Development bool
	// AllowedOrigins limits which pages may open a websocket. Empty allows
	// every origin.
	AllowedOrigins []string

	upgrader *websocket.Upgrader
}

func (c *SignalController) handleSignal(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.Error(w, "Expected Upgrade: websocket", http.StatusUpgradeRequired)
		return
	}

	name := mux.Vars(r)["passphrase"]
	role := room.ParseRole(r.URL.Query().Get("role"))
	r = r.WithContext(cctx.WithValues(r.Context(),
		cctx.Passphrase, name,
		cctx.Role, string(role),
	))
	log := zap.L().With(cctx.Fields(r.Context())...)

	if !c.Development {
		if status, msg := c.verify(r); status != http.StatusOK {
			log.Debug("websocket verification failed", zap.String("reason", msg))
			http.Error(w, msg, status)
			return
		}
	}

	if !passphrase.Valid(name) {
		c.reject(w, r, room.CloseInvalidRoom, "Invalid code", invalidFormat)
		return
	}

	ticket, err := c.Registry.Admit(r.Context(), name, role)
	switch {
	case err == nil:
	case errors.Is(err, room.ErrRoomFull):
		http.Error(w, "Connection limit reached", http.StatusTooManyRequests)
		return
	case errors.Is(err, room.ErrNoSender):
		c.reject(w, r, room.CloseInvalidRoom, "Invalid code", noSender)
		return
	case errors.Is(err, room.ErrRegistryClosed):
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	default:
		log.Error("room admission failed", zap.Error(err))
		c.reject(w, r, room.CloseVerificationError, "Server error", serverError)
		return
	}

	ws, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug("failed to upgrade connection", zap.Error(err))
		ticket.Cancel()
		return
	}

	log.Debug("websocket connected", zap.String("session", ticket.SessionID()))
	ticket.Serve(ws)
}

// verify accepts either a clearance minted by /api/clearance or a fresh
// Turnstile token.
func (c *SignalController) verify(r *http.Request) (int, string) {
	token := r.URL.Query().Get("token")
	if token == "" {
		return http.StatusForbidden, "Security verification required"
	}

	ip := cctx.String(r.Context(), cctx.ClientIP)
	if ip == "" {
		return http.StatusBadRequest, "Unable to identify client"
	}

	if c.Clearance != nil && c.Clearance.Verify(token, ip) == nil {
		return http.StatusOK, ""
	}

	ok, err := c.Verifier.Verify(r.Context(), token, ip)
	if err != nil {
		zap.L().Error("turnstile verification error", append(cctx.Fields(r.Context()), zap.Error(err))...)
	}
	if !ok {
		return http.StatusForbidden, "Security verification failed"
	}
	return http.StatusOK, ""
}

// reject upgrades the connection only to explain why it is closed, which
// browsers cannot read from a plain HTTP error.
func (c *SignalController) reject(w http.ResponseWriter, r *http.Request, code int, reason string, notice room.Notice) {
	ws, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Debug("failed to upgrade connection", zap.Error(err))
		return
	}
	room.Reject(ws, code, reason, notice)
}

func (c *SignalController) checkOrigin(r *http.Request) bool {
	if len(c.AllowedOrigins) == 0 {
		return true
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range c.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

func (c *SignalController) Register(router *mux.Router) {
	c.upgrader = &websocket.Upgrader{
		HandshakeTimeout:  10 * time.Second,
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		WriteBufferPool:   wsPool,
		EnableCompression: true,
		CheckOrigin:       c.checkOrigin,
	}

	router.HandleFunc("/ws/{passphrase}", c.handleSignal).Methods(http.MethodGet)
}
