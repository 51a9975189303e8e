package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/helpify-project/pairlink/internal/cctx"
	"github.com/helpify-project/pairlink/internal/clearance"
	"github.com/helpify-project/pairlink/internal/passphrase"
	"github.com/helpify-project/pairlink/internal/ratelimit"
	"github.com/helpify-project/pairlink/internal/room"
	"github.com/helpify-project/pairlink/internal/router"
	"github.com/helpify-project/pairlink/internal/turnstile"
)

var _ router.Controller = (*APIController)(nil)

// Verifier checks a CAPTCHA widget token.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

const developmentIP = "127.0.0.1"

type APIController struct {
	Registry    *room.Registry
	Passphrases *passphrase.Codec
	Limiter     *ratelimit.Keyed
	Verifier    Verifier
	Clearance   *clearance.Issuer
	SiteKey     string
	Development bool
}

type configResponse struct {
	TurnstileSiteKey string `json:"turnstileSiteKey"`
}

type passphraseResponse struct {
	Passphrase string `json:"passphrase"`
}

type clearanceRequest struct {
	Token string `json:"token"`
}

type clearanceResponse struct {
	Clearance string    `json:"clearance"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (c *APIController) handleConfig(w http.ResponseWriter, r *http.Request) {
	siteKey := c.SiteKey
	if c.Development {
		siteKey = turnstile.TestSiteKey
	}
	writeJSON(w, http.StatusOK, configResponse{TurnstileSiteKey: siteKey})
}

func (c *APIController) handlePassphrase(w http.ResponseWriter, r *http.Request) {
	ip := c.clientIP(r)
	if ip == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{"Unable to identify client."})
		return
	}

	if !c.Limiter.Allow(ip) {
		writeJSON(w, http.StatusTooManyRequests, errorResponse{"Rate limit exceeded. Try again later."})
		return
	}

	p, err := c.Passphrases.Generate(passphrase.DefaultWords)
	if err != nil {
		zap.L().Error("failed to generate passphrase", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{"Could not generate a code."})
		return
	}
	writeJSON(w, http.StatusOK, passphraseResponse{Passphrase: p})
}

func (c *APIController) handleClearance(w http.ResponseWriter, r *http.Request) {
	ip := c.clientIP(r)
	if ip == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{"Unable to identify client."})
		return
	}

	var req clearanceRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil || req.Token == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{"Security verification required"})
		return
	}

	ok, err := c.Verifier.Verify(r.Context(), req.Token, ip)
	if err != nil {
		zap.L().Error("turnstile verification error", append(cctx.Fields(r.Context()), zap.Error(err))...)
	}
	if !ok {
		writeJSON(w, http.StatusForbidden, errorResponse{"Security verification failed"})
		return
	}

	token, expiresAt := c.Clearance.Issue(ip)
	writeJSON(w, http.StatusOK, clearanceResponse{Clearance: token, ExpiresAt: expiresAt})
}

func (c *APIController) handleStatus(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["passphrase"]
	if !passphrase.Valid(name) {
		writeJSON(w, http.StatusBadRequest, errorResponse{"Invalid code format."})
		return
	}

	st, err := c.Registry.Status(r.Context(), name)
	if err != nil {
		zap.L().Error("room status failed", zap.String("room", name), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{"Could not verify code. Please try again."})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// clientIP falls back to localhost in development, where no edge sets it.
func (c *APIController) clientIP(r *http.Request) string {
	ip := cctx.String(r.Context(), cctx.ClientIP)
	if ip == "" && c.Development {
		ip = developmentIP
	}
	return ip
}

func (c *APIController) Register(router *mux.Router) {
	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/config", c.handleConfig).Methods(http.MethodGet)
	api.HandleFunc("/passphrase", c.handlePassphrase).Methods(http.MethodGet)
	api.HandleFunc("/clearance", c.handleClearance).Methods(http.MethodPost)
	api.HandleFunc("/rooms/{passphrase}/status", c.handleStatus).Methods(http.MethodGet)
}
