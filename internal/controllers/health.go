package controllers

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/helpify-project/pairlink/internal/router"
)

var _ router.Controller = (*HealthController)(nil)

type HealthController struct {
	// Ready, if set, must return nil for the server to report healthy.
	Ready func() error
}

func (c *HealthController) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if c.Ready != nil {
		if err := c.Ready(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintln(w, err.Error())
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (c *HealthController) Register(router *mux.Router) {
	router.HandleFunc("/healthz", c.handleHealthz).
		Methods(http.MethodGet)
}
