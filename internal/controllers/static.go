package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/helpify-project/pairlink/internal/router"
)

var _ router.Controller = (*StaticController)(nil)

// StaticController serves the web frontend. It matches every path, so it
// must be registered last.
type StaticController struct {
	Dir string
}

func (c *StaticController) Register(router *mux.Router) {
	router.PathPrefix("/").
		Handler(http.FileServer(http.Dir(c.Dir))).
		Methods(http.MethodGet, http.MethodHead)
}
