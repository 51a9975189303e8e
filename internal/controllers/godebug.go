package controllers

import (
	"net/http/pprof"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/helpify-project/pairlink/internal/router"
)

var _ router.Controller = (*GoDebugController)(nil)

type GoDebugController struct {
}

func (c *GoDebugController) Register(router *mux.Router) {
	zap.L().Warn("enabling /debug/pprof endpoint")
	sub := router.PathPrefix("/debug/pprof").Subrouter()
	sub.HandleFunc("/", pprof.Index)
	sub.Handle("/heap", pprof.Handler("heap"))
	sub.Handle("/goroutine", pprof.Handler("goroutine"))
	sub.HandleFunc("/cmdline", pprof.Cmdline)
	sub.HandleFunc("/profile", pprof.Profile)
	sub.HandleFunc("/symbol", pprof.Symbol)
	sub.HandleFunc("/trace", pprof.Trace)
}
