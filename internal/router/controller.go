package router

import (
	"github.com/gorilla/mux"
)

type Controller interface {
	Register(router *mux.Router)
}

// Mount registers controllers in order. Catch-all controllers go last since
// mux matches routes in registration order.
func Mount(router *mux.Router, controllers ...Controller) {
	for _, c := range controllers {
		if c == nil {
			continue
		}
		c.Register(router)
	}
}
