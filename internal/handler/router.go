package handler

import (
	"net/http"

	"github.com/Dan9191/loan-service/internal/middleware"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// NewRouter builds the full HTTP handler. The middlewares wrap the router
// itself so unmatched routes and CORS preflights are tagged and logged too.
func NewRouter(h *Handler, log *logrus.Logger) http.Handler {
	r := mux.NewRouter()
	h.Register(r)
	return middleware.RequestID(middleware.Logging(log)(middleware.CORS()(r)))
}
