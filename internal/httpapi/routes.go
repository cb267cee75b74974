package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/coopsweep/minesweeper-backend/internal/config"
	"github.com/coopsweep/minesweeper-backend/internal/registry"
	"github.com/coopsweep/minesweeper-backend/internal/ws"
)

func SetupRoutes(reg *registry.Registry, cfg config.Config, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Get("/rooms/{roomID}", RoomSummary(reg))
	r.Get("/ws", ws.Handler(reg, cfg, log))
	return r
}
