package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/coopsweep/minesweeper-backend/internal/registry"
	"github.com/coopsweep/minesweeper-backend/internal/room"
)

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

type roomSummary struct {
	RoomID  string `json:"room_id"`
	Phase   string `json:"phase"`
	Players int    `json:"players"`
	Steps   int    `json:"steps"`
}

// RoomSummary exposes a read-only snapshot of one room, mainly for debugging
// and health dashboards.
func RoomSummary(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomID")

		reply := make(chan *room.Room, 1)
		reg.Inbox() <- registry.Get{ID: roomID, Reply: reply}
		rm := <-reply
		if rm == nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		stateReply := make(chan room.View, 1)
		if !rm.Send(room.GetState{Reply: stateReply}) {
			// Evicted between lookup and query.
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		select {
		case view := <-stateReply:
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(roomSummary{
				RoomID:  view.RoomID,
				Phase:   string(view.Phase),
				Players: len(view.Players),
				Steps:   view.Steps,
			})
		case <-time.After(2 * time.Second):
			http.Error(w, "room unavailable", http.StatusServiceUnavailable)
		}
	}
}
