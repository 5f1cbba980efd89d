package rest

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/render"

	"github.com/machshop/kitting/pkg/infrastructure/events"
)

// EventView is the wire representation of one event.
type EventView struct {
	Type      string      `json:"type"`
	Stream    string      `json:"stream"`
	Version   int         `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// ReadEvents handles GET /api/v1/events. With ?stream= it reads one stream
// from ?from= (1-based version); without it, the global feed from ?from=
// (0-based position).
func ReadEvents(log *slog.Logger, store events.EventStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ReadEvents"

		from, _ := strconv.Atoi(r.URL.Query().Get("from"))

		var (
			evts []events.Event
			err  error
		)
		if stream := r.URL.Query().Get("stream"); stream != "" {
			evts, err = store.Read(stream, from)
		} else {
			evts, err = store.ReadAll(from)
		}
		if err != nil {
			log.With(slog.String("op", op), slog.String("error", err.Error())).Error("failed to read events")
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, errorResponse{Error: err.Error()})
			return
		}

		out := make([]EventView, 0, len(evts))
		for _, e := range evts {
			out = append(out, EventView{
				Type:      e.Type(),
				Stream:    e.StreamID(),
				Version:   e.Version(),
				Timestamp: e.Timestamp(),
				Data:      e.Data(),
			})
		}
		render.JSON(w, r, out)
	}
}
