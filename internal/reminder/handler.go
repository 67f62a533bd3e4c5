package reminder

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"suppletrack/internal/domain/doses"
	"suppletrack/internal/middleware"
)

func RegisterRoutes(r chi.Router, sched *Scheduler, dosesSvc *doses.Service) {
	r.Route("/reminders", func(rr chi.Router) {
		// El ack llega del contexto de entrega del sistema (tap sobre la
		// acción de la notificación), no de una sesión de usuario: sin
		// claims. El payload identifica el slot; dosis desconocida es
		// no-op.
		rr.Post("/ack", ackHandler(sched))

		rr.Post("/resync", resyncHandler(sched))
		rr.Get("/pending", pendingHandler(sched, dosesSvc))
	})
}

type pendingResponse struct {
	DoseID string `json:"dose_id"`
	Slot   string `json:"slot"`
}

type resyncResponse struct {
	Registered  int `json:"registered"`
	SkippedPast int `json:"skipped_past"`
	SkippedDone int `json:"skipped_done"`
	Refused     int `json:"refused"`
}

func ackHandler(sched *Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<16))
		if err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}

		var p Payload
		if err := json.Unmarshal(raw, &p); err != nil || strings.TrimSpace(p.DoseID) == "" {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}

		if err := sched.HandleMarkTaken(r.Context(), raw); err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func resyncHandler(sched *Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		res, err := sched.Reschedule(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, resyncResponse{
			Registered:  res.Registered,
			SkippedPast: res.SkippedPast,
			SkippedDone: res.SkippedDone,
			Refused:     len(res.Refused),
		})
	}
}

func pendingHandler(sched *Scheduler, dosesSvc *doses.Service) http.HandlerFunc {
	// Solo los slots de dosis del usuario autenticado.
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		mine := map[string]struct{}{}
		ds, err := dosesSvc.ListByOwner(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		for _, d := range ds {
			mine[d.ID] = struct{}{}
		}

		out := make([]pendingResponse, 0)
		for _, ref := range sched.Pending() {
			if _, ok := mine[ref.DoseID]; !ok {
				continue
			}
			out = append(out, pendingResponse{DoseID: ref.DoseID, Slot: ref.Slot})
		}

		writeJSON(w, http.StatusOK, out)
	}
}

// writeJSON duplicado a propósito por módulo; ver nota en doses/handler.go.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
