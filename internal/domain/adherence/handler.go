package adherence

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"suppletrack/internal/domain/doses"
	"suppletrack/internal/middleware"
)

func RegisterRoutes(r chi.Router, svc *Service, dosesSvc *doses.Service) {
	r.Route("/doses/{doseID}/intake", func(ir chi.Router) {
		ir.Post("/", recordIntakeHandler(svc, dosesSvc))
		ir.Delete("/", clearIntakeHandler(svc, dosesSvc))
	})

	r.Get("/checklist", checklistHandler(svc, dosesSvc))
	r.Get("/calendar", calendarHandler(svc, dosesSvc))
	r.Get("/adherence/summary", summaryHandler(svc))
	r.Get("/export/adherence.csv", exportCSVHandler(svc, dosesSvc))
}

type intakeRequest struct {
	Date   string `json:"date"` // YYYY-MM-DD
	Slot   string `json:"slot"` // HH:MM
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type entryResponse struct {
	ID      string     `json:"id"`
	DoseID  string     `json:"dose_id"`
	Date    string     `json:"date"`
	Slot    string     `json:"slot"`
	Status  string     `json:"status"`
	ActedAt *time.Time `json:"acted_at,omitempty"`
	Reason  string     `json:"reason,omitempty"`
}

type checklistItemResponse struct {
	DoseID     string     `json:"dose_id"`
	DoseName   string     `json:"dose_name"`
	DosageText string     `json:"dosage_text"`
	Icon       string     `json:"icon,omitempty"`
	Color      string     `json:"color,omitempty"`
	Slot       string     `json:"slot"`
	Status     string     `json:"status"`
	ActedAt    *time.Time `json:"acted_at,omitempty"`
	Reason     string     `json:"reason,omitempty"`
}

type daySummaryResponse struct {
	Date    string  `json:"date"`
	Taken   int     `json:"taken"`
	Skipped int     `json:"skipped"`
	Missed  int     `json:"missed"`
	Ratio   float64 `json:"ratio"`
}

type summaryResponse struct {
	Percent int `json:"percent"`
	Entries int `json:"entries"`
}

// recordIntakeHandler godoc
// @Summary Registrar toma u omisión
// @Description El tilde del checklist. Pasa por los mismos entry points idempotentes del ledger que usa el handler de notificaciones: repetir un taken devuelve 200 con la entrada existente. Autenticación: `X-Debug-User-ID` (dev) o `Authorization: Bearer <token>` (prod).
// @Tags adherence
// @Accept json
// @Produce json
// @Param doseID path string true "ID de la dosis"
// @Param payload body intakeRequest true "date YYYY-MM-DD, slot HH:MM, status taken|skipped"
// @Success 201 {object} entryResponse
// @Success 200 {object} entryResponse "taken repetido, entrada existente"
// @Failure 400 {string} string "invalid json / clave inválida"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "dose not found"
// @Router /doses/{doseID}/intake [post]
func recordIntakeHandler(svc *Service, dosesSvc *doses.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		d, err := dosesSvc.GetByID(r.Context(), chi.URLParam(r, "doseID"))
		if err != nil {
			http.Error(w, "dose not found", http.StatusNotFound)
			return
		}
		if d.OwnerUserID != claims.UserID {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		var req intakeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var (
			e        Entry
			inserted = true
		)
		switch Status(req.Status) {
		case StatusTaken:
			e, inserted, err = svc.RecordTaken(r.Context(), claims.UserID, d.ID, req.Date, req.Slot)
		case StatusSkipped:
			e, err = svc.RecordSkipped(r.Context(), claims.UserID, d.ID, req.Date, req.Slot, req.Reason)
		default:
			http.Error(w, "status must be taken or skipped", http.StatusBadRequest)
			return
		}
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		status := http.StatusCreated
		if !inserted {
			// Ya existía la entrada Taken: no-op idempotente.
			status = http.StatusOK
		}
		writeJSON(w, status, toEntryResponse(e))
	}
}

// clearIntakeHandler godoc
// @Summary Destildar una toma
// @Description Borra la entrada Taken de la clave (semántica de toggle). No inserta Skipped: el slot vuelve a pending o missed según la hora.
// @Tags adherence
// @Produce json
// @Param doseID path string true "ID de la dosis"
// @Param date query string true "YYYY-MM-DD"
// @Param slot query string true "HH:MM"
// @Success 200 {object} map[string]bool
// @Failure 400 {string} string "clave inválida"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "dose not found"
// @Router /doses/{doseID}/intake [delete]
func clearIntakeHandler(svc *Service, dosesSvc *doses.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		d, err := dosesSvc.GetByID(r.Context(), chi.URLParam(r, "doseID"))
		if err != nil {
			http.Error(w, "dose not found", http.StatusNotFound)
			return
		}
		if d.OwnerUserID != claims.UserID {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		removed, err := svc.ClearTaken(r.Context(), d.ID, r.URL.Query().Get("date"), r.URL.Query().Get("slot"))
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
	}
}

// checklistHandler godoc
// @Summary Checklist del día
// @Description Combina schedule y ledger: cada slot programado sale con su estado (taken/skipped registrado, missed inferido si la hora pasó, pending si no). Incluye registros manuales fuera de schedule.
// @Tags adherence
// @Produce json
// @Param date query string false "YYYY-MM-DD, default hoy"
// @Success 200 {array} checklistItemResponse
// @Failure 400 {string} string "date must be YYYY-MM-DD"
// @Failure 401 {string} string "unauthorized"
// @Router /checklist [get]
func checklistHandler(svc *Service, dosesSvc *doses.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		now := time.Now()
		date := strings.TrimSpace(r.URL.Query().Get("date"))
		if date == "" {
			date = doses.FormatDate(now)
		}

		entries, err := svc.EntriesForDate(r.Context(), claims.UserID, date)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		ds, err := dosesSvc.ListByOwner(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		items := BuildChecklist(ds, entries, date, now)
		out := make([]checklistItemResponse, 0, len(items))
		for _, it := range items {
			out = append(out, toChecklistItemResponse(it))
		}

		writeJSON(w, http.StatusOK, out)
	}
}

// calendarHandler godoc
// @Summary Resumen por día para el calendario
// @Description Un DaySummary por día con actividad en el rango; días sin entradas ni slots vencidos se omiten (sin datos no es 0%).
// @Tags adherence
// @Produce json
// @Param from query string true "YYYY-MM-DD"
// @Param to query string true "YYYY-MM-DD"
// @Success 200 {array} daySummaryResponse
// @Failure 400 {string} string "from/to must be YYYY-MM-DD"
// @Failure 401 {string} string "unauthorized"
// @Router /calendar [get]
func calendarHandler(svc *Service, dosesSvc *doses.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		from := strings.TrimSpace(r.URL.Query().Get("from"))
		to := strings.TrimSpace(r.URL.Query().Get("to"))

		entries, err := svc.EntriesInRange(r.Context(), claims.UserID, from, to)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, "from/to must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		ds, err := dosesSvc.ListByOwner(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		days := BuildCalendar(ds, entries, from, to, time.Now())
		out := make([]daySummaryResponse, 0, len(days))
		for _, d := range days {
			out = append(out, daySummaryResponse(d))
		}

		writeJSON(w, http.StatusOK, out)
	}
}

func summaryHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		entries, err := svc.EntriesInRange(r.Context(), claims.UserID,
			strings.TrimSpace(r.URL.Query().Get("from")),
			strings.TrimSpace(r.URL.Query().Get("to")))
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, "from/to must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, summaryResponse{
			Percent: OverallPercent(entries),
			Entries: len(entries),
		})
	}
}

// exportCSVHandler vuelca el historial del rango para análisis offline.
func exportCSVHandler(svc *Service, dosesSvc *doses.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		entries, err := svc.EntriesInRange(r.Context(), claims.UserID,
			strings.TrimSpace(r.URL.Query().Get("from")),
			strings.TrimSpace(r.URL.Query().Get("to")))
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, "from/to must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		names := map[string]string{}
		if ds, err := dosesSvc.ListByOwner(r.Context(), claims.UserID); err == nil {
			for _, d := range ds {
				names[d.ID] = d.Name
			}
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="adherence.csv"`)
		w.WriteHeader(http.StatusOK)

		cw := csv.NewWriter(w)
		_ = cw.Write([]string{"dose_id", "dose_name", "date", "slot", "status", "acted_at", "reason"})
		for _, e := range entries {
			actedAt := ""
			if !e.ActedAt.IsZero() {
				actedAt = e.ActedAt.UTC().Format(time.RFC3339)
			}
			_ = cw.Write([]string{e.DoseID, names[e.DoseID], e.Date, e.Slot, string(e.Status), actedAt, e.Reason})
		}
		cw.Flush()
	}
}

func toEntryResponse(e Entry) entryResponse {
	out := entryResponse{
		ID:     e.ID,
		DoseID: e.DoseID,
		Date:   e.Date,
		Slot:   e.Slot,
		Status: string(e.Status),
		Reason: e.Reason,
	}
	if !e.ActedAt.IsZero() {
		t := e.ActedAt
		out.ActedAt = &t
	}
	return out
}

func toChecklistItemResponse(it ChecklistItem) checklistItemResponse {
	out := checklistItemResponse{
		DoseID:     it.DoseID,
		DoseName:   it.DoseName,
		DosageText: it.DosageText,
		Icon:       it.Icon,
		Color:      it.Color,
		Slot:       it.Slot,
		Status:     string(it.Status),
		Reason:     it.Reason,
	}
	if !it.ActedAt.IsZero() {
		t := it.ActedAt
		out.ActedAt = &t
	}
	return out
}

// writeJSON duplicado a propósito por módulo; ver nota en doses/handler.go.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
