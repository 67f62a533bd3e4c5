package doses

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"suppletrack/internal/middleware"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/doses", func(dr chi.Router) {
		dr.Post("/", createDoseHandler(svc))
		dr.Get("/", listDosesHandler(svc))
		dr.Get("/{doseID}", getDoseHandler(svc))
		dr.Put("/{doseID}", updateDoseHandler(svc))
		dr.Delete("/{doseID}", deleteDoseHandler(svc))
	})
}

type slotRequest struct {
	Time     string `json:"time"`     // HH:MM
	Weekdays []int  `json:"weekdays"` // 0=domingo .. 6=sábado
	EndDate  string `json:"end_date,omitempty"`
}

type doseRequest struct {
	Name       string        `json:"name"`
	DosageText string        `json:"dosage_text"`
	Kind       string        `json:"kind"`
	Icon       string        `json:"icon"`
	Color      string        `json:"color"`
	Note       string        `json:"note"`
	Schedule   []slotRequest `json:"schedule"`
}

type slotResponse struct {
	Time     string `json:"time"`
	Weekdays []int  `json:"weekdays"`
	EndDate  string `json:"end_date,omitempty"`
}

type doseResponse struct {
	ID          string         `json:"id"`
	OwnerUserID string         `json:"owner_user_id"`
	Name        string         `json:"name"`
	DosageText  string         `json:"dosage_text"`
	Kind        string         `json:"kind"`
	Icon        string         `json:"icon"`
	Color       string         `json:"color"`
	Note        string         `json:"note"`
	PRN         bool           `json:"prn"`
	Schedule    []slotResponse `json:"schedule"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func createDoseHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req doseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		d, err := svc.Create(r.Context(), claims.UserID, toCreateInput(req))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusCreated, toDoseResponse(d))
	}
}

func listDosesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListByOwner(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]doseResponse, 0, len(items))
		for _, d := range items {
			out = append(out, toDoseResponse(d))
		}

		writeJSON(w, http.StatusOK, out)
	}
}

func getDoseHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		d, err := svc.GetByID(r.Context(), chi.URLParam(r, "doseID"))
		if err != nil {
			http.Error(w, "dose not found", http.StatusNotFound)
			return
		}
		if d.OwnerUserID != claims.UserID {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		writeJSON(w, http.StatusOK, toDoseResponse(d))
	}
}

func updateDoseHandler(svc *Service) http.HandlerFunc {
	// PUT con semántica de formulario: reemplaza todo, schedule incluido.
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req doseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		updated, err := svc.Update(r.Context(), chi.URLParam(r, "doseID"), claims.UserID, toCreateInput(req))
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrForbidden):
				http.Error(w, "forbidden", http.StatusForbidden)
			case errors.Is(err, ErrNotFound):
				http.Error(w, "dose not found", http.StatusNotFound)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, toDoseResponse(updated))
	}
}

func deleteDoseHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		err := svc.Delete(r.Context(), chi.URLParam(r, "doseID"), claims.UserID)
		if err != nil {
			switch {
			case errors.Is(err, ErrForbidden):
				http.Error(w, "forbidden", http.StatusForbidden)
			case errors.Is(err, ErrNotFound):
				http.Error(w, "dose not found", http.StatusNotFound)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func toCreateInput(req doseRequest) CreateInput {
	in := CreateInput{
		Name:       req.Name,
		DosageText: req.DosageText,
		Kind:       req.Kind,
		Icon:       req.Icon,
		Color:      req.Color,
		Note:       req.Note,
	}
	for _, s := range req.Schedule {
		in.Schedule = append(in.Schedule, SlotInput{
			Time:     s.Time,
			Weekdays: s.Weekdays,
			EndDate:  s.EndDate,
		})
	}
	return in
}

func toDoseResponse(d Dose) doseResponse {
	slots := make([]slotResponse, 0, len(d.Schedule))
	for _, s := range d.Schedule {
		wds := make([]int, 0, len(s.Weekdays))
		for _, w := range s.Weekdays {
			wds = append(wds, int(w))
		}
		slots = append(slots, slotResponse{
			Time:     s.Time.String(),
			Weekdays: wds,
			EndDate:  s.EndDate,
		})
	}
	return doseResponse{
		ID:          d.ID,
		OwnerUserID: d.OwnerUserID,
		Name:        d.Name,
		DosageText:  d.DosageText,
		Kind:        string(d.Kind),
		Icon:        d.Icon,
		Color:       d.Color,
		Note:        d.Note,
		PRN:         d.IsPRN(),
		Schedule:    slots,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// writeJSON está duplicado a propósito en los handlers de cada módulo
// (doses/adherence/settings) para no crear helpers compartidos antes de
// tiempo.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
