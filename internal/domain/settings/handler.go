package settings

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"suppletrack/internal/middleware"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/settings", func(sr chi.Router) {
		sr.Get("/", getSettingsHandler(svc))
		sr.Patch("/", updateSettingsHandler(svc))
	})
}

type settingsResponse struct {
	NotificationsEnabled bool   `json:"notifications_enabled"`
	DarkMode             bool   `json:"dark_mode"`
	Language             string `json:"language"`
}

type updateSettingsRequest struct {
	// Punteros para PATCH real: nil = no tocar.
	NotificationsEnabled *bool   `json:"notifications_enabled"`
	DarkMode             *bool   `json:"dark_mode"`
	Language             *string `json:"language"`
}

func getSettingsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		s, err := svc.Get(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, toSettingsResponse(s))
	}
}

func updateSettingsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req updateSettingsRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		s, err := svc.Update(r.Context(), UpdateInput{
			NotificationsEnabled: req.NotificationsEnabled,
			DarkMode:             req.DarkMode,
			Language:             req.Language,
		})
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, toSettingsResponse(s))
	}
}

func toSettingsResponse(s Settings) settingsResponse {
	return settingsResponse{
		NotificationsEnabled: s.NotificationsEnabled,
		DarkMode:             s.DarkMode,
		Language:             s.Language,
	}
}

// writeJSON duplicado a propósito por módulo; ver nota en doses/handler.go.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
