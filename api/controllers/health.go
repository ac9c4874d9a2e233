package controllers

import (
	"net/http"

	"github.com/pharmaline/catalog-backend/api/responses"
	"github.com/pharmaline/catalog-backend/pkg/config"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Pharmaline-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}
