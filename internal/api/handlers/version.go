package handlers

import (
	"encoding/json"
	"net/http"
	"os"
)

// Version reports the running service version.
// GET /api/version
func Version(w http.ResponseWriter, r *http.Request) {
	version := os.Getenv("SERVICE_VERSION")
	if version == "" {
		version = "dev"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"service": "siteops-backend",
		"version": version,
	})
}
