package http

import (
	"net/http"
)

type versionResponse struct {
	Service string `json:"service"`
	Version string `json:"version"`
}

// HandleVersion responds with the running service version.
func HandleVersion(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, versionResponse{
			Service: "bento",
			Version: version,
		})
	}
}
