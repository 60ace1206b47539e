package web

import (
	"net/http"

	"github.com/JonMunkholm/tablecfg/internal/core"
	"github.com/JonMunkholm/tablecfg/internal/core/diff"
	"github.com/JonMunkholm/tablecfg/internal/web/templates"
)

// handleIndex renders the upload forms.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	data := templates.IndexData{
		DefaultThreshold:     s.service.DefaultThreshold(),
		MinThreshold:         diff.MinThreshold,
		MaxThreshold:         diff.MaxThreshold,
		MaxFileSizeMB:        s.cfg.Upload.MaxFileSize / (1 << 20),
		CorrectOnlyWhenWrong: s.cfg.Compare.CorrectOnlyWhenWrong,
	}
	if err := templates.Index(data).Render(r.Context(), w); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
	}
}

// HealthResponse reports liveness and run capacity.
type HealthResponse struct {
	Status string                `json:"status"`
	Runs   core.RunLimiterStatus `json:"runs"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Runs:   s.service.Limiter().Status(),
	})
}
