package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fieldops/gearscan/internal/utils"
	"github.com/fieldops/gearscan/pkg/scan"
	"github.com/fieldops/gearscan/pkg/storage"
)

type scanRequest struct {
	Image string `json:"image"`
}

type scanResponse struct {
	Found      bool        `json:"found"`
	Count      int         `json:"count"`
	Detections scan.Result `json:"detections"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScan implements the scan wire protocol: a data-URL JPEG in, ranked
// detections out. Enrichment is left to the caller; the catalog is served
// separately under /api/equipment.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	raw, err := utils.DecodeDataURL(req.Image)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if mime := http.DetectContentType(raw); !strings.HasPrefix(mime, "image/") {
		writeError(w, http.StatusBadRequest, "payload is not an image")
		return
	}

	detections, err := s.Engine.Infer(r.Context(), req.Image)
	if err != nil {
		utils.Log.Errorf("scan request failed upstream: %v", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	ranked := scan.NewAggregator(nil).Aggregate(detections)
	writeJSON(w, http.StatusOK, scanResponse{
		Found:      len(ranked) > 0,
		Count:      len(ranked),
		Detections: ranked,
	})
}

func (s *Server) handleEquipment(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusNotFound, "no catalog configured")
		return
	}

	q := r.URL.Query()
	items, err := s.DB.ListItems(r.Context(), storage.ListOptions{
		Category: q.Get("category"),
		Search:   q.Get("search"),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if items == nil {
		items = []storage.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleEquipmentLookup(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusNotFound, "no catalog configured")
		return
	}

	item, found, err := s.DB.GetByLabel(r.Context(), r.PathValue("label"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "unknown label")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError mirrors the engine's error shape so clients can surface the
// detail field directly.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
