package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/xavierca1/leadsync/internal/entity"
)

const (
	defaultLimit = 20
	maxLimit     = 200
)

// MonitoringReader é o lado só-leitura do banco usado pelo painel.
type MonitoringReader interface {
	Stats(ctx context.Context) (*entity.SyncStats, error)
	RecentSyncRuns(ctx context.Context, limit int) ([]entity.SyncRunSummary, error)
	LeadsByConsultant(ctx context.Context) ([]entity.ConsultantCount, error)
	ProcessingByStatus(ctx context.Context) ([]entity.StatusCount, error)
	RecentProcessing(ctx context.Context, limit int) ([]entity.ProcessingRecord, error)
	ProcessingErrors(ctx context.Context, limit int) ([]entity.ProcessingRecord, error)
}

type MonitoringHandler struct {
	Repo MonitoringReader
}

func NewMonitoringHandler(repo MonitoringReader) *MonitoringHandler {
	return &MonitoringHandler{Repo: repo}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *MonitoringHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Repo.Stats(r.Context())
	if err != nil {
		h.fail(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *MonitoringHandler) HandleRuns(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	runs, err := h.Repo.RecentSyncRuns(r.Context(), limit)
	if err != nil {
		h.fail(w, "runs", err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *MonitoringHandler) HandleConsultants(w http.ResponseWriter, r *http.Request) {
	out, err := h.Repo.LeadsByConsultant(r.Context())
	if err != nil {
		h.fail(w, "consultants", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *MonitoringHandler) HandleBitrixStats(w http.ResponseWriter, r *http.Request) {
	out, err := h.Repo.ProcessingByStatus(r.Context())
	if err != nil {
		h.fail(w, "bitrix stats", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *MonitoringHandler) HandleBitrixRecent(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	out, err := h.Repo.RecentProcessing(r.Context(), limit)
	if err != nil {
		h.fail(w, "bitrix recent", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *MonitoringHandler) HandleBitrixErrors(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	out, err := h.Repo.ProcessingErrors(r.Context(), limit)
	if err != nil {
		h.fail(w, "bitrix errors", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *MonitoringHandler) fail(w http.ResponseWriter, what string, err error) {
	log.Printf("❌ Monitor: erro ao consultar %s: %v", what, err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

// parseLimit lê ?limit=N, com teto para não varrer a tabela inteira.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
		return 0, false
	}
	if n > maxLimit {
		n = maxLimit
	}
	return n, true
}
