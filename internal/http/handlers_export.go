package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"grovq/internal/amqp"
	"grovq/internal/export"
)

// handleExport streams the filtered dataset as a CSV attachment.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if !s.requireGet(w, r) {
		return
	}
	_, rows, err := s.table(r.Context())
	if err != nil {
		s.writeDatasetError(w, r, err)
		return
	}

	filtered := parseFilter(r).Apply(rows)

	name := fmt.Sprintf("customers-%s.csv", time.Now().Format("20060102-150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)

	if err := export.WriteCSV(w, filtered); err != nil {
		// Headers are already sent; the truncated body is all we can signal.
		slog.Error("CSV export failed",
			"request_id", r.Context().Value(requestIDKey{}),
			"error", err)
	}
}

// handleExportAsync enqueues an export request for the worker instead of
// producing the file inline.
func (s *Server) handleExportAsync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.publisher == nil {
		writeJSON(w, http.StatusServiceUnavailable,
			map[string]string{"error": "async export not configured"})
		return
	}

	filter := parseFilter(r)
	requestID := generateRequestID()
	msg := amqp.NewExportRequestMessage(requestID, filter.City, filter.Segment, filter.Zone)

	if err := s.publisher.PublishExportRequest(r.Context(), msg); err != nil {
		slog.Error("failed to publish export request",
			"request_id", requestID,
			"error", err)
		writeJSON(w, http.StatusBadGateway,
			map[string]string{"error": "failed to enqueue export"})
		return
	}

	slog.Info("export request enqueued",
		"request_id", requestID,
		"city", filter.City,
		"segment", filter.Segment,
		"zone", filter.Zone)

	writeJSON(w, http.StatusAccepted, struct {
		RequestID string `json:"request_id"`
		File      string `json:"file"`
	}{
		RequestID: requestID,
		File:      requestID + ".csv",
	})
}
