package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/harun/procurer/internal/tracing"
	"github.com/harun/procurer/pkg/procurement"
	"github.com/harun/procurer/pkg/stores"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// signedURLError is the only failure detail the browser ever sees.
const signedURLError = "Failed to get signed URL"

type partRequest struct {
	PartToAcquire    string `json:"part_to_acquire"`
	LocationPostcode string `json:"location_postcode"`
}

type reservationRequest struct {
	ItemAvailable      bool    `json:"item_available"`
	Price              float64 `json:"price"`
	ReservedPickupTime string  `json:"reserved_pickup_time"`
	Notes              string  `json:"notes"`
}

func (s *Server) handleSignedURL(w http.ResponseWriter, r *http.Request) {
	ctx := tracing.WithAgentID(r.Context(), s.options.AgentID)
	logger := tracing.LoggerFromContext(ctx, s.logger)

	start := time.Now()
	signedURL, err := s.signedURLs.GetSignedURL(ctx, s.options.AgentID)
	s.metrics.ObserveProvider("get_signed_url", start)

	if err != nil {
		s.metrics.SignedURLRequestsTotal.WithLabelValues("error").Inc()
		logger.Error().Err(err).Msg("Failed to get signed URL")
		writeError(w, http.StatusInternalServerError, signedURLError)
		return
	}

	s.metrics.SignedURLRequestsTotal.WithLabelValues("ok").Inc()
	logger.Debug().Msg("Issued signed URL")
	writeJSON(w, http.StatusOK, map[string]string{"signedUrl": signedURL})
}

func (s *Server) handleProcurePart(w http.ResponseWriter, r *http.Request) {
	logger := tracing.LoggerFromContext(r.Context(), s.logger)

	var req partRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := s.records.SaveRequest(r.Context(), req.PartToAcquire, req.LocationPostcode)
	if err != nil {
		if errors.Is(err, procurement.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "part_to_acquire and location_postcode are required")
			return
		}
		logger.Error().Err(err).Msg("Failed to save procurement request")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.metrics.ProcurementRequestsTotal.Inc()
	logger.Info().Str("id", saved.ID).Str("part", saved.Part).Msg("Procurement request received")

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "Part procurement request received and saved",
		"id":      saved.ID,
		"data":    saved,
	})
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := s.records.ListRequests(r.Context(), 0)
	if err != nil {
		logger := tracing.LoggerFromContext(r.Context(), s.logger)
		logger.Error().Err(err).Msg("Failed to list procurement requests")
		writeError(w, http.StatusInternalServerError, "Error listing requests")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total":    len(requests),
		"requests": requests,
	})
}

func (s *Server) handleFindStores(w http.ResponseWriter, r *http.Request) {
	logger := tracing.LoggerFromContext(r.Context(), s.logger)

	if s.finder == nil || !s.finder.Available() {
		s.metrics.StoreSearchesTotal.WithLabelValues("unavailable").Inc()
		writeError(w, http.StatusServiceUnavailable, "Store search is not available. Check VALYU_API_KEY is set.")
		return
	}

	var req partRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	found, err := s.finder.Find(r.Context(), req.PartToAcquire, req.LocationPostcode)
	s.metrics.ObserveProvider("find_stores", start)

	switch {
	case err == nil:
	case errors.Is(err, stores.ErrInvalidInput):
		s.metrics.StoreSearchesTotal.WithLabelValues("invalid").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, stores.ErrNotConfigured):
		s.metrics.StoreSearchesTotal.WithLabelValues("unavailable").Inc()
		writeError(w, http.StatusServiceUnavailable, "Store search is not available. Check VALYU_API_KEY is set.")
		return
	case errors.Is(err, stores.ErrSearchFailed):
		s.metrics.StoreSearchesTotal.WithLabelValues("error").Inc()
		logger.Error().Err(err).Msg("Store search failed")
		writeError(w, http.StatusBadGateway, "Search service error")
		return
	default:
		s.metrics.StoreSearchesTotal.WithLabelValues("error").Inc()
		logger.Error().Err(err).Msg("Unexpected store search error")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	s.metrics.StoreSearchesTotal.WithLabelValues("ok").Inc()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "success",
		"message":           fmt.Sprintf("Found %d stores", len(found)),
		"total_stores":      len(found),
		"stores":            found,
		"part_to_acquire":   req.PartToAcquire,
		"location_postcode": req.LocationPostcode,
	})
}

func (s *Server) handleSaveReservation(w http.ResponseWriter, r *http.Request) {
	logger := tracing.LoggerFromContext(r.Context(), s.logger)

	var req reservationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := s.records.SaveReservation(r.Context(), procurement.Reservation{
		ItemAvailable: req.ItemAvailable,
		Price:         req.Price,
		PickupTime:    req.ReservedPickupTime,
		Notes:         req.Notes,
	})
	if err != nil {
		if errors.Is(err, procurement.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error().Err(err).Msg("Failed to save reservation")
		writeError(w, http.StatusInternalServerError, "Failed to save details.")
		return
	}

	s.metrics.ReservationsTotal.Inc()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "Details saved successfully. You can now end the call.",
		"id":      saved.ID,
	})
}

func (s *Server) handleListReservations(w http.ResponseWriter, r *http.Request) {
	reservations, err := s.records.ListReservations(r.Context(), 0)
	if err != nil {
		logger := tracing.LoggerFromContext(r.Context(), s.logger)
		logger.Error().Err(err).Msg("Failed to list reservations")
		writeError(w, http.StatusInternalServerError, "Error listing reservations")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total":        len(reservations),
		"reservations": reservations,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"uptime":           time.Since(s.startTime).Seconds(),
		"search_available": s.finder != nil && s.finder.Available(),
		"timestamp":        time.Now().UnixMilli(),
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errors.New("request body too large")
		}
		return errors.New("invalid JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
