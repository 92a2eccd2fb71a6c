package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/example/trip-search/internal/matcher"
	"github.com/example/trip-search/internal/models"
	"github.com/example/trip-search/internal/observability"
	"github.com/example/trip-search/internal/payments"
	"github.com/example/trip-search/internal/pricing"
	"github.com/example/trip-search/internal/route"
	"github.com/example/trip-search/internal/storage"
)

type Searcher interface {
	Search(ctx context.Context, c models.SearchCriteria) ([]models.TripResult, error)
}

// FareHolder reserves and releases segment fares with the payment provider.
type FareHolder interface {
	Hold(ctx context.Context, req payments.HoldRequest) (string, error)
	Cancel(ctx context.Context, paymentIntentID string) error
}

// Deps wires the server. Holds and Limiter may be nil.
type Deps struct {
	Search   Searcher
	Store    storage.TripStore
	Holds    FareHolder
	Currency string
	Limiter  *rate.Limiter
	Logger   *slog.Logger
}

type Server struct {
	search   Searcher
	store    storage.TripStore
	holds    FareHolder
	currency string
	limiter  *rate.Limiter
	logger   *slog.Logger
	mux      *mux.Router
}

func NewServer(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		search:   d.Search,
		store:    d.Store,
		holds:    d.Holds,
		currency: d.Currency,
		limiter:  d.Limiter,
		logger:   logger,
		mux:      mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.mux.PathPrefix("/api/v1").Subrouter()
	api.Use(s.rateLimitMiddleware)
	api.Use(func(next http.Handler) http.Handler { return gzhttp.GzipHandler(next) })
	api.HandleFunc("/trips/search", s.handleSearchQuery).Methods(http.MethodGet)
	api.HandleFunc("/trips/search", s.handleSearchBody).Methods(http.MethodPost)
	api.HandleFunc("/trips/{trip_id}/hold", s.handleHold).Methods(http.MethodPost)
	api.HandleFunc("/holds/{payment_intent_id}", s.handleReleaseHold).Methods(http.MethodDelete)

	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws/search", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

type searchResponse struct {
	Results []models.TripResult `json:"results"`
	Count   int                 `json:"count"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// searchFailed keeps the results key so clients can always iterate it.
type searchFailed struct {
	Error   string              `json:"error"`
	Results []models.TripResult `json:"results"`
}

var errSearchFailed = searchFailed{Error: "search failed", Results: []models.TripResult{}}

func (s *Server) handleSearchQuery(w http.ResponseWriter, r *http.Request) {
	c, err := criteriaFromQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.runSearch(w, r, c)
}

func (s *Server) handleSearchBody(w http.ResponseWriter, r *http.Request) {
	var c models.SearchCriteria
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	s.runSearch(w, r, c)
}

func (s *Server) runSearch(w http.ResponseWriter, r *http.Request, c models.SearchCriteria) {
	results, err := s.search.Search(r.Context(), c)
	switch {
	case errors.Is(err, matcher.ErrInvalidCriteria):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	case err != nil:
		s.logger.Error("trip search failed", "error", err, "request_id", requestIDFromContext(r.Context()))
		writeJSON(w, http.StatusBadGateway, errSearchFailed)
		return
	}
	if results == nil {
		results = []models.TripResult{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: results, Count: len(results)})
}

func criteriaFromQuery(r *http.Request) (models.SearchCriteria, error) {
	q := r.URL.Query()
	c := models.SearchCriteria{
		From: q.Get("from"),
		To:   q.Get("to"),
		Date: q.Get("date"),
	}
	if v := q.Get("min_seats"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c, fmt.Errorf("invalid min_seats: %q", v)
		}
		c.MinSeats = n
	}
	var err error
	if c.FromCoords, err = coordFromQuery(q.Get("from_lat"), q.Get("from_lon"), "from"); err != nil {
		return c, err
	}
	if c.ToCoords, err = coordFromQuery(q.Get("to_lat"), q.Get("to_lon"), "to"); err != nil {
		return c, err
	}
	return c, nil
}

func coordFromQuery(lat, lon, side string) (*models.Coord, error) {
	if lat == "" && lon == "" {
		return nil, nil
	}
	la, err1 := strconv.ParseFloat(lat, 64)
	lo, err2 := strconv.ParseFloat(lon, 64)
	if err1 != nil || err2 != nil {
		return nil, fmt.Errorf("%s_lat and %s_lon must both be numbers", side, side)
	}
	if la < -90 || la > 90 || lo < -180 || lo > 180 {
		return nil, fmt.Errorf("%s coordinates out of range", side)
	}
	return &models.Coord{Lat: la, Lon: lo}, nil
}

type holdRequest struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Seats      int    `json:"seats"`
	CustomerID string `json:"customer_id"`
}

func (s *Server) handleHold(w http.ResponseWriter, r *http.Request) {
	if s.holds == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "payments not configured"})
		return
	}
	var req holdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Seats == 0 {
		req.Seats = 1
	}
	if req.Seats < 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "seats must be positive"})
		return
	}

	tripID := mux.Vars(r)["trip_id"]
	trip, err := s.store.GetTrip(r.Context(), tripID)
	if errors.Is(err, storage.ErrTripNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "trip not found"})
		return
	}
	if err != nil {
		s.logger.Error("load trip failed", "trip_id", tripID, "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "trip lookup failed"})
		return
	}
	if trip.Status != models.TripStatusActive && trip.Status != models.TripStatusScheduled {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "trip is not open for booking"})
		return
	}
	if trip.AvailableSeats < req.Seats {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "not enough seats"})
		return
	}

	pickup, dropoff, err := route.ResolveSegment(trip, req.From, req.To)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	board, alight := pickup.Name, dropoff.Name
	var total float64
	if trip.DistanceKm != nil {
		total = *trip.DistanceKm
	}
	q := pricing.AllocateFare(trip.PricePerSeat, total, trip.Stopovers, board, alight, trip.DepartureLocation, trip.ArrivalLocation)
	amount := pricing.MinorUnits(q.Price) * int64(req.Seats)
	if amount <= 0 {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "segment has no fare to hold"})
		return
	}

	piID, err := s.holds.Hold(r.Context(), payments.HoldRequest{
		AmountMinor: amount,
		Currency:    s.currency,
		CustomerID:  req.CustomerID,
		TripID:      trip.ID,
		From:        board,
		To:          alight,
		Seats:       req.Seats,
	})
	if err != nil {
		observability.FareHoldsTotal.WithLabelValues("error").Inc()
		s.logger.Error("fare hold failed", "trip_id", trip.ID, "amount_minor", amount, "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "fare hold failed"})
		return
	}
	observability.FareHoldsTotal.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusCreated, models.FareHold{
		TripID:          trip.ID,
		PaymentIntentID: piID,
		AmountMinor:     amount,
		Currency:        s.currency,
		Method:          q.Method,
	})
}

func (s *Server) handleReleaseHold(w http.ResponseWriter, r *http.Request) {
	if s.holds == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "payments not configured"})
		return
	}
	piID := mux.Vars(r)["payment_intent_id"]
	if err := s.holds.Cancel(r.Context(), piID); err != nil {
		observability.FareHoldsTotal.WithLabelValues("release_error").Inc()
		s.logger.Error("release fare hold failed", "payment_intent_id", piID, "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "release failed"})
		return
	}
	observability.FareHoldsTotal.WithLabelValues("released").Inc()
	w.WriteHeader(http.StatusNoContent)
}

var upgrader = websocket.Upgrader{}

const wsIdleTimeout = 2 * time.Minute

// handleWS serves repeated searches over one connection: each criteria frame
// in yields one results frame out.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(64 << 10)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		var c models.SearchCriteria
		if err := conn.ReadJSON(&c); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket closed", "error", err)
			}
			return
		}
		if s.limiter != nil && !s.limiter.Allow() {
			if err := conn.WriteJSON(errorResponse{Error: "rate limited"}); err != nil {
				return
			}
			continue
		}
		var frame any
		results, err := s.search.Search(r.Context(), c)
		switch {
		case errors.Is(err, matcher.ErrInvalidCriteria):
			frame = errorResponse{Error: err.Error()}
		case err != nil:
			s.logger.Error("websocket search failed", "error", err)
			frame = errSearchFailed
		default:
			if results == nil {
				results = []models.TripResult{}
			}
			frame = searchResponse{Results: results, Count: len(results)}
		}
		if err := conn.WriteJSON(frame); err != nil {
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
