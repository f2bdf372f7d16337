package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"stakeforge/core"
	"stakeforge/native/assets"
	"stakeforge/native/factory"
	"stakeforge/native/stakepool"
	"stakeforge/observability"
)

const requestIDHeader = "X-Request-Id"

// Server exposes the node over HTTP. One process-wide token bucket throttles
// mutating traffic; queries and health probes bypass it.
type Server struct {
	node    *core.Node
	log     *slog.Logger
	limiter *rate.Limiter
	nowFn   func() uint64
}

// NewServer constructs the HTTP surface over the node.
func NewServer(node *core.Node, log *slog.Logger, rps float64, burst int) *Server {
	if rps <= 0 {
		rps = 50
	}
	if burst <= 0 {
		burst = 100
	}
	return &Server{
		node:    node,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		nowFn:   func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// SetNowFunc overrides the clock used for pool phase reporting in responses.
func (s *Server) SetNowFunc(now func() uint64) {
	if now != nil {
		s.nowFn = now
	}
}

// Router assembles the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/events", s.handleEvents)

		r.Route("/requests", func(r chi.Router) {
			r.Get("/", s.handleListRequests)
			r.With(s.throttle).Post("/", s.handleSubmitRequest)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetRequest)
				r.With(s.throttle).Post("/approve", s.handleApprove)
				r.With(s.throttle).Post("/deny", s.handleDeny)
				r.With(s.throttle).Post("/cancel", s.handleCancel)
				r.With(s.throttle).Post("/deploy", s.handleDeploy)
			})
		})

		r.Route("/pools", func(r chi.Router) {
			r.Get("/", s.handleListPools)
			r.Route("/{poolID}", func(r chi.Router) {
				r.Get("/", s.handleGetPool)
				r.With(s.throttle).Post("/stake", s.handleStake)
				r.With(s.throttle).Post("/unstake", s.handleUnstake)
				r.With(s.throttle).Post("/claim", s.handleClaim)
				r.Get("/accounts/{address}", s.handleGetAccount)
				r.Get("/accounts/{address}/pending", s.handlePendingRewards)
			})
		})
	})
	return r
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		duration := time.Since(start)
		observability.APIMetrics().ObserveRequest(route, rec.status, duration)
		if s.log != nil {
			s.log.Info("http request",
				"method", r.Method,
				"route", route,
				"status", rec.status,
				"duration_ms", duration.Milliseconds(),
				"request_id", w.Header().Get(requestIDHeader),
			)
		}
	})
}

func (s *Server) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			observability.APIMetrics().RecordThrottle(chi.RouteContext(r.Context()).RoutePattern())
			writeError(w, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeEngineError maps engine sentinel errors onto HTTP status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, stakepool.ErrPoolNotFound), errors.Is(err, factory.ErrInvalidID):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, factory.ErrNotAuthorized), errors.Is(err, factory.ErrInvalidCaller):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, factory.ErrInvalidRequestStatus), errors.Is(err, stakepool.ErrPoolExists):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, stakepool.ErrPoolNotStarted),
		errors.Is(err, stakepool.ErrPoolHasEnded),
		errors.Is(err, stakepool.ErrTokensInLockUp),
		errors.Is(err, stakepool.ErrInvalidAmount),
		errors.Is(err, stakepool.ErrInsufficientAmount),
		errors.Is(err, stakepool.ErrNothingToClaim),
		errors.Is(err, stakepool.ErrInvalidTokenAddress),
		errors.Is(err, stakepool.ErrInvalidRewardRate),
		errors.Is(err, stakepool.ErrInvalidStartTime),
		errors.Is(err, stakepool.ErrInvalidStakingPeriod),
		errors.Is(err, stakepool.ErrInvalidLockUpTime),
		errors.Is(err, assets.ErrInsufficientBalance),
		errors.Is(err, assets.ErrNotItemOwner),
		errors.Is(err, assets.ErrEmptyToken):
		writeError(w, http.StatusUnprocessableEntity, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.node.RecentEvents())
}
