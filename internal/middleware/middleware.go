package middleware

import (
	"net/http"
	"strconv"

	"github.com/akolanti/TutorAPI/internal/config"
	"github.com/akolanti/TutorAPI/internal/metrics"
	"github.com/akolanti/TutorAPI/pkg/logger_i"
	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

// Chain runs trace injection, bearer auth and per IP rate limiting in front of a handler.
type Chain struct {
	authToken    string
	noAuthBypass bool
	limiter      *IPRateLimiter
}

func NewChain(s config.Settings) *Chain {
	return &Chain{
		authToken:    s.AuthToken,
		noAuthBypass: s.NoAuthBypass,
		limiter:      NewIPRateLimiter(rate.Limit(config.RATE_LIMIT_PER_SECOND), config.BURST_RATE_LIMIT_PER_SECOND),
	}
}

// WithLimiter replaces the default per IP limiter.
func (c *Chain) WithLimiter(l *IPRateLimiter) *Chain {
	c.limiter = l
	return c
}

func (c *Chain) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: 200} //metrics
		re := c.processRequest(requestResponseStruct{req: r, writer: rec})

		if !re.badRequest.isBadRequest {
			next(rec, re.req)
		}

		metrics.HttpRequestsTotal.WithLabelValues(routeOf(r), strconv.Itoa(rec.Status)).Inc() //metrics
	}
}

// WrapHandler is Wrap for mounted handlers such as the MCP endpoint.
func (c *Chain) WrapHandler(next http.Handler) http.Handler {
	return c.Wrap(next.ServeHTTP)
}

func (c *Chain) processRequest(re requestResponseStruct) requestResponseStruct {
	re.logger = logger_i.NewLogger("middleware")
	re.logger.Debug("New request received")
	re = injectTrace(re)
	if !handleBadRequest(re) {
		return re
	}
	re = c.authenticate(re)
	if !handleBadRequest(re) {
		return re //stop if auth fails
	}
	re = c.rateLimiter(re)
	handleBadRequest(re)
	return re
}

// the route pattern keeps the label set small, /status/{id} instead of every job id
func routeOf(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
