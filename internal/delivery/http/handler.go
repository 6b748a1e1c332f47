package http

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/usecase"
)

const (
	serviceName    = "pricelens-backend"
	serviceVersion = "1.0.0"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	digests *usecase.DigestService
	fuzzy   usecase.FuzzyMatcherConfig
	log     logrus.FieldLogger
}

// NewHandler creates a new HTTP handler. fuzzy configures the matcher built
// for ad-hoc match requests that ask for the fuzzy strategy.
func NewHandler(digests *usecase.DigestService, fuzzy usecase.FuzzyMatcherConfig, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.New()
	}
	return &Handler{
		digests: digests,
		fuzzy:   fuzzy,
		log:     log,
	}
}

// ScanRequest is the body of POST /api/v1/scans
type ScanRequest struct {
	DateKey string `json:"date_key"`
}

// NormalizeRequest is the body of POST /api/v1/normalize
type NormalizeRequest struct {
	Products []domain.RawProduct `json:"products" binding:"required"`
}

// MatchRequest is the body of POST /api/v1/match
type MatchRequest struct {
	Baseline   []domain.RawProduct `json:"baseline" binding:"required"`
	Competitor []domain.RawProduct `json:"competitor" binding:"required"`
	Strategy   string              `json:"strategy"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// RunScan executes one scan and returns the digest. The body is optional; an
// empty date key scans today (UTC).
func (h *Handler) RunScan(c *gin.Context) {
	var req ScanRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			h.respondError(c, domain.ErrInvalidRequest, err.Error())
			return
		}
	}

	digest, err := h.digests.Run(c.Request.Context(), req.DateKey)
	if err != nil {
		h.respondError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, digest)
}

// LatestDigest returns the most recent stored digest
func (h *Handler) LatestDigest(c *gin.Context) {
	digest, err := h.digests.Latest(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, digest)
}

// DigestByDate returns the digest stored for the :date path parameter
func (h *Handler) DigestByDate(c *gin.Context) {
	digest, err := h.digests.ByDate(c.Request.Context(), c.Param("date"))
	if err != nil {
		h.respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, digest)
}

// LatestChanges returns only the change summary of the most recent digest
func (h *Handler) LatestChanges(c *gin.Context) {
	digest, err := h.digests.Latest(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "")
		return
	}

	changes := digest.Changes
	if changes == nil {
		changes = map[string]domain.ChangeSummary{}
	}
	c.JSON(http.StatusOK, gin.H{
		"date_key": digest.DateKey,
		"changes":  changes,
	})
}

// Normalize cleans a batch of raw products
func (h *Handler) Normalize(c *gin.Context) {
	var req NormalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, domain.ErrInvalidRequest, err.Error())
		return
	}

	products := h.digests.Normalize(req.Products)
	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
	})
}

// Match normalizes and compares two raw catalogs
func (h *Handler) Match(c *gin.Context) {
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, domain.ErrInvalidRequest, err.Error())
		return
	}

	matcher, err := usecase.NewCatalogMatcher(req.Strategy, h.fuzzy)
	if err != nil {
		h.respondError(c, err, "")
		return
	}

	c.JSON(http.StatusOK, h.digests.Compare(req.Baseline, req.Competitor, matcher))
}

// Signature resolves the identity signature of ?name=
func (h *Handler) Signature(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		h.respondError(c, domain.ErrInvalidRequest, "name is required")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name":      name,
		"signature": h.digests.Signature(name),
	})
}

// respondError maps domain errors to HTTP status codes
func (h *Handler) respondError(c *gin.Context, err error, detail string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrInvalidDateKey),
		errors.Is(err, domain.ErrUnknownStrategy):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrSnapshotNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrSourceUnavailable):
		status = http.StatusBadGateway
	}

	message := err.Error()
	if detail != "" {
		message = message + ": " + detail
	}

	if status >= http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}

	c.JSON(status, gin.H{"error": message})
}
