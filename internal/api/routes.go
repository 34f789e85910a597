package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/voicecache/domain"
	"github.com/satriahrh/voicecache/domain/entities"
	"github.com/satriahrh/voicecache/domain/repositories"
	"github.com/satriahrh/voicecache/internal/auth"
	"github.com/satriahrh/voicecache/usecase"
)

const artifactsPath = "/api/v1/artifacts/"

// Dependencies are the services behind the HTTP routes
type Dependencies struct {
	Speech *usecase.SpeechService
	Voices repositories.VoiceCatalog
	// Store serves artifacts produced under the default cache root
	Store repositories.ArtifactStore
	// JWTSecret enables bearer authentication on /api/v1 when set
	JWTSecret []byte
}

type handler struct {
	deps   Dependencies
	logger *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, deps Dependencies, logger *zap.Logger) {
	h := &handler{deps: deps, logger: logger}

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "voicecache",
		})
	})

	// API v1 routes
	v1 := e.Group("/api/v1")
	if len(deps.JWTSecret) > 0 {
		v1.Use(requireToken(deps.JWTSecret, logger))
	} else {
		logger.Warn("JWT_SECRET is not set, API is unauthenticated")
	}

	v1.POST("/text-to-speech/:voice_id", h.synthesize)
	v1.POST("/text-to-speech/:voice_id/stream", h.streamSynthesize)
	v1.GET("/artifacts/:key", h.getArtifact)
	v1.GET("/voices", h.listVoices)
}

func (h *handler) synthesize(c echo.Context) error {
	var req SynthesizeRequest

	// Bind and validate request
	if err := c.Bind(&req); err != nil {
		h.logger.Error("Failed to bind synthesize request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	artifact, err := h.deps.Speech.Synthesize(c.Request().Context(), usecase.SynthesizeParams{
		Text:     req.Text,
		Voice:    entities.Voice{ID: c.Param("voice_id")},
		Settings: req.VoiceSettings,
	})
	if err != nil {
		return h.writeError(c, err)
	}

	info, err := os.Stat(artifact.Path)
	if err != nil {
		return h.writeError(c, &domain.IOError{Op: "stat", Path: artifact.Path, Err: err})
	}

	return c.JSON(http.StatusOK, SynthesizeResponse{
		CacheKey: artifact.Key.String(),
		CacheHit: artifact.CacheHit,
		Size:     info.Size(),
		AudioURL: artifactsPath + artifact.Key.String(),
	})
}

func (h *handler) streamSynthesize(c echo.Context) error {
	var req SynthesizeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	stream, err := h.deps.Speech.StreamSynthesize(c.Request().Context(), usecase.SynthesizeParams{
		Text:     req.Text,
		Voice:    entities.Voice{ID: c.Param("voice_id")},
		Settings: req.VoiceSettings,
	})
	if err != nil {
		return h.writeError(c, err)
	}
	defer stream.Close()

	return c.Stream(http.StatusOK, "audio/mpeg", stream)
}

func (h *handler) getArtifact(c echo.Context) error {
	id, err := uuid.Parse(c.Param("key"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_key",
			Message: "Artifact key must be a UUID",
		})
	}

	key := entities.CacheKey(id.String())
	exists, err := h.deps.Store.Exists(key)
	if err != nil {
		return h.writeError(c, err)
	}
	if !exists {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Artifact not found",
		})
	}

	c.Response().Header().Set(echo.HeaderContentType, "audio/mpeg")
	return c.File(h.deps.Store.Path(key))
}

func (h *handler) listVoices(c echo.Context) error {
	voices, err := h.deps.Voices.ListVoices(c.Request().Context())
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, VoicesResponse{Voices: voices})
}

// writeError maps domain errors to HTTP statuses
func (h *handler) writeError(c echo.Context, err error) error {
	var (
		validationErr   *domain.ValidationError
		synthesisErr    *domain.SynthesisError
		notSupportedErr *domain.NotSupportedError
	)

	switch {
	case errors.As(err, &validationErr):
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_failed",
			Message: validationErr.Error(),
		})
	case errors.As(err, &synthesisErr):
		h.logger.Warn("Upstream synthesis failed",
			zap.Int("status", synthesisErr.StatusCode),
			zap.ByteString("body", synthesisErr.Body))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "synthesis_failed",
			Message: fmt.Sprintf("upstream returned %d: %s", synthesisErr.StatusCode, strings.TrimSpace(string(synthesisErr.Body))),
		})
	case errors.As(err, &notSupportedErr):
		return c.JSON(http.StatusNotImplemented, ErrorResponse{
			Error:   "not_supported",
			Message: notSupportedErr.Error(),
		})
	default:
		h.logger.Error("Request failed", zap.String("path", c.Path()), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to process request",
		})
	}
}

// requireToken validates the bearer JWT on every request of the group
func requireToken(secret []byte, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Extract JWT token from Authorization header only
			var token string
			authHeader := c.Request().Header.Get("Authorization")
			if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
				token = authHeader[7:]
			}

			if token == "" {
				logger.Warn("Request rejected: missing token", zap.String("path", c.Path()))
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "missing_token",
					Message: "JWT token is required in Authorization header",
				})
			}

			claims, err := auth.ValidateToken(token, secret)
			if err != nil {
				logger.Warn("Request rejected: invalid token", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "invalid_token",
					Message: "Invalid or expired JWT token",
				})
			}

			if claims.Role != auth.RoleClient {
				logger.Warn("Request rejected: invalid role", zap.String("role", claims.Role))
				return c.JSON(http.StatusForbidden, ErrorResponse{
					Error:   "invalid_role",
					Message: "Only client tokens are allowed",
				})
			}

			c.Set("client_id", claims.ClientID)
			return next(c)
		}
	}
}
