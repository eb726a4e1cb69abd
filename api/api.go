package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/sahilchouksey/dars-api/utils/response"
)

type APIServer struct {
	app           *fiber.App
	listenAddress string
}

// NewAPIServer builds the fiber app. maxUploadMB caps request bodies so
// lesson videos fit; zero keeps fiber's default.
func NewAPIServer(listenAddress string, appName string, maxUploadMB int) *APIServer {
	cfg := fiber.Config{
		AppName:      appName,
		ErrorHandler: ErrorHandler,
	}
	if maxUploadMB > 0 {
		cfg.BodyLimit = maxUploadMB * 1024 * 1024
	}

	return &APIServer{
		app:           fiber.New(cfg),
		listenAddress: listenAddress,
	}
}

// ErrorHandler renders errors that escaped a handler in the shared envelope
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		switch fiberErr.Code {
		case fiber.StatusNotFound:
			return response.NotFound(c, "Not found")
		case fiber.StatusRequestEntityTooLarge:
			return response.Error(c, fiberErr.Code, "Uploaded file is too large", "PAYLOAD_TOO_LARGE")
		}
		return response.Error(c, fiberErr.Code, fiberErr.Message, "HTTP_ERROR")
	}

	log.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Msg("unhandled error")
	return response.InternalServerError(c, "Internal server error")
}

func (s *APIServer) GetEngine() *fiber.App {
	return s.app
}

func (s *APIServer) Run() error {
	log.Info().Str("address", s.listenAddress).Msg("Starting API Server")

	return s.app.Listen(s.listenAddress)
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *APIServer) Shutdown() error {
	log.Info().Msg("Shutting down API Server")
	return s.app.Shutdown()
}
