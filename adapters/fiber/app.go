package fiber

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"

	"github.com/lborres/kontak/pkg/logging"
)

// Uploads are buffered by the framework before the handler runs.
const defaultBodyLimit = 50 << 20

type AppConfig struct {
	// AllowOrigins lists the origins allowed for cross-origin requests.
	// "*" disables credentialed requests.
	AllowOrigins []string
	BodyLimit    int
	Logger       *slog.Logger
	// AccessLog enables the framework access log.
	AccessLog bool
}

// NewApp returns a Fiber app with request ids, panic recovery, CORS and a
// request-scoped logger in the request context.
func NewApp(cfg AppConfig) *fiber.App {
	bodyLimit := cfg.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = defaultBodyLimit
	}
	base := cfg.Logger
	if base == nil {
		base = logging.Default()
	}

	app := fiber.New(fiber.Config{
		AppName:      "kontak",
		BodyLimit:    bodyLimit,
		ErrorHandler: errorHandler,
	})

	app.Use(requestid.New())
	app.Use(recoverer.New())
	if cfg.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "${time}|${requestid}|${status}|${latency}|${ip}|${method}|${path}|${error}\n",
		}))
	}

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowCredentials: !wildcard(origins),
		AllowHeaders:     []string{fiber.HeaderOrigin, fiber.HeaderContentType, fiber.HeaderAccept, fiber.HeaderAuthorization},
	}))

	app.Use(func(c fiber.Ctx) error {
		l := base.With("request_id", requestid.FromContext(c))
		c.SetContext(logging.With(c.Context(), l))
		return c.Next()
	})

	return app
}

func wildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}
