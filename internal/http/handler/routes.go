package handler

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"securedoc/internal/config"
	"securedoc/internal/judge"
	"securedoc/internal/model"
	"securedoc/internal/service"
	"securedoc/internal/session"
	"securedoc/internal/stamp"
)

// Deps bundles everything the HTTP layer needs. Handlers stay thin: parse,
// delegate to a service, translate the error.
type Deps struct {
	DB       *sql.DB
	Docs     service.DocumentService
	Shops    service.ShopService
	Judge    judge.Judge
	Revoker  session.Revoker
	Security config.SecurityConfig
	Metrics  *Metrics
	Log      *zap.Logger
}

// RegisterRoutes attaches all HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	registerDocRoutes(app)
	registerHealthRoutes(app, d.DB)

	api := app.Group("/api")

	api.Post("/upload", uploadHandler(d))
	api.Get("/view/:secureId", viewHandler(d))
	api.Get("/view/:secureId/render", renderHandler(d))
	api.Get("/source/:secureId", sourceHandler(d))
	api.Post("/verify", verifyHandler(d))
	api.Get("/my-logs/:ownerId", myLogsHandler(d))

	api.Post("/shop/create", shopCreateHandler(d))
	api.Get("/shop/me/:ownerId", shopMeHandler(d))
	api.Get("/shop/files/:shopId", shopFilesHandler(d))

	api.Use("/session/:secureId", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/session/:secureId", websocket.New(sessionSocket(d)))
}

func registerHealthRoutes(app *fiber.App, db *sql.DB) {
	// Health endpoint checks DB connectivity only.
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	})

	// Simple liveness probe.
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
}

func registerDocRoutes(app *fiber.App) {
	app.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile("openapi.yaml")
	})
	app.Get("/docs", func(c *fiber.Ctx) error {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
		return c.Type("html").SendString(html)
	})
}

func uploadHandler(d Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		form, err := c.MultipartForm()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_FORM", "multipart form expected")
		}
		fhs := form.File["files"]

		expiresIn := 0
		if v := c.FormValue("expiresIn"); v != "" {
			expiresIn, err = strconv.Atoi(v)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_EXPIRES_IN", "expiresIn must be minutes")
			}
		}

		in := service.UploadInput{
			OwnerID:        c.FormValue("ownerId"),
			OwnerEmail:     c.FormValue("ownerEmail"),
			AllowedAction:  model.AllowedAction(c.FormValue("allowedAction")),
			ExpiresIn:      expiresIn,
			Mode:           c.FormValue("mode"),
			ShopID:         c.FormValue("shopId"),
			SenderName:     c.FormValue("senderName"),
			WatermarkStyle: model.WatermarkStyle(c.FormValue("watermarkType")),
		}

		files := make([]service.UploadFile, 0, len(fhs))
		for _, fh := range fhs {
			f, err := fh.Open()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
			}
			defer f.Close()
			ct := fh.Header.Get("Content-Type")
			if ct == "" {
				ct = "application/octet-stream"
			}
			files = append(files, service.UploadFile{
				Reader:      f,
				Filename:    fh.Filename,
				ContentType: ct,
				Size:        fh.Size,
			})
		}

		res, err := d.Docs.Upload(c.UserContext(), files, in)
		if err != nil {
			return serviceError(c, d.Log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

func viewHandler(d Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc, err := d.Docs.View(c.UserContext(), c.Params("secureId"))
		if err != nil {
			return serviceError(c, d.Log, err)
		}
		return c.JSON(doc)
	}
}

func renderHandler(d Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		img, err := d.Docs.Render(c.UserContext(), c.Params("secureId"))
		if err != nil {
			return serviceError(c, d.Log, err)
		}
		c.Set(fiber.HeaderContentType, "image/png")
		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.Send(img)
	}
}

func sourceHandler(d Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		url, err := d.Docs.SourceURL(c.UserContext(), c.Params("secureId"), c.Query("ownerId"))
		if err != nil {
			return serviceError(c, d.Log, err)
		}
		return c.JSON(fiber.Map{"url": url})
	}
}

type verifyRequest struct {
	SecureID string `json:"secureId"`
	Name     string `json:"name"`
	Snapshot string `json:"snapshot"`
}

func verifyHandler(d Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req verifyRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid json body")
		}
		if req.Name == "" {
			return writeError(c, fiber.StatusBadRequest, "NAME_REQUIRED", "name is required")
		}
		if err := d.Docs.Verify(c.UserContext(), req.SecureID, req.Name, req.Snapshot); err != nil {
			return serviceError(c, d.Log, err)
		}
		return c.JSON(fiber.Map{"verified": true})
	}
}

func myLogsHandler(d Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		docs, err := d.Docs.OwnerLogs(c.UserContext(), c.Params("ownerId"))
		if err != nil {
			return serviceError(c, d.Log, err)
		}
		return c.JSON(fiber.Map{"files": docs})
	}
}

type shopCreateRequest struct {
	OwnerID  string `json:"ownerId"`
	ShopID   string `json:"shopId"`
	ShopName string `json:"shopName"`
}

func shopCreateHandler(d Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req shopCreateRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid json body")
		}
		shop, err := d.Shops.Create(c.UserContext(), req.OwnerID, req.ShopID, req.ShopName)
		if err != nil {
			return serviceError(c, d.Log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(shop)
	}
}

func shopMeHandler(d Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		shop, err := d.Shops.Mine(c.UserContext(), c.Params("ownerId"))
		if err != nil {
			return serviceError(c, d.Log, err)
		}
		return c.JSON(fiber.Map{"shop": shop})
	}
}

func shopFilesHandler(d Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		docs, err := d.Shops.Inbox(c.UserContext(), c.Params("shopId"))
		if err != nil {
			return serviceError(c, d.Log, err)
		}
		return c.JSON(fiber.Map{"files": docs})
	}
}

// serviceError translates service-level sentinels into the standard error
// envelope. Unknown errors are logged and surface as a bare 500.
func serviceError(c *fiber.Ctx, log *zap.Logger, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
	case errors.Is(err, service.ErrExpired):
		return writeError(c, fiber.StatusGone, "LINK_EXPIRED", "document link expired")
	case errors.Is(err, service.ErrShopUnknown):
		return writeError(c, fiber.StatusNotFound, "SHOP_NOT_FOUND", "shop does not exist")
	case errors.Is(err, service.ErrShopTaken):
		return writeError(c, fiber.StatusConflict, "SHOP_TAKEN", "shop id already taken")
	case errors.Is(err, service.ErrNotOwner):
		return writeError(c, fiber.StatusForbidden, "FORBIDDEN", "not the document owner")
	case errors.Is(err, service.ErrIDRequired),
		errors.Is(err, service.ErrOwnerIDRequired),
		errors.Is(err, service.ErrShopIDRequired),
		errors.Is(err, service.ErrShopRequired),
		errors.Is(err, service.ErrNoFiles),
		errors.Is(err, service.ErrTooManyFiles):
		return writeError(c, fiber.StatusBadRequest, "BAD_REQUEST", err.Error())
	case errors.Is(err, stamp.ErrRender):
		log.Error("document render failed", zap.Error(err))
		return writeError(c, fiber.StatusInternalServerError, "RENDER_FAILED", "document cannot be rendered")
	default:
		log.Error("unhandled service error", zap.Error(err))
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
