package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/rs/zerolog/log"

	"croptool/internal/crop"
)

//go:embed static
var staticFS embed.FS
var isDebug = os.Getenv("DEBUG") == "1"

type Config struct {
	RootDir          string
	CropDefaults     CropDefaults
	OnBeforeShutdown func()
	OnReady          func(addr string)
	OnSave           func(ops Operations)
}

type WebApp struct {
	config       Config
	sessions     *SessionStore
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

func NewWebApp(config Config) *WebApp {
	return &WebApp{
		config:     config,
		sessions:   NewSessionStore(config.RootDir, config.CropDefaults),
		shutdownCh: make(chan struct{}),
	}
}

func (a *WebApp) Shutdown() {
	a.shutdownOnce.Do(func() {
		close(a.shutdownCh)
	})
}

func (a *WebApp) Run(ctx context.Context) error {
	webapp := a.newFiberApp()

	webapp.Hooks().OnListen(func(listen fiber.ListenData) error {
		if fn := a.config.OnReady; fn != nil {
			fn(fmt.Sprintf("http://%s:%s", listen.Host, listen.Port))
		}
		return nil
	})

	go func() {
		select {
		case <-ctx.Done():
		case <-a.shutdownCh:
		}
		if fn := a.config.OnBeforeShutdown; fn != nil {
			fn()
		}
		if err := webapp.ShutdownWithTimeout(5 * time.Second); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("Failed to shutdown web application")
		}
	}()

	// Let the OS assign a random available port
	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", 0))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	if err := webapp.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

func (a *WebApp) newFiberApp() *fiber.App {
	webapp := fiber.New(fiber.Config{
		Immutable:             true,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	filesRoot := http.Dir(a.config.RootDir)
	webapp.Get("/api/view", func(c *fiber.Ctx) error {
		filePath := c.Query("file")
		return filesystem.SendFile(c, filesRoot, filePath)
	})

	webapp.Get("/api/ls", func(c *fiber.Ctx) error {
		dir, err := walkImages(c.Context(), a.config.RootDir)
		if err != nil {
			return fmt.Errorf("failed to walk dir: %w", err)
		}

		for i := range dir.Files {
			dir.Files[i].URL = "/api/view?file=" + url.QueryEscape(dir.Files[i].Name)
		}
		if dir.Files == nil {
			dir.Files = []FileInfo{}
		}

		return c.JSON(dir)
	})

	api := webapp.Group("/api/sessions")
	api.Post("", a.createSession)
	api.Get("/:id", func(c *fiber.Ctx) error {
		state, err := a.sessions.Get(c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(state)
	})
	api.Delete("/:id", func(c *fiber.Ctx) error {
		if err := a.sessions.Delete(c.Params("id")); err != nil {
			return err
		}
		return c.SendStatus(http.StatusNoContent)
	})
	api.Post("/:id/events", func(c *fiber.Ctx) error {
		var request struct {
			Events []crop.Event `json:"events"`
		}
		if err := c.BodyParser(&request); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		result, err := a.sessions.Events(c.Params("id"), request.Events)
		if err != nil {
			return err
		}
		return c.JSON(result)
	})
	api.Put("/:id/viewport", func(c *fiber.Ctx) error {
		var request struct {
			RenderedWidth  float64 `json:"rendered_width"`
			RenderedHeight float64 `json:"rendered_height"`
		}
		if err := c.BodyParser(&request); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		state, err := a.sessions.Viewport(c.Params("id"), request.RenderedWidth, request.RenderedHeight)
		if err != nil {
			return err
		}
		return c.JSON(state)
	})

	webapp.Post("/api/save", func(c *fiber.Ctx) error {
		var request struct {
			Operations []Operation `json:"operations"`
		}

		if err := c.BodyParser(&request); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if err := a.resolveSessions(request.Operations); err != nil {
			return err
		}

		if fn := a.config.OnSave; fn != nil {
			fn(request.Operations)
		}

		return c.SendStatus(http.StatusNoContent)
	})
	webapp.Post("/api/shutdown", func(c *fiber.Ctx) error {
		a.Shutdown()
		return nil
	})

	if isDebug {
		log.Debug().Msg("Debug mode enabled, serving static files from './static' directory")
		webapp.Static("/", "static")
	} else {
		log.Debug().Msg("Serving static files from embedded filesystem")
		webapp.Use("/", filesystem.New(filesystem.Config{
			Root:       http.FS(staticFS),
			PathPrefix: "/static",
		}))
	}

	return webapp
}

func (a *WebApp) createSession(c *fiber.Ctx) error {
	var request SessionRequest
	if err := c.BodyParser(&request); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	state, err := a.sessions.Create(c.Context(), request)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(state)
}

// resolveSessions replaces the crop of operations that name a session with
// that session's current selection.
func (a *WebApp) resolveSessions(ops []Operation) error {
	for _, op := range ops {
		if op.Crop == nil || op.Crop.Session == "" {
			continue
		}
		coords, err := a.sessions.Coords(op.Crop.Session)
		if err != nil {
			return err
		}
		op.Crop.Crop = coords
	}
	return nil
}

func errorHandler(c *fiber.Ctx, err error) error {
	log.Ctx(c.Context()).Error().
		Err(err).
		Str("path", c.Path()).
		Str("method", c.Method()).
		Msg("Request failed")

	var fiberErr *fiber.Error
	var reqErr requestError
	switch {
	case errors.As(err, &fiberErr):
		if fiberErr.Code == http.StatusNotFound && c.Path() == "/favicon.ico" {
			return nil
		}
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
	case errors.Is(err, errSessionNotFound):
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.As(err, &reqErr):
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
}
