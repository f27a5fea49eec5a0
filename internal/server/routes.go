package server

import (
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"Daybook_V0.1/web"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// TemplateRenderer is a custom html/template renderer for Echo framework
type TemplateRenderer struct {
	templates *template.Template
}

// Render renders a template document
func (t *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	// Use ExecuteTemplate to select the correct template by name
	return t.templates.ExecuteTemplate(w, name, data)
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"https://*", "http://*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Form-ID", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	e.Renderer = &TemplateRenderer{
		templates: template.Must(template.ParseFS(web.Templates, "templates/*.html")),
	}

	e.Use(LoggerMiddleware)

	// Public routes
	e.GET("/health", s.healthHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/calendar/events", s.calendarEventsHandler)

	// Routes that work signed in or not
	optional := e.Group("")
	optional.Use(s.auth.IdentifyOptional)

	optional.POST("/analysis/:kind", s.analyzeHandler)
	optional.GET("/analysis/:kind/state", s.analysisStateHandler)
	optional.GET("/calendar/:year/:month", s.monthOverviewHandler)
	optional.PUT("/schedules/:date", s.saveScheduleHandler)

	// Protected routes
	protected := e.Group("")
	protected.Use(s.auth.RequireIdentity)

	protected.GET("/schedules", s.listSchedulesHandler)
	protected.GET("/schedules/:date", s.getScheduleHandler)
	protected.GET("/ws", s.scheduleSocketHandler)

	return e
}

// LoggerMiddleware tags each request with an id and attaches a child logger
// carrying it to the request context.
func LoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Response().Header().Set("X-Request-ID", requestID)

		logger := log.With().Str("request_id", requestID).Logger()

		c.Set("logger", &logger)
		c.SetRequest(c.Request().WithContext(logger.WithContext(c.Request().Context())))

		return next(c)
	}
}

func (s *Server) healthHandler(c echo.Context) error {
	status := http.StatusOK

	store := map[string]string{"status": "unknown"}
	if s.store != nil {
		store = s.store.Health()
	}
	if store["status"] != "up" {
		status = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"store":            store,
		"analysis_enabled": s.invoker.Enabled(),
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
	}

	serverHealth := map[string]interface{}{}
	if v, err := mem.VirtualMemory(); err == nil {
		serverHealth["ram_usage"] = fmt.Sprintf("%.1f%%", v.UsedPercent)
	}
	if cpuPercent, err := cpu.Percent(0, false); err == nil && len(cpuPercent) > 0 {
		serverHealth["cpu_load"] = fmt.Sprintf("%.1f%%", cpuPercent[0])
	}
	response["server_health"] = serverHealth

	return c.JSON(status, response)
}
