/*
Package server implements the application's network transport layer.
It initializes the HTTP server, configures timeouts, and wires the analysis
pipeline, the schedule store and the calendar data into echo routes.
*/
package server

import (
	"fmt"
	"net/http"
	"time"

	"Daybook_V0.1/internal/analysis"
	"Daybook_V0.1/internal/auth"
	"Daybook_V0.1/internal/calendar"
	"Daybook_V0.1/internal/schedule"
	"Daybook_V0.1/internal/utility"
)

// HealthChecker reports the status of a backing service.
type HealthChecker interface {
	Health() map[string]string
}

// Deps are the collaborators the server is built from.
type Deps struct {
	Port int

	// Store reports the health of the document store behind Schedules.
	Store     HealthChecker
	Schedules *schedule.Service

	Invoker  *analysis.Invoker
	Trackers *analysis.Trackers
	Calendar *calendar.Calendar
	Auth     *auth.Authenticator
	Hub      *utility.Hub
	Limiter  *utility.IPRateLimiter

	// Location is the zone calendar dates are interpreted in.
	Location *time.Location
}

// Server defines the configuration and dependencies for the HTTP service.
type Server struct {
	// port specifies the TCP port the server will listen on.
	port int

	store     HealthChecker
	schedules *schedule.Service

	invoker  *analysis.Invoker
	trackers *analysis.Trackers
	calendar *calendar.Calendar
	auth     *auth.Authenticator
	hub      *utility.Hub
	limiter  *utility.IPRateLimiter

	loc *time.Location
}

// New builds a Server from deps.
func New(deps Deps) *Server {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Server{
		port:      deps.Port,
		store:     deps.Store,
		schedules: deps.Schedules,
		invoker:   deps.Invoker,
		trackers:  deps.Trackers,
		calendar:  deps.Calendar,
		auth:      deps.Auth,
		hub:       deps.Hub,
		limiter:   deps.Limiter,
		loc:       loc,
	}
}

// NewServer initializes a new Server instance and returns a configured *http.Server
// with production-ready network timeouts.
func NewServer(deps Deps) *http.Server {
	newApp := New(deps)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", newApp.port),
		Handler:     newApp.RegisterRoutes(), // Injected from routes.go
		IdleTimeout: time.Minute,             // Time to wait for the next request on keep-alive connections.
		ReadTimeout: 10 * time.Second,        // Maximum duration for reading the entire request.
		// Analysis calls can take up to the backend timeout.
		WriteTimeout: 90 * time.Second,
	}

	return server
}
