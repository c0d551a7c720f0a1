// Package api exposes the manager over HTTP: the HMAC-authenticated
// component API used by detectors and adjustors, and the session-
// authenticated XHR surface used by the dashboard.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/frak/beam/internal/auth"
	"github.com/frak/beam/internal/cases"
	"github.com/frak/beam/internal/directory"
	"github.com/frak/beam/internal/notify"
	"github.com/frak/beam/internal/ticketing"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Server bundles the collaborators the HTTP layer hands requests to.
type Server struct {
	DB         *gorm.DB
	Engine     *cases.Engine
	Verifier   *auth.Verifier
	Dispatcher *notify.Dispatcher
	Directory  directory.Directory
	Ticketing  ticketing.Ticketing
	// Prefix is the entitlement application prefix for dashboard roles.
	Prefix string
}

// NewRouter builds the gin router with all routes registered.
func NewRouter(s *Server) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	component := router.Group("/api", auth.RequireKey(s.Verifier))
	component.POST("/cases", s.handlePostCases)
	component.GET("/cases", s.handleGetCases)
	component.GET("/cases/:id", s.handleGetCase)

	session := router.Group("/xhr", auth.RequireSession(s.Directory, s.Prefix))
	session.GET("/cases", s.handleXHRCases)
	session.GET("/cases/:id", s.handleXHRCase)
	session.GET("/cases/:id/events", s.handleXHREvents)
	session.PATCH("/cases/:id", s.handleXHRUpdate)
	session.POST("/cases/:id/ticket", s.handleXHRTicket)
	session.GET("/describe", s.handleXHRDescribe)

	admin := session.Group("", auth.RequireAdmin())
	admin.GET("/apikeys", s.handleListKeys)
	admin.POST("/apikeys", s.handleCreateKey)
	admin.DELETE("/apikeys/:access", s.handleDeleteKey)
	admin.GET("/components", s.handleListComponents)
	admin.POST("/components", s.handleCreateComponent)
	admin.DELETE("/components/:id", s.handleDeleteComponent)
	admin.GET("/clusters", s.handleListClusters)
	admin.POST("/clusters", s.handleCreateCluster)
	admin.DELETE("/clusters/:id", s.handleDeleteCluster)

	return router
}

// Start launches the HTTP server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, s *Server, addr string, out io.Writer) error {
	router := NewRouter(s)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if out != nil {
		fmt.Fprintf(out, "Manager listening on %s\n", addr)
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

// respondError maps engine errors onto the response-code table.
func respondError(c *gin.Context, err error) {
	var schema *cases.SchemaViolationError
	var unknown *cases.UnknownReportTypeError
	var badUpdate *cases.BadUpdateError

	switch {
	case errors.As(err, &schema), errors.As(err, &unknown), errors.As(err, &badUpdate):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, cases.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		log.Printf("api: request to %s failed: %v", c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
