// Package server is the web control panel: profile CRUD, run
// start/stop/status, run history, and a live event stream.
package server

import (
	_ "embed"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-warmup-automation/internal/events"
	"go-warmup-automation/internal/history"
	"go-warmup-automation/internal/profile"
	"go-warmup-automation/internal/runner"
)

//go:embed dashboard.html
var dashboardHTML []byte

type Server struct {
	store   *profile.Store
	runner  *runner.Runner
	feed    *events.Feed
	history *history.Store
	engine  *gin.Engine
}

func New(store *profile.Store, rn *runner.Runner, feed *events.Feed, hist *history.Store) *Server {
	s := &Server{
		store:   store,
		runner:  rn,
		feed:    feed,
		history: hist,
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", dashboardHTML)
	})
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	api := engine.Group("/api")
	{
		api.GET("/profiles", s.listProfiles)
		api.POST("/profiles", s.addProfile)
		api.PUT("/profiles/:id", s.updateProfile)
		api.DELETE("/profiles/:id", s.deleteProfile)

		api.POST("/run", s.startRun)
		api.POST("/stop", s.stopRun)
		api.GET("/status", s.status)
		api.POST("/reset", s.reset)
		api.POST("/clear-logs", s.clearLogs)

		api.GET("/history", s.listHistory)
		api.GET("/history/:run_id", s.historyRun)

		api.GET("/events", s.streamEvents)
	}

	s.engine = engine
	return s
}

// Handler exposes the router for http.Server and tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) listProfiles(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.List())
}

type profileRequest struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

func (s *Server) addProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	p, err := s.store.Add(req.Name, req.Path)
	if err != nil {
		s.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) updateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	p, err := s.store.Update(c.Param("id"), req.Name, req.Path)
	if err != nil {
		s.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) deleteProfile(c *gin.Context) {
	if err := s.store.Remove(c.Param("id")); err != nil {
		s.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type runRequest struct {
	Profiles []string `json:"profiles"`
	Loops    int      `json:"loops"`
}

func (s *Server) startRun(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	runID, err := s.runner.Start(req.Profiles, req.Loops)
	if err != nil {
		s.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "run_id": runID})
}

func (s *Server) stopRun(c *gin.Context) {
	if err := s.runner.Stop(); err != nil {
		s.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, s.runner.Status())
}

func (s *Server) reset(c *gin.Context) {
	if err := s.runner.Reset(); err != nil {
		s.apiError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) clearLogs(c *gin.Context) {
	s.runner.ClearLogs()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) listHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusOK, []history.RunRecord{})
		return
	}
	runs, err := s.history.ListRuns(50)
	if err != nil {
		s.apiError(c, err)
		return
	}
	if runs == nil {
		runs = []history.RunRecord{}
	}
	c.JSON(http.StatusOK, runs)
}

func (s *Server) historyRun(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history disabled"})
		return
	}
	results, err := s.history.RunResults(c.Param("run_id"))
	if err != nil {
		s.apiError(c, err)
		return
	}
	if results == nil {
		results = []runner.StepResult{}
	}
	c.JSON(http.StatusOK, results)
}

// apiError maps the error taxonomy to HTTP status codes.
func (s *Server) apiError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, profile.ErrInvalid), errors.Is(err, runner.ErrEmptySelection):
		status = http.StatusBadRequest
	case errors.Is(err, profile.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, runner.ErrRunActive), errors.Is(err, runner.ErrNoActiveRun):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
