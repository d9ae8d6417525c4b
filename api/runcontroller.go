package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"digestbot/orchestrator"
	"digestbot/outputs"
	"digestbot/types"

	"github.com/gin-gonic/gin"
)

// RunRequest is the body of POST /api/run. Days accepts a number or a
// numeric string.
type RunRequest struct {
	Output string      `json:"output"`
	Days   json.Number `json:"days"`
	NoAI   bool        `json:"no_ai"`
	DryRun bool        `json:"dry_run"`
}

// Options validates the request the same way the CLI validates its flags
func (r RunRequest) Options() (orchestrator.Options, error) {
	mode, err := outputs.ParseMode(r.Output)
	if err != nil {
		return orchestrator.Options{}, err
	}
	opts := orchestrator.Options{Output: mode, NoAI: r.NoAI, DryRun: r.DryRun}
	if r.Days != "" {
		days, err := strconv.Atoi(r.Days.String())
		if err != nil || days <= 0 {
			return orchestrator.Options{}, fmt.Errorf("days must be a positive integer, got %q", r.Days)
		}
		opts.Days = days
	}
	return opts, nil
}

// RegisterRunRoutes registers run control and status endpoints.
func RegisterRunRoutes(r *gin.Engine, s *Server) {
	g := r.Group("/api")
	g.POST("/run", s.handleRun)
	g.POST("/stop", handleStop)
	g.GET("/status", s.handleStatus)
	g.GET("/stream", s.handleStream)
}

// handleRun starts a run in the background
func (s *Server) handleRun(c *gin.Context) {
	var req RunRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	opts, err := req.Options()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.svc.Start(opts); err != nil {
		if errors.Is(err, orchestrator.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"ok": false, "reason": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "reason": err.Error()})
		return
	}
	s.logger.Info().Str("output", string(opts.Output)).Bool("dry_run", opts.DryRun).Msg("run started from control panel")
	c.JSON(http.StatusOK, gin.H{"ok": true, "started": true})
}

// handleStop acknowledges; runs always complete on their own
func handleStop(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "note": "stop not implemented (run completes naturally)"})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Guard.Status())
}

// handleStream relays run events as server-sent events. Every client gets
// its own subscription, replayed from the start of the current run. It pings
// after each idle interval and ends on a status event, when idle with no
// active run, or once the idle budget is spent.
func (s *Server) handleStream(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	events, cancel := s.svc.Bus.Subscribe()
	defer cancel()
	var idle time.Duration

	for idle < s.streamTimeout {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(c, ev); err != nil {
				return
			}
			if ev.Type == types.EventStatus {
				return
			}
		case <-time.After(s.pingInterval):
			if !s.svc.Guard.Running() {
				return
			}
			idle += s.pingInterval
			if err := writeEvent(c, types.Event{Type: types.EventPing, Time: time.Now()}); err != nil {
				return
			}
		}
	}
}

func writeEvent(c *gin.Context, ev types.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
		return err
	}
	c.Writer.Flush()
	return nil
}
