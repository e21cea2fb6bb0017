// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pdiddy/mathnote/internal/note"
	"github.com/pdiddy/mathnote/internal/session"
	"github.com/pdiddy/mathnote/internal/sos"
	"github.com/pdiddy/mathnote/pkg/types"
)

const markdownType = "text/markdown; charset=utf-8"

func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, newStateView(s.sess.Snapshot()))
}

func modeParam(c *gin.Context) (note.Mode, bool) {
	mode, err := note.ParseMode(c.DefaultQuery("mode", string(note.ModeAnnotated)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return mode, true
}

// handleNote renders the whole note as Markdown. Until the note exists the
// placeholder text is returned with 404.
func (s *Server) handleNote(c *gin.Context) {
	mode, ok := modeParam(c)
	if !ok {
		return
	}
	in := s.sess.Snapshot().View()

	var b strings.Builder
	if err := note.Render(&b, in, mode); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rendering note"})
		return
	}
	code := http.StatusOK
	if note.Classify(in) != note.StateCompleted {
		code = http.StatusNotFound
	}
	c.Data(code, markdownType, []byte(b.String()))
}

type slideResponse struct {
	Slide    types.Slide `json:"slide"`
	Markdown string      `json:"markdown"`
	Prev     int         `json:"prev,omitempty"`
	Next     int         `json:"next,omitempty"`
	Index    int         `json:"index"`
	Count    int         `json:"count"`
}

func (s *Server) cursor(c *gin.Context) (*note.Cursor, bool) {
	n := s.sess.Snapshot().Note
	if n == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "note is not ready yet"})
		return nil, false
	}
	return note.NewCursor(n), true
}

// handleSlides lists slide numbers, or with ?t= returns the slide playing
// at that time.
func (s *Server) handleSlides(c *gin.Context) {
	cur, ok := s.cursor(c)
	if !ok {
		return
	}
	if raw, set := c.GetQuery("t"); set {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil || t < 0 || math.IsNaN(t) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "t must be a non-negative number of seconds"})
			return
		}
		if !cur.SeekTime(t) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no slide at that time"})
			return
		}
		s.writeSlide(c, cur)
		return
	}

	numbers := make([]int, 0, cur.Len())
	for {
		if sl, ok := cur.Current(); ok {
			numbers = append(numbers, sl.Number)
		}
		if !cur.Next() {
			break
		}
	}
	c.JSON(http.StatusOK, gin.H{"slides": numbers})
}

func (s *Server) handleSlide(c *gin.Context) {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "slide number must be an integer"})
		return
	}
	cur, ok := s.cursor(c)
	if !ok {
		return
	}
	if !cur.Seek(number) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such slide"})
		return
	}
	s.writeSlide(c, cur)
}

func (s *Server) writeSlide(c *gin.Context, cur *note.Cursor) {
	mode, ok := modeParam(c)
	if !ok {
		return
	}
	sl, _ := cur.Current()
	resp := slideResponse{Slide: sl, Count: cur.Len()}

	var b strings.Builder
	if err := note.RenderSlide(&b, sl, mode); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rendering slide"})
		return
	}
	resp.Markdown = b.String()

	if cur.Prev() {
		p, _ := cur.Current()
		resp.Prev = p.Number
		cur.Next()
	}
	if cur.Next() {
		n, _ := cur.Current()
		resp.Next = n.Number
		cur.Prev()
	}
	for cur.Prev() {
		resp.Index++
	}
	c.JSON(http.StatusOK, resp)
}

type sosRequest struct {
	Timestamp *float64 `json:"timestamp" binding:"required"`
}

func (s *Server) handleCaptureSOS(c *gin.Context) {
	var req sosRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"timestamp\": seconds}"})
		return
	}
	ev, err := s.sess.CaptureSOS(*req.Timestamp)
	if err != nil {
		if errors.Is(err, sos.ErrNegativeTimestamp) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, ev)
}

func (s *Server) handleListSOS(c *gin.Context) {
	st := s.sess.Snapshot()
	events := st.SOS
	if events == nil {
		events = []types.SosEvent{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (s *Server) handleExport(c *gin.Context) {
	url, err := s.sess.Export(c.Request.Context())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"page_url": url})
	case errors.Is(err, note.ErrExportInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "an export is already in progress"})
	case errors.Is(err, session.ErrNoteNotReady):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		slog.Warn("export failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Export to Notion failed. Your note is unaffected; please try again."})
	}
}
