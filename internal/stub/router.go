// Package stub is a local stand-in for the research-assistant service.
// It speaks the same wire contract with deterministic replies so the client
// can be developed and tested without the real backend.
package stub

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// Service holds per-session state for the stub endpoints.
type Service struct {
	mu        sync.Mutex
	documents map[string][]string // session_id -> ingested filenames
	asks      map[string]int
}

// NewService creates an empty stub service.
func NewService() *Service {
	return &Service{
		documents: make(map[string][]string),
		asks:      make(map[string]int),
	}
}

type chatRequest struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id"`
}

// NewRouter builds the gin engine serving /chat, /upload-pdf and /health.
func NewRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/chat", svc.handleChat)
	r.POST("/upload-pdf", svc.handleUpload)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	return r
}

func (s *Service) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "text is required"})
		return
	}
	if req.SessionID == "" {
		req.SessionID = "default"
	}

	s.mu.Lock()
	s.asks[req.SessionID]++
	docs := len(s.documents[req.SessionID])
	s.mu.Unlock()

	reply := fmt.Sprintf("You asked: %s", req.Text)
	if docs > 0 {
		reply += fmt.Sprintf("\n\n_(searched %d document(s) in this session)_", docs)
	}
	c.JSON(http.StatusOK, gin.H{"response": reply})
}

func (s *Service) handleUpload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "file is required"})
		return
	}
	sessionID := c.PostForm("session_id")
	if sessionID == "" {
		sessionID = c.DefaultQuery("session_id", "default")
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	defer f.Close()

	n, err := io.Copy(io.Discard, f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	s.mu.Lock()
	s.documents[sessionID] = append(s.documents[sessionID], fh.Filename)
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"status": fmt.Sprintf("Processed %s (%d bytes)", fh.Filename, n)})
}

// Documents returns the filenames ingested for a session.
func (s *Service) Documents(sessionID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.documents[sessionID]...)
}

// AskCount returns how many chat requests a session has made.
func (s *Service) AskCount(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.asks[sessionID]
}
