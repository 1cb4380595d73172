// Package httpapi exposes the bridge's operational control surface over
// HTTP: health, session inspection, session clearing, and transcript
// retrieval.
package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/switchboard/internal/store"
	"github.com/zulandar/switchboard/internal/transcript"
)

// ServerOpts holds configuration for the control API server.
type ServerOpts struct {
	Sessions   *store.SessionStore
	Transcript *transcript.Archive // optional; transcript routes 404 without it
	Port       int
	Out        io.Writer
}

// NewRouter builds the Gin router with all control routes registered.
func NewRouter(opts ServerOpts) (*gin.Engine, error) {
	if opts.Sessions == nil {
		return nil, fmt.Errorf("httpapi: session store is required")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", handleHealth(opts.Sessions))
	router.GET("/sessions", handleSessionList(opts.Sessions))
	router.POST("/sessions/clear", handleSessionClear(opts.Sessions))
	if opts.Transcript != nil {
		router.GET("/transcripts", handleTranscriptThreads(opts.Transcript))
		router.GET("/transcripts/:threadKey", handleTranscript(opts.Transcript))
	}

	return router, nil
}

// Start launches the control API server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts ServerOpts) error {
	router, err := NewRouter(opts)
	if err != nil {
		return err
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Control API listening on :%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("httpapi: %w", err)
	}
	return nil
}

func handleHealth(sessions *store.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":             "ok",
			"activeSessionCount": sessions.Count(),
		})
	}
}

// sessionView is the wire shape of one session entry.
type sessionView struct {
	ThreadKey              string `json:"threadKey"`
	AgentSessionID         string `json:"agentSessionId"`
	LastProcessedMessageID string `json:"lastProcessedMessageId"`
	CreatedAt              int64  `json:"createdAt"`
}

func handleSessionList(sessions *store.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries := sessions.List()
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].ThreadKey < entries[j].ThreadKey
		})

		out := make([]sessionView, 0, len(entries))
		for _, e := range entries {
			out = append(out, sessionView{
				ThreadKey:              e.ThreadKey,
				AgentSessionID:         e.Session.AgentSessionID,
				LastProcessedMessageID: e.Session.LastProcessedMessageID,
				CreatedAt:              e.Session.CreatedAt,
			})
		}
		c.JSON(http.StatusOK, gin.H{"sessions": out})
	}
}

func handleSessionClear(sessions *store.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := sessions.Clear(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func handleTranscriptThreads(archive *transcript.Archive) gin.HandlerFunc {
	return func(c *gin.Context) {
		keys, err := archive.ThreadKeys()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"threadKeys": keys})
	}
}

func handleTranscript(archive *transcript.Archive) gin.HandlerFunc {
	return func(c *gin.Context) {
		threadKey := c.Param("threadKey")
		entries, err := archive.ByThreadKey(threadKey)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if len(entries) == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "no transcript for thread"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"threadKey": threadKey, "entries": entries})
	}
}
