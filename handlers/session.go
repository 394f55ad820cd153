package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	resultsRepo "wayfarer/database/repository/results"
	"wayfarer/models"
	"wayfarer/services/orchestration"
	"wayfarer/services/session"
	"wayfarer/utils"

	"github.com/gin-gonic/gin"
)

const defaultEndReason = "session ended by user"

// SessionService is implemented by session.Registry.
type SessionService interface {
	Start(ctx context.Context, sessionID string) (*session.Meta, error)
	Reply(ctx context.Context, sessionID, text string) error
	Subscribe(ctx context.Context, sessionID string) (<-chan models.Event, func(), error)
	State(ctx context.Context, sessionID string) (orchestration.StateSnapshot, error)
	End(ctx context.Context, sessionID, reason string) error
}

type startSessionInput struct {
	SessionID string `json:"session_id"`
}

type replyInput struct {
	Text string `json:"text"`
}

// StartSession starts (or restarts) a research session.
func StartSession(sessions SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input startSessionInput
		if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
			utils.JSONError(c, getLogger(c), http.StatusBadRequest, "invalid input", err.Error())
			return
		}
		meta, err := sessions.Start(c.Request.Context(), input.SessionID)
		if err != nil {
			sessionError(c, err)
			return
		}
		c.JSON(http.StatusCreated, meta)
	}
}

// PostReply forwards a user reply into the session.
func PostReply(sessions SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input replyInput
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.JSONError(c, getLogger(c), http.StatusBadRequest, "invalid input", err.Error())
			return
		}
		if err := sessions.Reply(c.Request.Context(), c.Param("id"), input.Text); err != nil {
			sessionError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
	}
}

// StreamEvents relays session events as server-sent events until the client
// disconnects or the session ends.
func StreamEvents(sessions SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		stream, release, err := sessions.Subscribe(ctx, c.Param("id"))
		if err != nil {
			sessionError(c, err)
			return
		}
		defer release()

		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")
		c.Stream(func(w io.Writer) bool {
			select {
			case event, ok := <-stream:
				if !ok {
					return false
				}
				c.SSEvent(string(event.Type), event)
				return true
			case <-ctx.Done():
				return false
			}
		})
	}
}

// GetState reports the workflow's current phase and queue sizes.
func GetState(sessions SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := sessions.State(c.Request.Context(), c.Param("id"))
		if err != nil {
			sessionError(c, err)
			return
		}
		c.JSON(http.StatusOK, snap)
	}
}

// GetResults lists the archived search phases of a session.
func GetResults(results resultsRepo.ResultsRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if results == nil {
			utils.JSONError(c, getLogger(c), http.StatusServiceUnavailable, "results archive is not configured", "")
			return
		}
		records, err := results.ListBySession(c.Request.Context(), c.Param("id"))
		if err != nil {
			utils.JSONError(c, getLogger(c), http.StatusInternalServerError, "failed to list results", err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"session_id": c.Param("id"), "results": records})
	}
}

// EndSession stops the session and its event streams.
func EndSession(sessions SessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		reason := c.DefaultQuery("reason", defaultEndReason)
		if err := sessions.End(c.Request.Context(), c.Param("id"), reason); err != nil {
			sessionError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func sessionError(c *gin.Context, err error) {
	logger := getLogger(c)
	switch {
	case errors.Is(err, session.ErrUnknownSession):
		utils.JSONError(c, logger, http.StatusNotFound, "session not found", c.Param("id"))
	case errors.Is(err, session.ErrEmptyReply):
		utils.JSONError(c, logger, http.StatusBadRequest, "reply text is required", "")
	default:
		utils.JSONError(c, logger, http.StatusInternalServerError, "session operation failed", err.Error())
	}
}
