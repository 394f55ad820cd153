package handlers

import (
	resultsRepo "wayfarer/database/repository/results"

	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Session endpoints
	StartSessionHandler gin.HandlerFunc
	ReplyHandler        gin.HandlerFunc
	EventsHandler       gin.HandlerFunc
	StateHandler        gin.HandlerFunc
	ResultsHandler      gin.HandlerFunc
	EndSessionHandler   gin.HandlerFunc

	HealthHandler gin.HandlerFunc
}

// NewHandlerBundle wires the handlers. results may be nil when no archive
// is configured.
func NewHandlerBundle(sessions SessionService, results resultsRepo.ResultsRepository) *HandlerBundle {
	return &HandlerBundle{
		StartSessionHandler: StartSession(sessions),
		ReplyHandler:        PostReply(sessions),
		EventsHandler:       StreamEvents(sessions),
		StateHandler:        GetState(sessions),
		ResultsHandler:      GetResults(results),
		EndSessionHandler:   EndSession(sessions),
		HealthHandler:       Health,
	}
}
