package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/shelflife/backend-go/internal/domain"
)

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindUnknownEntity:
		return http.StatusNotFound
	case domain.KindModelNotTrained:
		return http.StatusServiceUnavailable
	case domain.KindNoFeasibleVehicle:
		return http.StatusUnprocessableEntity
	case domain.KindInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	status := StatusFor(kind)

	event := log.Warn()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).Str("path", c.FullPath()).Str("kind", string(kind)).Msg("Request failed")

	c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "kind": kind})
}
