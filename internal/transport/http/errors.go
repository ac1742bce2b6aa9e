package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Anabol1ks/hotel-booking/internal/domain"
)

const (
	codeNotFound         = "not_found"
	codeInvalidBody      = "invalid_request_body"
	codeValidationError  = "validation_error"
	codeInvalidID        = "invalid_id"
	codeRoomNotFound     = "room_not_found"
	codeRoomUnavailable  = "room_unavailable"
	codeExpired          = "expired"
	codeAlreadyFinalized = "already_finalized"
	codeConflict         = "conflict"
	codeForbidden        = "forbidden"
	codeUnauthenticated  = "unauthenticated"
	codeUnavailable      = "unavailable"
	codeInternalError    = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: msg, Code: code})
}

// writeDomainError is the single place the service-level taxonomy is
// translated into transport status codes. Every rejection carries a
// machine-distinguishable code so the caller can decide how to react.
func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(c, http.StatusBadRequest, codeValidationError, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(c, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrRoomNotFound):
		writeError(c, http.StatusNotFound, codeRoomNotFound, err.Error())
	case errors.Is(err, domain.ErrReservationNotFound):
		writeError(c, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, domain.ErrRoomUnavailable):
		writeError(c, http.StatusConflict, codeRoomUnavailable, err.Error())
	case errors.Is(err, domain.ErrExpired):
		writeError(c, http.StatusConflict, codeExpired, err.Error())
	case errors.Is(err, domain.ErrAlreadyFinalized):
		writeError(c, http.StatusConflict, codeAlreadyFinalized, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(c, http.StatusConflict, codeConflict, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(c, http.StatusForbidden, codeForbidden, err.Error())
	case errors.Is(err, domain.ErrUnauthenticated):
		writeError(c, http.StatusUnauthorized, codeUnauthenticated, err.Error())
	case errors.Is(err, domain.ErrUnavailable):
		writeError(c, http.StatusServiceUnavailable, codeUnavailable, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
