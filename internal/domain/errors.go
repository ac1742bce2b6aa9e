package domain

import "errors"

var (
	ErrValidation          = errors.New("validation failed")
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomUnavailable     = errors.New("room unavailable for the requested dates")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrExpired             = errors.New("reservation expired")
	ErrAlreadyFinalized    = errors.New("reservation already finalized")
	ErrConflict            = errors.New("concurrent state change")
	ErrForbidden           = errors.New("forbidden")
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrUnavailable         = errors.New("temporarily unavailable")
	ErrInvalidID           = errors.New("invalid id")
)
