package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Anabol1ks/hotel-booking/internal/app"
	"github.com/Anabol1ks/hotel-booking/internal/domain"
)

// BookingService is the caller-facing contract the transport binds to.
type BookingService interface {
	CreateHold(ctx context.Context, in app.CreateHoldInput) (domain.Reservation, error)
	CreateOfflineHold(ctx context.Context, id domain.Identity, in app.OfflineHoldInput) (domain.Reservation, error)
	ConfirmPayment(ctx context.Context, reservationID string, outcome app.PaymentOutcome) (domain.Reservation, error)
	RetryPayment(ctx context.Context, reservationID string) (domain.Reservation, error)
	Cancel(ctx context.Context, reservationID string, id domain.Identity) (domain.Reservation, error)
	Availability(ctx context.Context, roomID string, rng domain.DateRange) (bool, error)
	ReservationsOf(ctx context.Context, requesterID string) ([]domain.Reservation, error)
	OwnerReservations(ctx context.Context, id domain.Identity) ([]domain.Reservation, error)
	RoomReservations(ctx context.Context, roomID string) ([]domain.Reservation, error)
}

type BookingHandler struct {
	svc BookingService
}

func NewBookingHandler(svc BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

type createBookingRequest struct {
	RoomID    string    `json:"room_id" binding:"required"`
	StartDate time.Time `json:"start_date" binding:"required"`
	EndDate   time.Time `json:"end_date" binding:"required"`
}

type offlineBookingRequest struct {
	RoomID      string    `json:"room_id" binding:"required"`
	StartDate   time.Time `json:"start_date" binding:"required"`
	EndDate     time.Time `json:"end_date" binding:"required"`
	PhoneNumber string    `json:"phone_number" binding:"required"`
	Name        string    `json:"name" binding:"required"`
}

type reservationResponse struct {
	ID            string    `json:"id"`
	RoomID        string    `json:"room_id"`
	RequesterID   string    `json:"requester_id"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	TotalCost     int64     `json:"total_cost_cents"`
	PaymentStatus string    `json:"payment_status"`
	Offline       bool      `json:"is_offline_booking"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

func toReservationResponse(res domain.Reservation) reservationResponse {
	return reservationResponse{
		ID:            res.ID,
		RoomID:        res.RoomID,
		RequesterID:   res.RequesterID,
		StartDate:     res.Range.Start,
		EndDate:       res.Range.End,
		TotalCost:     res.TotalCostCents,
		PaymentStatus: string(res.PaymentStatus),
		Offline:       res.Offline,
		CreatedAt:     res.CreatedAt,
		ExpiresAt:     res.ExpiresAt,
	}
}

func toReservationResponses(list []domain.Reservation) []reservationResponse {
	out := make([]reservationResponse, 0, len(list))
	for _, res := range list {
		out = append(out, toReservationResponse(res))
	}
	return out
}

func (h *BookingHandler) CreateBooking(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, codeUnauthenticated, "authorization required")
		return
	}

	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, codeInvalidBody, "invalid request body")
		return
	}

	res, err := h.svc.CreateHold(c.Request.Context(), app.CreateHoldInput{
		RequesterID: id.UserID,
		RoomID:      req.RoomID,
		Range:       domain.DateRange{Start: req.StartDate, End: req.EndDate},
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toReservationResponse(res))
}

func (h *BookingHandler) CreateOfflineBooking(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, codeUnauthenticated, "authorization required")
		return
	}

	var req offlineBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, codeInvalidBody, "invalid request body")
		return
	}

	res, err := h.svc.CreateOfflineHold(c.Request.Context(), id, app.OfflineHoldInput{
		RoomID:    req.RoomID,
		Range:     domain.DateRange{Start: req.StartDate, End: req.EndDate},
		Phone:     req.PhoneNumber,
		GuestName: req.Name,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toReservationResponse(res))
}

type confirmPaymentRequest struct {
	Outcome string `json:"outcome" binding:"required"`
}

func (h *BookingHandler) ConfirmPayment(c *gin.Context) {
	var req confirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, codeInvalidBody, "invalid request body")
		return
	}

	res, err := h.svc.ConfirmPayment(c.Request.Context(), c.Param("id"), app.PaymentOutcome(req.Outcome))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReservationResponse(res))
}

func (h *BookingHandler) RetryPayment(c *gin.Context) {
	res, err := h.svc.RetryPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReservationResponse(res))
}

func (h *BookingHandler) CancelBooking(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, codeUnauthenticated, "authorization required")
		return
	}

	res, err := h.svc.Cancel(c.Request.Context(), c.Param("id"), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReservationResponse(res))
}

func (h *BookingHandler) MyBookings(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, codeUnauthenticated, "authorization required")
		return
	}

	list, err := h.svc.ReservationsOf(c.Request.Context(), id.UserID)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReservationResponses(list))
}

func (h *BookingHandler) OwnerBookings(c *gin.Context) {
	id, ok := identityFrom(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, codeUnauthenticated, "authorization required")
		return
	}

	list, err := h.svc.OwnerReservations(c.Request.Context(), id)
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReservationResponses(list))
}

func (h *BookingHandler) RoomBookings(c *gin.Context) {
	list, err := h.svc.RoomReservations(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReservationResponses(list))
}

type availabilityResponse struct {
	Available bool `json:"available"`
}

func (h *BookingHandler) Availability(c *gin.Context) {
	start, err := parseDateParam(c.Query("start"))
	if err != nil {
		writeError(c, http.StatusBadRequest, codeValidationError, "invalid start date")
		return
	}
	end, err := parseDateParam(c.Query("end"))
	if err != nil {
		writeError(c, http.StatusBadRequest, codeValidationError, "invalid end date")
		return
	}

	available, err := h.svc.Availability(c.Request.Context(), c.Param("id"), domain.DateRange{Start: start, End: end})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, availabilityResponse{Available: available})
}

// parseDateParam accepts either a full RFC3339 instant or a plain date.
func parseDateParam(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
