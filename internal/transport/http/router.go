package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter wires the booking API routes with auth, CORS and request
// logging.
func NewRouter(svc BookingService, verifier TokenVerifier, logger *zap.Logger, corsOrigins string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))

	origins := splitOrigins(corsOrigins)
	if len(origins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/health", Health)
	router.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, codeNotFound, "not found")
	})

	h := NewBookingHandler(svc)

	router.GET("/rooms/:id/availability", h.Availability)
	router.GET("/rooms/:id/bookings", h.RoomBookings)

	authed := router.Group("/", RequireAuth(verifier))
	{
		authed.POST("/bookings", h.CreateBooking)
		authed.POST("/bookings/offline", h.CreateOfflineBooking)
		authed.POST("/bookings/:id/confirm", h.ConfirmPayment)
		authed.POST("/bookings/:id/retry", h.RetryPayment)
		authed.DELETE("/bookings/:id", h.CancelBooking)
		authed.GET("/bookings/my", h.MyBookings)
		authed.GET("/owners/bookings", h.OwnerBookings)
	}

	return router
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
