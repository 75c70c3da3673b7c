package routes

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gocomet/ride-booking/internal/api/handlers"
	"github.com/gocomet/ride-booking/internal/auth"
	"github.com/gocomet/ride-booking/internal/domain/booking"
	"github.com/gocomet/ride-booking/pkg/cache"
	"github.com/gocomet/ride-booking/pkg/monitoring"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/redis/go-redis/v9"
)

// Options are the router's non-handler dependencies
type Options struct {
	JWT            *auth.JWTService
	NewRelic       *monitoring.NewRelicApp
	Redis          *redis.Client // nil when the memory index is used
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, h *handlers.Handlers, opts Options) {
	// Add New Relic middleware if enabled
	if opts.NewRelic.IsEnabled() {
		r.Use(nrgin.Middleware(opts.NewRelic.Application))
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = opts.AllowedOrigins
	if len(opts.AllowedMethods) > 0 {
		corsConfig.AllowMethods = opts.AllowedMethods
	}
	if len(opts.AllowedHeaders) > 0 {
		corsConfig.AllowHeaders = opts.AllowedHeaders
	}
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	r.Use(cors.New(corsConfig))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		body := gin.H{
			"status": "healthy",
			"websocket": gin.H{
				"connections": h.Hub.GetActiveConnections(),
				"users":       h.Hub.GetClientsByUserType(string(auth.RoleUser)),
				"drivers":     h.Hub.GetClientsByUserType(string(auth.RoleDriver)),
			},
		}
		if stats := cache.GetClientStats(opts.Redis); stats != nil {
			opts.NewRelic.RecordRedisPoolStats(stats)
			body["redis"] = stats
		}
		c.JSON(http.StatusOK, body)
	})

	authn := auth.Authenticate(opts.JWT)
	user := auth.RequireRole(auth.RoleUser)
	driver := auth.RequireRole(auth.RoleDriver)

	v1 := r.Group("/v1")
	{
		// WebSocket connection, token in the query string
		v1.GET("/ws", authn, h.HandleWebSocket)

		bookings := v1.Group("/bookings", authn)
		{
			bookings.POST("/find-driver", user, h.FindDriver)
			bookings.GET("/single-driver/:driverId", auth.RequireRole(auth.RoleUser, auth.RoleAdmin), h.SingleDriver)
			bookings.POST("/create/:driverId", user, h.CreateBooking)
			bookings.POST("/again-booking/:bookingId", user, h.BookAgain)
			bookings.POST("/create-recent-search", user, h.CreateRecentSearch)

			bookings.GET("/user-waiting/bookings", user, h.RiderBookings(booking.StatusWaiting, "Waiting bookings retrieved successfully"))
			bookings.GET("/user-progress/bookings", user, h.RiderBookings(booking.StatusInProgress, "Progress bookings retrieved successfully"))
			bookings.GET("/user-past/bookings", user, h.RiderBookings(booking.StatusCompleted, "Past bookings retrieved successfully"))
			bookings.GET("/user-cancelled/bookings", user, h.RiderBookings(booking.StatusCancelled, "Cancelled bookings retrieved successfully"))

			bookings.GET("/driver-waiting/bookings", driver, h.DriverBookings(booking.StatusWaiting, "Waiting bookings retrieved successfully"))
			bookings.GET("/driver-progress/bookings", driver, h.DriverBookings(booking.StatusInProgress, "Progress bookings retrieved successfully"))
			bookings.GET("/driver-past/bookings", driver, h.DriverBookings(booking.StatusCompleted, "Past bookings retrieved successfully"))
			bookings.GET("/driver-cancelled/bookings", driver, h.DriverBookings(booking.StatusCancelled, "Cancelled bookings retrieved successfully"))

			bookings.PATCH("/booking-status/:bookingId", driver, h.UpdateBookingStatus)
			bookings.GET("/single-booking/:bookingId", h.SingleBooking)
			bookings.GET("/bookings", auth.RequireRole(auth.RoleAdmin), h.AllBookings)
		}

		account := v1.Group("/auth", authn)
		{
			account.POST("/location", auth.RequireRole(auth.RoleUser, auth.RoleDriver), h.UpdateLocation)
			account.GET("/recent-searches", user, h.RecentSearches)
		}
	}
}
