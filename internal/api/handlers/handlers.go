package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gocomet/ride-booking/internal/auth"
	"github.com/gocomet/ride-booking/internal/service/lifecycle"
	"github.com/gocomet/ride-booking/internal/service/matching"
	apperrors "github.com/gocomet/ride-booking/pkg/errors"
	"github.com/gocomet/ride-booking/pkg/logger"
	"github.com/gocomet/ride-booking/pkg/websocket"
	gorilla "github.com/gorilla/websocket"
)

// Handlers holds all handler dependencies
type Handlers struct {
	Matching *matching.Service
	Bookings *lifecycle.Service
	Hub      *websocket.Hub
	Logger   *logger.Logger
	Upgrader gorilla.Upgrader
}

// NewHandlers creates a new Handlers instance
func NewHandlers(matcher *matching.Service, bookings *lifecycle.Service, hub *websocket.Hub, log *logger.Logger, readBuf, writeBuf int) *Handlers {
	return &Handlers{
		Matching: matcher,
		Bookings: bookings,
		Hub:      hub,
		Logger:   log,
		Upgrader: gorilla.Upgrader{
			ReadBufferSize:  readBuf,
			WriteBufferSize: writeBuf,
			// Origins are enforced by the CORS layer and the token
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func respond(c *gin.Context, status int, message string, data interface{}) {
	body := gin.H{"code": "OK", "message": message}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

func (h *Handlers) respondError(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.Logger.Error("Request failed",
			logger.String("path", c.FullPath()),
			logger.Err(err),
		)
	}
	c.JSON(appErr.Status, gin.H{"code": appErr.Code, "message": appErr.Message})
}

// bind decodes the JSON body and answers 400 on failure
func (h *Handlers) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.respondError(c, apperrors.BadRequest("Invalid request payload", err))
		return false
	}
	return true
}

func identity(c *gin.Context) auth.Identity {
	id, _ := auth.IdentityFrom(c)
	return id
}
