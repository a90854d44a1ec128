package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tullo/modchat/internal/chat"
	"github.com/tullo/modchat/internal/models"
)

// HistoryReader returns the buffered messages visible in a room and the rooms
// that can be joined
type HistoryReader interface {
	History(room string) ([]models.Message, error)
	Rooms() ([]models.Room, error)
}

type HistoryHandler struct {
	reader      HistoryReader
	defaultRoom string
}

func NewHistoryHandler(reader HistoryReader, defaultRoom string) *HistoryHandler {
	return &HistoryHandler{reader: reader, defaultRoom: defaultRoom}
}

// GetHistory returns the history of the room in the query, oldest first
func (h *HistoryHandler) GetHistory(c *gin.Context) {
	room := c.DefaultQuery("room", h.defaultRoom)

	messages, err := h.reader.History(room)
	if errors.Is(err, chat.ErrStopped) {
		ErrorResponse(c, http.StatusServiceUnavailable, "Server is shutting down")
		return
	}
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to get history")
		return
	}

	if messages == nil {
		messages = []models.Message{}
	}
	c.JSON(http.StatusOK, models.HistoryResponse{Room: room, Messages: messages})
}

// GetRooms lists the rooms a session can join, configured rooms first
func (h *HistoryHandler) GetRooms(c *gin.Context) {
	rooms, err := h.reader.Rooms()
	if errors.Is(err, chat.ErrStopped) {
		ErrorResponse(c, http.StatusServiceUnavailable, "Server is shutting down")
		return
	}
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to list rooms")
		return
	}
	c.JSON(http.StatusOK, models.RoomsResponse{Rooms: rooms})
}
