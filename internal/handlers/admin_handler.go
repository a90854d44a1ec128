package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/tullo/modchat/internal/chat"
	"github.com/tullo/modchat/internal/models"
)

// TicketHeader carries the caller's identity ticket on admin requests
const TicketHeader = "X-Identity-Ticket"

// Commander runs slash commands on behalf of a ticket holder
type Commander interface {
	Execute(ticket, text string) ([]string, error)
}

type AdminHandler struct {
	commander Commander
	logger    zerolog.Logger
}

func NewAdminHandler(commander Commander, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{commander: commander, logger: logger}
}

var errMissingTarget = errors.New("target_id is required")
var errMissingWord = errors.New("word is required")
var errUnknownAction = errors.New("unknown action")

// commandFor translates the action form into slash command text
func commandFor(req models.AdminRequest) (string, error) {
	if req.Command != "" {
		return req.Command, nil
	}

	target := strings.TrimSpace(req.TargetID)
	word := strings.TrimSpace(req.Word)
	withTarget := func(verb string, rest ...string) (string, error) {
		if target == "" {
			return "", errMissingTarget
		}
		return strings.TrimSpace(strings.Join(append([]string{"/" + verb, target}, rest...), " ")), nil
	}
	withWord := func(verb string) (string, error) {
		if word == "" {
			return "", errMissingWord
		}
		return "/" + verb + " " + word, nil
	}

	switch strings.ToLower(req.Action) {
	case "ban":
		return withTarget("ban", req.Reason)
	case "unban":
		return withTarget("unban")
	case "mute":
		return withTarget("mute", req.Duration)
	case "unmute":
		return withTarget("unmute")
	case "kick":
		return withTarget("kick")
	case "clear":
		return withTarget("clear")
	case "purge":
		return "/purge", nil
	case "addbannedword":
		return withWord("addbannedword")
	case "removebannedword":
		return withWord("removebannedword")
	default:
		return "", errUnknownAction
	}
}

// Execute runs one admin command and returns the private replies it produced
func (h *AdminHandler) Execute(c *gin.Context) {
	ticket := c.GetHeader(TicketHeader)
	if ticket == "" {
		ErrorResponse(c, http.StatusUnauthorized, "Identity ticket required")
		return
	}

	var req models.AdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	text, err := commandFor(req)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	replies, err := h.commander.Execute(ticket, text)
	switch {
	case errors.Is(err, chat.ErrInvalidTicket):
		ErrorResponse(c, http.StatusForbidden, "Unauthorized")
		return
	case errors.Is(err, chat.ErrNotCommand):
		ErrorResponse(c, http.StatusBadRequest, "Command must start with /")
		return
	case errors.Is(err, chat.ErrStopped):
		ErrorResponse(c, http.StatusServiceUnavailable, "Server is shutting down")
		return
	case err != nil:
		h.logger.Error().Err(err).Msg("Admin command failed")
		ErrorResponse(c, http.StatusInternalServerError, "Failed to execute command")
		return
	}

	if replies == nil {
		replies = []string{}
	}
	c.JSON(http.StatusOK, models.AdminResponse{Replies: replies})
}
