package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dmendezr/plantchat/internal/apperrors"
)

type sendRequest struct {
	Message        string `json:"message"`
	ConversationID int64  `json:"conversationId"`
}

func (s *Server) handleSend(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mensaje es requerido"})
		return
	}

	exchange, err := s.deps.Chat.Send(c.Request.Context(), currentUserID(c), req.Message, req.ConversationID)
	if err != nil {
		s.fail(c, err)
		return
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.ExchangesTotal.Inc()
	}
	c.JSON(http.StatusOK, exchange)
}

// handleChatHistory returns the messages of one conversation when
// conversationId is supplied, otherwise the caller's conversation summaries.
func (s *Server) handleChatHistory(c *gin.Context) {
	userID := currentUserID(c)

	rawID := c.Query("conversationId")
	if rawID == "" {
		conversations, err := s.deps.Chat.Conversations(c.Request.Context(), userID)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"conversations": conversations})
		return
	}

	conversationID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || conversationID <= 0 {
		s.fail(c, apperrors.Validation("conversationId inválido"))
		return
	}

	limit, err := parseLimit(c, s.deps.HistoryLimit)
	if err != nil {
		s.fail(c, err)
		return
	}

	messages, err := s.deps.Chat.History(c.Request.Context(), userID, conversationID, limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// parseLimit applies def when the query parameter is absent and rejects
// explicit non-positive values.
func parseLimit(c *gin.Context, def int) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, apperrors.Validation("limit debe ser un entero positivo")
	}
	return n, nil
}
