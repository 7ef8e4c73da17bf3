package delivery

import (
	"net/http"

	"tupilates/domain"
	"tupilates/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ChatHandler struct {
	chatUC domain.ConversationUseCase
}

// NewChatHandler exposes the guided registration conversation. Posting to
// /chat/new opens a session; the reply carries the id to use afterwards.
func NewChatHandler(r *gin.Engine, chatUC domain.ConversationUseCase) {
	handler := &ChatHandler{chatUC: chatUC}
	r.POST("/chat/:session", handler.Step)
}

func (h *ChatHandler) Step(c *gin.Context) {
	name := utils.GetAPIHitter(c)

	session := c.Param("session")
	if session == "new" {
		session = uuid.NewString()
	} else if _, err := uuid.Parse(session); err != nil {
		utils.PrintLogInfo(&name, http.StatusBadRequest, "ChatStep", &err)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid session parameter",
			"message": "Failed to continue conversation",
		})
		return
	}

	input := map[string]string{}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			utils.PrintLogInfo(&name, http.StatusBadRequest, "ChatStep", &err)
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "El cuerpo debe ser un objeto con textos",
				"message": "Failed to continue conversation",
			})
			return
		}
	}

	reply, err := h.chatUC.Step(c.Request.Context(), session, input)
	if err != nil {
		respondError(c, name, "ChatStep", err, "Failed to continue conversation")
		return
	}
	respondOK(c, name, "ChatStep", http.StatusOK, reply)
}
