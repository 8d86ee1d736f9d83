package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cashwise/cashwise-api/services"
)

type AIHandler struct {
	AI *services.AIService
}

type SuggestCategoryRequest struct {
	Description string `json:"description" binding:"required"`
}

func (h *AIHandler) SuggestCategory(c *gin.Context) {
	var req SuggestCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category, err := h.AI.SuggestCategory(c.Request.Context(), req.Description)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Categorization unavailable", "category": category})
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": category})
}

type ParseExpenseRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *AIHandler) ParseExpense(c *gin.Context) {
	var req ParseExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	parsed, err := h.AI.ParseExpense(c.Request.Context(), req.Text, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Expense parsing unavailable"})
		return
	}

	c.JSON(http.StatusOK, parsed)
}
