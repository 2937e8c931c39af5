package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/stackit/backend/internal/forum"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

type QuestionHandler struct {
	questions *forum.QuestionService
	errs      errorWriter
}

func NewQuestionHandler(questions *forum.QuestionService, errs errorWriter) *QuestionHandler {
	return &QuestionHandler{questions: questions, errs: errs}
}

func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	identity, ok := h.errs.identity(c)
	if !ok {
		return
	}
	var req models.CreateQuestionRequest
	if err := bindJSON(c, &req); err != nil {
		h.errs.write(c, err)
		return
	}

	question, err := h.questions.Create(c.Request.Context(), identity, req)
	if err != nil {
		h.errs.write(c, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

// GetQuestions supports skip, limit, search, comma separated tags, sort_by and sort_order.
func (h *QuestionHandler) GetQuestions(c *gin.Context) {
	skip, limit, err := pageParams(c, 10)
	if err != nil {
		h.errs.write(c, err)
		return
	}
	filter := models.QuestionFilter{
		Skip:      skip,
		Limit:     limit,
		Search:    c.Query("search"),
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}
	if tags := c.Query("tags"); tags != "" {
		filter.Tags = strings.Split(tags, ",")
	}

	questions, err := h.questions.List(c.Request.Context(), filter)
	if err != nil {
		h.errs.write(c, err)
		return
	}
	c.JSON(http.StatusOK, questions)
}

// GetQuestion returns a single question and counts the view.
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	question, err := h.questions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.errs.writeScoped(c, err, "question")
		return
	}
	c.JSON(http.StatusOK, question)
}

func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	identity, ok := h.errs.identity(c)
	if !ok {
		return
	}
	var req models.UpdateQuestionRequest
	if err := bindJSON(c, &req); err != nil {
		h.errs.writeScoped(c, err, "question")
		return
	}

	question, err := h.questions.Update(c.Request.Context(), identity, c.Param("id"), req)
	if err != nil {
		h.errs.writeScoped(c, err, "question")
		return
	}
	c.JSON(http.StatusOK, question)
}

func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	identity, ok := h.errs.identity(c)
	if !ok {
		return
	}
	if err := h.questions.Delete(c.Request.Context(), identity, c.Param("id")); err != nil {
		h.errs.writeScoped(c, err, "question")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Question deleted successfully"})
}

func (h *QuestionHandler) VoteQuestion(c *gin.Context) {
	identity, ok := h.errs.identity(c)
	if !ok {
		return
	}
	result, err := h.questions.Vote(c.Request.Context(), identity, c.Param("id"), c.Query("vote_type"))
	if err != nil {
		h.errs.writeScoped(c, err, "question")
		return
	}
	c.JSON(http.StatusOK, result)
}
