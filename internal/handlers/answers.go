package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/stackit/backend/internal/forum"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

type AnswerHandler struct {
	answers *forum.AnswerService
	errs    errorWriter
}

func NewAnswerHandler(answers *forum.AnswerService, errs errorWriter) *AnswerHandler {
	return &AnswerHandler{answers: answers, errs: errs}
}

// CreateAnswer posts an answer to the question named by ?question_id=.
func (h *AnswerHandler) CreateAnswer(c *gin.Context) {
	identity, ok := h.errs.identity(c)
	if !ok {
		return
	}
	questionID, ok := c.GetQuery("question_id")
	if !ok {
		h.errs.write(c, forum.Validationf("question_id is required"))
		return
	}
	var req models.CreateAnswerRequest
	if err := bindJSON(c, &req); err != nil {
		h.errs.write(c, err)
		return
	}

	answer, err := h.answers.Create(c.Request.Context(), identity, questionID, req)
	if err != nil {
		h.errs.write(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

func (h *AnswerHandler) GetAnswersForQuestion(c *gin.Context) {
	skip, limit, err := pageParams(c, 10)
	if err != nil {
		h.errs.write(c, err)
		return
	}
	answers, err := h.answers.ListForQuestion(c.Request.Context(), c.Param("question_id"), skip, limit)
	if err != nil {
		h.errs.writeScoped(c, err, "question")
		return
	}
	c.JSON(http.StatusOK, answers)
}

func (h *AnswerHandler) UpdateAnswer(c *gin.Context) {
	identity, ok := h.errs.identity(c)
	if !ok {
		return
	}
	var req models.UpdateAnswerRequest
	if err := bindJSON(c, &req); err != nil {
		h.errs.writeScoped(c, err, "answer")
		return
	}

	answer, err := h.answers.Update(c.Request.Context(), identity, c.Param("id"), req)
	if err != nil {
		h.errs.writeScoped(c, err, "answer")
		return
	}
	c.JSON(http.StatusOK, answer)
}

func (h *AnswerHandler) DeleteAnswer(c *gin.Context) {
	identity, ok := h.errs.identity(c)
	if !ok {
		return
	}
	if err := h.answers.Delete(c.Request.Context(), identity, c.Param("id")); err != nil {
		h.errs.writeScoped(c, err, "answer")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Answer deleted successfully"})
}

func (h *AnswerHandler) VoteAnswer(c *gin.Context) {
	identity, ok := h.errs.identity(c)
	if !ok {
		return
	}
	result, err := h.answers.Vote(c.Request.Context(), identity, c.Param("id"), c.Query("vote_type"))
	if err != nil {
		h.errs.writeScoped(c, err, "answer")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AnswerHandler) AcceptAnswer(c *gin.Context) {
	identity, ok := h.errs.identity(c)
	if !ok {
		return
	}
	result, err := h.answers.Accept(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		h.errs.writeScoped(c, err, "answer")
		return
	}
	c.JSON(http.StatusOK, result)
}
