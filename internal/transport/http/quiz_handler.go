package http

import (
	"net/http"
	"time"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/domain"
	"github.com/gin-gonic/gin"
)

// QuizHandler serves the REST quiz API.
type QuizHandler struct {
	service    *app.QuizService
	production bool
}

func NewQuizHandler(service *app.QuizService, production bool) *QuizHandler {
	return &QuizHandler{service: service, production: production}
}

type createQuizRequest struct {
	Title     string    `json:"title" binding:"required"`
	ClassID   string    `json:"classId" binding:"required"`
	Duration  int       `json:"duration" binding:"gte=0"`
	ValidTill time.Time `json:"validTill" binding:"required"`
}

type optionRequest struct {
	Text string `json:"text"`
}

type questionRequest struct {
	Question      string          `json:"question"`
	Options       []optionRequest `json:"options"`
	CorrectOption int             `json:"correctOption"`
}

// classId is accepted for compatibility and ignored; the quiz's own class wins.
type addQuestionsRequest struct {
	Questions []questionRequest `json:"questions"`
	ClassID   string            `json:"classId"`
}

type editQuizRequest struct {
	Title     string    `json:"title"`
	Duration  int       `json:"duration" binding:"gte=0"`
	ValidTill time.Time `json:"validTill" binding:"required"`
	ClassID   string    `json:"classId"`
}

type answerRequest struct {
	QuestionIndex  *int   `json:"questionIndex" binding:"required"`
	Question       string `json:"question"`
	SelectedOption *int   `json:"selectedOption" binding:"required"`
}

type attemptRequest struct {
	Answers     []answerRequest `json:"answers" binding:"required,len=1,dive"`
	SubmittedAt *time.Time      `json:"submittedAt"`
}

func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	var req createQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	quiz, err := h.service.CreateQuiz(c.Request.Context(), actorFrom(c), app.CreateQuizInput{
		Title:     req.Title,
		ClassID:   req.ClassID,
		Duration:  req.Duration,
		ValidTill: req.ValidTill,
	})
	if err != nil {
		writeError(c, err, h.production)
		return
	}
	c.JSON(http.StatusCreated, quiz)
}

func (h *QuizHandler) AddQuestions(c *gin.Context) {
	if err := h.service.RequireOwner(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		writeError(c, err, h.production)
		return
	}
	var req addQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	questions := make([]domain.Question, 0, len(req.Questions))
	for _, q := range req.Questions {
		options := make([]domain.Option, 0, len(q.Options))
		for _, o := range q.Options {
			options = append(options, domain.Option{Text: o.Text})
		}
		questions = append(questions, domain.Question{Text: q.Question, Options: options, CorrectOption: q.CorrectOption})
	}
	quiz, err := h.service.AddQuestions(c.Request.Context(), actorFrom(c), c.Param("id"), questions)
	if err != nil {
		writeError(c, err, h.production)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "quiz": quiz})
}

func (h *QuizHandler) EditQuiz(c *gin.Context) {
	if err := h.service.RequireOwner(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		writeError(c, err, h.production)
		return
	}
	var req editQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	quiz, err := h.service.EditQuiz(c.Request.Context(), actorFrom(c), c.Param("id"), app.EditQuizInput{
		Title:     req.Title,
		Duration:  req.Duration,
		ValidTill: req.ValidTill,
	})
	if err != nil {
		writeError(c, err, h.production)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "quiz": quiz})
}

func (h *QuizHandler) PublishQuiz(c *gin.Context) {
	quiz, err := h.service.PublishQuiz(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err, h.production)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Quiz published successfully", "quiz": quiz})
}

func (h *QuizHandler) ListClassQuizzes(c *gin.Context) {
	actor := actorFrom(c)
	quizzes, err := h.service.ListClassQuizzes(c.Request.Context(), actor, c.Param("classId"))
	if err != nil {
		writeError(c, err, h.production)
		return
	}
	if actor.Role != domain.RoleStudent {
		c.JSON(http.StatusOK, gin.H{"success": true, "quizzes": quizzes})
		return
	}
	now := h.service.Now()
	views := make([]domain.StudentQuiz, 0, len(quizzes))
	for _, q := range quizzes {
		views = append(views, q.StudentView(actor.UserID, now, h.service.GraceWindow()))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "quizzes": views})
}

func (h *QuizHandler) GetQuiz(c *gin.Context) {
	actor := actorFrom(c)
	quiz, err := h.service.GetQuiz(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeError(c, err, h.production)
		return
	}
	if actor.Role == domain.RoleStudent {
		c.JSON(http.StatusOK, gin.H{"success": true, "quiz": quiz.StudentView(actor.UserID, h.service.Now(), h.service.GraceWindow())})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "quiz": quiz})
}

func (h *QuizHandler) SubmitAttempt(c *gin.Context) {
	var req attemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	var submittedAt time.Time
	if req.SubmittedAt != nil {
		submittedAt = *req.SubmittedAt
	}
	answer := req.Answers[0]
	attempt, err := h.service.SubmitAnswer(c.Request.Context(), actorFrom(c), c.Param("id"), app.AnswerInput{
		QuestionIndex:  *answer.QuestionIndex,
		SelectedOption: *answer.SelectedOption,
	}, submittedAt)
	if err != nil {
		writeError(c, err, h.production)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "quiz": attempt})
}

func (h *QuizHandler) AttemptResult(c *gin.Context) {
	result, err := h.service.AttemptResult(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err, h.production)
		return
	}
	c.JSON(http.StatusOK, struct {
		Success bool `json:"success"`
		domain.AttemptResult
	}{true, result})
}

func (h *QuizHandler) CalculateScore(c *gin.Context) {
	score, err := h.service.ComputeScore(c.Request.Context(), actorFrom(c), c.Param("id"), c.Query("studentId"))
	if err != nil {
		writeError(c, err, h.production)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "score": score})
}

func (h *QuizHandler) Analytics(c *gin.Context) {
	bucket, err := domain.ParseBucket(c.Query("filter"))
	if err != nil {
		writeError(c, err, h.production)
		return
	}
	order, err := domain.ParseSortOrder(c.Query("sort"))
	if err != nil {
		writeError(c, err, h.production)
		return
	}
	analytics, err := h.service.Analytics(c.Request.Context(), actorFrom(c), c.Param("id"), domain.AnalyticsQuery{
		Bucket: bucket,
		Sort:   order,
		Search: c.Query("search"),
	})
	if err != nil {
		writeError(c, err, h.production)
		return
	}
	c.JSON(http.StatusOK, struct {
		Success bool `json:"success"`
		domain.Analytics
	}{true, analytics})
}

func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	if err := h.service.DeleteQuiz(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		writeError(c, err, h.production)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Quiz deleted successfully"})
}
