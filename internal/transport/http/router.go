package http

import (
	"net/http"
	"reflect"
	"strings"
	"sync"

	"classroom-quiz-service/internal/app"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Options configures the HTTP surface.
type Options struct {
	// Production hides internal error details from clients.
	Production bool
	// Quiet drops the request logger and route debug output, for tests.
	Quiet bool
}

var registerTagNames sync.Once

// NewRouter builds the gin engine serving the quiz API under /api.
func NewRouter(service *app.QuizService, verifier app.TokenVerifier, opts Options) *gin.Engine {
	switch {
	case opts.Production:
		gin.SetMode(gin.ReleaseMode)
	case opts.Quiet:
		gin.SetMode(gin.TestMode)
	}
	useJSONFieldNames()

	router := gin.New()
	if !opts.Quiet {
		router.Use(gin.Logger())
	}
	router.Use(gin.Recovery())

	quizzes := NewQuizHandler(service, opts.Production)
	live := NewWSHandler(service, opts.Production)

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	api := router.Group("/api")
	api.Use(Authenticate(verifier))
	{
		q := api.Group("/quizzes")
		q.POST("/create", quizzes.CreateQuiz)
		q.PUT("/:id/add-questions", quizzes.AddQuestions)
		q.PUT("/:id/edit", quizzes.EditQuiz)
		q.PUT("/:id/publish", quizzes.PublishQuiz)
		q.GET("/class/:classId", quizzes.ListClassQuizzes)
		q.GET("/:id", quizzes.GetQuiz)
		q.PUT("/:id/attempt", quizzes.SubmitAttempt)
		q.GET("/:id/attempt-result", quizzes.AttemptResult)
		q.PUT("/:id/calculate-score", quizzes.CalculateScore)
		q.GET("/:id/analytics", quizzes.Analytics)
		q.DELETE("/:id/delete", quizzes.DeleteQuiz)
		q.GET("/:id/live", live.ServeWS)
	}
	return router
}

// useJSONFieldNames makes validator report json names instead of Go field names.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}
