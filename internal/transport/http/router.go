package http

import (
	"net/http"

	"elearning-quiz-service/internal/app"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterDeps holds everything the HTTP layer needs.
type RouterDeps struct {
	Quizzes     *app.QuizService
	Admin       *app.AdminService
	Auth        *Authenticator
	CORSOrigins []string
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	if len(deps.CORSOrigins) > 0 {
		config := cors.DefaultConfig()
		if len(deps.CORSOrigins) == 1 && deps.CORSOrigins[0] == "*" {
			config.AllowAllOrigins = true
		} else {
			config.AllowOrigins = deps.CORSOrigins
		}
		config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
		config.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE"}
		r.Use(cors.New(config))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	h := &handlers{quizzes: deps.Quizzes, admin: deps.Admin}

	api := r.Group("/api", deps.Auth.RequireUser())
	api.GET("/quizzes/:quizId", h.getQuiz)
	api.POST("/quizzes/:quizId/attempts", h.submitAttempt)
	api.GET("/me/attempts", h.history)
	api.GET("/attempts/:attemptId/correction", h.correction)

	admin := api.Group("/admin", deps.Auth.RequireAdmin())
	admin.GET("/courses/:courseId/quizzes", h.listQuizzes)
	admin.POST("/courses/:courseId/quizzes", h.createQuiz)
	admin.GET("/quizzes/:quizId", h.adminGetQuiz)
	admin.PATCH("/quizzes/:quizId", h.updateQuiz)
	admin.DELETE("/quizzes/:quizId", h.deleteQuiz)
	admin.GET("/quizzes/:quizId/attempts", h.listAttempts)

	ws := NewWSHandler(deps.Admin, deps.Auth)
	r.GET("/ws/admin/quizzes/:quizId/attempts", ws.ServeAttempts)
	r.GET("/ws/admin/courses/:courseId/quizzes", ws.ServeQuizzes)

	return r
}
