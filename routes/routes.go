package routes

import (
	"net/http"

	"bamboolab/handlers"
	"bamboolab/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	authHandler *handlers.AuthHandler,
	rankingHandler *handlers.RankingHandler,
	quizHandler *handlers.QuizHandler,
	documentHandler *handlers.DocumentHandler,
	jwtSecret string,
) {
	// API routes
	api := router.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		// Score ranking (public, like the lookup page)
		ranking := api.Group("/ranking")
		{
			ranking.POST("/lookup", rankingHandler.Lookup)
		}

		// Subject catalog (public)
		api.GET("/subjects", quizHandler.ListSubjects)

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(jwtSecret))
		{
			// User profile
			protected.GET("/auth/profile", authHandler.GetProfile)
			protected.GET("/auth/profile/attempts", quizHandler.GetHistory)

			// Quiz attempt lifecycle
			quizzes := protected.Group("/quizzes")
			{
				quizzes.POST("/start/:subjectId", quizHandler.StartQuiz)
				quizzes.GET("/:id", quizHandler.GetAttempt)
				quizzes.POST("/:id/submit", quizHandler.SubmitQuiz)
				quizzes.GET("/:id/result", quizHandler.GetResult)
			}

			// Staff-only routes
			staff := protected.Group("/")
			staff.Use(middleware.StaffOnly())
			{
				staff.POST("/ranking/import", rankingHandler.Import)

				documents := staff.Group("/documents")
				{
					documents.POST("", documentHandler.Upload)
					documents.GET("", documentHandler.List)
					documents.GET("/:id/status", documentHandler.Status)
					documents.GET("/:id/questions", documentHandler.Questions)
				}
			}
		}
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
