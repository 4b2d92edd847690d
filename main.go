package main

import (
	"context"
	"log"

	"bamboolab/config"
	"bamboolab/handlers"
	"bamboolab/middleware"
	"bamboolab/models"
	"bamboolab/routes"
	"bamboolab/services"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database models
	err = db.AutoMigrate(
		&models.User{},
		&models.Candidate{},
		&models.Subject{},
		&models.Question{},
		&models.Answer{},
		&models.Document{},
		&models.UploadedFile{},
		&models.QuizAttempt{},
		&models.UserAnswer{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize Redis
	redisClient := config.InitRedis(cfg)

	// Question generation provider
	generator, err := services.NewGeminiGenerator(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		log.Fatal("Failed to initialize Gemini client:", err)
	}
	defer generator.Close()

	// Initialize services
	authService := services.NewAuthService(db, cfg.JWTSecret)
	importService := services.NewImportService(db, cfg.DataDir)
	rankingService := services.NewRankingService(db, importService)
	subjectService := services.NewSubjectService(db)
	quizService := services.NewQuizService(db, subjectService)
	documentService := services.NewDocumentService(db, redisClient, generator, cfg.UploadDir)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	rankingHandler := handlers.NewRankingHandler(rankingService, importService)
	quizHandler := handlers.NewQuizHandler(quizService, subjectService)
	documentHandler := handlers.NewDocumentHandler(documentService)

	// Setup Gin router
	router := gin.Default()

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Setup routes
	routes.SetupRoutes(router, authHandler, rankingHandler, quizHandler, documentHandler, cfg.JWTSecret)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
