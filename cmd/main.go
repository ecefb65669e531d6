package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/scioarena/scioarena/config"
	"github.com/scioarena/scioarena/database"
	"github.com/scioarena/scioarena/internal/controller"
	adminctrl "github.com/scioarena/scioarena/internal/controller/admin"
	userctrl "github.com/scioarena/scioarena/internal/controller/user"
	"github.com/scioarena/scioarena/internal/logger"
	"github.com/scioarena/scioarena/internal/model"
	"github.com/scioarena/scioarena/internal/repository"
	"github.com/scioarena/scioarena/internal/service"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title SciOArena Testing Engine API
// @version 1.0
// @description Online testing engine for Science Olympiad clubs and tournaments: attempt lifecycle, auto-grading, proctoring signals, score release, and AI grading suggestions.
// @contact.name API Support
// @contact.email support@scioarena.example.com
// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
func main() {
	logger.Init()

	app := fx.New(
		// Core Application Components
		fx.Provide(
			config.NewConfig,
			database.NewDatabase, // Provides *gorm.DB
			NewGinEngine,         // Provides *gin.Engine
		),

		// Repositories Layer
		fx.Provide(
			repository.NewTestRepository,
			repository.NewQuestionRepository,
			repository.NewAttemptRepository,
			repository.NewAnswerRepository,
			repository.NewProctorEventRepository,
			repository.NewSuggestionRepository,
			repository.NewMembershipRepository,
			repository.NewAuditRepository,
		),

		// Services Layer
		fx.Provide(
			service.NewAuthzService,
			service.NewAuditService,
			service.NewAdminTestService,
			service.NewUserTestService,
			service.NewGeminiLLMService,
			service.NewAttemptLifecycleService,
			service.NewSuggestionService,
		),

		// API Controllers Layer
		fx.Provide(
			adminctrl.NewAdminTestController,
			userctrl.NewUserTestController,
			userctrl.NewAttemptController,
		),

		fx.Invoke(RegisterRoutesAndStartServer),
		fx.Invoke(AutoMigrateDB),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
}

func NewGinEngine() *gin.Engine {
	gin.SetMode(gin.DebugMode)

	r := gin.New()

	// Route request logs through Zerolog instead of Gin's default logger.
	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("user_agent", param.Request.UserAgent()).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // Be more specific in production
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Swagger UI at /swagger/index.html
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	adminTestCtrl *adminctrl.AdminTestController,
	userTestCtrl *userctrl.UserTestController,
	attemptCtrl *userctrl.AttemptController,
) {
	api := router.Group("/api/v1")
	api.Use(controller.ActorMiddleware())

	// Staff routes. Authorization happens per-test in the services, since
	// staff of one club must not manage another club's tests.
	adminGroup := api.Group("/admin")
	{
		testsAdmin := adminGroup.Group("/tests")
		testsAdmin.POST("", adminTestCtrl.CreateTest)
		testsAdmin.POST("/:test_id/publish", adminTestCtrl.PublishTest)
		testsAdmin.POST("/:test_id/close", adminTestCtrl.CloseTest)
		testsAdmin.GET("/:test_id/attempts", adminTestCtrl.GetAttemptsForTest)
	}

	// Test catalog
	api.GET("/tests", userTestCtrl.GetAllTests)
	api.GET("/tests/:test_id", userTestCtrl.GetTestDetails)

	// Attempt lifecycle
	api.POST("/tests/:test_id/attempts", attemptCtrl.StartAttempt)
	api.GET("/tests/:test_id/my-attempts", attemptCtrl.GetMyAttempts)
	api.GET("/tests/:test_id/results", attemptCtrl.GetResults)
	api.PUT("/attempts/:attempt_id/answers", attemptCtrl.SaveAnswer)
	api.POST("/attempts/:attempt_id/events", attemptCtrl.AppendProctorEvents)
	api.POST("/attempts/:attempt_id/submit", attemptCtrl.SubmitAttempt)
	api.POST("/attempts/:attempt_id/suggestions", attemptCtrl.RequestSuggestions)

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("SciOArena engine starting on port %s", cfg.Server.Port)
			log.Info().Msgf("Swagger UI available at http://localhost:%s/swagger/index.html", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	err := db.AutoMigrate(
		&model.Membership{},
		&model.Test{},
		&model.Question{},
		&model.Option{},
		&model.Attempt{},
		&model.Answer{},
		&model.ProctorEvent{},
		&model.AiGradingSuggestion{},
		&model.AuditLog{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
