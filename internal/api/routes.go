package api

import (
	"net/http" // For http.StatusOK in health check

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"aura-backend-go/internal/core"
	"aura-backend-go/internal/db"
	"aura-backend-go/internal/middleware"
)

// SetupRoutes configures all the application routes with their handlers and middleware.
// It's expected that global middleware (Logging, Recovery, CORS) are applied to the `router`
// instance *before* this function is called, typically in `main.go`.
func SetupRoutes(
	router *gin.Engine,
	logger *zap.Logger,
	userService core.UserService,
	matchmakingService core.MatchmakingService,
	messageService core.MessageService,
	votingService core.VotingService,
	reportService core.ReportService,
) {
	// Get Firebase Auth client. This must be available after db.InitFirestore().
	firebaseAuthClient := db.GetFirebaseAuthClient()
	if firebaseAuthClient == nil {
		logger.Fatal("CRITICAL_SETUP_ERROR: Firebase Auth client is not initialized. AuthMiddleware cannot be created, and routes will not be set up.")
		panic("Firebase Auth client is nil during route setup. Ensure db.InitFirestore() was called and succeeded.")
	}
	authMW := middleware.AuthMiddleware(firebaseAuthClient)

	// --- Initialize Handlers ---
	userHandler := NewUserHandler(userService)
	circleHandler := NewCircleHandler(matchmakingService)
	messageHandler := NewMessageHandler(messageService)
	voteHandler := NewVoteHandler(votingService)
	reportHandler := NewReportHandler(reportService)

	apiV1 := router.Group("/api/v1")
	{
		// --- User Endpoints ---
		usersGroup := apiV1.Group("/users")
		{
			// POST /api/v1/users/initialize - called after client-side sign-in
			// to ensure the backend profile exists.
			usersGroup.POST("/initialize", authMW, userHandler.InitializeUserProfile)
			usersGroup.GET("/me", authMW, userHandler.GetCurrentUserProfile)
		}

		// --- Circle Endpoints ---
		circlesGroup := apiV1.Group("/circles", authMW)
		{
			circlesGroup.POST("/join", circleHandler.JoinCircle)
			circlesGroup.GET("/:circleId", circleHandler.GetCircle)
			circlesGroup.GET("/:circleId/members", circleHandler.GetMembers)

			// Messages are nested under a circle; participant access is checked
			// within the MessageService.
			circlesGroup.POST("/:circleId/messages", messageHandler.SendMessage)
			circlesGroup.GET("/:circleId/messages", messageHandler.ListMessages)
			circlesGroup.GET("/:circleId/messages/stream", messageHandler.StreamMessages)

			// End-of-cycle vote.
			circlesGroup.POST("/:circleId/votes", voteHandler.SubmitVote)
			circlesGroup.GET("/:circleId/votes/options", voteHandler.GetVoteOptions)
		}

		// --- Report Endpoints ---
		apiV1.POST("/reports", authMW, reportHandler.SubmitReport)
	}

	// --- General Health Check Endpoint ---
	// This endpoint is typically public and does not go under /api/v1 group.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "Circle backend is healthy."})
	})

	logger.Info("API routes configured successfully under /api/v1 and /health.")
}
