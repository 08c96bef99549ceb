package server

import (
	"time"

	"minilibrary-session-svc/src/clients"
	"minilibrary-session-svc/src/internal/dependency"
	"minilibrary-session-svc/src/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func SetupRoutes(deps *dependency.Manager) {
	router := deps.Router
	router.Use(enableCORS)

	setupHealthEndpoint(deps)
	setupSessionRoutes(router, deps)
	setupBookRoutes(router, deps)
}

func setupHealthEndpoint(deps *dependency.Manager) {
	router := deps.Router
	mongodb := deps.Mongodb
	redisClient := deps.Redis
	cfg := deps.Config

	router.GET("/health", func(c *gin.Context) {
		log.Info("Health check endpoint requested")

		mongoStatus := "ok"
		if err := mongodb.Client.Ping(c.Request.Context(), nil); err != nil {
			mongoStatus = "error: " + err.Error()
		}

		redisStatus := "ok"
		if err := redisClient.Client.Ping(c.Request.Context()).Err(); err != nil {
			redisStatus = "error: " + err.Error()
		}

		c.JSON(200, gin.H{
			"status":    "ok",
			"service":   cfg.App.Name,
			"version":   cfg.App.Version,
			"mongodb":   mongoStatus,
			"redis":     redisStatus,
			"timestamp": time.Now().UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	})

	router.GET("/health/detailed", func(c *gin.Context) {
		log.Info("Detailed health check endpoint requested")

		c.JSON(200, gin.H{
			"status":  "operational",
			"service": cfg.App.Name,
			"version": cfg.App.Version,
			"components": gin.H{
				"database": gin.H{
					"mongodb": getStatus(isMongoConnected(mongodb, c)),
					"redis":   getStatus(isRedisConnected(redisClient.Client, c)),
				},
				"services": gin.H{
					"sessions": "operational",
					"books":    "operational",
					"cache":    "operational",
				},
			},
		})
	})
}

func setupSessionRoutes(router *gin.Engine, deps *dependency.Manager) {
	authMiddleware := middleware.NewAuthMiddleware(deps.Config.Security.JwtKey)
	handler := deps.SessionHandler

	sessions := router.Group("/api/v1/sessions")
	sessions.Use(authMiddleware.RequireAuth())
	{
		sessions.POST("/start",
			setRouteName("startSession"),
			handler.StartSession)

		sessions.POST("/stop",
			setRouteName("stopSession"),
			handler.StopSession)

		sessions.GET("/active",
			setRouteName("getActiveSession"),
			handler.GetActiveSession)

		sessions.POST("/active/pause",
			setRouteName("pauseSession"),
			handler.PauseSession)

		sessions.POST("/active/resume",
			setRouteName("resumeSession"),
			handler.ResumeSession)

		sessions.POST("/active/exclude-time",
			setRouteName("excludeTime"),
			handler.ExcludeTime)

		sessions.GET("/book/:bookId",
			setRouteName("getSessionsByBook"),
			handler.GetSessionsByBook)
	}
}

func setupBookRoutes(router *gin.Engine, deps *dependency.Manager) {
	authMiddleware := middleware.NewAuthMiddleware(deps.Config.Security.JwtKey)
	handler := deps.BookHandler

	books := router.Group("/api/v1/books")
	books.Use(authMiddleware.RequireAuth())
	{
		books.POST("",
			setRouteName("createBook"),
			handler.CreateBook)

		books.GET("",
			setRouteName("listBooks"),
			handler.ListBooks)

		books.GET("/:id",
			setRouteName("getBook"),
			handler.GetBook)

		books.PATCH("/:id/progress",
			setRouteName("updateBookProgress"),
			handler.UpdateProgress)

		books.PATCH("/:id/status",
			setRouteName("updateBookStatus"),
			handler.UpdateStatus)

		books.PATCH("/:id/goal",
			setRouteName("setBookGoal"),
			handler.SetGoal)

		books.GET("/:id/goal-progress",
			setRouteName("getBookGoalProgress"),
			handler.GoalProgress)

		books.DELETE("/:id",
			setRouteName("deleteBook"),
			handler.DeleteBook)
	}
}

func setRouteName(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("route_name", name)
		c.Next()
	}
}

func isMongoConnected(mongodb *clients.MongoDB, c *gin.Context) bool {
	if err := mongodb.Client.Ping(c.Request.Context(), nil); err != nil {
		return false
	}
	return true
}

func isRedisConnected(redisClient *redis.Client, c *gin.Context) bool {
	if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
		return false
	}
	return true
}

func enableCORS(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if c.Request.Method == "OPTIONS" {
		c.AbortWithStatus(204)
		return
	}

	c.Next()
}

func getStatus(b bool) string {
	if b {
		return "connected"
	}
	return "disconnected"
}
