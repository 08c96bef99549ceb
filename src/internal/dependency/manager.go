package dependency

import (
	"minilibrary-session-svc/src/clients"
	"minilibrary-session-svc/src/internal/book"
	"minilibrary-session-svc/src/internal/cache"
	"minilibrary-session-svc/src/internal/config"
	"minilibrary-session-svc/src/internal/session"

	"github.com/gin-gonic/gin"
)

type Manager struct {
	Router         *gin.Engine
	Config         *config.Configuration
	Mongodb        *clients.MongoDB
	Redis          *clients.RedisClient
	RabbitMQ       *clients.RabbitMQ
	CacheService   cache.Service
	ActivityClient *clients.ActivityClient
	SessionService session.Service
	SessionHandler session.Handler
	BookService    book.Service
	BookHandler    book.Handler
}

func NewDependencyManager(router *gin.Engine,
	mongodb *clients.MongoDB,
	redisClient *clients.RedisClient,
	rabbitMQ *clients.RabbitMQ,
	cfg *config.Configuration) *Manager {
	cacheService := cache.NewCacheService(redisClient.Client, cfg)
	activityClient := clients.NewActivityClient(cfg, rabbitMQ.Channel)

	bookRepo := book.NewBookRepository(mongodb, cfg.Database.BookCollection)
	sessionRepo := session.NewSessionRepository(mongodb, cfg.Database.SessionCollection)

	progressService := book.NewProgressService(bookRepo)
	sessionService := session.NewSessionService(sessionRepo, bookRepo, progressService)
	bookService := book.NewBookService(bookRepo, sessionService, progressService)

	sessionHandler := session.NewHandler(cfg, sessionService, cacheService, activityClient)
	bookHandler := book.NewHandler(cfg, bookService)

	return &Manager{
		Router:         router,
		Config:         cfg,
		Mongodb:        mongodb,
		Redis:          redisClient,
		RabbitMQ:       rabbitMQ,
		CacheService:   cacheService,
		ActivityClient: activityClient,
		SessionService: sessionService,
		SessionHandler: sessionHandler,
		BookService:    bookService,
		BookHandler:    bookHandler,
	}
}
