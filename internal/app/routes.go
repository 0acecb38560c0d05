package app

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lingokit/core/internal/middleware"
	"github.com/lingokit/core/internal/modules/auth"
	"github.com/lingokit/core/internal/modules/backup"
	"github.com/lingokit/core/internal/modules/diagnosis"
	"github.com/lingokit/core/internal/modules/exercise"
	"github.com/lingokit/core/internal/modules/generation"
	"github.com/lingokit/core/internal/modules/knowledge"
	"github.com/lingokit/core/internal/modules/pipeline"
	"github.com/lingokit/core/internal/modules/profile"
	pkgredis "github.com/lingokit/core/internal/pkg/redis"
	"github.com/lingokit/core/internal/pkg/response"
	"github.com/lingokit/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
)

const apiPrefix = "/api/v2"

func (a *App) registerRoutes(rc *pkgredis.Client) {
	r := a.router
	db := a.db
	authMW := middleware.Auth(db)

	r.NoRoute(func(c *gin.Context) { response.NotFound(c) })
	r.NoMethod(func(c *gin.Context) { response.MethodNotAllowed(c) })

	r.GET("/", func(c *gin.Context) {
		response.OK(c, gin.H{
			"name":    "lingo-core",
			"version": "1.0.0",
		})
	})
	r.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{"status": "ok", "time": time.Now().Format(time.RFC3339)})
	})

	// Services
	authSvc := auth.NewService(db, a.logger)
	if err := authSvc.EnsureOwner(a.cfg); err != nil {
		a.logger.Warn("owner bootstrap failed", zap.Error(err))
	}

	profileSvc := profile.NewService(db, profile.Caps{
		RecentErrors:     a.cfg.Pipeline.RecentErrorsCap,
		SessionSummaries: a.cfg.Pipeline.SessionSummariesCap,
	})
	knowledgeSvc := knowledge.NewService(db)
	diagEngine := diagnosis.NewEngine()
	genEngine := generation.NewEngine(a.cfg.AI, a.cfg.Pipeline, a.logger.Named("generation"))

	taskSvc := taskqueue.NewService(rc)
	exerciseSvc := exercise.NewService(db, taskSvc, genEngine, knowledgeSvc, a.logger.Named("exercise"))

	a.observer = pipeline.NewObserver(profileSvc, exerciseSvc, a.logger.Named("observer"),
		a.cfg.Pipeline.ObserverRetries, a.cfg.Pipeline.ExerciseThreshold)

	responseCache := pipeline.NewRedisCache(rc, a.cfg.Pipeline.CacheTTL, a.cfg.Pipeline.LastGoodTTL)
	sessionStore := pipeline.NewSessionStore(rc, a.cfg.Pipeline.SessionTTL)
	pipelineSvc := pipeline.NewService(profileSvc, knowledgeSvc, responseCache, genEngine,
		sessionStore, diagEngine, a.observer, a.cfg.Pipeline, a.logger.Named("pipeline"))

	backupSvc := backup.NewService(db, a.cfg.Backup, a.logger.Named("backup"))

	// Versioned API
	api := r.Group(apiPrefix)

	auth.NewHandler(authSvc).RegisterRoutes(api)
	knowledge.NewHandler(knowledgeSvc).RegisterRoutes(api, authMW)
	profile.NewHandler(profileSvc).RegisterRoutes(api, authMW)
	pipeline.NewHandler(pipelineSvc).RegisterRoutes(api)
	exercise.NewHandler(exerciseSvc).RegisterRoutes(api, authMW)
	backup.NewHandler(backupSvc).RegisterRoutes(api, authMW)

	// Cron introspection
	api.GET("/cron", authMW, func(c *gin.Context) {
		response.OK(c, a.sched.List())
	})
	api.POST("/cron/:name/run", authMW, func(c *gin.Context) {
		if err := a.sched.Run(c.Request.Context(), c.Param("name")); err != nil {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.NoContent(c)
	})
}
