package main

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/taskforge/backend/internal/config"
	"github.com/taskforge/backend/internal/db"
	"github.com/taskforge/backend/internal/handler"
	"github.com/taskforge/backend/internal/service"
)

// @title Task Manager API
// @version 1.0
// @description JWT-authenticated personal task management API.
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file found, using process environment")
	}

	cfg := config.Load()
	ctx := context.Background()

	pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()

	repo := &db.Postgres{Pool: pool}
	if err := repo.EnsureSchema(ctx); err != nil {
		logrus.WithError(err).Fatal("failed to ensure schema")
	}

	authSvc, err := service.NewAuthService(repo, cfg.Auth)
	if err != nil {
		logrus.WithError(err).Fatal("invalid auth config")
	}
	taskSvc := service.NewTaskService(repo)

	authHandler := handler.NewAuthHandler(authSvc)
	taskHandler := handler.NewTaskHandler(taskSvc)

	router := gin.Default()
	router.Use(handler.RequestIDMiddleware())
	if origins := splitOrigins(cfg.CORS.AllowedOrigins); len(origins) > 0 {
		router.Use(handler.CORSMiddleware(origins))
	}

	router.GET("/", handler.Root)
	router.GET("/ping", handler.Ping)
	router.GET("/openapi.json", handler.OpenAPIDoc)

	// Public endpoints: registration, login and refresh bypass the
	// token check entirely.
	api := router.Group("/api")
	api.POST("/register/", authHandler.Register)
	api.POST("/token/", authHandler.Token)
	api.POST("/token/refresh/", authHandler.Refresh)

	tasks := api.Group("/tasks")
	tasks.Use(handler.AuthMiddleware(authSvc))
	tasks.GET("/", taskHandler.List)
	tasks.POST("/", taskHandler.Create)
	tasks.GET("/:id/", taskHandler.Get)
	tasks.PUT("/:id/", taskHandler.Update)
	tasks.PATCH("/:id/", taskHandler.Patch)
	tasks.DELETE("/:id/", taskHandler.Delete)

	logrus.WithField("addr", cfg.HTTP.Addr).Info("starting server")
	if err := router.Run(cfg.HTTP.Addr); err != nil {
		logrus.WithError(err).Fatal("server exited")
	}
}

func splitOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}
