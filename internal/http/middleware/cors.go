package middleware

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/aymarr/mediguardian-backend/internal/utils"
)

func CORS() gin.HandlerFunc {
	// Expo dev server ports plus common local web ports; override in prod.
	origins := []string{
		"http://localhost:8081",
		"http://localhost:19006",
		"http://localhost:3000",
		"http://127.0.0.1:8081",
		"http://127.0.0.1:3000",
	}
	if extra := utils.GetEnv("CORS_ALLOWED_ORIGINS", "", nil); extra != "" {
		origins = append(origins, strings.Split(extra, ",")...)
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	})
}
