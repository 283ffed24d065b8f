/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs api/controllers/integrity_controller.go
 */

package api

import (
	"context"

	"integrity-service/api/controllers"
	"integrity-service/api/middleware"
	"integrity-service/service"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	// 基础中间件
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 健康检查
	healthController := controllers.NewHealthController(func(ctx context.Context) error {
		sqlDB, err := service.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	RegisterIntegrityRoutes(r, controllers.NewIntegrityController(service.GlobalIntegrityService), middleware.NewAdminAuthMiddleware())
}

// RegisterIntegrityRoutes 注册数据完整性路由
func RegisterIntegrityRoutes(r chi.Router, integrityController *controllers.IntegrityController, adminAuth *middleware.AdminAuthMiddleware) {
	r.Route("/integrity", func(r chi.Router) {
		r.Use(adminAuth.Middleware)

		r.Get("/rules", integrityController.GetRules)
		r.Get("/summary", integrityController.GetSummary)

		// 检查执行与历史
		r.Post("/checks", integrityController.RunCheck)
		r.Get("/checks", integrityController.GetCheckHistory)

		// 自动修正
		r.Post("/checks/{id}/corrections", integrityController.AutoCorrect)
		r.Get("/checks/{id}/corrections", integrityController.GetCorrections)

		// 备份与恢复
		r.Post("/backups", integrityController.CreateBackup)
		r.Get("/backups", integrityController.ListBackups)
		r.Post("/backups/{id}/restore", integrityController.RestoreBackup)
	})
}
