/*
 * @module api/middleware/admin_auth
 * @description 管理操作鉴权中间件，修正、备份、恢复等写操作需要携带管理令牌
 * @architecture 中间件模式 - HTTP请求拦截和验证
 * @stateFlow Token提取 -> Token比对 -> 下一个处理器
 * @rules 只拦截写方法；未配置令牌时不启用鉴权
 * @dependencies net/http, github.com/go-chi/render
 * @refs api/routes.go
 */

package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/render"
)

// AdminAuthMiddleware 管理令牌鉴权中间件
type AdminAuthMiddleware struct {
	token string
}

// NewAdminAuthMiddleware 从 INTEGRITY_ADMIN_TOKEN 读取令牌
func NewAdminAuthMiddleware() *AdminAuthMiddleware {
	return NewAdminAuthMiddlewareWithToken(os.Getenv("INTEGRITY_ADMIN_TOKEN"))
}

// NewAdminAuthMiddlewareWithToken 使用指定令牌创建中间件
func NewAdminAuthMiddlewareWithToken(token string) *AdminAuthMiddleware {
	return &AdminAuthMiddleware{token: strings.TrimSpace(token)}
}

// Enabled 是否启用鉴权
func (m *AdminAuthMiddleware) Enabled() bool {
	return m.token != ""
}

// Middleware 认证中间件处理函数
func (m *AdminAuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.Enabled() || !isWriteMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			m.respondUnauthorized(w, r, "缺少管理令牌")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(m.token)) != 1 {
			m.respondUnauthorized(w, r, "管理令牌无效")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isWriteMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// respondUnauthorized 返回未授权响应
func (m *AdminAuthMiddleware) respondUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, map[string]interface{}{
		"status": http.StatusUnauthorized,
		"msg":    message,
	})
}
