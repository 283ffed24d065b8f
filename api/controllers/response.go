package controllers

import (
	"net/http"

	"github.com/go-chi/render"
)

// APIResponse 统一API响应结构
type APIResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data,omitempty"`
}

// PaginatedResponse 分页响应结构
type PaginatedResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data"`
	Total  int64       `json:"total" example:"100"`
	Limit  int         `json:"limit" example:"10"`
}

// renderResponse 同时设置 HTTP 状态码和响应体中的 status
func renderResponse(w http.ResponseWriter, r *http.Request, status int, msg string, data interface{}) {
	render.Status(r, status)
	render.JSON(w, r, APIResponse{
		Status: status,
		Msg:    msg,
		Data:   data,
	})
}
