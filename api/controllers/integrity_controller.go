/*
 * @module api/controllers/integrity_controller
 * @description 数据完整性控制器，提供规则查询、检查执行、自动修正和备份恢复接口
 * @architecture 分层架构 - 控制器层
 * @stateFlow HTTP请求处理流程
 * @rules 统一的错误处理和响应格式；持久化失败时仍返回检查结果
 * @dependencies integrity-service/service/integrity, github.com/go-chi/chi/v5
 * @refs service/integrity/service.go
 */

package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"integrity-service/service/integrity"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// IntegrityController 数据完整性控制器
type IntegrityController struct {
	integrityService *integrity.Service
}

// NewIntegrityController 创建数据完整性控制器实例
func NewIntegrityController(integrityService *integrity.Service) *IntegrityController {
	return &IntegrityController{
		integrityService: integrityService,
	}
}

// RunCheckRequest 执行检查请求
type RunCheckRequest struct {
	RuleID string `json:"rule_id" example:"event_totals_mismatch"`
	Scope  string `json:"scope" example:"all"`
}

// AutoCorrectRequest 自动修正请求
type AutoCorrectRequest struct {
	IssueTypes []string `json:"issue_types"`
}

// AutoCorrectResult 自动修正结果
type AutoCorrectResult struct {
	CheckRunID     string `json:"check_run_id"`
	CorrectedCount int    `json:"corrected_count"`
}

// CreateBackupRequest 创建备份请求
type CreateBackupRequest struct {
	Scope string `json:"scope" example:"all"`
}

// GetRules 获取规则目录
// @Summary 获取完整性规则
// @Description 获取所有内置完整性规则
// @Tags 数据完整性
// @Produce json
// @Success 200 {object} APIResponse{data=[]integrity.RuleInfo} "获取成功"
// @Router /integrity/rules [get]
func (c *IntegrityController) GetRules(w http.ResponseWriter, r *http.Request) {
	rules := c.integrityService.GetAvailableRules()
	infos := make([]integrity.RuleInfo, 0, len(rules))
	for _, rule := range rules {
		infos = append(infos, rule.Info())
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "获取规则列表成功",
		Data:   infos,
	})
}

// RunCheck 执行完整性检查
// @Summary 执行完整性检查
// @Description 执行单条规则或全部规则，scope 为空时检查全部数据
// @Tags 数据完整性
// @Accept json
// @Produce json
// @Param request body RunCheckRequest false "检查参数"
// @Success 201 {object} APIResponse{data=models.CheckRun} "检查完成"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Failure 404 {object} APIResponse "规则不存在"
// @Failure 500 {object} APIResponse "检查记录保存失败"
// @Router /integrity/checks [post]
func (c *IntegrityController) RunCheck(w http.ResponseWriter, r *http.Request) {
	var req RunCheckRequest
	if r.ContentLength != 0 {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			renderResponse(w, r, http.StatusBadRequest, "请求参数格式错误", nil)
			return
		}
	}

	run, err := c.integrityService.RunCheck(r.Context(), req.RuleID, req.Scope)
	if errors.Is(err, integrity.ErrRuleNotFound) {
		renderResponse(w, r, http.StatusNotFound, "规则不存在", nil)
		return
	}
	var perr *integrity.PersistenceError
	if errors.As(err, &perr) {
		renderResponse(w, r, http.StatusInternalServerError, "检查已执行，但检查记录保存失败", run)
		return
	}
	if err != nil {
		renderResponse(w, r, http.StatusInternalServerError, "执行完整性检查失败", nil)
		return
	}

	renderResponse(w, r, http.StatusCreated, "完整性检查完成", run)
}

// GetCheckHistory 获取检查历史
// @Summary 获取检查历史
// @Description 按运行时间倒序获取检查记录
// @Tags 数据完整性
// @Produce json
// @Param scope query string false "检查范围"
// @Param limit query int false "返回数量" default(10)
// @Success 200 {object} PaginatedResponse{data=[]models.CheckRun} "获取成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /integrity/checks [get]
func (c *IntegrityController) GetCheckHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 10
	}
	scope := r.URL.Query().Get("scope")

	runs, err := c.integrityService.GetCheckHistory(r.Context(), scope, limit)
	if err != nil {
		renderResponse(w, r, http.StatusInternalServerError, "获取检查历史失败", nil)
		return
	}

	render.JSON(w, r, PaginatedResponse{
		Status: http.StatusOK,
		Msg:    "获取检查历史成功",
		Data:   runs,
		Total:  int64(len(runs)),
		Limit:  limit,
	})
}

// GetSummary 获取问题摘要
// @Summary 获取问题摘要
// @Description 基于最近的检查记录生成问题摘要和趋势
// @Tags 数据完整性
// @Produce json
// @Param scope query string false "检查范围"
// @Success 200 {object} APIResponse{data=integrity.IssuesSummary} "获取成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /integrity/summary [get]
func (c *IntegrityController) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := c.integrityService.GetIssuesSummary(r.Context(), r.URL.Query().Get("scope"))
	if err != nil {
		renderResponse(w, r, http.StatusInternalServerError, "获取问题摘要失败", nil)
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "获取问题摘要成功",
		Data:   summary,
	})
}

// AutoCorrect 自动修正
// @Summary 自动修正
// @Description 对检查记录所在范围执行自动修正，修正前自动创建备份
// @Tags 数据完整性
// @Accept json
// @Produce json
// @Param id path string true "检查记录ID"
// @Param request body AutoCorrectRequest true "修正的问题类型"
// @Success 200 {object} APIResponse{data=AutoCorrectResult} "修正完成"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Failure 404 {object} APIResponse "检查记录不存在"
// @Failure 409 {object} APIResponse "该范围的修正正在进行中"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /integrity/checks/{id}/corrections [post]
func (c *IntegrityController) AutoCorrect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req AutoCorrectRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil || len(req.IssueTypes) == 0 {
		renderResponse(w, r, http.StatusBadRequest, "请指定要修正的问题类型", nil)
		return
	}

	corrected, err := c.integrityService.AutoCorrect(r.Context(), id, req.IssueTypes)
	result := AutoCorrectResult{CheckRunID: id, CorrectedCount: corrected}

	var (
		berr *integrity.BackupPrerequisiteError
		perr *integrity.PersistenceError
	)
	switch {
	case err == nil:
		renderResponse(w, r, http.StatusOK, "自动修正完成", result)
	case errors.Is(err, integrity.ErrCheckRunNotFound):
		renderResponse(w, r, http.StatusNotFound, "检查记录不存在", nil)
	case errors.Is(err, integrity.ErrCorrectionInProgress):
		renderResponse(w, r, http.StatusConflict, "该范围的自动修正正在进行中", nil)
	case errors.As(err, &berr):
		renderResponse(w, r, http.StatusServiceUnavailable, "修正前备份失败，未修改任何数据", nil)
	case errors.As(err, &perr):
		renderResponse(w, r, http.StatusInternalServerError, "修正已执行，但修正记录保存失败", result)
	default:
		renderResponse(w, r, http.StatusInternalServerError, "自动修正失败", nil)
	}
}

// GetCorrections 获取修正记录
// @Summary 获取修正记录
// @Description 获取检查记录对应的所有修正记录
// @Tags 数据完整性
// @Produce json
// @Param id path string true "检查记录ID"
// @Success 200 {object} APIResponse{data=[]models.CorrectionRecord} "获取成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /integrity/checks/{id}/corrections [get]
func (c *IntegrityController) GetCorrections(w http.ResponseWriter, r *http.Request) {
	records, err := c.integrityService.GetCorrectionHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		renderResponse(w, r, http.StatusInternalServerError, "获取修正记录失败", nil)
		return
	}

	render.JSON(w, r, APIResponse{
		Status: http.StatusOK,
		Msg:    "获取修正记录成功",
		Data:   records,
	})
}

// CreateBackup 创建备份
// @Summary 创建备份
// @Description 对指定范围创建数据快照，scope 为空时备份全部数据
// @Tags 数据完整性
// @Accept json
// @Produce json
// @Param request body CreateBackupRequest false "备份范围"
// @Success 201 {object} APIResponse{data=map[string]string} "备份成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /integrity/backups [post]
func (c *IntegrityController) CreateBackup(w http.ResponseWriter, r *http.Request) {
	var req CreateBackupRequest
	if r.ContentLength != 0 {
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			renderResponse(w, r, http.StatusBadRequest, "请求参数格式错误", nil)
			return
		}
	}

	id, err := c.integrityService.Backups().CreateBackup(r.Context(), req.Scope)
	if err != nil {
		renderResponse(w, r, http.StatusInternalServerError, "创建备份失败", nil)
		return
	}

	renderResponse(w, r, http.StatusCreated, "创建备份成功", map[string]string{"backup_id": id})
}

// ListBackups 获取备份列表
// @Summary 获取备份列表
// @Description 按创建时间倒序获取备份元数据
// @Tags 数据完整性
// @Produce json
// @Param scope query string false "备份范围，all 表示全量备份"
// @Param limit query int false "返回数量" default(10)
// @Success 200 {object} PaginatedResponse{data=[]models.DataBackup} "获取成功"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /integrity/backups [get]
func (c *IntegrityController) ListBackups(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 10
	}

	backups, err := c.integrityService.Backups().ListBackups(r.Context(), r.URL.Query().Get("scope"), limit)
	if err != nil {
		renderResponse(w, r, http.StatusInternalServerError, "获取备份列表失败", nil)
		return
	}

	render.JSON(w, r, PaginatedResponse{
		Status: http.StatusOK,
		Msg:    "获取备份列表成功",
		Data:   backups,
		Total:  int64(len(backups)),
		Limit:  limit,
	})
}

// RestoreBackup 恢复备份
// @Summary 恢复备份
// @Description 校验备份并记录恢复意图，不会自动覆盖业务数据
// @Tags 数据完整性
// @Produce json
// @Param id path string true "备份ID"
// @Success 202 {object} APIResponse{data=integrity.RestoreIntent} "已记录恢复意图"
// @Failure 404 {object} APIResponse "备份不存在"
// @Failure 422 {object} APIResponse "备份内容校验失败"
// @Failure 500 {object} APIResponse "服务器内部错误"
// @Router /integrity/backups/{id}/restore [post]
func (c *IntegrityController) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	intent, err := c.integrityService.Backups().RestoreFromBackup(r.Context(), chi.URLParam(r, "id"))
	switch {
	case err == nil:
		renderResponse(w, r, http.StatusAccepted, "已记录恢复意图，需人工确认后执行恢复", intent)
	case errors.Is(err, integrity.ErrBackupNotFound):
		renderResponse(w, r, http.StatusNotFound, "备份不存在", nil)
	case errors.Is(err, integrity.ErrChecksumMismatch):
		renderResponse(w, r, http.StatusUnprocessableEntity, "备份内容校验失败", nil)
	default:
		renderResponse(w, r, http.StatusInternalServerError, "恢复备份失败", nil)
	}
}
