package api

import (
	"bugie/config"
	"bugie/middleware"
	"bugie/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LedgerHandler 账本
type LedgerHandler struct {
	cfg     *config.Config
	ledgers *service.LedgerService
	members *service.MembershipService
}

func NewLedgerHandler(cfg *config.Config, ledgers *service.LedgerService, members *service.MembershipService) *LedgerHandler {
	return &LedgerHandler{cfg: cfg, ledgers: ledgers, members: members}
}

type LedgerCreateRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Description string `json:"description" binding:"max=255"`
	Currency    string `json:"currency" binding:"omitempty,len=3"`
	// 默认使用类别模板初始化
	SeedDefaultCategories *bool `json:"seed_default_categories"`
}

type LedgerUpdateRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty,max=255"`
	Currency    *string `json:"currency" binding:"omitempty,len=3"`
}

type TransferRequest struct {
	AccountID string `json:"account_id" binding:"required,uuid"`
}

// List 我的账本
// @Summary 我参与的账本列表
// @Tags 账本
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]service.LedgerWithRole}
// @Router /api/v1/ledgers [get]
func (h *LedgerHandler) List(c *gin.Context) {
	list, err := h.ledgers.ListLedgers(c.Request.Context(), middleware.GetCurrentAccountID(c))
	if err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	Success(c, list)
}

// Create 创建账本
// @Summary 创建账本
// @Tags 账本
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body LedgerCreateRequest true "账本信息"
// @Success 200 {object} Response{data=models.Ledger}
// @Router /api/v1/ledgers [post]
func (h *LedgerHandler) Create(c *gin.Context) {
	var req LedgerCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	seed := req.SeedDefaultCategories == nil || *req.SeedDefaultCategories
	ledger, err := h.members.CreateLedger(c.Request.Context(), middleware.GetCurrentAccountID(c), service.LedgerAttrs{
		Name:                  req.Name,
		Description:           req.Description,
		Currency:              req.Currency,
		SeedDefaultCategories: seed,
	})
	if err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	SuccessWithMessage(c, "创建成功", ledger)
}

// Get 账本详情
// @Summary 账本详情
// @Tags 账本
// @Produce json
// @Security BearerAuth
// @Param id path string true "账本ID"
// @Success 200 {object} Response{data=service.LedgerWithRole}
// @Router /api/v1/ledgers/{id} [get]
func (h *LedgerHandler) Get(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	ledger, err := h.ledgers.GetLedger(c.Request.Context(), middleware.GetCurrentAccountID(c), id)
	if err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	Success(c, ledger)
}

// Update 修改账本
// @Summary 修改账本（所有者）
// @Tags 账本
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "账本ID"
// @Param request body LedgerUpdateRequest true "修改内容"
// @Success 200 {object} Response{data=models.Ledger}
// @Router /api/v1/ledgers/{id} [put]
func (h *LedgerHandler) Update(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req LedgerUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	ledger, err := h.ledgers.UpdateLedger(c.Request.Context(), middleware.GetCurrentAccountID(c), id, service.LedgerUpdate{
		Name:        req.Name,
		Description: req.Description,
		Currency:    req.Currency,
	})
	if err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	SuccessWithMessage(c, "更新成功", ledger)
}

// Delete 删除账本
// @Summary 删除账本（所有者，可恢复）
// @Tags 账本
// @Produce json
// @Security BearerAuth
// @Param id path string true "账本ID"
// @Success 200 {object} Response
// @Router /api/v1/ledgers/{id} [delete]
func (h *LedgerHandler) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.ledgers.DeleteLedger(c.Request.Context(), middleware.GetCurrentAccountID(c), id); err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}

// Restore 恢复账本
// @Summary 恢复已删除的账本（所有者）
// @Tags 账本
// @Produce json
// @Security BearerAuth
// @Param id path string true "账本ID"
// @Success 200 {object} Response{data=models.Ledger}
// @Router /api/v1/ledgers/{id}/restore [post]
func (h *LedgerHandler) Restore(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	ledger, err := h.ledgers.RestoreLedger(c.Request.Context(), middleware.GetCurrentAccountID(c), id)
	if err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	SuccessWithMessage(c, "恢复成功", ledger)
}

// Transfer 转移所有权
// @Summary 转移账本所有权
// @Description 原所有者降为管理员，目标账号成为所有者
// @Tags 账本
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "账本ID"
// @Param request body TransferRequest true "新所有者"
// @Success 200 {object} Response
// @Router /api/v1/ledgers/{id}/transfer [post]
func (h *LedgerHandler) Transfer(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	target := uuid.MustParse(req.AccountID)
	if err := h.members.TransferOwnership(c.Request.Context(), middleware.GetCurrentAccountID(c), id, target); err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	SuccessWithMessage(c, "所有权已转移", nil)
}

// Leave 退出账本
// @Summary 退出账本
// @Tags 账本
// @Produce json
// @Security BearerAuth
// @Param id path string true "账本ID"
// @Success 200 {object} Response
// @Failure 409 {object} Response "所有者不能退出"
// @Router /api/v1/ledgers/{id}/leave [post]
func (h *LedgerHandler) Leave(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.members.LeaveLedger(c.Request.Context(), middleware.GetCurrentAccountID(c), id); err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	SuccessWithMessage(c, "已退出账本", nil)
}
