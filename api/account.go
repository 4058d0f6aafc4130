package api

import (
	"bugie/config"
	"bugie/middleware"
	"bugie/service"

	"github.com/gin-gonic/gin"
)

// AccountHandler 当前账号的资料与注销
type AccountHandler struct {
	cfg       *config.Config
	lifecycle *service.LifecycleService
}

func NewAccountHandler(cfg *config.Config, lifecycle *service.LifecycleService) *AccountHandler {
	return &AccountHandler{cfg: cfg, lifecycle: lifecycle}
}

type ProfileUpdateRequest struct {
	DisplayName *string `json:"display_name" binding:"omitempty,min=1,max=50"`
	Currency    *string `json:"currency" binding:"omitempty,len=3"`
	Timezone    *string `json:"timezone" binding:"omitempty,max=64"`
}

type DeletionRequest struct {
	Confirmation string `json:"confirmation"`
}

// GetProfile 获取当前账号
// @Summary 获取当前账号
// @Tags 账号
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=models.Account}
// @Router /api/v1/me [get]
func (h *AccountHandler) GetProfile(c *gin.Context) {
	account, err := h.lifecycle.GetProfile(c.Request.Context(), middleware.GetCurrentAccountID(c))
	if err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	Success(c, gin.H{"account": account, "state": account.State()})
}

// UpdateProfile 修改个人资料
// @Summary 修改个人资料
// @Tags 账号
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ProfileUpdateRequest true "资料"
// @Success 200 {object} Response{data=models.Account}
// @Router /api/v1/me [put]
func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	var req ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	account, err := h.lifecycle.UpdateProfile(c.Request.Context(), middleware.GetCurrentAccountID(c), service.ProfileUpdate{
		DisplayName: req.DisplayName,
		Currency:    req.Currency,
		Timezone:    req.Timezone,
	})
	if err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	SuccessWithMessage(c, "更新成功", account)
}

// RequestDeletion 申请注销账号
// @Summary 申请注销账号
// @Description 需要输入确认文字 "DELETE MY ACCOUNT"。仍拥有账本时返回 409；成功后退出所有账本，30 天内重新登录可恢复
// @Tags 账号
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body DeletionRequest true "确认文字"
// @Success 200 {object} Response{data=service.DeletionReceipt}
// @Failure 400 {object} Response "确认文字不一致"
// @Failure 409 {object} Response "仍拥有账本"
// @Router /api/v1/me/deletion [post]
func (h *AccountHandler) RequestDeletion(c *gin.Context) {
	var req DeletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	receipt, err := h.lifecycle.RequestDeletion(c.Request.Context(), middleware.GetCurrentAccountID(c), req.Confirmation)
	if err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	SuccessWithMessage(c, "注销申请已受理", receipt)
}
