package api

import (
	"bugie/config"
	"bugie/middleware"
	"bugie/models"
	"bugie/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MemberHandler 账本成员
type MemberHandler struct {
	cfg     *config.Config
	members *service.MembershipService
}

func NewMemberHandler(cfg *config.Config, members *service.MembershipService) *MemberHandler {
	return &MemberHandler{cfg: cfg, members: members}
}

type InviteRequest struct {
	AccountID string      `json:"account_id" binding:"required,uuid"`
	Role      models.Role `json:"role" binding:"required"`
}

type RoleChangeRequest struct {
	Role models.Role `json:"role" binding:"required"`
}

// List 成员列表
// @Summary 账本成员列表
// @Tags 账本成员
// @Produce json
// @Security BearerAuth
// @Param id path string true "账本ID"
// @Success 200 {object} Response{data=[]models.Membership}
// @Router /api/v1/ledgers/{id}/members [get]
func (h *MemberHandler) List(c *gin.Context) {
	ledgerID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	list, err := h.members.ListMembers(c.Request.Context(), middleware.GetCurrentAccountID(c), ledgerID)
	if err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	Success(c, list)
}

// Invite 邀请成员
// @Summary 邀请成员
// @Description 管理员可邀请 viewer/member，所有者还可邀请 admin
// @Tags 账本成员
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "账本ID"
// @Param request body InviteRequest true "成员与角色"
// @Success 200 {object} Response{data=models.Membership}
// @Router /api/v1/ledgers/{id}/members [post]
func (h *MemberHandler) Invite(c *gin.Context) {
	ledgerID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	m, err := h.members.InviteMember(c.Request.Context(), middleware.GetCurrentAccountID(c), ledgerID, uuid.MustParse(req.AccountID), req.Role)
	if err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	SuccessWithMessage(c, "邀请成功", m)
}

// ChangeRole 调整角色
// @Summary 调整成员角色
// @Tags 账本成员
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "账本ID"
// @Param accountId path string true "成员账号ID"
// @Param request body RoleChangeRequest true "新角色"
// @Success 200 {object} Response{data=models.Membership}
// @Router /api/v1/ledgers/{id}/members/{accountId} [put]
func (h *MemberHandler) ChangeRole(c *gin.Context) {
	ledgerID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	target, ok := uuidParam(c, "accountId")
	if !ok {
		return
	}
	var req RoleChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	m, err := h.members.ChangeRole(c.Request.Context(), middleware.GetCurrentAccountID(c), ledgerID, target, req.Role)
	if err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	SuccessWithMessage(c, "更新成功", m)
}

// Remove 移除成员
// @Summary 移除成员
// @Tags 账本成员
// @Produce json
// @Security BearerAuth
// @Param id path string true "账本ID"
// @Param accountId path string true "成员账号ID"
// @Success 200 {object} Response
// @Router /api/v1/ledgers/{id}/members/{accountId} [delete]
func (h *MemberHandler) Remove(c *gin.Context) {
	ledgerID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	target, ok := uuidParam(c, "accountId")
	if !ok {
		return
	}
	if err := h.members.RemoveMember(c.Request.Context(), middleware.GetCurrentAccountID(c), ledgerID, target); err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	SuccessWithMessage(c, "移除成功", nil)
}
