package api

import (
	"errors"
	"net/http"

	"bugie/config"
	"bugie/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RespondError 将领域错误映射为 HTTP 状态码
// 基础设施错误在生产环境下不暴露细节
func RespondError(c *gin.Context, cfg *config.Config, err error) {
	var owned *service.HasOwnedLedgersError
	switch {
	case errors.As(err, &owned):
		ErrorWithData(c, http.StatusConflict, "请先转移或删除您拥有的账本", gin.H{"owned_ledgers": owned.Count})
	case errors.Is(err, service.ErrConfirmTextMismatch):
		BadRequest(c, "确认文字不一致")
	case errors.Is(err, service.ErrInvalidInput):
		BadRequest(c, err.Error())
	case errors.Is(err, service.ErrAlreadyMember):
		Forbidden(c, "该账号已是账本成员")
	case errors.Is(err, service.ErrInsufficientRole):
		Forbidden(c, "角色权限不足")
	case errors.Is(err, service.ErrUnauthorized):
		Forbidden(c, "无权执行该操作")
	case errors.Is(err, service.ErrNotFound):
		NotFound(c, "资源不存在")
	case errors.Is(err, service.ErrCannotDemoteOwner):
		Conflict(c, "不能调整所有者的角色，请先转移所有权")
	case errors.Is(err, service.ErrCannotRemoveSoleOwner):
		Conflict(c, "不能移除账本所有者，请先转移所有权")
	case errors.Is(err, service.ErrCannotLeaveAsSoleOwner):
		Conflict(c, "所有者不能退出账本，请先转移所有权")
	case errors.Is(err, service.ErrAccountNotActive):
		Conflict(c, "账号已申请注销")
	case errors.Is(err, service.ErrAccountPermanentlyDeleted):
		Error(c, http.StatusGone, "账号已被永久删除")
	case errors.Is(err, service.ErrInfrastructure):
		Error(c, http.StatusServiceUnavailable, cfg.SafeErrorMessage(err, "服务暂时不可用，请稍后重试"))
	default:
		InternalError(c, cfg.SafeErrorMessage(err, "服务器内部错误"))
	}
}

// uuidParam 解析路径中的 UUID 参数，失败时直接返回 400
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		BadRequest(c, "无效的ID")
		return uuid.Nil, false
	}
	return id, true
}
