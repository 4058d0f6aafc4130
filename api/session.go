package api

import (
	"time"

	"bugie/config"
	"bugie/middleware"
	"bugie/models"
	"bugie/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionHandler 登录：校验认证服务商的身份 token 并签发会话 token
type SessionHandler struct {
	cfg       *config.Config
	jwt       *middleware.JWT
	lifecycle *service.LifecycleService
	log       *zap.Logger
}

func NewSessionHandler(cfg *config.Config, jwt *middleware.JWT, lifecycle *service.LifecycleService, log *zap.Logger) *SessionHandler {
	return &SessionHandler{cfg: cfg, jwt: jwt, lifecycle: lifecycle, log: log}
}

type SessionRequest struct {
	IDToken string `json:"id_token" binding:"required"`
}

type SessionResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Account   *models.Account `json:"account"`
}

// Create 登录
// @Summary 登录
// @Description 使用认证服务商的身份 token 登录。首次登录自动创建账号；注销期限内登录会恢复账号，超过期限返回 410
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body SessionRequest true "身份 token"
// @Success 200 {object} Response{data=SessionResponse}
// @Failure 401 {object} Response "身份 token 无效"
// @Failure 410 {object} Response "账号已被永久删除"
// @Router /api/v1/sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	claims, accountID, err := h.jwt.ParseProviderToken(req.IDToken)
	if err != nil {
		Unauthorized(c, "身份验证失败")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.lifecycle.EnsureAccount(ctx, service.Identity{
		AccountID:   accountID,
		Email:       claims.Email,
		DisplayName: claims.Name,
	}); err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	account, err := h.lifecycle.Reauthenticate(ctx, accountID)
	if err != nil {
		RespondError(c, h.cfg, err)
		return
	}

	token, expiresAt, err := h.jwt.GenerateToken(accountID)
	if err != nil {
		h.log.Error("sign session token", zap.Error(err))
		InternalError(c, "生成 token 失败")
		return
	}
	Success(c, SessionResponse{Token: token, ExpiresAt: expiresAt, Account: account})
}
