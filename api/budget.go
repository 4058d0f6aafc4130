package api

import (
	"strconv"

	"bugie/config"
	"bugie/middleware"
	"bugie/models"
	"bugie/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BudgetHandler 预算
type BudgetHandler struct {
	cfg     *config.Config
	budgets *service.BudgetService
}

func NewBudgetHandler(cfg *config.Config, budgets *service.BudgetService) *BudgetHandler {
	return &BudgetHandler{cfg: cfg, budgets: budgets}
}

type BudgetRequest struct {
	CategoryID string          `json:"category_id" binding:"omitempty,uuid"`
	Amount     decimal.Decimal `json:"amount" swaggertype:"string" example:"500000"`
	Period     string          `json:"period" binding:"omitempty,oneof=monthly yearly"`
	Year       int             `json:"year"`
	Month      *int            `json:"month"`
}

func (r BudgetRequest) input() service.BudgetInput {
	in := service.BudgetInput{
		Amount: r.Amount,
		Period: models.BudgetPeriod(r.Period),
		Year:   r.Year,
		Month:  r.Month,
	}
	if r.CategoryID != "" {
		in.CategoryID = uuid.MustParse(r.CategoryID)
	}
	return in
}

// List 预算列表
// @Summary 预算列表
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Param id path string true "账本ID"
// @Param year query int false "年份"
// @Param include_deleted query bool false "包含已删除（所有者）"
// @Success 200 {object} Response{data=[]models.Budget}
// @Router /api/v1/ledgers/{id}/budgets [get]
func (h *BudgetHandler) List(c *gin.Context) {
	ledgerID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	year, _ := strconv.Atoi(c.Query("year"))
	list, err := h.budgets.ListBudgets(c.Request.Context(), middleware.GetCurrentAccountID(c), ledgerID, year, c.Query("include_deleted") == "true")
	if err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	Success(c, list)
}

// Create 创建预算
// @Summary 创建预算（管理员）
// @Tags 预算
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "账本ID"
// @Param request body BudgetRequest true "预算"
// @Success 200 {object} Response{data=models.Budget}
// @Router /api/v1/ledgers/{id}/budgets [post]
func (h *BudgetHandler) Create(c *gin.Context) {
	ledgerID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req BudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	if req.CategoryID == "" {
		BadRequest(c, "请选择类别")
		return
	}
	budget, err := h.budgets.CreateBudget(c.Request.Context(), middleware.GetCurrentAccountID(c), ledgerID, req.input())
	if err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	SuccessWithMessage(c, "创建成功", budget)
}

// Update 修改预算
// @Summary 修改预算（管理员）
// @Tags 预算
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "账本ID"
// @Param budgetId path string true "预算ID"
// @Param request body BudgetRequest true "修改内容"
// @Success 200 {object} Response{data=models.Budget}
// @Router /api/v1/ledgers/{id}/budgets/{budgetId} [put]
func (h *BudgetHandler) Update(c *gin.Context) {
	ledgerID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	budgetID, ok := uuidParam(c, "budgetId")
	if !ok {
		return
	}
	var req BudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	budget, err := h.budgets.UpdateBudget(c.Request.Context(), middleware.GetCurrentAccountID(c), ledgerID, budgetID, req.input())
	if err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	SuccessWithMessage(c, "更新成功", budget)
}

// Delete 删除预算
// @Summary 删除预算（管理员，可恢复）
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Param id path string true "账本ID"
// @Param budgetId path string true "预算ID"
// @Success 200 {object} Response
// @Router /api/v1/ledgers/{id}/budgets/{budgetId} [delete]
func (h *BudgetHandler) Delete(c *gin.Context) {
	ledgerID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	budgetID, ok := uuidParam(c, "budgetId")
	if !ok {
		return
	}
	if err := h.budgets.DeleteBudget(c.Request.Context(), middleware.GetCurrentAccountID(c), ledgerID, budgetID); err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}

// Restore 恢复预算
// @Summary 恢复已删除的预算（管理员）
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Param id path string true "账本ID"
// @Param budgetId path string true "预算ID"
// @Success 200 {object} Response{data=models.Budget}
// @Router /api/v1/ledgers/{id}/budgets/{budgetId}/restore [post]
func (h *BudgetHandler) Restore(c *gin.Context) {
	ledgerID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	budgetID, ok := uuidParam(c, "budgetId")
	if !ok {
		return
	}
	budget, err := h.budgets.RestoreBudget(c.Request.Context(), middleware.GetCurrentAccountID(c), ledgerID, budgetID)
	if err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	SuccessWithMessage(c, "恢复成功", budget)
}
