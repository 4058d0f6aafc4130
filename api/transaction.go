package api

import (
	"errors"
	"strconv"
	"time"

	"bugie/config"
	"bugie/middleware"
	"bugie/models"
	"bugie/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionHandler 收支记录
type TransactionHandler struct {
	cfg          *config.Config
	transactions *service.TransactionService
}

func NewTransactionHandler(cfg *config.Config, transactions *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{cfg: cfg, transactions: transactions}
}

type TransactionCreateRequest struct {
	CategoryID      string          `json:"category_id" binding:"required,uuid"`
	Amount          decimal.Decimal `json:"amount" swaggertype:"string" example:"12000.00"`
	Description     *string         `json:"description" binding:"omitempty,max=255"`
	TransactionDate string          `json:"transaction_date" binding:"required" example:"2026-03-01"`
}

type TransactionUpdateRequest struct {
	CategoryID      string          `json:"category_id" binding:"omitempty,uuid"`
	Amount          decimal.Decimal `json:"amount" swaggertype:"string"`
	Description     *string         `json:"description" binding:"omitempty,max=255"`
	TransactionDate string          `json:"transaction_date"`
}

var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

// parseDate 支持 RFC3339、"2006-01-02 15:04:05" 与 "2006-01-02"，无时区时按 UTC
func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New("时间格式错误，应为: 2006-01-02")
}

// parseFilter 解析查询参数；end_time 为日期时包含当天
func parseFilter(c *gin.Context) (service.TransactionFilter, error) {
	var f service.TransactionFilter
	if s := c.Query("start_time"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			return f, err
		}
		f.Start = &t
	}
	if s := c.Query("end_time"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			return f, err
		}
		if len(s) == len("2006-01-02") {
			t = t.Add(24 * time.Hour)
		}
		f.End = &t
	}
	if s := c.Query("category_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return f, errors.New("无效的类别ID")
		}
		f.CategoryID = &id
	}
	if s := c.Query("type"); s != "" {
		t, err := models.ParseEntryType(s)
		if err != nil {
			return f, err
		}
		f.Type = t
	}
	f.IncludeDeleted = c.Query("include_deleted") == "true"
	f.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	f.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))
	return f, nil
}

// List 收支记录列表
// @Summary 收支记录列表
// @Tags 收支记录
// @Produce json
// @Security BearerAuth
// @Param id path string true "账本ID"
// @Param start_time query string false "开始时间 (2026-01-01)"
// @Param end_time query string false "结束时间 (2026-12-31)"
// @Param category_id query string false "类别ID"
// @Param type query string false "income 或 expense"
// @Param include_deleted query bool false "包含已删除（所有者）"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} Response{data=service.TransactionPage}
// @Router /api/v1/ledgers/{id}/transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	ledgerID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	f, err := parseFilter(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	page, err := h.transactions.ListTransactions(c.Request.Context(), middleware.GetCurrentAccountID(c), ledgerID, f)
	if err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	Success(c, page)
}

// Create 新增收支记录
// @Summary 新增收支记录
// @Description 类型跟随类别；金额必须为正数
// @Tags 收支记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "账本ID"
// @Param request body TransactionCreateRequest true "收支记录"
// @Success 200 {object} Response{data=models.Transaction}
// @Router /api/v1/ledgers/{id}/transactions [post]
func (h *TransactionHandler) Create(c *gin.Context) {
	ledgerID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req TransactionCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	date, err := parseDate(req.TransactionDate)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	txn, err := h.transactions.CreateTransaction(c.Request.Context(), middleware.GetCurrentAccountID(c), ledgerID, service.TransactionInput{
		CategoryID:      uuid.MustParse(req.CategoryID),
		Amount:          req.Amount,
		Description:     req.Description,
		TransactionDate: date,
	})
	if err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	SuccessWithMessage(c, "创建成功", txn)
}

// Update 修改收支记录
// @Summary 修改自己创建的收支记录
// @Tags 收支记录
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "账本ID"
// @Param transactionId path string true "记录ID"
// @Param request body TransactionUpdateRequest true "修改内容"
// @Success 200 {object} Response{data=models.Transaction}
// @Router /api/v1/ledgers/{id}/transactions/{transactionId} [put]
func (h *TransactionHandler) Update(c *gin.Context) {
	ledgerID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	transactionID, ok := uuidParam(c, "transactionId")
	if !ok {
		return
	}
	var req TransactionUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	in := service.TransactionInput{Amount: req.Amount, Description: req.Description}
	if req.CategoryID != "" {
		in.CategoryID = uuid.MustParse(req.CategoryID)
	}
	if req.TransactionDate != "" {
		date, err := parseDate(req.TransactionDate)
		if err != nil {
			BadRequest(c, err.Error())
			return
		}
		in.TransactionDate = date
	}
	txn, err := h.transactions.UpdateTransaction(c.Request.Context(), middleware.GetCurrentAccountID(c), ledgerID, transactionID, in)
	if err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	SuccessWithMessage(c, "更新成功", txn)
}

// Delete 删除收支记录
// @Summary 删除自己创建的收支记录（可恢复）
// @Tags 收支记录
// @Produce json
// @Security BearerAuth
// @Param id path string true "账本ID"
// @Param transactionId path string true "记录ID"
// @Success 200 {object} Response
// @Router /api/v1/ledgers/{id}/transactions/{transactionId} [delete]
func (h *TransactionHandler) Delete(c *gin.Context) {
	ledgerID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	transactionID, ok := uuidParam(c, "transactionId")
	if !ok {
		return
	}
	if err := h.transactions.DeleteTransaction(c.Request.Context(), middleware.GetCurrentAccountID(c), ledgerID, transactionID); err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	SuccessWithMessage(c, "删除成功", nil)
}

// Restore 恢复收支记录
// @Summary 恢复自己删除的收支记录
// @Tags 收支记录
// @Produce json
// @Security BearerAuth
// @Param id path string true "账本ID"
// @Param transactionId path string true "记录ID"
// @Success 200 {object} Response{data=models.Transaction}
// @Router /api/v1/ledgers/{id}/transactions/{transactionId}/restore [post]
func (h *TransactionHandler) Restore(c *gin.Context) {
	ledgerID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	transactionID, ok := uuidParam(c, "transactionId")
	if !ok {
		return
	}
	txn, err := h.transactions.RestoreTransaction(c.Request.Context(), middleware.GetCurrentAccountID(c), ledgerID, transactionID)
	if err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	SuccessWithMessage(c, "恢复成功", txn)
}
