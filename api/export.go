package api

import (
	"fmt"
	"net/http"
	"time"

	"bugie/config"
	"bugie/middleware"
	"bugie/models"
	"bugie/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// ExportHandler 导出处理器
type ExportHandler struct {
	cfg          *config.Config
	transactions *service.TransactionService
	categories   *service.CategoryService
}

// NewExportHandler 创建导出处理器
func NewExportHandler(cfg *config.Config, transactions *service.TransactionService, categories *service.CategoryService) *ExportHandler {
	return &ExportHandler{cfg: cfg, transactions: transactions, categories: categories}
}

// ExportExcel 导出收支记录为 Excel
// @Summary 导出收支记录
// @Description 按时间范围导出账本收支记录为 xlsx 文件；include_deleted=true 时包含已删除记录（所有者审计）
// @Tags 导出
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param id path string true "账本ID"
// @Param start_time query string false "开始时间 (2026-01-01)"
// @Param end_time query string false "结束时间 (2026-12-31)"
// @Param include_deleted query bool false "包含已删除（所有者）"
// @Success 200 {file} file "Excel 文件"
// @Failure 403 {object} Response "无权导出"
// @Router /api/v1/ledgers/{id}/transactions/export [get]
func (h *ExportHandler) ExportExcel(c *gin.Context) {
	ledgerID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	f, err := parseFilter(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	accountID := middleware.GetCurrentAccountID(c)
	ctx := c.Request.Context()

	list, err := h.transactions.AllTransactions(ctx, accountID, ledgerID, f)
	if err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	// 已删除的类别也需要显示名称
	cats, err := h.categories.ListCategories(ctx, accountID, ledgerID, f.IncludeDeleted)
	if err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	names := make(map[uuid.UUID]string, len(cats))
	for _, cat := range cats {
		names[cat.ID] = cat.Name
	}

	file, err := buildWorkbook(list, names, f.IncludeDeleted)
	if err != nil {
		InternalError(c, h.cfg.SafeErrorMessage(err, "生成文件失败"))
		return
	}
	defer file.Close()

	filename := fmt.Sprintf("transactions_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Status(http.StatusOK)
	if err := file.Write(c.Writer); err != nil {
		c.Error(err)
	}
}

const sheetName = "收支记录"

// buildWorkbook 生成收支记录工作簿
func buildWorkbook(list []models.Transaction, categoryNames map[uuid.UUID]string, withDeleted bool) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		f.Close()
		return nil, err
	}

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	dataStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})

	headers := []string{"日期", "类型", "类别", "金额", "描述", "作者", "创建时间"}
	if withDeleted {
		headers = append(headers, "删除时间")
	}
	widths := []float64{14, 10, 14, 14, 30, 38, 20, 20}
	for i, header := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, col, col, widths[i])
		cell := col + "1"
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, t := range list {
		row := i + 2
		typeName := "支出"
		if t.Type == models.EntryTypeIncome {
			typeName = "收入"
		}
		author := "已注销用户"
		if t.AuthorID != nil {
			author = t.AuthorID.String()
		}
		amount, _ := t.Amount.Float64()
		values := []interface{}{
			t.TransactionDate.Format("2006-01-02"),
			typeName,
			categoryNames[t.CategoryID],
			amount,
			t.Description,
			author,
			t.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		if withDeleted {
			deletedAt := ""
			if t.DeletedAt.Valid {
				deletedAt = t.DeletedAt.Time.UTC().Format("2006-01-02 15:04:05")
			}
			values = append(values, deletedAt)
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			f.SetCellValue(sheetName, cell, v)
			f.SetCellStyle(sheetName, cell, cell, dataStyle)
		}
	}
	return f, nil
}
