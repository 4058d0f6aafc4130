package api

import (
	"bugie/middleware"

	"github.com/gin-gonic/gin"
)

// Summary 收支汇总
// @Summary 获取支出/收入汇总
// @Description 按时间范围统计账本的收入、支出与结余。不传 start_time/end_time 则统计全部时间
// @Tags 收支记录
// @Produce json
// @Security BearerAuth
// @Param id path string true "账本ID"
// @Param start_time query string false "开始时间 (YYYY-MM-DD)"
// @Param end_time query string false "结束时间 (YYYY-MM-DD)"
// @Success 200 {object} Response{data=service.Summary} "获取成功"
// @Router /api/v1/ledgers/{id}/transactions/summary [get]
func (h *TransactionHandler) Summary(c *gin.Context) {
	ledgerID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	f, err := parseFilter(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	sum, err := h.transactions.Summarize(c.Request.Context(), middleware.GetCurrentAccountID(c), ledgerID, f)
	if err != nil {
		RespondError(c, h.cfg, err)
		return
	}
	Success(c, sum)
}
