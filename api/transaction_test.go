package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bugie/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2026-03-01", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"2026-03-01 12:30:00", time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)},
		{"2026-03-01T12:30:00+09:00", time.Date(2026, 3, 1, 3, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseDate(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got), "%s => %s", tt.in, got)
		assert.Equal(t, time.UTC, got.Location())
	}

	_, err := parseDate("03/01/2026")
	assert.Error(t, err)
}

func TestParseFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	catID := uuid.New()
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet,
		"/?start_time=2026-03-01&end_time=2026-03-31&category_id="+catID.String()+"&type=expense&include_deleted=true&page=2&page_size=10", nil)

	f, err := parseFilter(c)
	require.NoError(t, err)
	require.NotNil(t, f.Start)
	require.NotNil(t, f.End)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *f.Start)
	// 日期形式的结束时间包含当天
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), *f.End)
	assert.Equal(t, catID, *f.CategoryID)
	assert.Equal(t, models.EntryTypeExpense, f.Type)
	assert.True(t, f.IncludeDeleted)
	assert.Equal(t, 2, f.Page)
	assert.Equal(t, 10, f.PageSize)

	for _, q := range []string{"?start_time=yesterday", "?category_id=1", "?type=transfer"} {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/"+q, nil)
		_, err := parseFilter(c)
		assert.Error(t, err, q)
	}
}

func expenseCategory(t *testing.T, db *gorm.DB, ledger uuid.UUID) models.Category {
	t.Helper()
	var cat models.Category
	require.NoError(t, db.Where("ledger_id = ? AND type = ?", ledger, models.EntryTypeExpense).Order("sort ASC").First(&cat).Error)
	return cat
}

func TestTransactionHandler_CreateAndSummary(t *testing.T) {
	env := newTestEnv(t)
	owner, token := env.login("owner")
	ledger := env.ledger(owner)
	cat := expenseCategory(t, env.db, ledger)
	base := "/ledgers/" + ledger.String() + "/transactions"

	w := env.do(http.MethodPost, base, token, gin.H{
		"category_id":      cat.ID.String(),
		"amount":           "12000.50",
		"description":      "점심",
		"transaction_date": "2026-03-01",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "expense", data["type"])
	assert.Equal(t, owner.String(), data["author_id"])

	// 金额必须为正数
	w = env.do(http.MethodPost, base, token, gin.H{
		"category_id":      cat.ID.String(),
		"amount":           "-1",
		"transaction_date": "2026-03-01",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, base+"/summary?start_time=2026-03-01&end_time=2026-03-31", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sum := decode(t, w)["data"].(map[string]interface{})
	expense, err := decimal.NewFromString(sum["expense"].(string))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("12000.50").Equal(expense))
	assert.Equal(t, float64(1), sum["count"])

	w = env.do(http.MethodGet, base+"?page_size=10", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(1), page["total"])
}

func TestTransactionHandler_ViewerCannotCreate(t *testing.T) {
	env := newTestEnv(t)
	owner, _ := env.login("owner")
	viewer, token := env.login("viewer")
	ledger := env.ledger(owner)
	_, err := env.members.InviteMember(t.Context(), owner, ledger, viewer, models.RoleViewer)
	require.NoError(t, err)
	cat := expenseCategory(t, env.db, ledger)

	w := env.do(http.MethodPost, "/ledgers/"+ledger.String()+"/transactions", token, gin.H{
		"category_id":      cat.ID.String(),
		"amount":           "5000",
		"transaction_date": "2026-03-02",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 查看者可以读取
	w = env.do(http.MethodGet, "/ledgers/"+ledger.String()+"/transactions", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// 包含已删除记录仅限所有者
	w = env.do(http.MethodGet, "/ledgers/"+ledger.String()+"/transactions?include_deleted=true", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
