package api

import (
	"bytes"
	"net/http"
	"testing"
	"time"

	"bugie/models"
	"bugie/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

func TestBuildWorkbook(t *testing.T) {
	catID := uuid.New()
	author := uuid.New()
	day := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	list := []models.Transaction{
		{ID: uuid.New(), CategoryID: catID, AuthorID: &author, Amount: decimal.RequireFromString("9900"), Type: models.EntryTypeExpense, Description: "커피", TransactionDate: day, CreatedAt: day},
		{ID: uuid.New(), CategoryID: catID, Amount: decimal.RequireFromString("300000"), Type: models.EntryTypeIncome, TransactionDate: day, CreatedAt: day,
			DeletedAt: gorm.DeletedAt{Time: day.Add(time.Hour), Valid: true}},
	}

	f, err := buildWorkbook(list, map[uuid.UUID]string{catID: "식비"}, true)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"日期", "类型", "类别", "金额", "描述", "作者", "创建时间", "删除时间"}, rows[0])
	assert.Equal(t, "支出", rows[1][1])
	assert.Equal(t, "식비", rows[1][2])
	assert.Equal(t, author.String(), rows[1][5])
	assert.Equal(t, "收入", rows[2][1])
	assert.Equal(t, "已注销用户", rows[2][5])
	assert.Equal(t, "2026-03-05 01:00:00", rows[2][7])
}

func TestExportHandler_ExportExcel(t *testing.T) {
	env := newTestEnv(t)
	owner, token := env.login("owner")
	ledger := env.ledger(owner)
	cat := expenseCategory(t, env.db, ledger)
	_, err := env.transactions.CreateTransaction(t.Context(), owner, ledger, service.TransactionInput{
		CategoryID:      cat.ID,
		Amount:          decimal.RequireFromString("15000"),
		TransactionDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	w := env.do(http.MethodGet, "/ledgers/"+ledger.String()+"/transactions/export?start_time=2026-03-01&end_time=2026-03-31", token, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, cat.Name, rows[1][2])
	assert.Len(t, rows[0], 7)
}

func TestExportHandler_ExportExcel_NonMember(t *testing.T) {
	env := newTestEnv(t)
	owner, _ := env.login("owner")
	_, token := env.login("stranger")
	ledger := env.ledger(owner)

	w := env.do(http.MethodGet, "/ledgers/"+ledger.String()+"/transactions/export", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
