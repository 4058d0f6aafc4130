package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bugie/config"
	"bugie/database"
	"bugie/middleware"
	"bugie/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const providerSecret = "provider-secret"

// testEnv 基于内存 sqlite 的完整处理器栈
type testEnv struct {
	t      *testing.T
	cfg    *config.Config
	jwt    *middleware.JWT
	now    time.Time
	db     *gorm.DB
	router *gin.Engine

	lifecycle    *service.LifecycleService
	members      *service.MembershipService
	transactions *service.TransactionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "test"},
		JWT: config.JWTConfig{
			Secret:         "test-secret",
			ProviderSecret: providerSecret,
			ExpireTime:     time.Hour,
		},
	}
	e := &testEnv{t: t, cfg: cfg, jwt: middleware.NewJWT(cfg.JWT), now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), db: db}

	store := service.NewStore(db, service.WithClock(func() time.Time { return e.now }))
	authz := service.NewAuthorizer(store)
	e.lifecycle = service.NewLifecycleService(store, service.LifecycleOptions{})
	e.members = service.NewMembershipService(store, authz)
	e.transactions = service.NewTransactionService(store)
	categories := service.NewCategoryService(store)
	ledgers := service.NewLedgerService(store)

	r := gin.New()
	sessions := NewSessionHandler(cfg, e.jwt, e.lifecycle, zap.NewNop())
	accounts := NewAccountHandler(cfg, e.lifecycle)
	ledgerHandler := NewLedgerHandler(cfg, ledgers, e.members)
	memberHandler := NewMemberHandler(cfg, e.members)
	transactionHandler := NewTransactionHandler(cfg, e.transactions)
	exportHandler := NewExportHandler(cfg, e.transactions, categories)

	r.POST("/sessions", sessions.Create)
	auth := r.Group("", e.jwt.Auth())
	auth.GET("/me", accounts.GetProfile)
	auth.POST("/me/deletion", accounts.RequestDeletion)
	auth.POST("/ledgers", ledgerHandler.Create)
	auth.GET("/ledgers/:id", ledgerHandler.Get)
	auth.POST("/ledgers/:id/members", memberHandler.Invite)
	auth.GET("/ledgers/:id/transactions", transactionHandler.List)
	auth.POST("/ledgers/:id/transactions", transactionHandler.Create)
	auth.GET("/ledgers/:id/transactions/summary", transactionHandler.Summary)
	auth.GET("/ledgers/:id/transactions/export", exportHandler.ExportExcel)
	e.router = r
	return e
}

// providerToken 模拟认证服务商签发的身份 token
func (e *testEnv) providerToken(id uuid.UUID, email, name string) string {
	e.t.Helper()
	claims := middleware.ProviderClaims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(providerSecret))
	require.NoError(e.t, err)
	return tok
}

// login 走一遍登录接口，返回账号ID与会话 token
func (e *testEnv) login(name string) (uuid.UUID, string) {
	e.t.Helper()
	id := uuid.New()
	return id, e.loginAs(id, name)
}

func (e *testEnv) loginAs(id uuid.UUID, name string) string {
	e.t.Helper()
	w := e.do(http.MethodPost, "/sessions", "", gin.H{"id_token": e.providerToken(id, name+"@example.com", name)})
	require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Data SessionResponse `json:"data"`
	}
	require.NoError(e.t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data.Token
}

func (e *testEnv) ledger(owner uuid.UUID) uuid.UUID {
	e.t.Helper()
	l, err := e.members.CreateLedger(context.Background(), owner, service.LedgerAttrs{Name: "우리집", SeedDefaultCategories: true})
	require.NoError(e.t, err)
	return l.ID
}

func (e *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}
