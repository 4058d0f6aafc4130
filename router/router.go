package router

import (
	"time"

	"bugie/api"
	"bugie/config"
	_ "bugie/docs"
	"bugie/middleware"
	"bugie/service"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Deps 路由依赖的服务
type Deps struct {
	Config       *config.Config
	Logger       *zap.Logger
	JWT          *middleware.JWT
	Lifecycle    *service.LifecycleService
	Members      *service.MembershipService
	Ledgers      *service.LedgerService
	Categories   *service.CategoryService
	Transactions *service.TransactionService
	Budgets      *service.BudgetService
}

// SetupRouter 设置路由
func SetupRouter(d Deps) *gin.Engine {
	cfg := d.Config
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	// 设置运行模式
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(middleware.RequestLogger(d.Logger), gin.Recovery())

	// CORS 中间件
	r.Use(CORSMiddleware())

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	sessionHandler := api.NewSessionHandler(cfg, d.JWT, d.Lifecycle, d.Logger)
	accountHandler := api.NewAccountHandler(cfg, d.Lifecycle)
	ledgerHandler := api.NewLedgerHandler(cfg, d.Ledgers, d.Members)
	memberHandler := api.NewMemberHandler(cfg, d.Members)
	categoryHandler := api.NewCategoryHandler(cfg, d.Categories)
	transactionHandler := api.NewTransactionHandler(cfg, d.Transactions)
	budgetHandler := api.NewBudgetHandler(cfg, d.Budgets)
	exportHandler := api.NewExportHandler(cfg, d.Transactions, d.Categories)

	v1 := r.Group("/api/v1")
	{
		// 登录（无需会话，按 IP 限流）
		v1.POST("/sessions", middleware.RateLimit(10, time.Minute, middleware.ByIP), sessionHandler.Create)

		authorized := v1.Group("")
		authorized.Use(d.JWT.Auth())
		{
			authorized.GET("/me", accountHandler.GetProfile)
			authorized.PUT("/me", accountHandler.UpdateProfile)
			authorized.POST("/me/deletion", middleware.RateLimit(5, time.Minute, middleware.ByAccount), accountHandler.RequestDeletion)

			authorized.GET("/category-templates", categoryHandler.Templates)

			authorized.GET("/ledgers", ledgerHandler.List)
			authorized.POST("/ledgers", ledgerHandler.Create)

			ledger := authorized.Group("/ledgers/:id")
			{
				ledger.GET("", ledgerHandler.Get)
				ledger.PUT("", ledgerHandler.Update)
				ledger.DELETE("", ledgerHandler.Delete)
				ledger.POST("/restore", ledgerHandler.Restore)
				ledger.POST("/transfer", ledgerHandler.Transfer)
				ledger.POST("/leave", ledgerHandler.Leave)

				// 成员
				ledger.GET("/members", memberHandler.List)
				ledger.POST("/members", memberHandler.Invite)
				ledger.PUT("/members/:accountId", memberHandler.ChangeRole)
				ledger.DELETE("/members/:accountId", memberHandler.Remove)

				// 类别
				ledger.GET("/categories", categoryHandler.List)
				ledger.POST("/categories", categoryHandler.Create)
				ledger.PUT("/categories/:categoryId", categoryHandler.Update)
				ledger.DELETE("/categories/:categoryId", categoryHandler.Delete)
				ledger.POST("/categories/:categoryId/restore", categoryHandler.Restore)

				// 收支记录
				ledger.GET("/transactions", transactionHandler.List)
				ledger.POST("/transactions", transactionHandler.Create)
				ledger.GET("/transactions/summary", transactionHandler.Summary)
				ledger.GET("/transactions/export", exportHandler.ExportExcel)
				ledger.PUT("/transactions/:transactionId", transactionHandler.Update)
				ledger.DELETE("/transactions/:transactionId", transactionHandler.Delete)
				ledger.POST("/transactions/:transactionId/restore", transactionHandler.Restore)

				// 预算
				ledger.GET("/budgets", budgetHandler.List)
				ledger.POST("/budgets", budgetHandler.Create)
				ledger.PUT("/budgets/:budgetId", budgetHandler.Update)
				ledger.DELETE("/budgets/:budgetId", budgetHandler.Delete)
				ledger.POST("/budgets/:budgetId/restore", budgetHandler.Restore)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	return r
}

// CORSMiddleware CORS 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
