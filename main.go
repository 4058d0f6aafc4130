//go:generate swag init -g main.go -o docs

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bugie/config"
	"bugie/database"
	"bugie/logger"
	"bugie/middleware"
	"bugie/router"
	"bugie/service"

	"go.uber.org/zap"
)

// @title Bugie 共享账本 API
// @version 1.0
// @description 共享账本服务：成员角色权限、软删除与账号注销生命周期
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const version = "v1.0.0"

var (
	configFile  string
	port        string
	showVersion bool
)

func init() {
	flag.StringVar(&configFile, "config", "", "外部配置文件路径（可选）")
	flag.StringVar(&configFile, "c", "", "外部配置文件路径（简写）")
	flag.StringVar(&port, "port", "", "监听端口，如: 8080 或 :8080")
	flag.StringVar(&port, "p", "", "监听端口（简写）")
	flag.BoolVar(&showVersion, "version", false, "显示版本信息")
	flag.BoolVar(&showVersion, "v", false, "显示版本信息（简写）")
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Println("bugie", version)
		return
	}

	// 加载配置（内置配置 + 可选的外部配置覆盖）
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 命令行参数覆盖端口配置
	if port != "" {
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		cfg.Server.Port = port
	}

	log, err := logger.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("服务异常退出", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	log.Info("配置已加载", zap.Any("config", cfg.Summary()))

	db, err := database.Init(cfg)
	if err != nil {
		return fmt.Errorf("数据库初始化失败: %w", err)
	}
	isolation, err := database.Isolation(cfg.Database.Isolation)
	if err != nil {
		return err
	}

	store := service.NewStore(db,
		service.WithIsolation(isolation),
		service.WithTimeout(cfg.Database.QueryTimeout),
		service.WithMaxRetries(cfg.Database.MaxRetries),
		service.WithLogger(log),
	)
	authz := service.NewAuthorizer(store)
	lifecycle := service.NewLifecycleService(store, service.LifecycleOptions{
		RestoreMemberships: cfg.Lifecycle.RestoreMemberships,
		SweepBatchSize:     cfg.Lifecycle.SweepBatchSize,
		Notifier:           service.NewEmailService(&cfg.Email),
	})

	r := router.SetupRouter(router.Deps{
		Config:       cfg,
		Logger:       log,
		JWT:          middleware.NewJWT(cfg.JWT),
		Lifecycle:    lifecycle,
		Members:      service.NewMembershipService(store, authz),
		Ledgers:      service.NewLedgerService(store),
		Categories:   service.NewCategoryService(store),
		Transactions: service.NewTransactionService(store),
		Budgets:      service.NewBudgetService(store),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := service.NewSweeper(lifecycle, cfg.Lifecycle.SweepInterval, log)
	sweeper.Start(ctx)
	defer sweeper.Shutdown()

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("服务已启动",
			zap.String("api", "http://localhost"+cfg.Server.Port+"/api/v1/"),
			zap.String("swagger", "http://localhost"+cfg.Server.Port+"/swagger/index.html"),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("服务器启动失败: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("正在关闭服务")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
