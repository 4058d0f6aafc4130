package database

import (
	"database/sql"
	"fmt"
	"strings"

	"bugie/config"
	"bugie/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Open 根据配置建立数据库连接
func Open(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := Dialector(cfg.Database)
	if err != nil {
		return nil, err
	}

	logLevel := logger.Warn
	if cfg.Server.Mode == "debug" {
		logLevel = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Database.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}
	if cfg.Database.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.Driver == "sqlite" {
		// sqlite 单写者，避免多连接争用
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Dialector 构建对应驱动的 gorm Dialector
func Dialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=%s&parseTime=True&loc=UTC",
			cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.DBName, cfg.Charset)
		return mysql.Open(dsn), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.DBName, cfg.SSLMode)
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(cfg.Path), nil
	}
	return nil, fmt.Errorf("不支持的数据库驱动: %s", cfg.Driver)
}

// Isolation 解析事务隔离级别配置
func Isolation(name string) (sql.IsolationLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return sql.LevelDefault, nil
	case "serializable":
		return sql.LevelSerializable, nil
	case "repeatable_read":
		return sql.LevelRepeatableRead, nil
	case "read_committed":
		return sql.LevelReadCommitted, nil
	}
	return sql.LevelDefault, fmt.Errorf("未知的隔离级别: %s", name)
}

// Migrate 自动迁移数据库表并初始化类别模板
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Account{},
		&models.Ledger{},
		&models.Membership{},
		&models.CategoryTemplate{},
		&models.Category{},
		&models.Transaction{},
		&models.Budget{},
	); err != nil {
		return err
	}

	// 模板 ID 固定，重复执行不会插入重复数据
	templates := models.DefaultCategoryTemplates()
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&templates).Error
}

// Init 初始化数据库连接并迁移
func Init(cfg *config.Config) (*gorm.DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}
	return db, nil
}
