package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultConfigYAML 内置默认配置
//
//go:embed default.yaml
var DefaultConfigYAML []byte

// Config 应用配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Lifecycle LifecycleConfig `mapstructure:"lifecycle"`
	Email     EmailConfig     `mapstructure:"email"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    string `mapstructure:"port"`
	Mode    string `mapstructure:"mode"`
	BaseURL string `mapstructure:"base_url"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver       string        `mapstructure:"driver"` // mysql / postgres / sqlite
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	DBName       string        `mapstructure:"dbname"`
	Charset      string        `mapstructure:"charset"`
	SSLMode      string        `mapstructure:"sslmode"`
	Path         string        `mapstructure:"path"`      // sqlite 文件路径
	Isolation    string        `mapstructure:"isolation"` // serializable / repeatable_read / read_committed / default
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`          // 会话 token 签名密钥
	ProviderSecret string        `mapstructure:"provider_secret"` // 认证服务商 token 校验密钥
	Issuer         string        `mapstructure:"issuer"`
	ExpireHours    int           `mapstructure:"expire_hours"`
	ExpireTime     time.Duration `mapstructure:"-"`
}

// LifecycleConfig 账号生命周期配置
type LifecycleConfig struct {
	SweepInterval      time.Duration `mapstructure:"sweep_interval"`
	SweepBatchSize     int           `mapstructure:"sweep_batch_size"`
	RestoreMemberships bool          `mapstructure:"restore_memberships"` // 恢复账号时是否恢复账本成员关系
}

// EmailConfig 邮件配置
type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// LoadConfig 加载配置
// 优先级: 环境变量 > 外部配置文件 > 嵌入的默认配置
// configPath: 可选的外部配置文件路径
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// 1. 首先加载嵌入的默认配置
	if err := v.ReadConfig(bytes.NewReader(DefaultConfigYAML)); err != nil {
		return nil, fmt.Errorf("读取内置配置失败: %w", err)
	}

	// 2. 尝试加载外部配置文件（可选，用于覆盖默认配置）
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.MergeInConfig(); err != nil {
			log.Printf("警告: 无法读取指定配置文件 %s: %v", configPath, err)
		}
	} else {
		externalViper := viper.New()
		externalViper.SetConfigName("config")
		externalViper.SetConfigType("yaml")
		externalViper.AddConfigPath(".")
		externalViper.AddConfigPath("./config")
		externalViper.AddConfigPath("/etc/bugie")
		externalViper.AddConfigPath("$HOME/.bugie")

		if err := externalViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(externalViper.AllSettings()); err != nil {
				log.Printf("警告: 合并外部配置失败: %v", err)
			}
		}
	}

	// 3. 环境变量覆盖，如 BUGIE_DATABASE_HOST
	v.SetEnvPrefix("BUGIE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// MustLoadConfig 加载配置，失败则 panic
func MustLoadConfig(configPath string) *Config {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		panic(fmt.Sprintf("加载配置失败: %v", err))
	}
	return cfg
}

func (c *Config) applyDefaults() {
	if c.JWT.ExpireHours <= 0 {
		c.JWT.ExpireHours = 24
	}
	c.JWT.ExpireTime = time.Duration(c.JWT.ExpireHours) * time.Hour
	if c.Database.QueryTimeout <= 0 {
		c.Database.QueryTimeout = 5 * time.Second
	}
	if c.Database.MaxRetries < 0 {
		c.Database.MaxRetries = 0
	}
	if c.Lifecycle.SweepInterval <= 0 {
		c.Lifecycle.SweepInterval = time.Hour
	}
	if c.Lifecycle.SweepBatchSize <= 0 {
		c.Lifecycle.SweepBatchSize = 100
	}
}

// IsRelease 是否为生产模式
func (c *Config) IsRelease() bool {
	return c != nil && c.Server.Mode == "release"
}

// SafeErrorMessage 生产环境下不向客户端暴露内部错误详情，避免信息泄露
// Config 为 nil 时视为开发环境
func (c *Config) SafeErrorMessage(err error, fallback string) string {
	if err == nil || c.IsRelease() {
		return fallback
	}
	return err.Error()
}

// Summary 当前配置摘要（隐藏敏感信息）
func (c *Config) Summary() map[string]interface{} {
	return map[string]interface{}{
		"port":                c.Server.Port,
		"mode":                c.Server.Mode,
		"db_driver":           c.Database.Driver,
		"db_host":             c.Database.Host,
		"db_name":             c.Database.DBName,
		"db_isolation":        c.Database.Isolation,
		"sweep_interval":      c.Lifecycle.SweepInterval.String(),
		"restore_memberships": c.Lifecycle.RestoreMemberships,
		"email_enabled":       c.Email.Enabled,
	}
}
