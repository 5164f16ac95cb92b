package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const insecureClaimSecret = "change-me"

// Config 应用程序配置
type Config struct {
	APIPort  int            `env:"API_PORT, default=8080"`
	LogLevel string         `env:"LOG_LEVEL, default=info"`
	LogFile  LogFileConfig  `env:", prefix=LOG_FILE_"`
	Database DatabaseConfig `env:", prefix=DB_"`
	Redis    RedisConfig    `env:", prefix=REDIS_"`
	Email    EmailConfig    `env:", prefix=EMAIL_"`
	Stripe   StripeConfig   `env:", prefix=STRIPE_"`
	Storage  StorageConfig  `env:", prefix=S3_"`
	Site     SiteConfig     `env:", prefix=SITE_"`
	Auth     AuthConfig     `env:", prefix=AUTH_"`
	Checkout CheckoutConfig `env:", prefix=CHECKOUT_"`
}

// LogFileConfig 日志文件配置
type LogFileConfig struct {
	Enabled    bool   `env:"ENABLED, default=false"`
	Path       string `env:"PATH, default=logs/mailspot.log"`
	MaxSize    int    `env:"MAX_SIZE, default=100"` // MB
	MaxBackups int    `env:"MAX_BACKUPS, default=7"`
	MaxAge     int    `env:"MAX_AGE, default=30"` // 天
	Compress   bool   `env:"COMPRESS, default=true"`
}

// DatabaseConfig MySQL数据库配置
type DatabaseConfig struct {
	Host     string `env:"HOST, default=127.0.0.1"`
	Port     int    `env:"PORT, default=3306"`
	User     string `env:"USER, default=root"`
	Password string `env:"PASSWORD"`
	DBName   string `env:"NAME, default=mailspot"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host     string `env:"HOST, default=127.0.0.1"`
	Port     int    `env:"PORT, default=6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB, default=0"`
}

// EmailConfig 邮件配置
type EmailConfig struct {
	Host     string `env:"HOST"`                        // SMTP服务器地址
	Port     int    `env:"PORT, default=465"`           // SMTP服务器端口
	Username string `env:"USERNAME"`                    // 邮箱账号
	Password string `env:"PASSWORD"`                    // 邮箱密码
	From     string `env:"FROM"`                        // 发件人
	FromName string `env:"FROM_NAME, default=Mailspot"` // 发件人名称
}

// StripeConfig Stripe支付配置
type StripeConfig struct {
	SecretKey     string `env:"SECRET_KEY"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
	Currency      string `env:"CURRENCY, default=usd"`
}

// StorageConfig 广告素材对象存储配置
type StorageConfig struct {
	Bucket        string `env:"BUCKET"`
	Region        string `env:"REGION, default=us-east-1"`
	Endpoint      string `env:"ENDPOINT"`        // MinIO 等兼容服务
	PublicBaseURL string `env:"PUBLIC_BASE_URL"` // 对外访问前缀，为空时使用 bucket 默认域名
	MaxUploadMB   int64  `env:"MAX_UPLOAD_MB, default=20"`
}

// SiteConfig 站点地址
type SiteConfig struct {
	URL         string `env:"URL, default=http://localhost:3000"`          // 前端站点
	TrackingURL string `env:"TRACKING_URL, default=http://localhost:8080"` // 二维码跳转服务
}

// AuthConfig 认证配置
type AuthConfig struct {
	ClaimSecret string        `env:"CLAIM_SECRET, required"`
	ClaimTTL    time.Duration `env:"CLAIM_TTL, default=168h"`
}

// CheckoutConfig 下单配置
type CheckoutConfig struct {
	SessionTTL time.Duration `env:"SESSION_TTL, default=30m"`
	SweepGrace time.Duration `env:"SWEEP_GRACE, default=5m"`
}

// Load 从.env文件和环境变量加载配置
func Load(ctx context.Context) (*Config, error) {
	// .env 文件可选，生产环境直接使用环境变量
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	// 认领链接用该密钥签名，不允许沿用示例值
	if cfg.Auth.ClaimSecret == insecureClaimSecret {
		return nil, errors.New("AUTH_CLAIM_SECRET must be changed from the example value")
	}
	return &cfg, nil
}

// DSN 返回MySQL连接串
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}
