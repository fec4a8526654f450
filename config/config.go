package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	OAuth        OAuthConfig        `mapstructure:"oauth"`
	Email        EmailConfig        `mapstructure:"email"`
	Queue        QueueConfig        `mapstructure:"queue"`
	CORS         CORSConfig         `mapstructure:"cors"`
	Subscription SubscriptionConfig `mapstructure:"subscription"`
	PayPal       PayPalConfig       `mapstructure:"paypal"`
	OSS          OSSConfig          `mapstructure:"oss"`
	Booking      BookingConfig      `mapstructure:"booking"`
	Admin        AdminConfig        `mapstructure:"admin"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type OAuthConfig struct {
	Github GithubOAuthConfig `mapstructure:"github"`
}

type GithubOAuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
}

type EmailConfig struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type QueueConfig struct {
	ReminderQueue string `mapstructure:"reminder_queue"`
	MaxWorkers    int    `mapstructure:"max_workers"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// SubscriptionConfig 订阅套餐目录（静态配置）
type SubscriptionConfig struct {
	TrialDays int                   `mapstructure:"trial_days"`
	Plans     map[string]PlanConfig `mapstructure:"plans"`
}

type PlanConfig struct {
	DisplayName string  `mapstructure:"display_name"`
	Price       float64 `mapstructure:"price"`
	Currency    string  `mapstructure:"currency"`
	ButtonID    string  `mapstructure:"button_id"` // PayPal 结算按钮 ID
}

type PayPalConfig struct {
	ClientID  string `mapstructure:"client_id"`
	Secret    string `mapstructure:"secret"`
	APIBase   string `mapstructure:"api_base"` // sandbox 或生产环境地址
	WebhookID string `mapstructure:"webhook_id"`
}

type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	BucketName      string `mapstructure:"bucket_name"`
	CDNDomain       string `mapstructure:"cdn_domain"`
}

// BookingConfig 预约时段设置
type BookingConfig struct {
	SlotMinutes  int `mapstructure:"slot_minutes"`   // 单个时段长度（分钟）
	DayStartHour int `mapstructure:"day_start_hour"` // 可预约起始小时
	DayEndHour   int `mapstructure:"day_end_hour"`   // 可预约结束小时
}

type AdminConfig struct {
	Token string `mapstructure:"token"` // 管理接口 Bearer 凭证
}

func Load(configPath string) (*Config, error) {
	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	// 检查 config.local.yaml 是否存在
	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	// 环境变量覆盖
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// 启动时校验套餐目录，配置错误尽早暴露
	if err := cfg.Subscription.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验套餐目录：支付适配器引用的每个套餐都必须在目录中存在
func (c *SubscriptionConfig) Validate() error {
	if c.TrialDays <= 0 {
		c.TrialDays = 14
	}

	for _, name := range []string{"monthly", "yearly", "test"} {
		if _, ok := c.Plans[name]; !ok {
			return fmt.Errorf("subscription plan %q missing from catalog", name)
		}
	}

	for name, plan := range c.Plans {
		// test 套餐仅用于沙箱验证，不挂结算按钮
		if name != "test" && plan.ButtonID == "" {
			return fmt.Errorf("subscription plan %q has no paypal button_id", name)
		}
		if plan.Price < 0 {
			return fmt.Errorf("subscription plan %q has negative price", name)
		}
	}

	return nil
}
