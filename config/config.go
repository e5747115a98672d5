package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Transient TransientConfig `mapstructure:"transient"`
	Order     OrderConfig     `mapstructure:"order"`
	Razorpay  RazorpayConfig  `mapstructure:"razorpay"`
	Twilio    TwilioConfig    `mapstructure:"twilio"`
	Resend    ResendConfig    `mapstructure:"resend"`
	Seller    SellerConfig    `mapstructure:"seller"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	Mode            string        `mapstructure:"mode"` // debug, release, test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, console
}

// DatabaseConfig 数据库配置；DSN 为空时订单存储处于不可用状态
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres, sqlite
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	SlowThreshold   time.Duration `mapstructure:"slow_threshold"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// TransientConfig 内存兜底订单存储
type TransientConfig struct {
	Backend       string        `mapstructure:"backend"` // memory, redis
	KeyPrefix     string        `mapstructure:"key_prefix"`
	FlushInterval time.Duration `mapstructure:"flush_interval"` // 0 关闭回写
}

// OrderConfig 订单生命周期参数
type OrderConfig struct {
	Timezone         string        `mapstructure:"timezone"`
	TaxRate          string        `mapstructure:"tax_rate"`
	CreateAttempts   int           `mapstructure:"create_attempts"`
	SettleDelay      time.Duration `mapstructure:"settle_delay"`
	VerifyAttempts   int           `mapstructure:"verify_attempts"`
	VerifyStep       time.Duration `mapstructure:"verify_step"`
	VerifyMaxDelay   time.Duration `mapstructure:"verify_max_delay"`
	LookupAttempts   int           `mapstructure:"lookup_attempts"`
	LookupStep       time.Duration `mapstructure:"lookup_step"`
	LookupMaxDelay   time.Duration `mapstructure:"lookup_max_delay"`
	DiagnosticSample int           `mapstructure:"diagnostic_sample"`
	DefaultCurrency  string        `mapstructure:"default_currency"`
}

type RazorpayConfig struct {
	KeyID     string `mapstructure:"key_id"`
	KeySecret string `mapstructure:"key_secret"`
}

type TwilioConfig struct {
	AccountSID     string `mapstructure:"account_sid"`
	AuthToken      string `mapstructure:"auth_token"`
	WhatsAppNumber string `mapstructure:"whatsapp_number"`
}

type ResendConfig struct {
	APIKey    string `mapstructure:"api_key"`
	FromEmail string `mapstructure:"from_email"`
}

// SellerConfig 订单通知接收方
type SellerConfig struct {
	WhatsAppNumber string `mapstructure:"whatsapp_number"`
	Email          string `mapstructure:"email"`
}

type AdminConfig struct {
	Mobiles     []string      `mapstructure:"mobiles"`
	CountryCode string        `mapstructure:"country_code"`
	JWTSecret   string        `mapstructure:"jwt_secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
	OTPTTL      time.Duration `mapstructure:"otp_ttl"`
	OTPRate     float64       `mapstructure:"otp_rate"` // 每秒允许的发送次数
	OTPBurst    int           `mapstructure:"otp_burst"`
}

type NotifyConfig struct {
	Workers   int           `mapstructure:"workers"`
	QueueSize int           `mapstructure:"queue_size"`
	Attempts  int           `mapstructure:"attempts"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type SentryConfig struct {
	DSN              string  `mapstructure:"dsn"`
	Environment      string  `mapstructure:"environment"`
	TracesSampleRate float64 `mapstructure:"traces_sample_rate"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
	Endpoint    string `mapstructure:"endpoint"`
	Insecure    bool   `mapstructure:"insecure"`
}

// Product 静态商品目录条目
type Product struct {
	ID     int            `mapstructure:"id" json:"id"`
	Name   string         `mapstructure:"name" json:"name"`
	Prices map[string]int `mapstructure:"prices" json:"prices"` // weight -> 最小货币单位
	Image  string         `mapstructure:"image" json:"image,omitempty"`
}

type CatalogConfig struct {
	Products []Product `mapstructure:"products"`
}

// legacyEnv 兼容旧部署使用的环境变量名
var legacyEnv = map[string][]string{
	"database.dsn":           {"DATABASE_URL", "NEON_DATABASE_URL"},
	"razorpay.key_id":        {"RAZORPAY_KEY_ID"},
	"razorpay.key_secret":    {"RAZORPAY_KEY_SECRET"},
	"twilio.account_sid":     {"TWILIO_ACCOUNT_SID"},
	"twilio.auth_token":      {"TWILIO_AUTH_TOKEN"},
	"twilio.whatsapp_number": {"TWILIO_WHATSAPP_NUMBER"},
	"resend.api_key":         {"RESEND_API_KEY"},
	"resend.from_email":      {"RESEND_FROM_EMAIL"},
	"seller.whatsapp_number": {"SELLER_WHATSAPP_NUMBER"},
	"seller.email":           {"SELLER_EMAIL"},
	"redis.addr":             {"REDIS_ADDR"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.conn_max_idle_time", 30*time.Second)
	v.SetDefault("database.connect_timeout", 2*time.Second)
	v.SetDefault("database.slow_threshold", 500*time.Millisecond)

	v.SetDefault("transient.backend", "memory")
	v.SetDefault("transient.key_prefix", "cakeshop:transient")
	v.SetDefault("transient.flush_interval", time.Minute)

	v.SetDefault("order.timezone", "Local")
	v.SetDefault("order.tax_rate", "0.05")
	v.SetDefault("order.create_attempts", 3)
	v.SetDefault("order.settle_delay", 200*time.Millisecond)
	v.SetDefault("order.verify_attempts", 8)
	v.SetDefault("order.verify_step", 200*time.Millisecond)
	v.SetDefault("order.verify_max_delay", time.Second)
	v.SetDefault("order.lookup_attempts", 3)
	v.SetDefault("order.lookup_step", 500*time.Millisecond)
	v.SetDefault("order.lookup_max_delay", 2*time.Second)
	v.SetDefault("order.diagnostic_sample", 5)
	v.SetDefault("order.default_currency", "INR")

	v.SetDefault("resend.from_email", "orders@sweetcakes.com")
	v.SetDefault("seller.email", "seller@sweetcakes.com")

	v.SetDefault("admin.country_code", "91")
	v.SetDefault("admin.token_ttl", 12*time.Hour)
	v.SetDefault("admin.otp_ttl", 5*time.Minute)
	v.SetDefault("admin.otp_rate", 0.2)
	v.SetDefault("admin.otp_burst", 3)

	v.SetDefault("notify.workers", 2)
	v.SetDefault("notify.queue_size", 1024)
	v.SetDefault("notify.attempts", 3)
	v.SetDefault("notify.timeout", 10*time.Second)

	v.SetDefault("sentry.environment", "development")
	v.SetDefault("tracing.service_name", "cakeshop")
	v.SetDefault("tracing.insecure", true)
}

// Load 加载配置：默认值 -> config/config.yaml -> 环境变量
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile 从指定文件加载配置，path 为空时在默认位置查找
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, err
		}
	}

	v.SetEnvPrefix("CAKESHOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		_ = v.BindEnv(append([]string{key, "CAKESHOP_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)...)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Location 解析订单日期使用的时区
func (c OrderConfig) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
