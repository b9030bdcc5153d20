package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置结构
// 设计说明：使用Viper管理配置，支持YAML文件、环境变量覆盖
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
	Log      LogConfig      `mapstructure:"log"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	GRPCPort     int           `mapstructure:"grpc_port"`
	Mode         string        `mapstructure:"mode"` // debug | release | test
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // mysql | memory
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	Charset         string        `mapstructure:"charset"`
	ParseTime       bool          `mapstructure:"parse_time"`
	Loc             string        `mapstructure:"loc"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	LogSQL          bool          `mapstructure:"log_sql"`
}

// DSN 生成MySQL连接字符串
// 格式：user:password@tcp(host:port)/dbname?charset=utf8mb4&parseTime=True&loc=Local
func (d DatabaseConfig) DSN() string {
	loc := url.QueryEscape(d.Loc)
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.Charset, d.ParseTime, loc)
}

type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr 返回Redis地址
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type RabbitMQConfig struct {
	URL          string `mapstructure:"url"`
	Exchange     string `mapstructure:"exchange"`
	ExchangeType string `mapstructure:"exchange_type"`
}

// NotifyConfig 告警通知配置
// Driver决定新告警发往哪里：rabbitmq | redis | none
type NotifyConfig struct {
	Driver          string        `mapstructure:"driver"`
	Channel         string        `mapstructure:"channel"` // routing key / redis channel
	BreakerFailures uint32        `mapstructure:"breaker_failures"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout"`
	PublishTimeout  time.Duration `mapstructure:"publish_timeout"`
}

// LedgerConfig 账本并发控制配置
type LedgerConfig struct {
	MaxRetries        uint64        `mapstructure:"max_retries"`
	RetryInitialDelay time.Duration `mapstructure:"retry_initial_delay"`
	RetryMaxDelay     time.Duration `mapstructure:"retry_max_delay"`
}

// ThresholdConfig 告警阈值（百分比，相对max_stock_level）
type ThresholdConfig struct {
	LowStockPercent  string `mapstructure:"low_stock_percent"`
	OverstockPercent string `mapstructure:"overstock_percent"`
}

// AlertsConfig 补货告警配置
// Defaults为全局默认值，Categories按商品类目覆盖
type AlertsConfig struct {
	Defaults   ThresholdConfig            `mapstructure:"defaults"`
	Categories map[string]ThresholdConfig `mapstructure:"categories"`
}

type LogConfig struct {
	Level        string `mapstructure:"level"`  // debug | info | warn | error
	Format       string `mapstructure:"format"` // console | json
	Output       string `mapstructure:"output"` // stdout | stderr | /path/to/file
	EnableCaller bool   `mapstructure:"enable_caller"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
	Endpoint    string `mapstructure:"endpoint"`
}

// Load 加载配置文件
// 支持：
// 1. 默认加载config/config.yaml
// 2. 通过环境变量LEDGER_ENV指定环境（如config.prod.yaml）
// 3. 环境变量覆盖（如LEDGER_DATABASE_PASSWORD）
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom 从指定文件加载配置，path为空时按默认路径查找
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")

		if env := v.GetString("env"); env != "" {
			v.SetConfigName("config." + env)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.grpc_port", 9090)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parse_time", true)
	v.SetDefault("database.loc", "Local")
	v.SetDefault("notify.driver", "none")
	v.SetDefault("notify.channel", "stock.alert.created")
	v.SetDefault("notify.breaker_failures", 5)
	v.SetDefault("notify.breaker_timeout", "30s")
	v.SetDefault("notify.publish_timeout", "2s")
	v.SetDefault("ledger.max_retries", 5)
	v.SetDefault("ledger.retry_initial_delay", "5ms")
	v.SetDefault("ledger.retry_max_delay", "200ms")
	v.SetDefault("alerts.defaults.low_stock_percent", "20")
	v.SetDefault("alerts.defaults.overstock_percent", "100")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("tracing.service_name", "stock-ledger")
	v.SetDefault("tracing.endpoint", "localhost:4317")
}

// validate 配置校验
func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("无效的服务端口: %d", cfg.Server.Port)
	}

	if cfg.Server.GRPCPort < 0 || cfg.Server.GRPCPort > 65535 {
		return fmt.Errorf("无效的gRPC端口: %d", cfg.Server.GRPCPort)
	}

	switch cfg.Database.Driver {
	case "mysql", "memory":
	default:
		return fmt.Errorf("不支持的数据库驱动: %s", cfg.Database.Driver)
	}

	switch cfg.Notify.Driver {
	case "none":
	case "rabbitmq":
		if cfg.RabbitMQ.URL == "" || cfg.RabbitMQ.Exchange == "" {
			return fmt.Errorf("notify.driver=rabbitmq 需要配置 rabbitmq.url 和 rabbitmq.exchange")
		}
	case "redis":
		if cfg.Redis.Host == "" {
			return fmt.Errorf("notify.driver=redis 需要配置 redis.host")
		}
	default:
		return fmt.Errorf("不支持的告警通知驱动: %s", cfg.Notify.Driver)
	}

	if cfg.Ledger.MaxRetries == 0 {
		return fmt.Errorf("ledger.max_retries 必须大于0")
	}

	return nil
}
