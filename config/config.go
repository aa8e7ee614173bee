// Package config 提供了统一的配置加载与管理能力.
// 配置文件使用 TOML，环境变量以 APP_ 为前缀覆盖（如 APP_SIMULATION_PATHS）。
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/wyfcoding/optionlab/logging"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 全局顶级配置结构.
type Config struct {
	Version    string           `mapstructure:"version"    toml:"version"`
	Server     ServerConfig     `mapstructure:"server"     toml:"server"`
	Log        LogConfig        `mapstructure:"log"        toml:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"    toml:"metrics"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"  toml:"ratelimit"`
	Simulation SimulationConfig `mapstructure:"simulation" toml:"simulation"`
	Snowflake  SnowflakeConfig  `mapstructure:"snowflake"  toml:"snowflake"`
}

// ServerConfig 定义服务器运行时的基础网络与环境参数.
type ServerConfig struct {
	Name        string `mapstructure:"name"        toml:"name"        validate:"required"`
	Environment string `mapstructure:"environment" toml:"environment" validate:"oneof=dev test prod"`
	HTTP        struct {
		Addr            string        `mapstructure:"addr"             toml:"addr"`
		Port            int           `mapstructure:"port"             toml:"port"             validate:"required,min=1,max=65535"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"     toml:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"    toml:"write_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" toml:"shutdown_timeout"`
		RequestTimeout  time.Duration `mapstructure:"request_timeout"  toml:"request_timeout"`
	} `mapstructure:"http" toml:"http"`
}

// ListenAddr 返回 HTTP 监听地址.
func (s ServerConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", s.HTTP.Addr, s.HTTP.Port)
}

// LogConfig 定义日志输出、级别与切割策略.
type LogConfig struct {
	Level      string `mapstructure:"level"       toml:"level"       validate:"omitempty,oneof=debug info warn error"` // 日志级别。
	Format     string `mapstructure:"format"      toml:"format"      validate:"omitempty,oneof=json text"`             // 日志格式（json/text）。
	Output     string `mapstructure:"output"      toml:"output"      validate:"omitempty,oneof=stdout file both"`      // 日志输出目标。
	File       string `mapstructure:"file"        toml:"file"`                                                           // 日志文件路径。
	MaxSize    int    `mapstructure:"max_size"    toml:"max_size"`                                                       // 单个文件最大大小 (MB)。
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups"`                                                    // 最大备份数。
	MaxAge     int    `mapstructure:"max_age"     toml:"max_age"`                                                        // 最大保留天数。
	Compress   bool   `mapstructure:"compress"    toml:"compress"`                                                       // 是否启用压缩。
}

// LoggingConfig 转换为 logging 包使用的配置.
func (l LogConfig) LoggingConfig(service, module string) logging.Config {
	return logging.Config{
		Service:    service,
		Module:     module,
		Level:      l.Level,
		Format:     l.Format,
		Output:     l.Output,
		File:       l.File,
		MaxSize:    l.MaxSize,
		MaxBackups: l.MaxBackups,
		MaxAge:     l.MaxAge,
		Compress:   l.Compress,
	}
}

// MetricsConfig 指标暴露配置.
type MetricsConfig struct {
	Enabled       bool          `mapstructure:"enabled"        toml:"enabled"`
	Path          string        `mapstructure:"path"           toml:"path"`
	SlowThreshold time.Duration `mapstructure:"slow_threshold" toml:"slow_threshold"`
}

// RateLimitConfig 本地令牌桶限流配置，模拟接口 CPU 开销大，需要限流保护.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled" toml:"enabled"`
	Rate    float64 `mapstructure:"rate"    toml:"rate"    validate:"gte=0"`
	Burst   int     `mapstructure:"burst"   toml:"burst"   validate:"gte=0"`
}

// SimulationConfig 模拟与定价的默认参数，请求未显式给出的字段使用这里的值.
type SimulationConfig struct {
	Spot         float64 `mapstructure:"spot"          toml:"spot"          validate:"gt=0"`
	Strike       float64 `mapstructure:"strike"        toml:"strike"        validate:"gt=0"`
	Rate         float64 `mapstructure:"rate"          toml:"rate"`
	Volatility   float64 `mapstructure:"volatility"    toml:"volatility"    validate:"gte=0"`
	Maturity     float64 `mapstructure:"maturity"      toml:"maturity"      validate:"gt=0"`
	Steps        int     `mapstructure:"steps"         toml:"steps"         validate:"min=1"`
	Paths        int     `mapstructure:"paths"         toml:"paths"         validate:"min=1"`
	MaxPaths     int     `mapstructure:"max_paths"     toml:"max_paths"     validate:"min=1"`
	MaxSteps     int     `mapstructure:"max_steps"     toml:"max_steps"     validate:"min=1"`
	MaxPoints    int     `mapstructure:"max_points"    toml:"max_points"    validate:"min=1"` // paths × (steps+1) 上限，每个点 8 字节.
	Seed         uint64  `mapstructure:"seed"          toml:"seed"`
	Workers      int     `mapstructure:"workers"       toml:"workers"       validate:"gte=0"`
	PreviewPaths int     `mapstructure:"preview_paths" toml:"preview_paths" validate:"gte=0"`
}

// SnowflakeConfig 运行 ID 生成器参数.
type SnowflakeConfig struct {
	StartTime string `mapstructure:"start_time" toml:"start_time"`
	MachineID int64  `mapstructure:"machine_id" toml:"machine_id" validate:"gte=0,lte=65535"`
}

// setDefaults 注册默认值，取值与经典示例一致：S0=K=100，r=5%，sigma=20%，T=1 年，252 个交易日，1000 条路径.
func setDefaults(v *viper.Viper) {
	v.SetDefault("version", "dev")
	v.SetDefault("server.name", "optionlab")
	v.SetDefault("server.environment", "dev")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.http.read_timeout", 10*time.Second)
	v.SetDefault("server.http.write_timeout", 60*time.Second)
	v.SetDefault("server.http.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.http.request_timeout", 30*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.slow_threshold", 2*time.Second)
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.rate", 20)
	v.SetDefault("ratelimit.burst", 40)
	v.SetDefault("simulation.spot", 100.0)
	v.SetDefault("simulation.strike", 100.0)
	v.SetDefault("simulation.rate", 0.05)
	v.SetDefault("simulation.volatility", 0.2)
	v.SetDefault("simulation.maturity", 1.0)
	v.SetDefault("simulation.steps", 252)
	v.SetDefault("simulation.paths", 1000)
	v.SetDefault("simulation.max_paths", 1_000_000)
	v.SetDefault("simulation.max_steps", 10_000)
	v.SetDefault("simulation.max_points", 50_000_000)
	v.SetDefault("simulation.seed", 0)
	v.SetDefault("simulation.workers", 0)
	v.SetDefault("simulation.preview_paths", 20)
	v.SetDefault("snowflake.start_time", "2024-01-01")
	v.SetDefault("snowflake.machine_id", 1)
}

var (
	mu       sync.Mutex
	onReload []func(*Config)
	validate = validator.New()
)

// RegisterReloadHook 注册配置热更新回调。
func RegisterReloadHook(hook func(*Config)) {
	if hook == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	onReload = append(onReload, hook)
}

// Default 返回仅由默认值构成的配置，不读取文件与环境变量.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	conf := &Config{}
	if err := v.Unmarshal(conf); err != nil {
		panic(fmt.Errorf("unmarshal default config: %w", err))
	}
	return conf
}

// Load 加载配置：默认值 < 配置文件 < APP_ 环境变量，加载后执行结构体校验.
// path 为空时只使用默认值与环境变量；指定文件时开启热更新监听.
func Load(path string, conf *Config) error {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config error: %w", err)
		}
	}

	if err := v.Unmarshal(conf); err != nil {
		return fmt.Errorf("unmarshal config error: %w", err)
	}

	if err := validate.Struct(conf); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if path != "" {
		watch(v, conf)
	}
	return nil
}

func watch(v *viper.Viper, conf *Config) {
	v.OnConfigChange(func(event fsnotify.Event) {
		slog.Info("detecting config change", "file", event.Name)
		const debounceTimeout = 500 * time.Millisecond
		time.Sleep(debounceTimeout)

		next := &Config{}
		if err := v.Unmarshal(next); err != nil {
			slog.Error("reload config unmarshal failed", "error", err)
			return
		}
		if err := validate.Struct(next); err != nil {
			slog.Error("reload config validation failed", "error", err)
			return
		}

		mu.Lock()
		*conf = *next
		hooks := append([]func(*Config){}, onReload...)
		mu.Unlock()

		// 日志级别随配置自动更新
		logging.SetLevel(next.Log.Level)
		slog.Info("config hot-reloaded and validated successfully")

		for _, hook := range hooks {
			hook(next)
		}
	})
	v.WatchConfig()
}

// PrintWithMask 脱敏打印当前配置.
func PrintWithMask(conf any) {
	data, err := json.Marshal(conf)
	if err != nil {
		slog.Error("failed to marshal config for printing", "error", err)
		return
	}

	var configMap map[string]any
	if unmarshalErr := json.Unmarshal(data, &configMap); unmarshalErr != nil {
		slog.Error("failed to unmarshal config for masking", "error", unmarshalErr)
		return
	}

	mask(configMap)

	maskedJSON, marshalErr := json.MarshalIndent(configMap, "  ", "  ")
	if marshalErr != nil {
		slog.Error("failed to marshal masked config", "error", marshalErr)
		return
	}

	slog.Info("Current effective configuration", "config", string(maskedJSON))
}

func mask(configMap map[string]any) {
	sensitiveKeys := []string{"password", "secret", "dsn", "key", "token"}

	for key, val := range configMap {
		if subMap, ok := val.(map[string]any); ok {
			mask(subMap)
			continue
		}

		for _, sensitiveKey := range sensitiveKeys {
			if strings.Contains(strings.ToLower(key), sensitiveKey) {
				configMap[key] = "******"
				break
			}
		}
	}
}
