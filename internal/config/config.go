package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// 默认值
const (
	defaultHost            = "0.0.0.0"
	defaultPort            = 1780
	defaultMaxConnections  = 2000
	defaultMaxMessageBytes = 4 << 20 // Draw 页的图片可达数 MB
	defaultRoomTimeout     = 30      // 分钟
	defaultShutdownTimeout = 30      // 分钟
	defaultShutdownCheck   = 10      // 秒
	defaultCleanupInterval = 60      // 秒
	defaultMaxPerSecond    = 10
	defaultMaxPerMinute    = 60
	defaultBanDuration     = 60 // 秒
	defaultMessagePerSec   = 30
)

// Config 服务端配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Game     GameConfig     `yaml:"game"`
	Security SecurityConfig `yaml:"security"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig WebSocket 服务器配置
type ServerConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	MaxConnections  int    `yaml:"max_connections"`
	MaxMessageBytes int64  `yaml:"max_message_bytes"`
	PublicURL       string `yaml:"public_url"` // 二维码中使用的对外地址，为空时使用请求的 Host
}

// RedisConfig Redis 配置，Addr 为空时不启用快照镜像
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// GameConfig 游戏配置
type GameConfig struct {
	RoomTimeout           int `yaml:"room_timeout"`            // 房间无活动超时（分钟）
	ShutdownTimeout       int `yaml:"shutdown_timeout"`        // 维护模式下等待游戏结束的超时（分钟）
	ShutdownCheckInterval int `yaml:"shutdown_check_interval"` // 检查间隔（秒）
	RoomCleanupInterval   int `yaml:"room_cleanup_interval"`   // 清理超时房间的间隔（秒）
}

// RoomTimeoutDuration 返回房间无活动超时时长
func (c *GameConfig) RoomTimeoutDuration() time.Duration {
	return time.Duration(c.RoomTimeout) * time.Minute
}

// ShutdownTimeoutDuration 返回关闭等待超时
func (c *GameConfig) ShutdownTimeoutDuration() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Minute
}

// ShutdownCheckIntervalDuration 返回关闭检查间隔
func (c *GameConfig) ShutdownCheckIntervalDuration() time.Duration {
	return time.Duration(c.ShutdownCheckInterval) * time.Second
}

// RoomCleanupIntervalDuration 返回房间清理间隔
func (c *GameConfig) RoomCleanupIntervalDuration() time.Duration {
	return time.Duration(c.RoomCleanupInterval) * time.Second
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	AllowedOrigins []string           `yaml:"allowed_origins"`
	RateLimit      RateLimitConfig    `yaml:"rate_limit"`
	MessageLimit   MessageLimitConfig `yaml:"message_limit"`
}

// RateLimitConfig 每个 IP 的连接速率限制
type RateLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second"`
	MaxPerMinute int `yaml:"max_per_minute"`
	BanDuration  int `yaml:"ban_duration"` // 秒
}

// BanDurationTime 返回封禁时长
func (c *RateLimitConfig) BanDurationTime() time.Duration {
	return time.Duration(c.BanDuration) * time.Second
}

// MessageLimitConfig 每个连接的消息速率限制
type MessageLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second"`
}

// LogConfig 日志配置
type LogConfig struct {
	File    string `yaml:"file"` // 为空时输出到 stderr
	Verbose bool   `yaml:"verbose"`
}

// Load 加载配置文件
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default 返回默认配置
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults 设置默认值
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = defaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Server.MaxConnections == 0 {
		c.Server.MaxConnections = defaultMaxConnections
	}
	if c.Server.MaxMessageBytes == 0 {
		c.Server.MaxMessageBytes = defaultMaxMessageBytes
	}
	if c.Game.RoomTimeout == 0 {
		c.Game.RoomTimeout = defaultRoomTimeout
	}
	if c.Game.ShutdownTimeout == 0 {
		c.Game.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.Game.ShutdownCheckInterval == 0 {
		c.Game.ShutdownCheckInterval = defaultShutdownCheck
	}
	if c.Game.RoomCleanupInterval == 0 {
		c.Game.RoomCleanupInterval = defaultCleanupInterval
	}
	if len(c.Security.AllowedOrigins) == 0 {
		c.Security.AllowedOrigins = []string{"*"}
	}
	if c.Security.RateLimit.MaxPerSecond == 0 {
		c.Security.RateLimit.MaxPerSecond = defaultMaxPerSecond
	}
	if c.Security.RateLimit.MaxPerMinute == 0 {
		c.Security.RateLimit.MaxPerMinute = defaultMaxPerMinute
	}
	if c.Security.RateLimit.BanDuration == 0 {
		c.Security.RateLimit.BanDuration = defaultBanDuration
	}
	if c.Security.MessageLimit.MaxPerSecond == 0 {
		c.Security.MessageLimit.MaxPerSecond = defaultMessagePerSec
	}
}

// Validate 检查配置是否可用
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Server.Port)
	}
	if c.Server.MaxConnections < 1 {
		return errors.New("max_connections must be positive")
	}
	if c.Server.MaxMessageBytes < 1024 {
		return fmt.Errorf("max_message_bytes too small: %d", c.Server.MaxMessageBytes)
	}
	if c.Game.RoomTimeout < 0 {
		return errors.New("room_timeout must not be negative")
	}
	return nil
}

// Addr 监听地址
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
