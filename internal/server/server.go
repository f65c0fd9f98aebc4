package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/palemoky/exquisite-corpse/internal/config"
	"github.com/palemoky/exquisite-corpse/internal/game/room"
	"github.com/palemoky/exquisite-corpse/internal/protocol/codec"
	"github.com/palemoky/exquisite-corpse/internal/server/handler"
	"github.com/palemoky/exquisite-corpse/internal/server/session"
	"github.com/palemoky/exquisite-corpse/internal/server/storage"
)

// Server WebSocket 服务器
type Server struct {
	config  *config.Config
	version string

	// 快照镜像，未配置 Redis 时为 nil
	redis  *redis.Client
	mirror *storage.Mirror

	roomManager *room.RoomManager
	directory   *session.Directory
	handler     *handler.Handler
	upgrader    websocket.Upgrader

	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 安全组件
	rateLimiter    *RateLimiter
	originChecker  *OriginChecker
	messageLimiter *MessageRateLimiter

	// 连接控制
	maxConnections int
	semaphore      chan struct{} // 信号量控制并发连接数

	// 维护模式
	maintenanceMode bool
	maintenanceMu   sync.RWMutex

	httpServer *http.Server
	ctx        context.Context
	cancel     context.CancelFunc
	stopOnce   sync.Once
}

// NewServer 创建服务器实例
func NewServer(cfg *config.Config, version string) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		config:    cfg,
		version:   version,
		directory: session.NewDirectory(),
		clients:   make(map[string]*Client),
		// 初始化安全组件
		rateLimiter: NewRateLimiter(
			cfg.Security.RateLimit.MaxPerSecond,
			cfg.Security.RateLimit.MaxPerMinute,
			cfg.Security.RateLimit.BanDurationTime(),
		),
		originChecker:  NewOriginChecker(cfg.Security.AllowedOrigins),
		messageLimiter: NewMessageRateLimiter(cfg.Security.MessageLimit.MaxPerSecond),
		// 初始化连接控制
		maxConnections: cfg.Server.MaxConnections,
		semaphore:      make(chan struct{}, cfg.Server.MaxConnections),
		ctx:            ctx,
		cancel:         cancel,
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		Subprotocols:    codec.Subprotocols,
		// 来源已在 handleWebSocket 中验证
		CheckOrigin: func(r *http.Request) bool { return true },
		// 图片页已经是压缩格式
		EnableCompression: false,
	}

	// room.Store 为接口，未启用镜像时必须传入无类型的 nil
	var store room.Store
	if cfg.Redis.Addr != "" {
		mirror, err := s.connectRedis(cfg.Redis)
		if err != nil {
			cancel()
			return nil, err
		}
		store = mirror
	}

	s.roomManager = room.NewRoomManager(store, cfg.Game.RoomTimeoutDuration())

	s.handler = handler.NewHandler(handler.HandlerDeps{
		Server:      s,
		RoomManager: s.roomManager,
		Directory:   s.directory,
	})

	s.httpServer = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second, // 防止 Slowloris 攻击
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("🔒 安全配置: 连接限制=%d/s, 消息限制=%d/s, 最大连接数=%d, 最大消息=%d 字节",
		cfg.Security.RateLimit.MaxPerSecond, cfg.Security.MessageLimit.MaxPerSecond,
		cfg.Server.MaxConnections, cfg.Server.MaxMessageBytes)

	return s, nil
}

// connectRedis 连接 Redis，清除上次运行残留的房间快照并启动镜像
func (s *Server) connectRedis(cfg config.RedisConfig) (*storage.Mirror, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rs := storage.NewRedisStore(rdb)
	if err := rs.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis 连接失败: %w", err)
	}

	// 房间只存在于内存，重启后旧快照没有意义
	purged, err := rs.PurgeRooms(ctx)
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("清理房间快照失败: %w", err)
	}
	if purged > 0 {
		log.Printf("🧹 已清理 %d 个残留的房间快照", purged)
	}

	s.redis = rdb
	s.mirror = storage.NewMirror(rs, 0, 0)
	log.Printf("🗄️ 房间快照镜像已启用: %s", cfg.Addr)
	return s.mirror, nil
}

// Start 启动服务器，阻塞直到 Shutdown 被调用
func (s *Server) Start() error {
	addr := s.httpServer.Addr

	s.startBackground()

	log.Printf("🚀 服务器启动在 ws://%s/ws (CPU核心数: %d)", addr, runtime.NumCPU())
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// startBackground 启动监控与房间清理协程
func (s *Server) startBackground() {
	go s.monitorStats(s.ctx)
	go s.roomManager.CleanupLoop(s.ctx, s.config.Game.RoomCleanupIntervalDuration())
}
