package server

import (
	"context"
	"log"
	"runtime"
	"time"

	"github.com/palemoky/exquisite-corpse/internal/protocol"
	"github.com/palemoky/exquisite-corpse/internal/protocol/codec"
)

// monitorStats 定期监控服务器状态
func (s *Server) monitorStats(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.logStats()
		}
	}
}

func (s *Server) logStats() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	dropped := 0
	if s.mirror != nil {
		dropped = s.mirror.Dropped()
	}

	log.Printf("📊 [监控] 在线: %d | 房间: %d | 游戏中: %d | Goroutines: %d | 活跃连接: %d/%d | 丢弃快照: %d | 内存: %.2f MB",
		s.GetOnlineCount(),
		s.roomManager.Count(),
		s.roomManager.GetActiveGamesCount(),
		runtime.NumGoroutine(),
		len(s.semaphore),
		s.maxConnections,
		dropped,
		float64(m.Alloc)/1024/1024)
}

// BroadcastToLobby 广播消息给尚未加入房间的连接
func (s *Server) BroadcastToLobby(msg *protocol.Message) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for id, client := range s.clients {
		if sess, ok := s.directory.Get(id); ok && sess.RoomID != "" {
			continue
		}
		client.SendMessage(msg)
	}
}

// EnterMaintenanceMode 进入维护模式：拒绝新连接与新的加入请求
func (s *Server) EnterMaintenanceMode() {
	s.maintenanceMu.Lock()
	s.maintenanceMode = true
	s.maintenanceMu.Unlock()

	s.BroadcastToLobby(codec.NewErrorMessageWithText(protocol.ErrCodeServerMaintenance,
		"👷🏻‍♂️ 维护模式：暂停加入房间"))

	log.Println("🔧 进入维护模式：停止新连接和房间加入")
}

// IsMaintenanceMode 检查是否在维护模式
func (s *Server) IsMaintenanceMode() bool {
	s.maintenanceMu.RLock()
	defer s.maintenanceMu.RUnlock()
	return s.maintenanceMode
}

// GracefulShutdown 进入维护模式，等待进行中的游戏结束后关闭服务器
func (s *Server) GracefulShutdown(timeout time.Duration) {
	s.EnterMaintenanceMode()

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(s.config.Game.ShutdownCheckIntervalDuration())
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		activeGames := s.roomManager.GetActiveGamesCount()
		if activeGames == 0 {
			log.Println("✅ 所有游戏已结束，开始关闭服务器")
			break
		}
		log.Printf("⏳ 等待 %d 个房间结束...", activeGames)
		<-ticker.C
	}

	if activeGames := s.roomManager.GetActiveGamesCount(); activeGames > 0 {
		log.Printf("⚠️ 超时，仍有 %d 个房间进行中，强制关闭", activeGames)
	}

	s.Shutdown()
}

// Shutdown 关闭所有房间与连接，停止后台协程并释放 Redis
func (s *Server) Shutdown() {
	s.stopOnce.Do(s.shutdown)
}

func (s *Server) shutdown() {
	s.cancel()

	// 关闭房间会删除快照并关闭成员连接
	s.roomManager.CloseAll()

	s.clientsMu.RLock()
	for _, client := range s.clients {
		client.Close()
	}
	s.clientsMu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP 服务器关闭失败: %v", err)
	}
	cancel()

	if s.mirror != nil {
		s.mirror.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}

	log.Println("服务器已关闭")
}
