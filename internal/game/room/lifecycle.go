package room

import (
	"context"
	"log"
	"time"

	"github.com/palemoky/exquisite-corpse/internal/protocol"
	"github.com/palemoky/exquisite-corpse/internal/protocol/codec"
)

// CleanupLoop 定期清理长时间无活动的房间，直到 ctx 结束
func (rm *RoomManager) CleanupLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rm.CleanupIdle(now)
		}
	}
}

// CleanupIdle 删除在 now 之前超过 roomTimeout 没有活动的房间，并断开其成员。
// 进行中的房间不参与超时清理，成员全部离开后由 LeaveRoom 删除。
// 返回清理的房间数量
func (rm *RoomManager) CleanupIdle(now time.Time) int {
	if rm.roomTimeout <= 0 {
		return 0
	}

	var evicted []*Member

	rm.mu.Lock()
	cleaned := 0
	for id, room := range rm.rooms {
		room.mu.Lock()
		if room.State != RoomStatePlaying && now.Sub(room.LastActive) > rm.roomTimeout {
			room.broadcast(codec.NewErrorMessageWithText(protocol.ErrCodeUnknown, "房间超时已关闭"))
			evicted = append(evicted, room.Members...)
			room.Members = nil
			room.HostID = ""
			room.closed = true
			delete(rm.rooms, id)
			if rm.store != nil {
				rm.store.DeleteRoom(id)
			}
			cleaned++
			log.Printf("🏠 房间 %s 超时已清理", id)
		}
		room.mu.Unlock()
	}
	rm.mu.Unlock()

	// 在锁外关闭连接，断开流程会再次进入 LeaveRoom
	for _, m := range evicted {
		m.Client.Close()
	}
	return cleaned
}

// CloseAll 关闭所有房间（用于服务器关闭）
func (rm *RoomManager) CloseAll() {
	rm.mu.Lock()
	var evicted []*Member
	for id, room := range rm.rooms {
		room.mu.Lock()
		evicted = append(evicted, room.Members...)
		room.Members = nil
		room.HostID = ""
		room.closed = true
		room.mu.Unlock()
		delete(rm.rooms, id)
		if rm.store != nil {
			rm.store.DeleteRoom(id)
		}
	}
	rm.mu.Unlock()

	for _, m := range evicted {
		m.Client.Close()
	}
}
