//go:build !production

package room

import (
	"math/rand/v2"
	"time"
)

// SetSeedForTest 让之后创建的房间使用固定种子
func (rm *RoomManager) SetSeedForTest(seed uint64) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.newRand = func() *rand.Rand {
		return rand.New(rand.NewPCG(seed, seed))
	}
}

// AddRoomForTest 添加房间用于测试
func (rm *RoomManager) AddRoomForTest(room *Room) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.rooms[room.ID] = room
}

// SetLastActiveForTest 修改房间最后活动时间
func (r *Room) SetLastActiveForTest(t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.LastActive = t
}
