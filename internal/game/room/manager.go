package room

import (
	"errors"
	"log"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/palemoky/exquisite-corpse/internal/protocol"
)

// RoomManager 房间管理器。锁顺序：rm.mu → room.mu
type RoomManager struct {
	store       Store
	roomTimeout time.Duration
	rooms       map[string]*Room
	newRand     func() *rand.Rand
	mu          sync.RWMutex
}

// NewRoomManager 创建房间管理器，store 可为 nil
func NewRoomManager(store Store, roomTimeout time.Duration) *RoomManager {
	return &RoomManager{
		store:       store,
		roomTimeout: roomTimeout,
		rooms:       make(map[string]*Room),
		newRand: func() *rand.Rand {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		},
	}
}

// getOrCreate 获取房间，不存在时以默认设置创建
func (rm *RoomManager) getOrCreate(roomID string) *Room {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if room, ok := rm.rooms[roomID]; ok {
		return room
	}
	room := NewRoom(roomID, rm.store, rm.newRand())
	rm.rooms[roomID] = room
	log.Printf("🏠 房间 %s 已创建", roomID)
	return room
}

// JoinRoom 加入房间，不存在则创建。房间恰好被并发删除时重试
func (rm *RoomManager) JoinRoom(roomID string, m *Member) (*Room, error) {
	for {
		room := rm.getOrCreate(roomID)
		err := room.Join(m)
		if errors.Is(err, errRoomClosed) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return room, nil
	}
}

// LeaveRoom 离开房间，房间为空时删除
func (rm *RoomManager) LeaveRoom(roomID, connID string) {
	room := rm.GetRoom(roomID)
	if room == nil {
		return
	}
	if _, empty := room.Leave(connID); empty {
		rm.removeIfEmpty(roomID, room)
	}
}

// removeIfEmpty 持有两把锁重新确认房间为空后删除
func (rm *RoomManager) removeIfEmpty(roomID string, room *Room) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.rooms[roomID] != room {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if len(room.Members) > 0 || room.closed {
		return
	}
	room.closed = true
	delete(rm.rooms, roomID)
	if rm.store != nil {
		rm.store.DeleteRoom(roomID)
	}
	log.Printf("🏠 房间 %s 已解散", roomID)
}

// GetRoom 获取房间
func (rm *RoomManager) GetRoom(roomID string) *Room {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.rooms[roomID]
}

// GetRoomList 获取可加入的房间列表（大厅阶段且未满），按房间号排序
func (rm *RoomManager) GetRoomList() []protocol.RoomListItem {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	rooms := make([]protocol.RoomListItem, 0, len(rm.rooms))
	for id, room := range rm.rooms {
		room.mu.Lock()
		if room.State == RoomStateLobby && len(room.Members) < MaxRoomSize {
			rooms = append(rooms, protocol.RoomListItem{
				RoomID:      id,
				PlayerCount: len(room.Members),
				MaxPlayers:  MaxRoomSize,
				Phase:       room.State.String(),
			})
		}
		room.mu.Unlock()
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].RoomID < rooms[j].RoomID })
	return rooms
}

// GetActiveGamesCount 获取进行中的游戏数量（展示阶段不计入）
func (rm *RoomManager) GetActiveGamesCount() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	count := 0
	for _, room := range rm.rooms {
		room.mu.Lock()
		if room.State == RoomStatePlaying {
			count++
		}
		room.mu.Unlock()
	}
	return count
}

// Count 房间数量
func (rm *RoomManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.rooms)
}
