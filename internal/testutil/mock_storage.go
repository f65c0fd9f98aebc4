//go:build !production

package testutil

import (
	"sync"

	"github.com/palemoky/exquisite-corpse/internal/server/storage"
)

// RecordingStore 记录房间快照的内存存储，实现 room.Store
type RecordingStore struct {
	mu      sync.Mutex
	rooms   map[string]*storage.RoomData
	saves   int
	deletes []string
}

// NewRecordingStore 创建内存存储
func NewRecordingStore() *RecordingStore {
	return &RecordingStore{rooms: make(map[string]*storage.RoomData)}
}

func (s *RecordingStore) SaveRoom(roomID string, data *storage.RoomData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[roomID] = data
	s.saves++
}

func (s *RecordingStore) DeleteRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
	s.deletes = append(s.deletes, roomID)
}

// Room 返回最近一次保存的快照
func (s *RecordingStore) Room(roomID string) *storage.RoomData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms[roomID]
}

// Saves 保存次数
func (s *RecordingStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Deleted 已删除的房间号
func (s *RecordingStore) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deletes...)
}
