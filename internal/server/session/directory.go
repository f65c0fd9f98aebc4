package session

import (
	"sync"

	"github.com/palemoky/exquisite-corpse/internal/types"
)

// Session 一个连接对应的玩家身份
type Session struct {
	Client   types.ClientInterface
	PublicID string
	Name     string
	RoomID   string
}

// ConnID 连接 ID
func (s Session) ConnID() string {
	return s.Client.GetID()
}

// Directory 连接到玩家身份的映射。公开 ID 在所有在线玩家中唯一
type Directory struct {
	sessions map[string]*Session // connID -> session
	byPublic map[string]string   // publicID -> connID
	mu       sync.RWMutex
}

// NewDirectory 创建目录
func NewDirectory() *Directory {
	return &Directory{
		sessions: make(map[string]*Session),
		byPublic: make(map[string]string),
	}
}

// Bind 为连接绑定身份与房间。若该公开 ID 已被另一个连接持有，
// 返回之前的会话，调用方负责断开它
func (d *Directory) Bind(client types.ClientInterface, id Identity) (prior Session, evicted bool) {
	connID := client.GetID()

	d.mu.Lock()
	defer d.mu.Unlock()

	if holder, ok := d.byPublic[id.PublicID]; ok && holder != connID {
		if s, ok := d.sessions[holder]; ok {
			prior, evicted = *s, true
			delete(d.sessions, holder)
		}
	}

	// 同一连接换了公开 ID 时清理旧索引
	if old, ok := d.sessions[connID]; ok && old.PublicID != id.PublicID {
		if d.byPublic[old.PublicID] == connID {
			delete(d.byPublic, old.PublicID)
		}
	}

	d.sessions[connID] = &Session{
		Client:   client,
		PublicID: id.PublicID,
		Name:     id.Name,
		RoomID:   id.RoomID,
	}
	d.byPublic[id.PublicID] = connID
	return prior, evicted
}

// Get 获取连接的会话
func (d *Directory) Get(connID string) (Session, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.sessions[connID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// ByPublicID 通过公开 ID 获取会话
func (d *Directory) ByPublicID(publicID string) (Session, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	connID, ok := d.byPublic[publicID]
	if !ok {
		return Session{}, false
	}
	s, ok := d.sessions[connID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// SetRoom 设置连接所在房间。连接未绑定（或已被挤掉）时返回 false
func (d *Directory) SetRoom(connID, roomID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sessions[connID]
	if ok {
		s.RoomID = roomID
	}
	return ok
}

// Remove 删除连接的会话。公开 ID 索引仅在仍指向该连接时清除
func (d *Directory) Remove(connID string) (Session, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.sessions[connID]
	if !ok {
		return Session{}, false
	}
	delete(d.sessions, connID)
	if d.byPublic[s.PublicID] == connID {
		delete(d.byPublic, s.PublicID)
	}
	return *s, true
}

// Count 已绑定身份的连接数
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.sessions)
}
