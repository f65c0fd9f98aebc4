package room

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/palemoky/exquisite-corpse/internal/game/book"
	"github.com/palemoky/exquisite-corpse/internal/game/settings"
	"github.com/palemoky/exquisite-corpse/internal/protocol"
	"github.com/palemoky/exquisite-corpse/internal/server/storage"
	"github.com/palemoky/exquisite-corpse/internal/types"
)

const (
	MaxRoomSize    = 10  // 大厅阶段的人数上限
	MaxTitleLength = 40  // 书名最大字符数
	MaxTextLength  = 140 // 文字页最大字符数
)

// errRoomClosed 房间已被删除，调用方应重新获取房间
var errRoomClosed = errors.New("room closed")

// Store 房间快照的存储，实现必须是非阻塞的（房间持锁调用）
type Store interface {
	SaveRoom(roomID string, data *storage.RoomData)
	DeleteRoom(roomID string)
}

// Member 房间成员
type Member struct {
	Client   types.ClientInterface
	PublicID string
	Name     string
}

// ConnID 连接 ID
func (m *Member) ConnID() string {
	return m.Client.GetID()
}

func (m *Member) info() protocol.PlayerInfo {
	return protocol.PlayerInfo{ID: m.PublicID, Name: m.Name}
}

// Room 游戏房间。所有操作在 mu 内完成，包括向成员发送消息
type Room struct {
	ID         string            // 房间号
	State      RoomState         // 房间阶段
	Members    []*Member         // 成员（按加入顺序）
	HostID     string            // 房主连接 ID
	Settings   settings.Settings // 房间设置
	PageIndex  int               // 当前页
	Books      book.Books        // 开局时确定的分配方案
	CreatedAt  time.Time
	LastActive time.Time

	submitted map[string]bool // 本轮已提交的连接
	closed    bool            // 已从 RoomManager 删除
	rng       *rand.Rand
	store     Store

	mu sync.Mutex
}

// NewRoom 创建房间，store 和 rng 可为 nil
func NewRoom(id string, store Store, rng *rand.Rand) *Room {
	now := time.Now()
	return &Room{
		ID:         id,
		State:      RoomStateLobby,
		Members:    make([]*Member, 0, MaxRoomSize),
		Settings:   settings.Default(),
		CreatedAt:  now,
		LastActive: now,
		submitted:  make(map[string]bool),
		rng:        rng,
		store:      store,
	}
}

// --- 以下方法要求调用方持有 r.mu ---

func (r *Room) memberIndex(connID string) int {
	for i, m := range r.Members {
		if m.ConnID() == connID {
			return i
		}
	}
	return -1
}

func (r *Room) member(connID string) *Member {
	if i := r.memberIndex(connID); i >= 0 {
		return r.Members[i]
	}
	return nil
}

func (r *Room) host() *Member {
	return r.member(r.HostID)
}

func (r *Room) players() []protocol.PlayerInfo {
	users := make([]protocol.PlayerInfo, len(r.Members))
	for i, m := range r.Members {
		users[i] = m.info()
	}
	return users
}

func (r *Room) publicIDs() []string {
	ids := make([]string, len(r.Members))
	for i, m := range r.Members {
		ids[i] = m.PublicID
	}
	return ids
}

// broadcast 向所有成员广播
func (r *Room) broadcast(msg *protocol.Message) {
	for _, m := range r.Members {
		m.Client.SendMessage(msg)
	}
}

// broadcastExcept 向除指定连接外的成员广播
func (r *Room) broadcastExcept(connID string, msg *protocol.Message) {
	for _, m := range r.Members {
		if m.ConnID() != connID {
			m.Client.SendMessage(msg)
		}
	}
}

func (r *Room) touch() {
	r.LastActive = time.Now()
}

func (r *Room) persist() {
	if r.store != nil {
		r.store.SaveRoom(r.ID, r.toRoomData())
	}
}

// --- 只读访问 ---

// IsMember 连接是否在房间中
func (r *Room) IsMember(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.memberIndex(connID) >= 0
}

// Size 成员数量
func (r *Room) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Members)
}

// Phase 当前阶段
func (r *Room) Phase() RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.State
}

// SubmittedCount 本轮已提交数量
func (r *Room) SubmittedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.submitted)
}
