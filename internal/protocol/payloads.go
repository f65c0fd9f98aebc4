package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/palemoky/exquisite-corpse/internal/game/book"
	"github.com/palemoky/exquisite-corpse/internal/game/settings"
)

// FlexString 兼容 JSON 字符串与数字的字段（publicId 既可能是 "42" 也可能是 42）
type FlexString string

// UnmarshalJSON 实现 json.Unmarshaler
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("flex string: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

// --- 客户端请求 Payloads ---

// PingPayload 心跳请求
type PingPayload struct {
	Timestamp int64 `json:"timestamp"` // 客户端时间戳（毫秒）
}

// JoinRoomPayload 加入房间请求
type JoinRoomPayload struct {
	ID   FlexString `json:"id"`   // 玩家公开 ID（纯数字）
	Name string     `json:"name"` // 昵称
	Room string     `json:"room"` // 房间号
}

// SettingsPayload 修改房间设置请求，服务端转发时复用
type SettingsPayload struct {
	Settings settings.Raw `json:"settings"`
}

// StartGamePayload 开始游戏请求
type StartGamePayload struct {
	Settings settings.Raw `json:"settings"`
}

// UpdateBookTitlePayload 更新书名请求
type UpdateBookTitlePayload struct {
	Title string `json:"title"`
}

// SubmitPagePayload 提交一页
type SubmitPagePayload struct {
	Type  settings.PageType `json:"type"`
	Value string            `json:"value"`
}

// --- 服务端响应 Payloads ---

// PlayerInfo 玩家信息
type PlayerInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// JoinedPayload 加入成功后的房间快照
type JoinedPayload struct {
	Room     string            `json:"room"`
	Users    []PlayerInfo      `json:"users"`
	Host     string            `json:"host"`
	Settings settings.Settings `json:"settings"`
}

// UserJoinPayload 其他玩家加入通知
type UserJoinPayload struct {
	Player PlayerInfo `json:"player"`
}

// SettingsChangedPayload 设置变更通知
type SettingsChangedPayload struct {
	Settings settings.Settings `json:"settings"`
}

// GameStartedPayload 游戏开始通知
type GameStartedPayload struct {
	Books book.Books        `json:"books"`
	Start settings.PageType `json:"start"` // 第 0 页的类型
}

// BookTitlePayload 书名更新通知
type BookTitlePayload struct {
	ID    string `json:"id"` // 书的 ID（封面作者的公开 ID）
	Title string `json:"title"`
}

// PagePayload 一页内容。内容被丢弃时 Value 为空
type PagePayload struct {
	ID     string `json:"id"`    // 书的 ID
	Page   int    `json:"page"`  // 页码
	Value  string `json:"value"` // 文本或图片
	Author string `json:"author"`
}

// EmptyPayload 无内容的通知（nextPage / startPresenting）
type EmptyPayload struct{}

// UserLeavePayload 玩家离开通知
type UserLeavePayload struct {
	ID string `json:"id"`
}

// UserHostPayload 房主变更通知
type UserHostPayload struct {
	ID string `json:"id"`
}

// RejectPayload 请求被拒绝
type RejectPayload struct {
	Reason string `json:"reason,omitempty"`
}

// PongPayload 心跳响应
type PongPayload struct {
	ClientTimestamp int64 `json:"client_timestamp"` // 客户端发送的时间戳
	ServerTimestamp int64 `json:"server_timestamp"` // 服务器时间戳（毫秒）
}

// ErrorPayload 错误响应
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RoomListItem 房间列表项（HTTP 接口）
type RoomListItem struct {
	RoomID      string `json:"room_id"`
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
	Phase       string `json:"phase"`
}
