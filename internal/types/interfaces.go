package types

import (
	"github.com/palemoky/exquisite-corpse/internal/protocol"
)

// ServerInterface 定义服务器接口（用于打破循环依赖）
type ServerInterface interface {
	IsMaintenanceMode() bool
	GetOnlineCount() int
}

// ClientInterface 定义客户端接口。玩家身份与所在房间由 session.Directory 维护
type ClientInterface interface {
	GetID() string
	// SendMessage 非阻塞发送，缓冲区满时关闭连接
	SendMessage(msg *protocol.Message)
	Close()
}
