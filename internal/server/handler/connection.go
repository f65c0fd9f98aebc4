package handler

import (
	"time"

	"github.com/palemoky/exquisite-corpse/internal/protocol"
	"github.com/palemoky/exquisite-corpse/internal/protocol/codec"
	"github.com/palemoky/exquisite-corpse/internal/types"
)

// handlePing 处理心跳消息
func (h *Handler) handlePing(client types.ClientInterface, msg *protocol.Message) error {
	payload, err := codec.ParsePayload[protocol.PingPayload](msg)
	if err != nil {
		// 心跳格式错误不影响连接
		payload = &protocol.PingPayload{}
	}

	client.SendMessage(codec.MustNewMessage(protocol.MsgPong, protocol.PongPayload{
		ClientTimestamp: payload.Timestamp,
		ServerTimestamp: time.Now().UnixMilli(),
	}))
	return nil
}
