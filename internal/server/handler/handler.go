package handler

import (
	"errors"
	"log"

	"github.com/palemoky/exquisite-corpse/internal/apperrors"
	"github.com/palemoky/exquisite-corpse/internal/game/room"
	"github.com/palemoky/exquisite-corpse/internal/logger"
	"github.com/palemoky/exquisite-corpse/internal/protocol"
	"github.com/palemoky/exquisite-corpse/internal/protocol/codec"
	"github.com/palemoky/exquisite-corpse/internal/server/session"
	"github.com/palemoky/exquisite-corpse/internal/types"
)

// HandlerDeps 处理器依赖
type HandlerDeps struct {
	Server      types.ServerInterface
	RoomManager *room.RoomManager
	Directory   *session.Directory
}

// Handler 消息处理器
type Handler struct {
	server      types.ServerInterface
	roomManager *room.RoomManager
	directory   *session.Directory
	handlers    map[protocol.MessageType]handlerFunc
}

// handlerFunc 统一的处理器函数签名
type handlerFunc func(client types.ClientInterface, msg *protocol.Message) error

// NewHandler 创建处理器
func NewHandler(deps HandlerDeps) *Handler {
	h := &Handler{
		server:      deps.Server,
		roomManager: deps.RoomManager,
		directory:   deps.Directory,
	}
	h.initHandlers()
	return h
}

// initHandlers 初始化消息处理器映射
func (h *Handler) initHandlers() {
	h.handlers = map[protocol.MessageType]handlerFunc{
		// 连接操作
		protocol.MsgPing: h.handlePing,

		// 房间操作
		protocol.MsgJoinRoom: h.handleJoinRoom,
		protocol.MsgSettings: h.handleSettings,

		// 游戏操作
		protocol.MsgStartGame:       h.handleStartGame,
		protocol.MsgUpdateBookTitle: h.handleUpdateBookTitle,
		protocol.MsgSubmitPage:      h.handleSubmitPage,
	}
}

// Handle 处理消息
func (h *Handler) Handle(client types.ClientInterface, msg *protocol.Message) {
	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r)
			h.disconnect(client)
		}
	}()

	handler, ok := h.handlers[msg.Type]
	if !ok {
		log.Printf("⚠️  未知消息类型: '%s' (连接: %s, Payload长度=%d bytes)", msg.Type, client.GetID(), len(msg.Payload))
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	if err := handler(client, msg); err != nil {
		h.respond(client, msg.Type, err)
	}
}

// respond 按错误类型处理：协议违规断开连接，拒绝类错误只回复 reject
func (h *Handler) respond(client types.ClientInterface, msgType protocol.MessageType, err error) {
	var gameErr *apperrors.GameError
	switch {
	case apperrors.IsProtocolViolation(err):
		log.Printf("🚫 连接 %s 协议违规 (%s): %v，断开连接", client.GetID(), msgType, err)
		h.disconnect(client)
	case errors.As(err, &gameErr):
		client.SendMessage(codec.NewRejectMessage(gameErr.Message))
	default:
		log.Printf("❌ 处理 %s 失败 (连接: %s): %v", msgType, client.GetID(), err)
		client.SendMessage(codec.NewErrorMessageWithText(protocol.ErrCodeUnknown, err.Error()))
	}
}

// disconnect 同步离开房间后关闭连接
func (h *Handler) disconnect(client types.ClientInterface) {
	h.HandleDisconnect(client)
	client.Close()
}

// HandleDisconnect 连接断开：删除会话并离开房间。可重复调用
func (h *Handler) HandleDisconnect(client types.ClientInterface) {
	s, ok := h.directory.Remove(client.GetID())
	if !ok || s.RoomID == "" {
		return
	}
	h.roomManager.LeaveRoom(s.RoomID, client.GetID())
}

// currentRoom 返回连接所在的房间
func (h *Handler) currentRoom(client types.ClientInterface) (*room.Room, error) {
	s, ok := h.directory.Get(client.GetID())
	if !ok || s.RoomID == "" {
		return nil, apperrors.ErrNotInRoom
	}
	r := h.roomManager.GetRoom(s.RoomID)
	if r == nil {
		return nil, apperrors.ErrNotInRoom
	}
	return r, nil
}
