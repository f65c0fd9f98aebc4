package apperrors

import (
	"errors"

	"github.com/palemoky/exquisite-corpse/internal/protocol"
)

// GameError 容量或状态错误：只拒绝当前请求，连接保持
type GameError struct {
	Code    int
	Message string
}

func (e *GameError) Error() string {
	return e.Message
}

// ProtocolError 协议违规：调用方越权或发送了结构无效的数据，连接将被断开
type ProtocolError struct {
	Code   int
	Reason string
}

func (e *ProtocolError) Error() string {
	return "protocol violation: " + e.Reason
}

// 拒绝类错误
var (
	ErrRoomFull          = &GameError{Code: protocol.ErrCodeRoomFull, Message: "房间已满"}
	ErrGameStarted       = &GameError{Code: protocol.ErrCodeGameStarted, Message: "游戏已开始"}
	ErrServerMaintenance = &GameError{Code: protocol.ErrCodeServerMaintenance, Message: "服务器维护中，暂停加入房间"}
)

// 协议违规
var (
	ErrNotInRoom       = &ProtocolError{Code: protocol.ErrCodeNotInRoom, Reason: "not in a room"}
	ErrAlreadyInRoom   = &ProtocolError{Code: protocol.ErrCodeAlreadyInRoom, Reason: "already in a room"}
	ErrNotHost         = &ProtocolError{Code: protocol.ErrCodeNotHost, Reason: "caller is not the host"}
	ErrWrongPhase      = &ProtocolError{Code: protocol.ErrCodeWrongPhase, Reason: "operation not allowed in current phase"}
	ErrTooFewPlayers   = &ProtocolError{Code: protocol.ErrCodeTooFewPlayers, Reason: "at least two players are required"}
	ErrInvalidSettings = &ProtocolError{Code: protocol.ErrCodeInvalidSettings, Reason: "invalid settings"}
	ErrInvalidIdentity = &ProtocolError{Code: protocol.ErrCodeInvalidIdentity, Reason: "invalid identity fields"}
	ErrInvalidPayload  = &ProtocolError{Code: protocol.ErrCodeInvalidMsg, Reason: "malformed payload"}
)

// IsProtocolViolation 判断错误是否应当断开连接
func IsProtocolViolation(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// IsRejection 判断错误是否只需拒绝当前请求
func IsRejection(err error) bool {
	var ge *GameError
	return errors.As(err, &ge)
}
