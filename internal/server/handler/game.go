package handler

import (
	"github.com/palemoky/exquisite-corpse/internal/apperrors"
	"github.com/palemoky/exquisite-corpse/internal/protocol"
	"github.com/palemoky/exquisite-corpse/internal/protocol/codec"
	"github.com/palemoky/exquisite-corpse/internal/types"
)

// handleStartGame 处理房主开始游戏
func (h *Handler) handleStartGame(client types.ClientInterface, msg *protocol.Message) error {
	r, err := h.currentRoom(client)
	if err != nil {
		return err
	}
	payload, err := codec.ParsePayload[protocol.StartGamePayload](msg)
	if err != nil {
		return apperrors.ErrInvalidPayload
	}
	return r.Start(client.GetID(), payload.Settings)
}

// handleUpdateBookTitle 处理书名更新
func (h *Handler) handleUpdateBookTitle(client types.ClientInterface, msg *protocol.Message) error {
	r, err := h.currentRoom(client)
	if err != nil {
		return err
	}
	payload, err := codec.ParsePayload[protocol.UpdateBookTitlePayload](msg)
	if err != nil {
		return apperrors.ErrInvalidPayload
	}
	return r.UpdateTitle(client.GetID(), payload.Title)
}

// handleSubmitPage 处理提交一页
func (h *Handler) handleSubmitPage(client types.ClientInterface, msg *protocol.Message) error {
	r, err := h.currentRoom(client)
	if err != nil {
		return err
	}
	payload, err := codec.ParsePayload[protocol.SubmitPagePayload](msg)
	if err != nil {
		return apperrors.ErrInvalidPayload
	}
	return r.SubmitPage(client.GetID(), payload.Type, payload.Value)
}
