package handler

import (
	"log"

	"github.com/palemoky/exquisite-corpse/internal/apperrors"
	"github.com/palemoky/exquisite-corpse/internal/game/room"
	"github.com/palemoky/exquisite-corpse/internal/protocol"
	"github.com/palemoky/exquisite-corpse/internal/protocol/codec"
	"github.com/palemoky/exquisite-corpse/internal/server/session"
	"github.com/palemoky/exquisite-corpse/internal/types"
)

// handleJoinRoom 处理加入房间（房间不存在时创建）
func (h *Handler) handleJoinRoom(client types.ClientInterface, msg *protocol.Message) error {
	// 维护模式检查
	if h.server != nil && h.server.IsMaintenanceMode() {
		return apperrors.ErrServerMaintenance
	}

	payload, err := codec.ParsePayload[protocol.JoinRoomPayload](msg)
	if err != nil {
		return apperrors.ErrInvalidPayload
	}

	connID := client.GetID()
	if s, ok := h.directory.Get(connID); ok && s.RoomID != "" {
		return apperrors.ErrAlreadyInRoom
	}

	ident, err := session.NormalizeIdentity(string(payload.ID), payload.Name, payload.Room)
	if err != nil {
		return err
	}

	// 房间在加入成功后才写入目录
	prior, evicted := h.directory.Bind(client, session.Identity{PublicID: ident.PublicID, Name: ident.Name})
	if evicted {
		log.Printf("🔁 公开 ID %s 被新连接 %s 占用，断开旧连接 %s", ident.PublicID, connID, prior.ConnID())
		if prior.RoomID != "" {
			h.roomManager.LeaveRoom(prior.RoomID, prior.ConnID())
		}
		prior.Client.Close()
	}

	member := &room.Member{Client: client, PublicID: ident.PublicID, Name: ident.Name}
	if _, err := h.roomManager.JoinRoom(ident.RoomID, member); err != nil {
		return err
	}

	// 加入过程中被其他连接挤掉
	if !h.directory.SetRoom(connID, ident.RoomID) {
		h.roomManager.LeaveRoom(ident.RoomID, connID)
	}
	return nil
}

// handleSettings 处理房主修改设置
func (h *Handler) handleSettings(client types.ClientInterface, msg *protocol.Message) error {
	r, err := h.currentRoom(client)
	if err != nil {
		return err
	}
	payload, err := codec.ParsePayload[protocol.SettingsPayload](msg)
	if err != nil {
		return apperrors.ErrInvalidPayload
	}
	return r.UpdateSettings(client.GetID(), payload.Settings)
}
