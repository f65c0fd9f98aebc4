package room

import (
	"fmt"
	"log"

	"github.com/palemoky/exquisite-corpse/internal/apperrors"
	"github.com/palemoky/exquisite-corpse/internal/game/book"
	"github.com/palemoky/exquisite-corpse/internal/game/settings"
	"github.com/palemoky/exquisite-corpse/internal/imagecheck"
	"github.com/palemoky/exquisite-corpse/internal/protocol"
	"github.com/palemoky/exquisite-corpse/internal/protocol/codec"
	"github.com/palemoky/exquisite-corpse/internal/sanitize"
)

// Join 加入房间。第一个加入的成员成为房主
func (r *Room) Join(m *Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errRoomClosed
	}
	for _, existing := range r.Members {
		if existing.ConnID() == m.ConnID() || existing.PublicID == m.PublicID {
			return apperrors.ErrAlreadyInRoom
		}
	}
	if len(r.Members) >= MaxRoomSize {
		return apperrors.ErrRoomFull
	}
	if r.State != RoomStateLobby {
		return apperrors.ErrGameStarted
	}

	r.Members = append(r.Members, m)
	if len(r.Members) == 1 {
		r.HostID = m.ConnID()
	}
	r.touch()

	m.Client.SendMessage(codec.MustNewMessage(protocol.MsgJoined, protocol.JoinedPayload{
		Room:     r.ID,
		Users:    r.players(),
		Host:     r.host().PublicID,
		Settings: r.Settings,
	}))
	r.broadcastExcept(m.ConnID(), codec.MustNewMessage(protocol.MsgUserJoin, protocol.UserJoinPayload{
		Player: m.info(),
	}))

	log.Printf("👤 玩家 %s(%s) 加入房间 %s (%d/%d)", m.Name, m.PublicID, r.ID, len(r.Members), MaxRoomSize)
	r.persist()
	return nil
}

// Leave 离开房间。未加入过的连接为空操作。
// 返回是否移除了成员以及房间是否已空
func (r *Room) Leave(connID string) (removed, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.memberIndex(connID)
	if i < 0 {
		return false, len(r.Members) == 0
	}
	leaver := r.Members[i]
	r.Members = append(r.Members[:i], r.Members[i+1:]...)
	delete(r.submitted, connID)
	r.touch()

	log.Printf("👋 玩家 %s(%s) 离开房间 %s", leaver.Name, leaver.PublicID, r.ID)

	if len(r.Members) == 0 {
		r.HostID = ""
		return true, true
	}

	r.broadcast(codec.MustNewMessage(protocol.MsgUserLeave, protocol.UserLeavePayload{ID: leaver.PublicID}))

	if r.HostID == connID {
		next := r.Members[0]
		r.HostID = next.ConnID()
		r.broadcast(codec.MustNewMessage(protocol.MsgUserHost, protocol.UserHostPayload{ID: next.PublicID}))
		log.Printf("👑 房间 %s 房主变更为 %s(%s)", r.ID, next.Name, next.PublicID)
	}

	// 离开者不再阻塞本轮
	r.checkBarrier()
	r.persist()
	return true, false
}

// authorizeHost 校验调用方是大厅阶段的房主
func (r *Room) authorizeHost(connID string) error {
	if r.memberIndex(connID) < 0 {
		return apperrors.ErrNotInRoom
	}
	if r.HostID != connID {
		return apperrors.ErrNotHost
	}
	if r.State != RoomStateLobby {
		return apperrors.ErrWrongPhase
	}
	return nil
}

// UpdateSettings 房主修改设置，转发给其他成员
func (r *Room) UpdateSettings(connID string, raw settings.Raw) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.authorizeHost(connID); err != nil {
		return err
	}
	s, err := settings.Parse(raw)
	if err != nil {
		return apperrors.ErrInvalidSettings
	}

	r.Settings = s
	r.touch()
	r.broadcastExcept(connID, codec.MustNewMessage(protocol.MsgSettings, protocol.SettingsChangedPayload{Settings: s}))
	r.persist()
	return nil
}

// Start 房主开始游戏：保存设置并计算整局的分配方案
func (r *Room) Start(connID string, raw settings.Raw) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.authorizeHost(connID); err != nil {
		return err
	}
	if len(r.Members) < 2 {
		return apperrors.ErrTooFewPlayers
	}
	s, err := settings.Parse(raw)
	if err != nil {
		return apperrors.ErrInvalidSettings
	}
	books, err := book.Assign(r.publicIDs(), s.PageCount, s.PageOrder, r.rng)
	if err != nil {
		return fmt.Errorf("房间 %s 分配失败: %w", r.ID, err)
	}

	r.Settings = s
	r.State = RoomStatePlaying
	r.PageIndex = 0
	r.submitted = make(map[string]bool, len(r.Members))
	r.Books = books
	r.touch()

	r.broadcast(codec.MustNewMessage(protocol.MsgStartGame, protocol.GameStartedPayload{
		Books: books,
		Start: s.FirstPage,
	}))

	log.Printf("🎮 房间 %s 游戏开始，%d 名玩家，%d 页，%s 顺序", r.ID, len(r.Members), s.PageCount, s.PageOrder)
	r.persist()
	return nil
}

// UpdateTitle 转发书名。仅在游戏第 0 页有效，其余时间忽略
func (r *Room) UpdateTitle(connID, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.member(connID)
	if m == nil {
		return apperrors.ErrNotInRoom
	}
	if r.State != RoomStatePlaying || r.PageIndex != 0 {
		return nil
	}
	if _, ok := r.Books[m.PublicID]; !ok {
		return nil
	}

	r.touch()
	r.broadcastExcept(connID, codec.MustNewMessage(protocol.MsgBookTitle, protocol.BookTitlePayload{
		ID:    m.PublicID,
		Title: sanitize.Text(title, MaxTitleLength),
	}))
	return nil
}

// SubmitPage 提交当前页。
// 没有分配到书的提交会被计数但不广播；类型不符或图片不合格时内容置空，仍然计数。
// 同一轮内的重复提交被忽略
func (r *Room) SubmitPage(connID string, pageType settings.PageType, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.member(connID)
	if m == nil {
		return apperrors.ErrNotInRoom
	}
	if r.State != RoomStatePlaying {
		return apperrors.ErrWrongPhase
	}
	if r.submitted[connID] {
		return nil
	}
	r.submitted[connID] = true
	r.touch()

	page := r.PageIndex
	if bookID, ok := r.Books.BookFor(m.PublicID, page); ok {
		r.broadcast(codec.MustNewMessage(protocol.MsgPage, protocol.PagePayload{
			ID:     bookID,
			Page:   page,
			Value:  r.acceptContent(page, pageType, value),
			Author: m.PublicID,
		}))
	} else {
		log.Printf("⚠️ 房间 %s 玩家 %s 第 %d 页没有分配的书", r.ID, m.PublicID, page)
	}

	r.checkBarrier()
	r.persist()
	return nil
}

// acceptContent 校验页面内容，不合格时记录日志并返回空字符串
func (r *Room) acceptContent(page int, pageType settings.PageType, value string) string {
	if pageType == r.Settings.PageTypeAt(page) {
		switch pageType {
		case settings.PageWrite:
			return sanitize.Text(value, MaxTextLength)
		case settings.PageDraw:
			if imagecheck.Accept(value) {
				return value
			}
		}
	}
	log.Printf("⚠️ 房间 %s 第 %d 页 %s 内容被丢弃: [%d] %s", r.ID, page, pageType,
		protocol.ErrCodeInvalidPage, protocol.ErrorMessages[protocol.ErrCodeInvalidPage])
	return ""
}

// checkBarrier 所有成员都已提交时推进到下一页
func (r *Room) checkBarrier() {
	if r.State != RoomStatePlaying || len(r.Members) == 0 {
		return
	}
	for _, m := range r.Members {
		if !r.submitted[m.ConnID()] {
			return
		}
	}

	r.submitted = make(map[string]bool, len(r.Members))
	r.PageIndex++

	if r.PageIndex >= r.Settings.PageCount {
		r.State = RoomStatePresenting
		r.broadcast(codec.MustNewMessage(protocol.MsgStartPresenting, protocol.EmptyPayload{}))
		log.Printf("📖 房间 %s 所有页已完成，进入展示阶段", r.ID)
		return
	}
	r.broadcast(codec.MustNewMessage(protocol.MsgNextPage, protocol.EmptyPayload{}))
}
