package room

import (
	"github.com/palemoky/exquisite-corpse/internal/server/storage"
)

// toRoomData 房间快照，调用方持有 r.mu。页面内容不进入快照
func (r *Room) toRoomData() *storage.RoomData {
	data := &storage.RoomData{
		ID:        r.ID,
		Phase:     r.State.String(),
		Members:   make([]storage.MemberData, 0, len(r.Members)),
		Settings:  r.Settings,
		PageIndex: r.PageIndex,
		Submitted: len(r.submitted),
		Books:     r.Books,
		CreatedAt: r.CreatedAt.Unix(),
		UpdatedAt: r.LastActive.Unix(),
	}
	for _, m := range r.Members {
		data.Members = append(data.Members, storage.MemberData{ID: m.PublicID, Name: m.Name})
	}
	if h := r.host(); h != nil {
		data.Host = h.PublicID
	}
	return data
}
