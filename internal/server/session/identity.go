package session

import (
	"fmt"
	"regexp"

	"github.com/palemoky/exquisite-corpse/internal/apperrors"
	"github.com/palemoky/exquisite-corpse/internal/sanitize"
)

// MaxNameLength 昵称最大字符数
const MaxNameLength = 32

var (
	publicIDPattern = regexp.MustCompile(`^[0-9]{1,10}$`)
	roomIDPattern   = regexp.MustCompile(`^[A-Za-z0-9_-]{1,8}$`)
)

// Identity 经过校验的加入请求身份字段
type Identity struct {
	PublicID string
	Name     string
	RoomID   string
}

// NormalizeIdentity 清洗并校验加入请求。昵称超长时截断，其余字段不合格时返回协议错误
func NormalizeIdentity(publicID, name, roomID string) (Identity, error) {
	publicID = sanitize.Clean(publicID)
	if !publicIDPattern.MatchString(publicID) {
		return Identity{}, fmt.Errorf("%w: id %q", apperrors.ErrInvalidIdentity, publicID)
	}

	if !roomIDPattern.MatchString(roomID) {
		return Identity{}, fmt.Errorf("%w: room %q", apperrors.ErrInvalidIdentity, roomID)
	}

	nick, err := sanitize.Nickname(name)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: name: %v", apperrors.ErrInvalidIdentity, err)
	}

	return Identity{
		PublicID: publicID,
		Name:     sanitize.Truncate(nick, MaxNameLength),
		RoomID:   roomID,
	}, nil
}

// ValidRoomID 检查房间号格式
func ValidRoomID(roomID string) bool {
	return roomIDPattern.MatchString(roomID)
}
