package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/palemoky/exquisite-corpse/internal/game/book"
	"github.com/palemoky/exquisite-corpse/internal/game/settings"
)

const (
	// Redis key 前缀
	roomKeyPrefix = "corpse:room:"

	// 房间快照过期时间
	roomExpiration = 2 * time.Hour
)

// RoomData 房间快照（用于 Redis 序列化，只读镜像，不用于恢复）
type RoomData struct {
	ID        string            `json:"id"`
	Phase     string            `json:"phase"`
	Members   []MemberData      `json:"members"`
	Host      string            `json:"host"` // 房主公开 ID
	Settings  settings.Settings `json:"settings"`
	PageIndex int               `json:"page_index"`
	Submitted int               `json:"submitted"`
	Books     book.Books        `json:"books,omitempty"`
	CreatedAt int64             `json:"created_at"`
	UpdatedAt int64             `json:"updated_at"`
}

// MemberData 成员数据
type MemberData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RedisStore Redis 存储
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore 创建 Redis 存储
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Ping 检查 Redis 连接
func (rs *RedisStore) Ping(ctx context.Context) error {
	return rs.client.Ping(ctx).Err()
}

// SaveRoom 保存房间快照
func (rs *RedisStore) SaveRoom(ctx context.Context, roomID string, data *RoomData) error {
	if data == nil {
		return nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("序列化房间数据失败: %w", err)
	}

	return rs.client.Set(ctx, roomKeyPrefix+roomID, jsonData, roomExpiration).Err()
}

// LoadRoom 读取房间快照，不存在时返回 nil, nil
func (rs *RedisStore) LoadRoom(ctx context.Context, roomID string) (*RoomData, error) {
	data, err := rs.client.Get(ctx, roomKeyPrefix+roomID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var roomData RoomData
	if err := json.Unmarshal(data, &roomData); err != nil {
		return nil, fmt.Errorf("反序列化房间数据失败: %w", err)
	}

	return &roomData, nil
}

// DeleteRoom 删除房间快照
func (rs *RedisStore) DeleteRoom(ctx context.Context, roomID string) error {
	return rs.client.Del(ctx, roomKeyPrefix+roomID).Err()
}

// GetAllRoomIDs 获取所有快照的房间号
func (rs *RedisStore) GetAllRoomIDs(ctx context.Context) ([]string, error) {
	var ids []string
	iter := rs.client.Scan(ctx, 0, roomKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, iter.Val()[len(roomKeyPrefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// PurgeRooms 删除上一次运行遗留的快照，返回删除数量
func (rs *RedisStore) PurgeRooms(ctx context.Context) (int, error) {
	ids, err := rs.GetAllRoomIDs(ctx)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = roomKeyPrefix + id
	}
	n, err := rs.client.Del(ctx, keys...).Result()
	return int(n), err
}
