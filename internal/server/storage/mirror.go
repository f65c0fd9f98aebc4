package storage

import (
	"context"
	"log"
	"sync"
	"time"
)

// snapshotJob data 为 nil 表示删除
type snapshotJob struct {
	roomID string
	data   *RoomData
}

// Mirror 将房间快照按顺序异步写入 Redis。
// 房间在持锁状态下调用 SaveRoom/DeleteRoom，这里只做非阻塞入队
type Mirror struct {
	store   *RedisStore
	timeout time.Duration
	jobs    chan snapshotJob
	done    chan struct{}

	mu      sync.RWMutex
	closed  bool
	dropped int
}

// NewMirror 创建并启动快照写入协程
func NewMirror(store *RedisStore, buffer int, timeout time.Duration) *Mirror {
	if buffer <= 0 {
		buffer = 256
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	m := &Mirror{
		store:   store,
		timeout: timeout,
		jobs:    make(chan snapshotJob, buffer),
		done:    make(chan struct{}),
	}
	go m.run()
	return m
}

// SaveRoom 入队保存快照
func (m *Mirror) SaveRoom(roomID string, data *RoomData) {
	m.enqueue(snapshotJob{roomID: roomID, data: data})
}

// DeleteRoom 入队删除快照
func (m *Mirror) DeleteRoom(roomID string) {
	m.enqueue(snapshotJob{roomID: roomID})
}

// Dropped 因队列满而丢弃的快照数量
func (m *Mirror) Dropped() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dropped
}

func (m *Mirror) enqueue(job snapshotJob) {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return
	}
	select {
	case m.jobs <- job:
		m.mu.RUnlock()
	default:
		m.mu.RUnlock()
		m.mu.Lock()
		m.dropped++
		m.mu.Unlock()
		log.Printf("⚠️ 房间 %s 快照队列已满，丢弃", job.roomID)
	}
}

func (m *Mirror) run() {
	defer close(m.done)
	for job := range m.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		var err error
		if job.data == nil {
			err = m.store.DeleteRoom(ctx, job.roomID)
		} else {
			err = m.store.SaveRoom(ctx, job.roomID, job.data)
		}
		cancel()
		if err != nil {
			log.Printf("⚠️ 房间 %s 快照写入失败: %v", job.roomID, err)
		}
	}
}

// Close 停止接收新快照，并等待队列中的快照写完
func (m *Mirror) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.jobs)
	m.mu.Unlock()
	<-m.done
}
