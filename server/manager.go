package server

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.uber.org/multierr"

	"roomsync/persist"
)

// 房间名同时用作文件名
var roomIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// ErrManagerClosed 管理器已关闭
var ErrManagerClosed = errors.New("room manager closed")

// RoomManager 管理多个房间的生命周期
type RoomManager struct {
	opts  RoomOptions
	cache *SnapshotCache

	mu     sync.RWMutex
	rooms  map[string]*Room
	closed bool
}

// NewRoomManager 创建管理器；完整状态消息缓存上限 64MB
func NewRoomManager(opts RoomOptions) (*RoomManager, error) {
	cache, err := NewSnapshotCache(64 << 20)
	if err != nil {
		return nil, err
	}
	if opts.DefaultRoom == "" {
		opts.DefaultRoom = DefaultRoomOptions().DefaultRoom
	}
	return &RoomManager{
		opts:  opts,
		cache: cache,
		rooms: make(map[string]*Room),
	}, nil
}

func (m *RoomManager) Options() RoomOptions { return m.opts }

// GetOrCreateRoom 获取或创建房间，并确保开始 Tick；created 表示本次新建
func (m *RoomManager) GetOrCreateRoom(id string) (r *Room, created bool, err error) {
	if id == "" {
		id = m.opts.DefaultRoom
	}
	if !roomIDPattern.MatchString(id) {
		return nil, false, fmt.Errorf("invalid room name %q", id)
	}
	m.mu.RLock()
	r, ok := m.rooms[id]
	m.mu.RUnlock()
	if ok {
		return r, false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, false, ErrManagerClosed
	}
	if r, ok = m.rooms[id]; ok {
		return r, false, nil
	}
	r, err = NewRoom(id, m.opts, m.cache)
	if err != nil {
		return nil, false, err
	}
	m.rooms[id] = r
	r.StartTicker()
	Log.Infof("room %s created", id)
	return r, true, nil
}

// Room 查找已存在的房间
func (m *RoomManager) Room(id string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// RoomIDs 按名称排序
func (m *RoomManager) RoomIDs() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// RestoreAll 为数据目录中每个已有快照创建房间
func (m *RoomManager) RestoreAll() (int, error) {
	if m.opts.DataDir == "" {
		return 0, nil
	}
	paths, err := filepath.Glob(persist.SnapshotPath(m.opts.DataDir, "*"))
	if err != nil {
		return 0, err
	}
	n := 0
	for _, p := range paths {
		id := strings.TrimSuffix(filepath.Base(p), ".snap.zst")
		if _, created, cerr := m.GetOrCreateRoom(id); cerr != nil {
			err = multierr.Append(err, cerr)
		} else if created {
			n++
		}
	}
	return n, err
}

// Close 停止全部房间并刷写持久化数据
func (m *RoomManager) Close() error {
	m.mu.Lock()
	m.closed = true
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.Unlock()

	var err error
	for _, r := range rooms {
		err = multierr.Append(err, r.Stop())
	}
	m.cache.Close()
	return err
}
