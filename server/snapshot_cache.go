package server

import (
	"strconv"

	"github.com/dgraph-io/ristretto/v2"
)

// SnapshotCache 缓存已编码的完整状态消息（RoomState），按 房间+状态版本 索引。
// 同一版本下多个新加入的连接共用一次编码结果。
type SnapshotCache struct {
	c *ristretto.Cache[string, []byte]
}

func NewSnapshotCache(maxBytes int64) (*SnapshotCache, error) {
	c, err := ristretto.NewCache[string, []byte](&ristretto.Config[string, []byte]{
		NumCounters: 10000,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &SnapshotCache{c: c}, nil
}

func snapshotKey(room string, version uint64) string {
	return room + "|" + strconv.FormatUint(version, 10)
}

// Get ok 表示命中
func (s *SnapshotCache) Get(room string, version uint64) ([]byte, bool) {
	if s == nil {
		return nil, false
	}
	return s.c.Get(snapshotKey(room, version))
}

// Put 写入缓存，成本为字节数
func (s *SnapshotCache) Put(room string, version uint64, msg []byte) {
	if s == nil || len(msg) == 0 {
		return
	}
	s.c.Set(snapshotKey(room, version), msg, int64(len(msg)))
	s.c.Wait()
}

func (s *SnapshotCache) Close() {
	if s != nil {
		s.c.Close()
	}
}
