package state

// Store 一个房间的可变实体集合
//
// 不加锁：由唯一的 Tick 线程持有并串行访问。
type Store struct {
	mode  Mode
	state RoomState
}

// NewStore 创建空的 Store
func NewStore(mode Mode) *Store {
	return &Store{mode: mode}
}

// Mode 当前的 diff 应用模式
func (s *Store) Mode() Mode { return s.mode }

// SetMode 切换 diff 应用模式（对后续 ApplyDiff 生效）
func (s *Store) SetMode(m Mode) { s.mode = m }

// Len 实体数量
func (s *Store) Len() int { return s.state.Len() }

// Get 按 ID 查询
func (s *Store) Get(id ID) (Entity, bool) { return s.state.Get(id) }

// Upsert 插入或整体替换
func (s *Store) Upsert(e Entity) { s.state.put(e) }

// Remove 删除，返回是否存在
func (s *Store) Remove(id ID) bool { return s.state.remove(id) }

// Snapshot 返回独立副本，供之后 ComputeDiff 使用
func (s *Store) Snapshot() RoomState { return s.state.Clone() }

// Load 用给定状态替换全部内容（恢复持久化快照时使用）
func (s *Store) Load(st RoomState) { s.state = st.Clone() }

// ApplyDiff 先整体校验再原地修改；失败时状态保持不变
func (s *Store) ApplyDiff(d Diff) error {
	if err := check(s.state, d, s.mode); err != nil {
		return err
	}
	mutate(&s.state, d)
	return nil
}
