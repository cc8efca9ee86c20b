package state

// RoomState 房间内实体集合：ID -> Entity，保留插入顺序以便 diff 结果可复现
//
// 零值可直接使用。作为值传递时与原值共享底层数据，需要独立副本时调用 Clone。
type RoomState struct {
	order []ID
	byID  map[ID]Entity
}

// NewRoomState 按给定顺序构建状态，重复 ID 以后出现者为准（位置保持首次出现处）
func NewRoomState(entities ...Entity) RoomState {
	var s RoomState
	for _, e := range entities {
		s.put(e)
	}
	return s
}

// Len 实体数量
func (s RoomState) Len() int { return len(s.order) }

// Get 按 ID 查询
func (s RoomState) Get(id ID) (Entity, bool) {
	e, ok := s.byID[id]
	return e, ok
}

// Has 是否包含该 ID
func (s RoomState) Has(id ID) bool {
	_, ok := s.byID[id]
	return ok
}

// IDs 按插入顺序返回全部 ID（副本）
func (s RoomState) IDs() []ID {
	out := make([]ID, len(s.order))
	copy(out, s.order)
	return out
}

// Entities 按插入顺序返回全部实体（副本）
func (s RoomState) Entities() []Entity {
	out := make([]Entity, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Clone 深拷贝
func (s RoomState) Clone() RoomState {
	c := RoomState{
		order: make([]ID, len(s.order)),
		byID:  make(map[ID]Entity, len(s.byID)),
	}
	copy(c.order, s.order)
	for id, e := range s.byID {
		c.byID[id] = e
	}
	return c
}

// Equal 两个状态包含相同的 ID 集合，且每个 ID 的全部字段相同（不比较顺序）
func (s RoomState) Equal(o RoomState) bool {
	if len(s.byID) != len(o.byID) {
		return false
	}
	for id, e := range s.byID {
		oe, ok := o.byID[id]
		if !ok || oe != e {
			return false
		}
	}
	return true
}

// put 插入或整体替换；已存在的 ID 保持原位置
func (s *RoomState) put(e Entity) {
	if s.byID == nil {
		s.byID = make(map[ID]Entity)
	}
	if _, ok := s.byID[e.ID]; !ok {
		s.order = append(s.order, e.ID)
	}
	s.byID[e.ID] = e
}

// remove 删除，返回是否存在
func (s *RoomState) remove(id ID) bool {
	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}
