package state

// Diff 把一个 RoomState 变换为另一个所需的 create/update/delete
//
// update 携带完整实体，整体替换同 ID 的旧值，不做字段级合并。
type Diff struct {
	Create []Entity `json:"create,omitempty"`
	Update []Entity `json:"update,omitempty"`
	Delete []ID     `json:"delete,omitempty"`
}

// Mode 应用 diff 时对未知 ID 的处理方式
type Mode int

const (
	// Lenient 未知 ID 的 update 视为插入，未知 ID 的 delete 忽略
	Lenient Mode = iota
	// Strict 未知 ID 的 update/delete 均视为冲突
	Strict
)

func (m Mode) String() string {
	if m == Strict {
		return "strict"
	}
	return "lenient"
}

// AddCreate 追加一个新建实体
func (d *Diff) AddCreate(e Entity) {
	d.Create = append(d.Create, e)
}

// AddUpdate 追加更新；同一 ID 已在 update 中时原位替换
func (d *Diff) AddUpdate(e Entity) {
	for i := range d.Update {
		if d.Update[i].ID == e.ID {
			d.Update[i] = e
			return
		}
	}
	d.Update = append(d.Update, e)
}

// AddDelete 追加删除；delete 是集合，重复 ID 忽略
func (d *Diff) AddDelete(id ID) {
	for _, x := range d.Delete {
		if x == id {
			return
		}
	}
	d.Delete = append(d.Delete, id)
}

// Empty 是否没有任何变更
func (d Diff) Empty() bool { return d.Len() == 0 }

// Len 变更条目总数
func (d Diff) Len() int { return len(d.Create) + len(d.Update) + len(d.Delete) }

// Equal 逐项比较（顺序敏感），nil 与空切片视为相同
func (d Diff) Equal(o Diff) bool {
	if len(d.Create) != len(o.Create) || len(d.Update) != len(o.Update) || len(d.Delete) != len(o.Delete) {
		return false
	}
	for i := range d.Create {
		if d.Create[i] != o.Create[i] {
			return false
		}
	}
	for i := range d.Update {
		if d.Update[i] != o.Update[i] {
			return false
		}
	}
	for i := range d.Delete {
		if d.Delete[i] != o.Delete[i] {
			return false
		}
	}
	return true
}

// Validate 检查 diff 自身的一致性（不依赖任何状态）：
// create 内重复、update 内重复、同一 ID 同时出现在 create 与 update、
// 或同时出现在 update 与 delete，均为冲突。delete+create 同一 ID 表示重建，允许。
func (d Diff) Validate() error {
	created := make(map[ID]struct{}, len(d.Create))
	for _, e := range d.Create {
		if _, dup := created[e.ID]; dup {
			return conflict("create", e.ID, "repeated in create")
		}
		created[e.ID] = struct{}{}
	}
	deleted := make(map[ID]struct{}, len(d.Delete))
	for _, id := range d.Delete {
		deleted[id] = struct{}{}
	}
	updated := make(map[ID]struct{}, len(d.Update))
	for _, e := range d.Update {
		if _, dup := updated[e.ID]; dup {
			return conflict("update", e.ID, "repeated in update")
		}
		if _, ok := created[e.ID]; ok {
			return conflict("update", e.ID, "present in both create and update")
		}
		if _, ok := deleted[e.ID]; ok {
			return conflict("update", e.ID, "present in both update and delete")
		}
		updated[e.ID] = struct{}{}
	}
	return nil
}

// ComputeDiff 比较两个快照：current 有而 previous 没有的为 create，
// 两者都有但字段不同的为 update（携带 current 中的完整实体），
// previous 有而 current 没有的为 delete。
// create/update 按 current 的顺序，delete 按 previous 的顺序。
func ComputeDiff(previous, current RoomState) Diff {
	var d Diff
	for _, id := range current.order {
		cur := current.byID[id]
		prev, ok := previous.byID[id]
		switch {
		case !ok:
			d.Create = append(d.Create, cur)
		case prev != cur:
			d.Update = append(d.Update, cur)
		}
	}
	for _, id := range previous.order {
		if !current.Has(id) {
			d.Delete = append(d.Delete, id)
		}
	}
	return d
}

// Apply 将 diff 应用到 st 的副本上并返回新状态，st 本身不变。
// 顺序固定为 delete -> create -> update；任何一项冲突则整批拒绝。
func Apply(st RoomState, d Diff, mode Mode) (RoomState, error) {
	if err := check(st, d, mode); err != nil {
		return st, err
	}
	next := st.Clone()
	mutate(&next, d)
	return next, nil
}

// check 在不修改状态的前提下确认整批 diff 可以应用
func check(st RoomState, d Diff, mode Mode) error {
	if err := d.Validate(); err != nil {
		return err
	}
	deleted := make(map[ID]struct{}, len(d.Delete))
	for _, id := range d.Delete {
		if !st.Has(id) {
			if mode == Strict {
				return conflict("delete", id, "unknown id")
			}
			continue
		}
		deleted[id] = struct{}{}
	}
	for _, e := range d.Create {
		if _, gone := deleted[e.ID]; st.Has(e.ID) && !gone {
			return conflict("create", e.ID, "id already present")
		}
	}
	if mode == Strict {
		// update 与 create/delete 不相交（Validate 已保证），只需看原状态
		for _, e := range d.Update {
			if !st.Has(e.ID) {
				return conflict("update", e.ID, "unknown id")
			}
		}
	}
	return nil
}

func mutate(st *RoomState, d Diff) {
	for _, id := range d.Delete {
		st.remove(id)
	}
	for _, e := range d.Create {
		st.put(e)
	}
	for _, e := range d.Update {
		st.put(e)
	}
}
