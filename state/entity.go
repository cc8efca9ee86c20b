package state

// ID 实体在房间内的唯一标识，由创建它的一端分配
type ID int32

// Vec3 三维向量（与线上格式一致使用 float32）
type Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// 常用方向，取值与引擎约定一致（Z 轴朝前）
var (
	Zero    = Vec3{}
	One     = Vec3{1, 1, 1}
	Up      = Vec3{0, 1, 0}
	Down    = Vec3{0, -1, 0}
	Forward = Vec3{0, 0, 1}
	Back    = Vec3{0, 0, -1}
)

// Add 向量相加
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Entity 房间内共享的对象
//
// 身份只由 ID 决定，其余字段随 update 整体替换。Go 的 == 比较全部字段；
// 需要按身份比较或作为集合键时显式使用 Key()。
type Entity struct {
	ID            ID     `json:"id"`
	Position      Vec3   `json:"position"`
	LookDirection Vec3   `json:"lookDirection"`
	Owner         string `json:"owner"` // 为空表示无人控制
	Prefab        string `json:"prefab"`
	Name          string `json:"name"`
	Disposable    bool   `json:"disposable"` // 拥有者离开后可被清理
	Hidden        bool   `json:"isHidden"`
}

// New 以给定 ID 创建实体，其余字段取零值
func New(id ID) Entity {
	return Entity{ID: id}
}

// Key 返回身份键
func (e Entity) Key() ID { return e.ID }

// Owned 是否有拥有者
func (e Entity) Owned() bool { return e.Owner != "" }
