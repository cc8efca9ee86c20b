package wire

import (
	"encoding/binary"
	"fmt"
)

// verifier 在交给 fb 访问器之前检查缓冲区内所有偏移都落在范围内，
// 访问器本身不做边界检查，越界会直接 panic。
// 偏移计算统一使用 int64，避免 uint32 相加溢出。
type verifier struct {
	buf []byte
}

type tableInfo struct {
	pos   int64
	vt    int64
	vtLen int64
	size  int64
}

// 各表字段在 vtable 中的位置，与 schema/roomsync.fbs 保持一致
const (
	slotObjectID            = 4
	slotObjectPosition      = 6
	slotObjectLookDirection = 8
	slotObjectDisposable    = 10
	slotObjectOwner         = 12
	slotObjectName          = 14
	slotObjectPrefab        = 16
	slotObjectIsHidden      = 18

	slotUpdateCreate = 4
	slotUpdateUpdate = 6
	slotUpdateDelete = 8

	slotStringData = 4

	slotJoinRoomName   = 4
	slotJoinUserName   = 6
	slotJoinUserID     = 8
	slotJoinDeviceType = 10

	slotMessageType     = 4
	slotMessageDataType = 6
	slotMessageData     = 8

	vector3Size = 12
)

func (v *verifier) fail(off int64, format string, args ...any) error {
	return &DecodeError{Offset: int(off), Reason: fmt.Sprintf(format, args...)}
}

func (v *verifier) need(off, n int64, what string) error {
	if off < 0 || n < 0 || off+n > int64(len(v.buf)) {
		return v.fail(max(off, 0), "%s out of bounds (%d bytes needed, buffer is %d)", what, n, len(v.buf))
	}
	return nil
}

func (v *verifier) u16(off int64) int64 { return int64(binary.LittleEndian.Uint16(v.buf[off:])) }
func (v *verifier) u32(off int64) int64 { return int64(binary.LittleEndian.Uint32(v.buf[off:])) }
func (v *verifier) i32(off int64) int64 { return int64(int32(binary.LittleEndian.Uint32(v.buf[off:]))) }

func (v *verifier) root(what string) (int64, error) {
	if err := v.need(0, 4, what+" root offset"); err != nil {
		return 0, err
	}
	return v.u32(0), nil
}

func (v *verifier) table(pos int64, what string) (tableInfo, error) {
	if err := v.need(pos, 4, what); err != nil {
		return tableInfo{}, err
	}
	// vtable 偏移越界时报告存放该偏移的表位置
	vt := pos - v.i32(pos)
	if vt < 0 || vt+4 > int64(len(v.buf)) {
		return tableInfo{}, v.fail(pos, "%s vtable offset %d out of bounds (buffer is %d)", what, v.i32(pos), len(v.buf))
	}
	t := tableInfo{pos: pos, vt: vt, vtLen: v.u16(vt), size: v.u16(vt + 2)}
	if t.vtLen < 4 || t.vtLen%2 != 0 {
		return tableInfo{}, v.fail(vt, "%s vtable has invalid size %d", what, t.vtLen)
	}
	if err := v.need(vt, t.vtLen, what+" vtable"); err != nil {
		return tableInfo{}, err
	}
	if t.size < 4 {
		return tableInfo{}, v.fail(vt+2, "%s has invalid inline size %d", what, t.size)
	}
	if err := v.need(pos, t.size, what); err != nil {
		return tableInfo{}, err
	}
	return t, nil
}

// field 返回字段的绝对位置，字段缺省时返回 0
func (v *verifier) field(t tableInfo, slot, size int64, what string) (int64, error) {
	if slot+2 > t.vtLen {
		return 0, nil
	}
	fo := v.u16(t.vt + slot)
	if fo == 0 {
		return 0, nil
	}
	if fo+size > t.size {
		return 0, v.fail(t.pos+fo, "%s lies outside its table", what)
	}
	return t.pos + fo, nil
}

func (v *verifier) ref(p int64, what string) (int64, error) {
	if err := v.need(p, 4, what+" offset"); err != nil {
		return 0, err
	}
	return p + v.u32(p), nil
}

// str 校验字符串字段（含结尾的 0 字节），返回是否存在
func (v *verifier) str(t tableInfo, slot int64, what string) (bool, error) {
	p, err := v.field(t, slot, 4, what)
	if err != nil || p == 0 {
		return false, err
	}
	s, err := v.ref(p, what)
	if err != nil {
		return false, err
	}
	if err := v.need(s, 4, what+" length"); err != nil {
		return false, err
	}
	n := v.u32(s)
	if err := v.need(s+4, n+1, what); err != nil {
		return false, err
	}
	return true, nil
}

// vector 校验向量字段，返回首元素位置与长度；缺省时长度为 0
func (v *verifier) vector(t tableInfo, slot, elemSize int64, what string) (int64, int64, error) {
	p, err := v.field(t, slot, 4, what)
	if err != nil || p == 0 {
		return 0, 0, err
	}
	s, err := v.ref(p, what)
	if err != nil {
		return 0, 0, err
	}
	if err := v.need(s, 4, what+" length"); err != nil {
		return 0, 0, err
	}
	n := v.u32(s)
	if err := v.need(s+4, n*elemSize, what); err != nil {
		return 0, 0, err
	}
	return s + 4, n, nil
}

func (v *verifier) roomObject(pos int64) error {
	t, err := v.table(pos, "room object")
	if err != nil {
		return err
	}
	if _, err := v.field(t, slotObjectID, 4, "id"); err != nil {
		return err
	}
	for _, f := range []struct {
		slot int64
		name string
	}{{slotObjectPosition, "position"}, {slotObjectLookDirection, "lookDirection"}} {
		p, err := v.field(t, f.slot, vector3Size, f.name)
		if err != nil {
			return err
		}
		if p == 0 {
			return v.fail(pos, "room object is missing %s", f.name)
		}
	}
	if _, err := v.field(t, slotObjectDisposable, 1, "disposable"); err != nil {
		return err
	}
	if _, err := v.field(t, slotObjectIsHidden, 1, "isHidden"); err != nil {
		return err
	}
	if _, err := v.str(t, slotObjectOwner, "owner"); err != nil {
		return err
	}
	if _, err := v.str(t, slotObjectName, "name"); err != nil {
		return err
	}
	ok, err := v.str(t, slotObjectPrefab, "prefab")
	if err != nil {
		return err
	}
	if !ok {
		// 空字符串合法，但字段缺失不合法
		return v.fail(pos, "room object is missing prefab")
	}
	return nil
}

func (v *verifier) stateUpdate(pos int64) error {
	t, err := v.table(pos, "state update")
	if err != nil {
		return err
	}
	for _, slot := range []int64{slotUpdateCreate, slotUpdateUpdate} {
		start, n, err := v.vector(t, slot, 4, "object list")
		if err != nil {
			return err
		}
		for i := int64(0); i < n; i++ {
			obj, err := v.ref(start+i*4, "room object")
			if err != nil {
				return err
			}
			if err := v.roomObject(obj); err != nil {
				return err
			}
		}
	}
	_, _, err = v.vector(t, slotUpdateDelete, 4, "delete list")
	return err
}

func (v *verifier) stringData(pos int64) error {
	t, err := v.table(pos, "string data")
	if err != nil {
		return err
	}
	_, err = v.str(t, slotStringData, "string data")
	return err
}

func (v *verifier) joinCreate(pos int64) error {
	t, err := v.table(pos, "join request")
	if err != nil {
		return err
	}
	for _, slot := range []int64{slotJoinRoomName, slotJoinUserName, slotJoinUserID, slotJoinDeviceType} {
		if _, err := v.str(t, slot, "join request field"); err != nil {
			return err
		}
	}
	return nil
}

// message 校验消息头并读出两个判别字段；载荷由调用方按类型继续校验
func (v *verifier) message() (tableInfo, MsgType, PayloadKind, error) {
	pos, err := v.root("message")
	if err != nil {
		return tableInfo{}, 0, 0, err
	}
	t, err := v.table(pos, "message")
	if err != nil {
		return tableInfo{}, 0, 0, err
	}
	var mt MsgType
	p, err := v.field(t, slotMessageType, 1, "message type")
	if err != nil {
		return tableInfo{}, 0, 0, err
	}
	if p != 0 {
		mt = MsgType(int8(v.buf[p]))
	}
	var kind PayloadKind
	p, err = v.field(t, slotMessageDataType, 1, "payload type")
	if err != nil {
		return tableInfo{}, 0, 0, err
	}
	if p != 0 {
		kind = PayloadKind(v.buf[p])
	}
	return t, mt, kind, nil
}

func (v *verifier) payload(t tableInfo, kind PayloadKind) error {
	p, err := v.field(t, slotMessageData, 4, "payload")
	if err != nil {
		return err
	}
	if kind == KindBlip {
		if p != 0 {
			return v.fail(p, "blip message carries a payload")
		}
		return nil
	}
	if p == 0 {
		return v.fail(t.pos, "%s payload is missing", kind)
	}
	pos, err := v.ref(p, "payload")
	if err != nil {
		return err
	}
	switch kind {
	case KindStringData:
		return v.stringData(pos)
	case KindJoinCreateRequest:
		return v.joinCreate(pos)
	case KindStateUpdate:
		return v.stateUpdate(pos)
	}
	return v.fail(p, "unknown payload kind %d", kind)
}
