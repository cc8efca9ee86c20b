package wire

import (
	flatbuffers "github.com/google/flatbuffers/go"

	"roomsync/state"
	"roomsync/wire/fb"
)

const initialBufferSize = 1024

// EncodeEntity 将单个实体编码为以 RoomObject 为根的缓冲区
func EncodeEntity(e state.Entity) ([]byte, error) {
	return finish(func(b *flatbuffers.Builder) flatbuffers.UOffsetT {
		return buildEntity(b, e)
	})
}

// DecodeEntity EncodeEntity 的逆操作
func DecodeEntity(buf []byte) (e state.Entity, err error) {
	defer recoverDecode(&err)
	v := verifier{buf: buf}
	pos, err := v.root("room object")
	if err != nil {
		return e, err
	}
	if err := v.roomObject(pos); err != nil {
		return e, err
	}
	return readEntity(fb.GetRootAsRoomObject(buf, 0)), nil
}

// EncodeDiff 将 diff 编码为以 StateUpdate 为根的缓冲区
func EncodeDiff(d state.Diff) ([]byte, error) {
	return finish(func(b *flatbuffers.Builder) flatbuffers.UOffsetT {
		return buildDiff(b, d)
	})
}

// DecodeDiff EncodeDiff 的逆操作；先完整校验再读取，失败时不返回部分结果
func DecodeDiff(buf []byte) (d state.Diff, err error) {
	defer recoverDecode(&err)
	v := verifier{buf: buf}
	pos, err := v.root("state update")
	if err != nil {
		return d, err
	}
	if err := v.stateUpdate(pos); err != nil {
		return d, err
	}
	return readDiff(fb.GetRootAsStateUpdate(buf, 0)), nil
}

// EncodeString 编码独立的 StringData
func EncodeString(s string) ([]byte, error) {
	return finish(func(b *flatbuffers.Builder) flatbuffers.UOffsetT {
		return buildString(b, s)
	})
}

// DecodeString EncodeString 的逆操作
func DecodeString(buf []byte) (s string, err error) {
	defer recoverDecode(&err)
	v := verifier{buf: buf}
	pos, err := v.root("string data")
	if err != nil {
		return "", err
	}
	if err := v.stringData(pos); err != nil {
		return "", err
	}
	return string(fb.GetRootAsStringData(buf, 0).Data()), nil
}

// finish 构建并返回独立的字节切片；builder 的 panic（缓冲区超过 2GB）转为 EncodeError
func finish(build func(b *flatbuffers.Builder) flatbuffers.UOffsetT) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, &EncodeError{Cause: r}
		}
	}()
	b := flatbuffers.NewBuilder(initialBufferSize)
	b.Finish(build(b))
	return b.FinishedBytes(), nil
}

func recoverDecode(err *error) {
	if r := recover(); r != nil {
		*err = &DecodeError{Offset: -1, Reason: "unreadable buffer"}
	}
}

func buildEntity(b *flatbuffers.Builder, e state.Entity) flatbuffers.UOffsetT {
	owner := b.CreateString(e.Owner)
	name := b.CreateString(e.Name)
	prefab := b.CreateString(e.Prefab)
	fb.RoomObjectStart(b)
	fb.RoomObjectAddId(b, int32(e.ID))
	fb.RoomObjectAddPosition(b, fb.CreateVector3(b, e.Position.X, e.Position.Y, e.Position.Z))
	fb.RoomObjectAddLookDirection(b, fb.CreateVector3(b, e.LookDirection.X, e.LookDirection.Y, e.LookDirection.Z))
	fb.RoomObjectAddDisposable(b, e.Disposable)
	fb.RoomObjectAddOwner(b, owner)
	fb.RoomObjectAddName(b, name)
	fb.RoomObjectAddPrefab(b, prefab)
	fb.RoomObjectAddIsHidden(b, e.Hidden)
	return fb.RoomObjectEnd(b)
}

// buildObjectVector 向量自后向前构建，因此逆序写入偏移
func buildObjectVector(b *flatbuffers.Builder, list []state.Entity, start func(*flatbuffers.Builder, int) flatbuffers.UOffsetT) flatbuffers.UOffsetT {
	offsets := make([]flatbuffers.UOffsetT, len(list))
	for i, e := range list {
		offsets[i] = buildEntity(b, e)
	}
	start(b, len(offsets))
	for i := len(offsets) - 1; i >= 0; i-- {
		b.PrependUOffsetT(offsets[i])
	}
	return b.EndVector(len(offsets))
}

func buildDiff(b *flatbuffers.Builder, d state.Diff) flatbuffers.UOffsetT {
	var createVec, updateVec, deleteVec flatbuffers.UOffsetT
	if len(d.Create) > 0 {
		createVec = buildObjectVector(b, d.Create, fb.StateUpdateStartCreateVector)
	}
	if len(d.Update) > 0 {
		updateVec = buildObjectVector(b, d.Update, fb.StateUpdateStartUpdateVector)
	}
	if len(d.Delete) > 0 {
		fb.StateUpdateStartDeleteVector(b, len(d.Delete))
		for i := len(d.Delete) - 1; i >= 0; i-- {
			b.PrependInt32(int32(d.Delete[i]))
		}
		deleteVec = b.EndVector(len(d.Delete))
	}
	fb.StateUpdateStart(b)
	if createVec != 0 {
		fb.StateUpdateAddCreate(b, createVec)
	}
	if updateVec != 0 {
		fb.StateUpdateAddUpdate(b, updateVec)
	}
	if deleteVec != 0 {
		fb.StateUpdateAddDelete(b, deleteVec)
	}
	return fb.StateUpdateEnd(b)
}

func buildString(b *flatbuffers.Builder, s string) flatbuffers.UOffsetT {
	data := b.CreateString(s)
	fb.StringDataStart(b)
	fb.StringDataAddData(b, data)
	return fb.StringDataEnd(b)
}

func buildJoinCreate(b *flatbuffers.Builder, req JoinCreateRequest) flatbuffers.UOffsetT {
	room := b.CreateString(req.RoomName)
	user := b.CreateString(req.UserName)
	userID := b.CreateString(req.UserID)
	device := b.CreateString(req.DeviceType)
	fb.JoinCreateRequestStart(b)
	fb.JoinCreateRequestAddRoomName(b, room)
	fb.JoinCreateRequestAddUserName(b, user)
	fb.JoinCreateRequestAddUserId(b, userID)
	fb.JoinCreateRequestAddDeviceType(b, device)
	return fb.JoinCreateRequestEnd(b)
}

func readVec3(v *fb.Vector3) state.Vec3 {
	if v == nil {
		return state.Vec3{}
	}
	return state.Vec3{X: v.X(), Y: v.Y(), Z: v.Z()}
}

// readEntity 调用前缓冲区必须已通过校验
func readEntity(o *fb.RoomObject) state.Entity {
	var pos, look fb.Vector3
	return state.Entity{
		ID:            state.ID(o.Id()),
		Position:      readVec3(o.Position(&pos)),
		LookDirection: readVec3(o.LookDirection(&look)),
		Owner:         string(o.Owner()),
		Prefab:        string(o.Prefab()),
		Name:          string(o.Name()),
		Disposable:    o.Disposable(),
		Hidden:        o.IsHidden(),
	}
}

func readDiff(u *fb.StateUpdate) state.Diff {
	var d state.Diff
	var obj fb.RoomObject
	if n := u.CreateLength(); n > 0 {
		d.Create = make([]state.Entity, n)
		for i := 0; i < n; i++ {
			u.Create(&obj, i)
			d.Create[i] = readEntity(&obj)
		}
	}
	if n := u.UpdateLength(); n > 0 {
		d.Update = make([]state.Entity, n)
		for i := 0; i < n; i++ {
			u.Update(&obj, i)
			d.Update[i] = readEntity(&obj)
		}
	}
	if n := u.DeleteLength(); n > 0 {
		d.Delete = make([]state.ID, n)
		for i := 0; i < n; i++ {
			d.Delete[i] = state.ID(u.Delete(i))
		}
	}
	return d
}
