package wire

import (
	flatbuffers "github.com/google/flatbuffers/go"

	"roomsync/state"
	"roomsync/wire/fb"
)

// MsgType 消息意图（外层判别字段）
type MsgType int8

const (
	SocketBlip             = MsgType(fb.MsgTypeSocketBlip)
	SocketConnected        = MsgType(fb.MsgTypeSocketConnected)
	SocketCreateOrJoinRoom = MsgType(fb.MsgTypeSocketCreateOrJoinRoom)
	RoomCreated            = MsgType(fb.MsgTypeRoomCreated)
	UserJoined             = MsgType(fb.MsgTypeUserJoined)
	UserLeft               = MsgType(fb.MsgTypeUserLeft)
	RoomState              = MsgType(fb.MsgTypeRoomState)
	RoomStateUpdate        = MsgType(fb.MsgTypeRoomStateUpdate)
	Error                  = MsgType(fb.MsgTypeError)
)

func (t MsgType) String() string { return fb.MsgType(t).String() }

// PayloadKind 载荷形态（union 判别字段）
type PayloadKind uint8

const (
	KindBlip              = PayloadKind(fb.MsgNONE)
	KindStringData        = PayloadKind(fb.MsgStringData)
	KindJoinCreateRequest = PayloadKind(fb.MsgJoinCreateRequest)
	KindStateUpdate       = PayloadKind(fb.MsgStateUpdate)
)

func (k PayloadKind) String() string {
	if k == KindBlip {
		return "Blip"
	}
	return fb.Msg(k).String()
}

// 每种意图允许的载荷形态。StringData 与 StateUpdate 被多个意图复用，
// 因此两个判别字段不能合并。
var allowedPayloads = map[MsgType][]PayloadKind{
	SocketBlip:             {KindBlip},
	SocketConnected:        {KindStringData},
	SocketCreateOrJoinRoom: {KindStringData, KindJoinCreateRequest},
	RoomCreated:            {KindStringData},
	UserJoined:             {KindStringData},
	UserLeft:               {KindStringData},
	RoomState:              {KindStateUpdate},
	RoomStateUpdate:        {KindStateUpdate},
	Error:                  {KindStringData},
}

// Supported 判断类型组合是否合法
func Supported(t MsgType, k PayloadKind) bool {
	for _, allowed := range allowedPayloads[t] {
		if allowed == k {
			return true
		}
	}
	return false
}

// Payload 消息载荷，取值为 Blip / StringData / JoinCreateRequest / StateUpdate 之一
type Payload interface {
	Kind() PayloadKind
}

// Blip 心跳，无内容
type Blip struct{}

// StringData 单个字符串
type StringData struct {
	Data string
}

// JoinCreateRequest 加入或创建房间
type JoinCreateRequest struct {
	RoomName   string
	UserName   string
	UserID     string
	DeviceType string
}

// StateUpdate 携带一个 diff
type StateUpdate struct {
	Diff state.Diff
}

func (Blip) Kind() PayloadKind              { return KindBlip }
func (StringData) Kind() PayloadKind        { return KindStringData }
func (JoinCreateRequest) Kind() PayloadKind { return KindJoinCreateRequest }
func (StateUpdate) Kind() PayloadKind       { return KindStateUpdate }

// Envelope 线上消息：一个意图 + 恰好一个载荷
type Envelope struct {
	Type    MsgType
	Payload Payload // nil 等同于 Blip
}

func kindOf(p Payload) PayloadKind {
	if p == nil {
		return KindBlip
	}
	return p.Kind()
}

// Equal 结构相等；StateUpdate 按 Diff.Equal 比较
func (e Envelope) Equal(o Envelope) bool {
	if e.Type != o.Type || kindOf(e.Payload) != kindOf(o.Payload) {
		return false
	}
	switch p := e.Payload.(type) {
	case StateUpdate:
		op, ok := o.Payload.(StateUpdate)
		return ok && p.Diff.Equal(op.Diff)
	case nil, Blip:
		return true
	default:
		return e.Payload == o.Payload
	}
}

// BuildBlip 心跳消息
func BuildBlip() ([]byte, error) {
	return Encode(Envelope{Type: SocketBlip, Payload: Blip{}})
}

// BuildString 以 StringData 为载荷的消息（连接、房间、用户进出、错误等）
func BuildString(t MsgType, s string) ([]byte, error) {
	return Encode(Envelope{Type: t, Payload: StringData{Data: s}})
}

// BuildJoinCreate 加入/创建房间请求
func BuildJoinCreate(req JoinCreateRequest) ([]byte, error) {
	return Encode(Envelope{Type: SocketCreateOrJoinRoom, Payload: req})
}

// BuildStateUpdate 增量 diff 消息
func BuildStateUpdate(d state.Diff) ([]byte, error) {
	return Encode(Envelope{Type: RoomStateUpdate, Payload: StateUpdate{Diff: d}})
}

// BuildRoomState 完整状态消息：全部实体作为 create
func BuildRoomState(st state.RoomState) ([]byte, error) {
	return Encode(Envelope{Type: RoomState, Payload: StateUpdate{Diff: state.Diff{Create: st.Entities()}}})
}

// Encode 编码任意受支持的组合
func Encode(env Envelope) ([]byte, error) {
	kind := kindOf(env.Payload)
	switch env.Payload.(type) {
	case nil, Blip, StringData, JoinCreateRequest, StateUpdate:
	default:
		// 指针等其他实现无法编码
		return nil, &UnsupportedCombinationError{Type: env.Type, Payload: kind}
	}
	if !Supported(env.Type, kind) {
		return nil, &UnsupportedCombinationError{Type: env.Type, Payload: kind}
	}
	return finish(func(b *flatbuffers.Builder) flatbuffers.UOffsetT {
		var data flatbuffers.UOffsetT
		switch p := env.Payload.(type) {
		case StringData:
			data = buildString(b, p.Data)
		case JoinCreateRequest:
			data = buildJoinCreate(b, p)
		case StateUpdate:
			data = buildDiff(b, p.Diff)
		}
		fb.ServerMessageStart(b)
		fb.ServerMessageAddType(b, fb.MsgType(env.Type))
		if data != 0 {
			fb.ServerMessageAddDataType(b, fb.Msg(kind))
			fb.ServerMessageAddData(b, data)
		}
		return fb.ServerMessageEnd(b)
	})
}

// Decode 校验并解析消息；组合不受支持时返回 UnsupportedCombinationError
func Decode(buf []byte) (env Envelope, err error) {
	defer recoverDecode(&err)
	v := verifier{buf: buf}
	t, mt, kind, err := v.message()
	if err != nil {
		return env, err
	}
	if !Supported(mt, kind) {
		return env, &UnsupportedCombinationError{Type: mt, Payload: kind}
	}
	if err := v.payload(t, kind); err != nil {
		return env, err
	}

	msg := fb.GetRootAsServerMessage(buf, 0)
	env.Type = MsgType(msg.Type())
	var tab flatbuffers.Table
	if kind != KindBlip {
		msg.Data(&tab)
	}
	switch kind {
	case KindBlip:
		env.Payload = Blip{}
	case KindStringData:
		var sd fb.StringData
		sd.Init(tab.Bytes, tab.Pos)
		env.Payload = StringData{Data: string(sd.Data())}
	case KindJoinCreateRequest:
		var req fb.JoinCreateRequest
		req.Init(tab.Bytes, tab.Pos)
		env.Payload = JoinCreateRequest{
			RoomName:   string(req.RoomName()),
			UserName:   string(req.UserName()),
			UserID:     string(req.UserId()),
			DeviceType: string(req.DeviceType()),
		}
	case KindStateUpdate:
		var su fb.StateUpdate
		su.Init(tab.Bytes, tab.Pos)
		env.Payload = StateUpdate{Diff: readDiff(&su)}
	}
	return env, nil
}
