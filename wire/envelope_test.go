package wire

import (
	"errors"
	"math/rand"
	"testing"

	"roomsync/state"
	"roomsync/wire/fb"
)

func supportedEnvelopes() []Envelope {
	return []Envelope{
		{Type: SocketBlip, Payload: Blip{}},
		{Type: SocketConnected, Payload: StringData{Data: "sid-1"}},
		{Type: SocketCreateOrJoinRoom, Payload: StringData{Data: "TestString"}},
		{Type: SocketCreateOrJoinRoom, Payload: JoinCreateRequest{
			RoomName: "lobby", UserName: "alice", UserID: "u-1", DeviceType: "hololens",
		}},
		{Type: RoomCreated, Payload: StringData{Data: "lobby"}},
		{Type: UserJoined, Payload: StringData{Data: "alice"}},
		{Type: UserLeft, Payload: StringData{Data: ""}},
		{Type: RoomState, Payload: StateUpdate{Diff: state.Diff{Create: []state.Entity{createdObject()}}}},
		{Type: RoomStateUpdate, Payload: StateUpdate{Diff: testDiff()}},
		{Type: Error, Payload: StringData{Data: "diff conflict"}},
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	for _, env := range supportedEnvelopes() {
		buf, err := Encode(env)
		if err != nil {
			t.Fatalf("%s/%s encode: %v", env.Type, kindOf(env.Payload), err)
		}
		got, err := Decode(buf)
		if err != nil {
			t.Fatalf("%s/%s decode: %v", env.Type, kindOf(env.Payload), err)
		}
		if !got.Equal(env) {
			t.Fatalf("%s round trip mismatch:\n got %+v\nwant %+v", env.Type, got, env)
		}
	}
}

func TestBuildersMatchEnvelopes(t *testing.T) {
	buf, err := BuildString(SocketCreateOrJoinRoom, "TestString")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	env, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	sd, ok := env.Payload.(StringData)
	if !ok || sd.Data != "TestString" || env.Type != SocketCreateOrJoinRoom {
		t.Fatalf("unexpected envelope %+v", env)
	}

	buf, err = BuildStateUpdate(testDiff())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	env, err = Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	su, ok := env.Payload.(StateUpdate)
	if !ok || env.Type != RoomStateUpdate || !su.Diff.Equal(testDiff()) {
		t.Fatalf("unexpected envelope %+v", env)
	}

	buf, err = BuildRoomState(state.NewRoomState(createdObject(), updatedObject()))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	env, err = Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if su, ok := env.Payload.(StateUpdate); !ok || env.Type != RoomState || len(su.Diff.Create) != 2 {
		t.Fatalf("unexpected full state envelope %+v", env)
	}

	buf, err = BuildBlip()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if env, err = Decode(buf); err != nil || env.Type != SocketBlip {
		t.Fatalf("blip decode: %+v %v", env, err)
	}

	req := JoinCreateRequest{RoomName: "r", UserName: "u", UserID: "1", DeviceType: "pc"}
	buf, err = BuildJoinCreate(req)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if env, err = Decode(buf); err != nil || env.Payload != Payload(req) {
		t.Fatalf("join decode: %+v %v", env, err)
	}
}

func TestUnsupportedCombination(t *testing.T) {
	cases := []Envelope{
		{Type: RoomStateUpdate, Payload: StringData{Data: "x"}},
		{Type: SocketBlip, Payload: StringData{Data: "x"}},
		{Type: UserJoined, Payload: Blip{}},
		{Type: MsgType(42), Payload: Blip{}},
		{Type: RoomStateUpdate, Payload: &StateUpdate{}},
	}
	for _, env := range cases {
		buf, err := Encode(env)
		if !errors.Is(err, ErrUnsupportedCombination) {
			t.Fatalf("%v: expected ErrUnsupportedCombination, got %v", env, err)
		}
		if buf != nil {
			t.Fatalf("%v: expected no bytes, got %d", env, len(buf))
		}
	}
	if _, err := BuildString(RoomStateUpdate, "x"); !errors.Is(err, ErrUnsupportedCombination) {
		t.Fatalf("BuildString with a diff message type should fail, got %v", err)
	}
}

func TestDecodeRejectsUnsupportedCombination(t *testing.T) {
	buf, err := BuildString(UserJoined, "alice")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	msg := append([]byte(nil), buf...)
	// 把消息类型改成 RoomStateUpdate，载荷仍是 StringData
	root := fb.GetRootAsServerMessage(msg, 0)
	if !root.MutateType(fb.MsgTypeRoomStateUpdate) {
		t.Fatalf("type field should be present")
	}
	_, err = Decode(msg)
	var uc *UnsupportedCombinationError
	if !errors.As(err, &uc) || uc.Type != RoomStateUpdate || uc.Payload != KindStringData {
		t.Fatalf("expected unsupported combination, got %v", err)
	}
}

func TestDecodeNeverPanics(t *testing.T) {
	for _, env := range supportedEnvelopes() {
		buf, err := Encode(env)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		for n := 0; n < len(buf); n++ {
			got, err := Decode(buf[:n])
			if err == nil && !got.Equal(env) {
				t.Fatalf("%s: prefix %d decoded to a different envelope %+v", env.Type, n, got)
			}
		}
		for i := range buf {
			corrupt := append([]byte(nil), buf...)
			corrupt[i] ^= 0xff
			_, _ = Decode(corrupt)
		}
	}
}

// 随机改写若干字节后，DecodeError 的位置必须落在缓冲区内；只有恢复的 panic 报 -1
func TestDecodeErrorOffsetsStayInBuffer(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, env := range supportedEnvelopes() {
		buf, err := Encode(env)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		for i := 0; i < 5000; i++ {
			corrupt := append([]byte(nil), buf...)
			for k := rng.Intn(4) + 1; k > 0; k-- {
				corrupt[rng.Intn(len(corrupt))] = byte(rng.Intn(256))
			}
			_, err := Decode(corrupt)
			var de *DecodeError
			if !errors.As(err, &de) {
				continue
			}
			if de.Offset == -1 {
				t.Fatalf("%s: decoder panicked on %x: %s", env.Type, corrupt, de.Reason)
			}
			if de.Offset < 0 {
				t.Fatalf("%s: negative offset %d (%s)", env.Type, de.Offset, de.Reason)
			}
		}
	}
}

func TestDecodeTruncatedStateUpdate(t *testing.T) {
	buf, err := BuildStateUpdate(testDiff())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	_, err = Decode(buf[:len(buf)/2])
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if de.Offset < 0 {
		t.Fatalf("expected a byte offset hint, got %d", de.Offset)
	}
}
