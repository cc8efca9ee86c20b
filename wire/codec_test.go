package wire

import (
	"encoding/binary"
	"errors"
	"testing"

	flatbuffers "github.com/google/flatbuffers/go"

	"roomsync/state"
	"roomsync/wire/fb"
)

func createdObject() state.Entity {
	return state.Entity{
		ID:            27,
		Owner:         "test",
		Prefab:        "a test thing",
		Position:      state.One,
		LookDirection: state.Forward,
		Disposable:    true,
	}
}

func updatedObject() state.Entity {
	return state.Entity{
		ID:            23,
		Owner:         "test",
		Prefab:        "",
		Name:          "lamp",
		Position:      state.Down,
		LookDirection: state.Back,
		Hidden:        true,
	}
}

func testDiff() state.Diff {
	return state.Diff{
		Create: []state.Entity{createdObject()},
		Update: []state.Entity{updatedObject()},
		Delete: []state.ID{0},
	}
}

func TestEntityRoundTrip(t *testing.T) {
	for _, e := range []state.Entity{createdObject(), updatedObject(), state.New(0), state.New(-4)} {
		buf, err := EncodeEntity(e)
		if err != nil {
			t.Fatalf("encode %d: %v", e.ID, err)
		}
		got, err := DecodeEntity(buf)
		if err != nil {
			t.Fatalf("decode %d: %v", e.ID, err)
		}
		if got != e {
			t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, e)
		}
	}
}

func TestEmptyPrefabIsDistinctFromAbsent(t *testing.T) {
	buf, err := EncodeEntity(updatedObject())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	obj := fb.GetRootAsRoomObject(buf, 0)
	if p := obj.Prefab(); p == nil || len(p) != 0 {
		t.Fatalf("empty prefab should be present on the wire, got %#v", p)
	}

	// 手工构建一个缺少 prefab 的对象
	b := flatbuffers.NewBuilder(64)
	fb.RoomObjectStart(b)
	fb.RoomObjectAddId(b, 9)
	fb.RoomObjectAddPosition(b, fb.CreateVector3(b, 0, 0, 0))
	fb.RoomObjectAddLookDirection(b, fb.CreateVector3(b, 0, 0, 1))
	b.Finish(fb.RoomObjectEnd(b))
	_, err = DecodeEntity(b.FinishedBytes())
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError for missing prefab, got %v", err)
	}
}

func TestDiffRoundTrip(t *testing.T) {
	for _, d := range []state.Diff{testDiff(), {}, {Delete: []state.ID{4, 1, 9}}} {
		buf, err := EncodeDiff(d)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		got, err := DecodeDiff(buf)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !got.Equal(d) {
			t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, d)
		}
	}
}

func TestDiffWireOrderMatchesInput(t *testing.T) {
	d := state.Diff{
		Create: []state.Entity{state.New(3), state.New(1), state.New(2)},
		Delete: []state.ID{7, 5, 6},
	}
	buf, err := EncodeDiff(d)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	su := fb.GetRootAsStateUpdate(buf, 0)
	var obj fb.RoomObject
	for i, want := range []int32{3, 1, 2} {
		su.Create(&obj, i)
		if obj.Id() != want {
			t.Fatalf("create[%d] = %d, want %d", i, obj.Id(), want)
		}
	}
	for i, want := range []int32{7, 5, 6} {
		if got := su.Delete(i); got != want {
			t.Fatalf("delete[%d] = %d, want %d", i, got, want)
		}
	}
}

func TestStringDataRoundTrip(t *testing.T) {
	buf, err := EncodeString("SomeTests")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeString(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != "SomeTests" {
		t.Fatalf("expected SomeTests, got %q", got)
	}
}

func TestDecodeRejectsShortBuffers(t *testing.T) {
	for _, buf := range [][]byte{nil, {1}, {1, 2, 3}} {
		_, err := DecodeDiff(buf)
		var de *DecodeError
		if !errors.As(err, &de) {
			t.Fatalf("expected DecodeError for %v, got %v", buf, err)
		}
		if de.Offset != 0 {
			t.Fatalf("expected offset 0, got %d", de.Offset)
		}
	}
}

func TestDecodeReportsOffsetOfBadRoot(t *testing.T) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf, 1000)
	_, err := DecodeDiff(buf)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if de.Offset != 1000 {
		t.Fatalf("expected offset hint 1000, got %d", de.Offset)
	}
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("DecodeError should match ErrDecode")
	}
}

func TestDecodeDiffTruncatedHalf(t *testing.T) {
	buf, err := EncodeDiff(testDiff())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeDiff(buf[:len(buf)/2]); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected decode error for truncated buffer, got %v", err)
	}
}
