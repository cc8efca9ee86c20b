package server

import (
	"os"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"roomsync/persist"
	"roomsync/state"
	"roomsync/wire"
)

type fakeConn struct {
	mu     sync.Mutex
	msgs   [][]byte
	closed bool
	full   bool
}

func (c *fakeConn) Enqueue(b []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.full {
		return false
	}
	c.msgs = append(c.msgs, append([]byte(nil), b...))
	return true
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// take 解码并清空已收到的消息
func (c *fakeConn) take(t *testing.T) []wire.Envelope {
	t.Helper()
	c.mu.Lock()
	msgs := c.msgs
	c.msgs = nil
	c.mu.Unlock()
	out := make([]wire.Envelope, 0, len(msgs))
	for _, b := range msgs {
		env, err := wire.Decode(b)
		if err != nil {
			t.Fatalf("peer received undecodable message: %v", err)
		}
		out = append(out, env)
	}
	return out
}

func newTestRoom(t *testing.T, opts RoomOptions) *Room {
	t.Helper()
	SetLogger(zaptest.NewLogger(t).Sugar())
	t.Cleanup(func() { SetLogger(nil) })
	r, err := NewRoom("test", opts, nil)
	if err != nil {
		t.Fatalf("new room: %v", err)
	}
	t.Cleanup(func() {
		if err := r.Stop(); err != nil {
			t.Errorf("stop: %v", err)
		}
	})
	return r
}

func joinPeer(t *testing.T, r *Room, id, user string) *fakeConn {
	t.Helper()
	c := &fakeConn{}
	if err := r.Join(&Peer{ID: PeerID(id), UserName: user, UserID: "u-" + id, Conn: c}); err != nil {
		t.Fatalf("join: %v", err)
	}
	return c
}

func diffOf(t *testing.T, env wire.Envelope, want wire.MsgType) state.Diff {
	t.Helper()
	if env.Type != want {
		t.Fatalf("expected %s, got %s", want, env.Type)
	}
	su, ok := env.Payload.(wire.StateUpdate)
	if !ok {
		t.Fatalf("expected StateUpdate payload, got %T", env.Payload)
	}
	return su.Diff
}

func stringOf(t *testing.T, env wire.Envelope, want wire.MsgType) string {
	t.Helper()
	if env.Type != want {
		t.Fatalf("expected %s, got %s", want, env.Type)
	}
	sd, ok := env.Payload.(wire.StringData)
	if !ok {
		t.Fatalf("expected StringData payload, got %T", env.Payload)
	}
	return sd.Data
}

func cube(id state.ID, owner string) state.Entity {
	e := state.New(id)
	e.Owner = owner
	e.Prefab = "cube"
	e.Position = state.One
	e.LookDirection = state.Forward
	return e
}

func TestJoinReceivesFullState(t *testing.T) {
	r := newTestRoom(t, RoomOptions{})
	r.store.Upsert(cube(1, ""))
	r.Step()

	a := joinPeer(t, r, "a", "alice")
	r.Step()
	msgs := a.take(t)
	if len(msgs) != 1 {
		t.Fatalf("expected only the full state, got %d messages", len(msgs))
	}
	d := diffOf(t, msgs[0], wire.RoomState)
	if !d.Equal(state.Diff{Create: []state.Entity{cube(1, "")}}) {
		t.Fatalf("unexpected full state %+v", d)
	}

	b := joinPeer(t, r, "b", "bob")
	r.Step()
	if got := stringOf(t, a.take(t)[0], wire.UserJoined); got != "bob" {
		t.Fatalf("expected bob joined, got %q", got)
	}
	if msgs := b.take(t); len(msgs) != 1 || msgs[0].Type != wire.RoomState {
		t.Fatalf("bob should receive the full state, got %+v", msgs)
	}
	if r.PeerCount() != 2 {
		t.Fatalf("expected 2 peers, got %d", r.PeerCount())
	}
}

func TestDiffRelayedWithoutEcho(t *testing.T) {
	r := newTestRoom(t, RoomOptions{})
	a := joinPeer(t, r, "a", "alice")
	b := joinPeer(t, r, "b", "bob")
	r.Step()
	a.take(t)
	b.take(t)

	created := state.Diff{Create: []state.Entity{cube(5, "u-a")}}
	if !r.Submit(Inbound{PeerID: "a", Diff: created}) {
		t.Fatalf("submit should be accepted")
	}
	r.Step()
	if msgs := a.take(t); len(msgs) != 0 {
		t.Fatalf("submitter should not get its own diff back, got %+v", msgs)
	}
	msgs := b.take(t)
	if len(msgs) != 1 || !diffOf(t, msgs[0], wire.RoomStateUpdate).Equal(created) {
		t.Fatalf("bob should receive the create, got %+v", msgs)
	}

	moved := cube(5, "u-a")
	moved.Position = state.Up
	r.Submit(Inbound{PeerID: "b", Diff: state.Diff{Update: []state.Entity{moved}}})
	r.Step()
	if msgs := b.take(t); len(msgs) != 0 {
		t.Fatalf("submitter should not get its own update back, got %+v", msgs)
	}
	msgs = a.take(t)
	if len(msgs) != 1 || !diffOf(t, msgs[0], wire.RoomStateUpdate).Equal(state.Diff{Update: []state.Entity{moved}}) {
		t.Fatalf("alice should receive the update, got %+v", msgs)
	}

	// 同一 Tick 内两个连接的改动合并后分别下发对方那一部分
	r.Submit(Inbound{PeerID: "a", Diff: state.Diff{Create: []state.Entity{cube(6, "u-a")}}})
	r.Submit(Inbound{PeerID: "b", Diff: state.Diff{Delete: []state.ID{5}}})
	r.Step()
	if msgs := a.take(t); len(msgs) != 1 || !diffOf(t, msgs[0], wire.RoomStateUpdate).Equal(state.Diff{Delete: []state.ID{5}}) {
		t.Fatalf("alice should only see bob's delete, got %+v", msgs)
	}
	if msgs := b.take(t); len(msgs) != 1 || !diffOf(t, msgs[0], wire.RoomStateUpdate).Equal(state.Diff{Create: []state.Entity{cube(6, "u-a")}}) {
		t.Fatalf("bob should only see alice's create, got %+v", msgs)
	}
	if got := r.State(); got.Len() != 1 || !got.Has(6) {
		t.Fatalf("unexpected published state %+v", got.Entities())
	}
}

func TestRejectedDiffSendsError(t *testing.T) {
	r := newTestRoom(t, RoomOptions{})
	a := joinPeer(t, r, "a", "alice")
	r.Submit(Inbound{PeerID: "a", Diff: state.Diff{Create: []state.Entity{cube(5, "")}}})
	r.Step()
	a.take(t)

	r.Submit(Inbound{PeerID: "a", Diff: state.Diff{Create: []state.Entity{cube(5, "")}}})
	r.Step()
	msgs := a.take(t)
	if len(msgs) != 1 {
		t.Fatalf("expected one error message, got %+v", msgs)
	}
	if got := stringOf(t, msgs[0], wire.Error); !strings.Contains(got, "diff conflict") {
		t.Fatalf("unexpected error text %q", got)
	}
	snap := r.Metrics().Snapshot()
	if snap["diffs_rejected"].(int64) != 1 || snap["diffs_accepted"].(int64) != 1 {
		t.Fatalf("unexpected metrics %+v", snap)
	}
}

func TestStrictModeFromSettings(t *testing.T) {
	r := newTestRoom(t, RoomOptions{})
	a := joinPeer(t, r, "a", "alice")
	r.Step()
	a.take(t)

	// 默认宽松模式：未知 id 的 update 视为 upsert
	r.Submit(Inbound{PeerID: "a", Diff: state.Diff{Update: []state.Entity{cube(8, "")}}})
	r.Step()
	if msgs := a.take(t); len(msgs) != 0 {
		t.Fatalf("lenient upsert should be accepted silently, got %+v", msgs)
	}

	r.UpdateSettings(func(s *RoomSettings) { s.Strict = true })
	r.Submit(Inbound{PeerID: "a", Diff: state.Diff{Update: []state.Entity{cube(9, "")}}})
	r.Submit(Inbound{PeerID: "a", Diff: state.Diff{Delete: []state.ID{42}}})
	r.Step()
	msgs := a.take(t)
	if len(msgs) != 2 || msgs[0].Type != wire.Error || msgs[1].Type != wire.Error {
		t.Fatalf("strict mode should reject both diffs, got %+v", msgs)
	}
	if r.State().Len() != 1 {
		t.Fatalf("rejected diffs must not change the state")
	}
}

func TestEntityLimit(t *testing.T) {
	r := newTestRoom(t, RoomOptions{MaxEntities: 2})
	a := joinPeer(t, r, "a", "alice")
	r.Submit(Inbound{PeerID: "a", Diff: state.Diff{Create: []state.Entity{cube(1, ""), cube(2, ""), cube(3, "")}}})
	r.Step()
	msgs := a.take(t)
	if len(msgs) != 2 || !strings.Contains(stringOf(t, msgs[1], wire.Error), "entity limit") {
		t.Fatalf("expected full state then limit error, got %+v", msgs)
	}

	// 宽松模式下更新未知 id 等同于创建，同样受上限约束
	r.Submit(Inbound{PeerID: "a", Diff: state.Diff{Update: []state.Entity{cube(4, ""), cube(5, ""), cube(6, "")}}})
	r.Step()
	msgs = a.take(t)
	if len(msgs) != 1 || !strings.Contains(stringOf(t, msgs[0], wire.Error), "entity limit") {
		t.Fatalf("expected limit error for upserts, got %+v", msgs)
	}
	if n := r.State().Len(); n != 0 {
		t.Fatalf("rejected diffs must not change state, got %d entities", n)
	}

	r.Submit(Inbound{PeerID: "a", Diff: state.Diff{Create: []state.Entity{cube(1, ""), cube(2, "")}}})
	r.Step()
	// 先删后建，结果仍是 2 个实体
	r.Submit(Inbound{PeerID: "a", Diff: state.Diff{Delete: []state.ID{1}, Create: []state.Entity{cube(3, "")}}})
	r.Step()
	for _, m := range a.take(t) {
		if m.Type == wire.Error {
			t.Fatalf("swap within the limit was rejected: %s", stringOf(t, m, wire.Error))
		}
	}
	if !r.State().Equal(state.NewRoomState(cube(2, ""), cube(3, ""))) {
		t.Fatalf("unexpected state after swap: %+v", r.State().Entities())
	}
}

func TestLeaveRemovesDisposables(t *testing.T) {
	r := newTestRoom(t, RoomOptions{})
	a := joinPeer(t, r, "a", "alice")
	b := joinPeer(t, r, "b", "bob")
	temp := cube(10, "u-a")
	temp.Disposable = true
	keep := cube(11, "u-a")
	r.Submit(Inbound{PeerID: "a", Diff: state.Diff{Create: []state.Entity{temp, keep}}})
	r.Step()
	b.take(t)

	r.RequestLeave("a")
	r.Step()
	if !a.isClosed() {
		t.Fatalf("leaving peer's connection should be closed")
	}
	msgs := b.take(t)
	if len(msgs) != 2 {
		t.Fatalf("expected UserLeft and a delete, got %+v", msgs)
	}
	if got := stringOf(t, msgs[0], wire.UserLeft); got != "alice" {
		t.Fatalf("expected alice left, got %q", got)
	}
	if d := diffOf(t, msgs[1], wire.RoomStateUpdate); !d.Equal(state.Diff{Delete: []state.ID{10}}) {
		t.Fatalf("expected disposable 10 deleted, got %+v", d)
	}
	if st := r.State(); st.Has(10) || !st.Has(11) {
		t.Fatalf("unexpected state after leave %+v", st.Entities())
	}
}

func TestHeartbeat(t *testing.T) {
	r := newTestRoom(t, RoomOptions{HeartbeatEveryTicks: 2})
	a := joinPeer(t, r, "a", "alice")
	r.Step()
	r.Step()
	r.Step()
	msgs := a.take(t)
	if len(msgs) != 2 || msgs[0].Type != wire.RoomState || msgs[1].Type != wire.SocketBlip {
		t.Fatalf("expected full state then one blip, got %+v", msgs)
	}
}

func TestSendQueueFullIsCounted(t *testing.T) {
	r := newTestRoom(t, RoomOptions{})
	c := &fakeConn{full: true}
	if err := r.Join(&Peer{ID: "a", UserName: "alice", Conn: c}); err != nil {
		t.Fatal(err)
	}
	r.Step()
	if got := r.Metrics().Snapshot()["send_dropped"].(int64); got != 1 {
		t.Fatalf("expected 1 dropped send, got %d", got)
	}
}

func TestRoomRestoresFromSnapshotAndDiffLog(t *testing.T) {
	SetLogger(zaptest.NewLogger(t).Sugar())
	t.Cleanup(func() { SetLogger(nil) })
	opts := RoomOptions{DataDir: t.TempDir(), DiffLog: true}

	r1, err := NewRoom("persisted", opts, nil)
	if err != nil {
		t.Fatalf("new room: %v", err)
	}
	r1.Submit(Inbound{PeerID: "x", Diff: state.Diff{Create: []state.Entity{cube(1, ""), cube(2, "")}}})
	r1.Step()
	if err := r1.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	r2, err := NewRoom("persisted", opts, nil)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if !r2.State().Equal(state.NewRoomState(cube(1, ""), cube(2, ""))) {
		t.Fatalf("snapshot not restored: %+v", r2.State().Entities())
	}
	r2.Submit(Inbound{PeerID: "x", Diff: state.Diff{Delete: []state.ID{1}, Create: []state.Entity{cube(3, "")}}})
	r2.Step()
	r2.Step()
	tick := r2.Tick()
	// 不写快照直接关闭日志，模拟进程异常退出
	if err := r2.diffLog.Close(); err != nil {
		t.Fatalf("close log: %v", err)
	}

	r3, err := NewRoom("persisted", opts, nil)
	if err != nil {
		t.Fatalf("restore from log: %v", err)
	}
	t.Cleanup(func() { _ = r3.Stop() })
	if !r3.State().Equal(state.NewRoomState(cube(2, ""), cube(3, ""))) {
		t.Fatalf("diff log not replayed: %+v", r3.State().Entities())
	}
	if r3.Tick() != tick-1 {
		t.Fatalf("tick should resume from the last logged change %d, got %d", tick-1, r3.Tick())
	}
}

func TestOverlayNeverConflicts(t *testing.T) {
	view := state.NewRoomState(cube(1, ""), cube(2, ""))
	d := state.Diff{Create: []state.Entity{cube(1, "x")}, Update: []state.Entity{cube(7, "")}, Delete: []state.ID{2, 9}}
	got := overlay(view, d)
	want := state.NewRoomState(cube(1, "x"), cube(7, ""))
	if !got.Equal(want) {
		t.Fatalf("overlay mismatch: %+v", got.Entities())
	}
}

func TestRoomRestoresAfterTornDiffLog(t *testing.T) {
	SetLogger(zaptest.NewLogger(t).Sugar())
	t.Cleanup(func() { SetLogger(nil) })
	opts := RoomOptions{DataDir: t.TempDir(), DiffLog: true}

	r1, err := NewRoom("lobby", opts, nil)
	if err != nil {
		t.Fatalf("new room: %v", err)
	}
	// r1 不调用 Stop，模拟进程被直接杀掉
	t.Cleanup(func() { _ = r1.diffLog.Close() })
	r1.Submit(Inbound{PeerID: "x", Diff: state.Diff{Create: []state.Entity{cube(1, ""), cube(2, "")}}})
	r1.Step()
	r1.Submit(Inbound{PeerID: "x", Diff: state.Diff{Create: []state.Entity{cube(3, "")}}})
	r1.Step()

	path := persist.DiffLogPath(opts.DataDir, "lobby")
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	// 最后一条记录只写了一半
	if err := os.Truncate(path, fi.Size()-3); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	r2, err := NewRoom("lobby", opts, nil)
	if err != nil {
		t.Fatalf("restore after crash: %v", err)
	}
	if !r2.State().Equal(state.NewRoomState(cube(1, ""), cube(2, ""))) {
		t.Fatalf("expected state up to the last complete record, got %+v", r2.State().Entities())
	}
	r2.Submit(Inbound{PeerID: "x", Diff: state.Diff{Create: []state.Entity{cube(4, "")}}})
	r2.Step()
	if err := r2.diffLog.Close(); err != nil {
		t.Fatalf("close log: %v", err)
	}

	r3, err := NewRoom("lobby", opts, nil)
	if err != nil {
		t.Fatalf("restore after reopen: %v", err)
	}
	t.Cleanup(func() { _ = r3.Stop() })
	if !r3.State().Equal(state.NewRoomState(cube(1, ""), cube(2, ""), cube(4, ""))) {
		t.Fatalf("records appended after recovery were lost: %+v", r3.State().Entities())
	}
}
