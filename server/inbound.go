package server

import "roomsync/state"

// Inbound 客户端提交的 diff，由 Tick 协程按到达顺序应用
type Inbound struct {
	PeerID PeerID
	Diff   state.Diff
}

type eventKind uint8

const (
	evJoin eventKind = iota
	evLeave
	evDiff
)

// roomEvent 加入、离开与 diff 共用一个通道，同一连接的事件顺序不变
type roomEvent struct {
	kind eventKind
	peer *Peer
	in   Inbound
}

// overlay 将 d 叠加到连接视图上：删除后整体覆盖写入，从不冲突。
// 用于记录提交者已在本地应用过的改动，避免广播时回显给它。
func overlay(view state.RoomState, d state.Diff) state.RoomState {
	if len(d.Delete) > 0 {
		view, _ = state.Apply(view, state.Diff{Delete: d.Delete}, state.Lenient)
	}
	puts := make([]state.Entity, 0, len(d.Create)+len(d.Update))
	puts = append(puts, d.Create...)
	puts = append(puts, d.Update...)
	if len(puts) > 0 {
		if next, err := state.Apply(view, state.Diff{Update: puts}, state.Lenient); err == nil {
			view = next
		}
	}
	return view
}
