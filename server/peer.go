package server

import "roomsync/state"

// PeerID 连接的会话标识（uuid）
type PeerID string

// Conn 发送端抽象：Enqueue 非阻塞，队列满时返回 false
type Conn interface {
	Enqueue(b []byte) bool
	Close()
}

// Peer 房间内的一个连接
type Peer struct {
	ID         PeerID
	UserName   string
	UserID     string
	DeviceType string

	Conn Conn

	// view 为该连接已知的房间状态，只在 Tick 协程中读写
	view   state.RoomState
	synced bool // view 等于房间上一次广播的状态
}

// OwnerKey 实体 Owner 字段中代表该连接的值：优先 UserID，其次 UserName
func (p *Peer) OwnerKey() string {
	if p.UserID != "" {
		return p.UserID
	}
	return p.UserName
}

func (p *Peer) send(b []byte) bool {
	if p.Conn == nil || b == nil {
		return false
	}
	return p.Conn.Enqueue(b)
}
