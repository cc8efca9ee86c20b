package server

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"roomsync/wire"
)

const (
	writeWait = 5 * time.Second
	readWait  = 60 * time.Second
)

// ClientConn 负责发送（写）数据到客户端的轻量包装
type ClientConn struct {
	ws *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func NewClientConn(ws *websocket.Conn, queue int) *ClientConn {
	if queue <= 0 {
		queue = 64
	}
	return &ClientConn{
		ws:   ws,
		send: make(chan []byte, queue),
	}
}

// Enqueue 将要发送的消息压入队列（非阻塞，满则丢弃）
func (c *ClientConn) Enqueue(b []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

// Close 关闭发送队列；写协程发完剩余消息后关闭底层连接
func (c *ClientConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *ClientConn) sendError(msg string) {
	if b, err := wire.BuildString(wire.Error, msg); err == nil {
		c.Enqueue(b)
	}
}

// writePump 独立协程，负责从 send 队列写出到 WS（二进制帧，一帧一个消息）
func (c *ClientConn) writePump() {
	defer c.ws.Close()
	for msg := range c.send {
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteMessage(websocket.BinaryMessage, msg); err != nil {
			return
		}
	}
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

// readPump 读取客户端消息：先加入房间，之后把 diff 注入房间
func (c *ClientConn) readPump(m *RoomManager, sid PeerID) {
	var room *Room
	defer func() {
		_ = c.ws.Close()
		// 读泵退出时，通知房间在 Tick 线程中移除该连接
		if room != nil {
			room.RequestLeave(sid)
		} else {
			c.Close()
		}
	}()
	c.ws.SetReadLimit(1 << 20) // 1MB
	_ = c.ws.SetReadDeadline(time.Now().Add(readWait))
	c.ws.SetPongHandler(func(string) error { return c.ws.SetReadDeadline(time.Now().Add(readWait)) })

	for {
		kind, payload, err := c.ws.ReadMessage()
		if err != nil {
			Log.Debugf("peer %s read: %v", sid, err)
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(readWait))
		if kind != websocket.BinaryMessage {
			c.sendError("binary frames only")
			continue
		}
		env, err := wire.Decode(payload)
		if err != nil {
			if room != nil {
				room.metrics.IncDecodeErrors()
			}
			Log.Warnf("peer %s: %v", sid, err)
			c.sendError(err.Error())
			continue
		}

		switch env.Type {
		case wire.SocketBlip:
		case wire.SocketCreateOrJoinRoom:
			if room != nil {
				c.sendError("already in room " + room.ID)
				continue
			}
			joined, err := m.join(c, sid, env.Payload)
			if err != nil {
				Log.Warnf("peer %s join: %v", sid, err)
				c.sendError(err.Error())
				continue
			}
			room = joined
		case wire.RoomStateUpdate:
			if room == nil {
				c.sendError("join a room first")
				continue
			}
			su := env.Payload.(wire.StateUpdate)
			if !room.Submit(Inbound{PeerID: sid, Diff: su.Diff}) {
				c.sendError("room busy, diff dropped")
			}
		default:
			c.sendError(fmt.Sprintf("unexpected message %s", env.Type))
		}
	}
}

// join 解析加入请求：StringData 只带房间名，JoinCreateRequest 带用户信息
func (m *RoomManager) join(c *ClientConn, sid PeerID, payload wire.Payload) (*Room, error) {
	p := &Peer{ID: sid, Conn: c}
	var roomName string
	switch req := payload.(type) {
	case wire.StringData:
		roomName = req.Data
	case wire.JoinCreateRequest:
		roomName = req.RoomName
		p.UserName = req.UserName
		p.UserID = req.UserID
		p.DeviceType = req.DeviceType
	}
	if p.UserName == "" {
		p.UserName = string(sid)
	}

	room, created, err := m.GetOrCreateRoom(roomName)
	if err != nil {
		return nil, err
	}
	if created {
		if b, err := wire.BuildString(wire.RoomCreated, room.ID); err == nil {
			c.Enqueue(b)
		}
	}
	if err := room.Join(p); err != nil {
		return nil, err
	}
	return room, nil
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWS WebSocket 接入：连接后下发 SocketConnected(会话 id)，
// 客户端首先需要发送 SocketCreateOrJoinRoom
func (m *RoomManager) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnf("upgrade error: %v", err)
		return
	}

	sid := PeerID(uuid.NewString())
	client := NewClientConn(ws, m.opts.SendQueue)
	if b, err := wire.BuildString(wire.SocketConnected, string(sid)); err == nil {
		client.Enqueue(b)
	}
	Log.Debugf("peer %s connected from %s", sid, r.RemoteAddr)

	go client.writePump()
	go client.readPump(m, sid)
}
