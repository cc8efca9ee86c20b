package server

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"roomsync/config"
	"roomsync/persist"
	"roomsync/state"
	"roomsync/wire"
)

// ErrRoomClosed 房间已停止
var ErrRoomClosed = errors.New("room closed")

// RoomOptions 房间创建参数
type RoomOptions struct {
	TicksPerSecond      int
	Mode                state.Mode
	HeartbeatEveryTicks int
	SnapshotEveryTicks  int
	MaxEntities         int
	InboundQueue        int
	SendQueue           int
	DataDir             string // 为空则不持久化
	DiffLog             bool
	DefaultRoom         string
}

func OptionsFromConfig(c config.Room) RoomOptions {
	mode := state.Lenient
	if c.Strict {
		mode = state.Strict
	}
	return RoomOptions{
		TicksPerSecond:      c.TicksPerSecond,
		Mode:                mode,
		HeartbeatEveryTicks: c.HeartbeatEveryTicks,
		SnapshotEveryTicks:  c.SnapshotEveryTicks,
		MaxEntities:         c.MaxEntities,
		InboundQueue:        c.InboundQueue,
		SendQueue:           c.SendQueue,
		DataDir:             c.DataDir,
		DiffLog:             c.DiffLog,
		DefaultRoom:         c.DefaultRoom,
	}
}

func DefaultRoomOptions() RoomOptions {
	return OptionsFromConfig(config.Default().Room)
}

// RoomSettings 可通过 /admin/config 热更新的部分，下一个 Tick 生效
type RoomSettings struct {
	Strict              bool `json:"strict"`
	HeartbeatEveryTicks int  `json:"heartbeatEveryTicks"`
	SnapshotEveryTicks  int  `json:"snapshotEveryTicks"`
	MaxEntities         int  `json:"maxEntities"`
}

func (s RoomSettings) mode() state.Mode {
	if s.Strict {
		return state.Strict
	}
	return state.Lenient
}

// Room 房间：权威状态维护在内存，单线程 Tick 推进。
// store/prev/peers 只在 Tick 协程中访问；published/settings 由 mu 保护供 HTTP 读取。
type Room struct {
	ID string

	incarnation string // 快照缓存键前缀，房间重建后旧缓存不再命中

	store   *state.Store
	prev    state.RoomState // 上一次广播后的状态
	version uint64          // prev 最后一次变化时的 tick
	peers   map[PeerID]*Peer

	events chan roomEvent
	stop   chan struct{}
	done   chan struct{}

	tickInterval time.Duration
	tickerOnce   sync.Once
	stopOnce     sync.Once
	running      atomic.Bool
	tickSeq      atomic.Uint64
	tick         RoomSettings // 当前 Tick 使用的设置副本

	mu        sync.RWMutex
	settings  RoomSettings
	published state.RoomState
	peerCount int

	metrics      *RoomMetrics
	cache        *SnapshotCache
	dataDir      string
	diffLog      *persist.DiffLog
	lastSnapshot uint64
}

// NewRoom 创建房间；配置了 DataDir 时从快照与 diff 日志恢复状态
func NewRoom(id string, opts RoomOptions, cache *SnapshotCache) (*Room, error) {
	tps := opts.TicksPerSecond
	if tps <= 0 {
		tps = 20
	}
	queue := opts.InboundQueue
	if queue <= 0 {
		queue = 256
	}
	r := &Room{
		ID:           id,
		incarnation:  id + "#" + uuid.NewString(),
		store:        state.NewStore(opts.Mode),
		peers:        make(map[PeerID]*Peer),
		events:       make(chan roomEvent, queue), // 足够缓冲，避免网络读阻塞影响 Tick
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
		tickInterval: time.Second / time.Duration(tps),
		settings: RoomSettings{
			Strict:              opts.Mode == state.Strict,
			HeartbeatEveryTicks: opts.HeartbeatEveryTicks,
			SnapshotEveryTicks:  opts.SnapshotEveryTicks,
			MaxEntities:         opts.MaxEntities,
		},
		metrics: &RoomMetrics{},
		cache:   cache,
		dataDir: opts.DataDir,
	}
	if opts.DataDir != "" {
		if err := r.restore(opts); err != nil {
			return nil, fmt.Errorf("restore room %s: %w", id, err)
		}
	}
	return r, nil
}

// restore 读取快照并重放之后的 diff 日志，随后以追加方式打开日志
func (r *Room) restore(opts RoomOptions) error {
	res, err := persist.RestoreRoom(r.dataDir, r.ID, opts.DiffLog)
	if err != nil {
		return err
	}
	if res.TornBytes > 0 {
		Log.Warnf("room %s: diff log ends with an incomplete record, dropped %d bytes after tick %d", r.ID, res.TornBytes, res.LastTick)
	}
	if opts.DiffLog {
		if r.diffLog, _, err = persist.OpenDiffLog(persist.DiffLogPath(r.dataDir, r.ID)); err != nil {
			return err
		}
	}

	r.store.Load(res.State)
	r.prev = res.State
	r.published = res.State
	r.version = res.LastTick
	r.lastSnapshot = res.SnapshotTick
	r.tickSeq.Store(res.LastTick)
	if res.State.Len() > 0 || res.Replayed > 0 {
		Log.Infof("room %s restored: entities=%d tick=%d replayed=%d", r.ID, res.State.Len(), res.LastTick, res.Replayed)
	}
	return nil
}

// Join 请求在 Tick 线程中加入连接
func (r *Room) Join(p *Peer) error {
	select {
	case r.events <- roomEvent{kind: evJoin, peer: p}:
		return nil
	case <-r.stop:
		return ErrRoomClosed
	}
}

// RequestLeave 请求在 Tick 线程中移除连接，避免并发改动房间状态
func (r *Room) RequestLeave(id PeerID) {
	select {
	case r.events <- roomEvent{kind: evLeave, in: Inbound{PeerID: id}}:
	case <-r.stop:
	}
}

// Submit 入站 diff（不立即应用），等下一次 Tick 处理；通道满时返回 false
func (r *Room) Submit(in Inbound) bool {
	select {
	case r.events <- roomEvent{kind: evDiff, in: in}:
		return true
	default:
		r.metrics.IncChanFullDiscarded()
		return false
	}
}

// BeginTick 推进 tick 序号并读取本帧设置
func (r *Room) BeginTick() uint64 {
	seq := r.tickSeq.Add(1)
	r.mu.RLock()
	r.tick = r.settings
	r.mu.RUnlock()
	r.store.SetMode(r.tick.mode())
	return seq
}

// ProcessEvents 处理当前帧的所有事件（非阻塞 drain）
func (r *Room) ProcessEvents() {
	for {
		select {
		case ev := <-r.events:
			switch ev.kind {
			case evJoin:
				r.addPeer(ev.peer)
			case evLeave:
				r.removePeer(ev.in.PeerID)
			case evDiff:
				r.applyInbound(ev.in)
			}
		default:
			return
		}
	}
}

func (r *Room) addPeer(p *Peer) {
	msg, ok := r.cache.Get(r.incarnation, r.version)
	if !ok {
		var err error
		if msg, err = wire.BuildRoomState(r.prev); err != nil {
			Log.Errorf("room %s: encode full state: %v", r.ID, err)
			return
		}
		r.cache.Put(r.incarnation, r.version, msg)
	}
	p.view = r.prev
	p.synced = true
	r.deliver(p, msg)

	if joined, err := wire.BuildString(wire.UserJoined, p.UserName); err == nil {
		r.broadcast(joined, p.ID)
	}
	r.peers[p.ID] = p
	r.setPeerCount()
	Log.Infof("room %s: peer %s (%s) joined, peers=%d", r.ID, p.ID, p.UserName, len(r.peers))
}

func (r *Room) removePeer(id PeerID) {
	p, ok := r.peers[id]
	if !ok {
		return
	}
	delete(r.peers, id)
	r.setPeerCount()
	if p.Conn != nil {
		p.Conn.Close()
	}

	// 清理该连接拥有的可丢弃实体，删除在下一次广播中下发
	removed := 0
	if owner := p.OwnerKey(); owner != "" {
		for _, e := range r.store.Snapshot().Entities() {
			if e.Disposable && e.Owner == owner && r.store.Remove(e.ID) {
				removed++
			}
		}
	}
	if left, err := wire.BuildString(wire.UserLeft, p.UserName); err == nil {
		r.broadcast(left, "")
	}
	Log.Infof("room %s: peer %s (%s) left, disposables removed=%d peers=%d", r.ID, id, p.UserName, removed, len(r.peers))
}

func (r *Room) applyInbound(in Inbound) {
	p := r.peers[in.PeerID]
	err := r.checkLimit(in.Diff)
	if err == nil {
		err = r.store.ApplyDiff(in.Diff)
	}
	if err != nil {
		r.metrics.IncRejected()
		Log.Warnf("room %s: diff from %s rejected: %v", r.ID, in.PeerID, err)
		if p != nil {
			if msg, encErr := wire.BuildString(wire.Error, err.Error()); encErr == nil {
				r.deliver(p, msg)
			}
		}
		return
	}
	r.metrics.IncAccepted()
	if p != nil {
		p.view = overlay(p.view, in.Diff)
		p.synced = false
	}
}

// checkLimit 按应用后的实体数判断上限：删除已有实体会腾出名额，
// 宽松模式下更新未知 id 会新增实体。只拦截让实体数增长并超过上限的 diff。
func (r *Room) checkLimit(d state.Diff) error {
	limit := r.tick.MaxEntities
	if limit <= 0 {
		return nil
	}
	cur := r.store.Len()
	n := cur
	deleted := make(map[state.ID]bool, len(d.Delete))
	for _, id := range d.Delete {
		if _, ok := r.store.Get(id); ok && !deleted[id] {
			deleted[id] = true
			n--
		}
	}
	n += len(d.Create)
	if r.store.Mode() == state.Lenient {
		for _, e := range d.Update {
			if _, ok := r.store.Get(e.ID); !ok {
				n++
			}
		}
	}
	if n > limit && n > cur {
		return fmt.Errorf("entity limit %d exceeded (%d)", limit, n)
	}
	return nil
}

// BroadcastDelta 计算本帧增量并发送给所有连接。
// 视图与上次广播一致的连接共用同一份编码，其余连接单独计算。
func (r *Room) BroadcastDelta(seq uint64) {
	cur := r.store.Snapshot()
	shared := state.ComputeDiff(r.prev, cur)

	var sharedMsg []byte
	if !shared.Empty() {
		r.version = seq
		r.metrics.IncDeltas()
		if r.diffLog != nil {
			if err := r.diffLog.Append(seq, shared); err != nil {
				Log.Errorf("room %s: diff log: %v", r.ID, err)
			}
		}
		var err error
		if sharedMsg, err = wire.BuildStateUpdate(shared); err != nil {
			Log.Errorf("room %s: encode delta: %v", r.ID, err)
		}
	}

	for _, p := range r.peers {
		msg := sharedMsg
		if !p.synced {
			msg = nil
			if d := state.ComputeDiff(p.view, cur); !d.Empty() {
				var err error
				if msg, err = wire.BuildStateUpdate(d); err != nil {
					Log.Errorf("room %s: encode delta for %s: %v", r.ID, p.ID, err)
				}
			}
		}
		r.deliver(p, msg)
		p.view = cur
		p.synced = true
	}

	if !shared.Empty() {
		r.prev = cur
		r.mu.Lock()
		r.published = cur
		r.mu.Unlock()
	}
}

// housekeeping 心跳与周期快照
func (r *Room) housekeeping(seq uint64) {
	if every := r.tick.HeartbeatEveryTicks; every > 0 && seq%uint64(every) == 0 {
		if blip, err := wire.BuildBlip(); err == nil {
			r.broadcast(blip, "")
		}
	}
	if every := r.tick.SnapshotEveryTicks; every > 0 && seq%uint64(every) == 0 {
		if err := r.persistSnapshot(); err != nil {
			Log.Errorf("room %s: snapshot: %v", r.ID, err)
		}
	}
}

func (r *Room) persistSnapshot() error {
	if r.dataDir == "" || r.version == r.lastSnapshot {
		return nil
	}
	h := persist.Header{RoomID: r.ID, Tick: r.version}
	if err := persist.WriteSnapshot(persist.SnapshotPath(r.dataDir, r.ID), h, r.prev); err != nil {
		return err
	}
	r.lastSnapshot = r.version
	r.metrics.IncSnapshots()
	Log.Debugf("room %s: snapshot written at tick %d", r.ID, r.version)
	return nil
}

func (r *Room) deliver(p *Peer, msg []byte) {
	if msg == nil {
		return
	}
	if p.send(msg) {
		r.metrics.AddBytesOut(len(msg))
	} else {
		r.metrics.IncSendDropped()
	}
}

func (r *Room) broadcast(msg []byte, except PeerID) {
	for id, p := range r.peers {
		if id != except {
			r.deliver(p, msg)
		}
	}
}

func (r *Room) setPeerCount() {
	r.mu.Lock()
	r.peerCount = len(r.peers)
	r.mu.Unlock()
}

// Stop 停止 Tick，写出最终快照并关闭日志与全部连接
func (r *Room) Stop() error {
	var err error
	r.stopOnce.Do(func() {
		close(r.stop)
		if r.running.Load() {
			<-r.done
		}
		seq := r.BeginTick()
		r.ProcessEvents()
		r.BroadcastDelta(seq)
		err = r.persistSnapshot()
		if r.diffLog != nil {
			err = multierr.Append(err, r.diffLog.Close())
		}
		for id, p := range r.peers {
			if p.Conn != nil {
				p.Conn.Close()
			}
			delete(r.peers, id)
		}
		r.setPeerCount()
	})
	return err
}

// Settings 当前设置
func (r *Room) Settings() RoomSettings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings
}

// UpdateSettings 修改设置，下一个 Tick 生效
func (r *Room) UpdateSettings(fn func(*RoomSettings)) RoomSettings {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.settings)
	return r.settings
}

// State 最近一次广播的状态（只读副本）
func (r *Room) State() state.RoomState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.published
}

func (r *Room) Tick() uint64 { return r.tickSeq.Load() }

func (r *Room) PeerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.peerCount
}

func (r *Room) Metrics() *RoomMetrics { return r.metrics }
