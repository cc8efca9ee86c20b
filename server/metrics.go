package server

import (
	"sync/atomic"
)

// RoomMetrics 记录房间运行期的关键指标（用于监控与调试）
type RoomMetrics struct {
	TickCount         int64 // 统计的 Tick 次数
	DiffsAccepted     int64 // 成功应用的入站 diff
	DiffsRejected     int64 // 因冲突或超限被拒绝的入站 diff
	DecodeErrors      int64 // 无法解析的入站帧
	ChanFullDiscarded int64 // 因入站通道满被丢弃的 diff
	SendDropped       int64 // 因发送队列满未送达的消息
	DeltasBroadcast   int64 // 非空增量广播次数
	BytesOut          int64 // 入队的出站字节数
	SnapshotsWritten  int64
	TotalTickNs       int64 // Tick 累计耗时（纳秒）
}

func (m *RoomMetrics) IncAccepted()          { atomic.AddInt64(&m.DiffsAccepted, 1) }
func (m *RoomMetrics) IncRejected()          { atomic.AddInt64(&m.DiffsRejected, 1) }
func (m *RoomMetrics) IncDecodeErrors()      { atomic.AddInt64(&m.DecodeErrors, 1) }
func (m *RoomMetrics) IncChanFullDiscarded() { atomic.AddInt64(&m.ChanFullDiscarded, 1) }
func (m *RoomMetrics) IncSendDropped()       { atomic.AddInt64(&m.SendDropped, 1) }
func (m *RoomMetrics) IncDeltas()            { atomic.AddInt64(&m.DeltasBroadcast, 1) }
func (m *RoomMetrics) IncSnapshots()         { atomic.AddInt64(&m.SnapshotsWritten, 1) }
func (m *RoomMetrics) AddBytesOut(n int)     { atomic.AddInt64(&m.BytesOut, int64(n)) }
func (m *RoomMetrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *RoomMetrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":          tick,
		"diffs_accepted":      atomic.LoadInt64(&m.DiffsAccepted),
		"diffs_rejected":      atomic.LoadInt64(&m.DiffsRejected),
		"decode_errors":       atomic.LoadInt64(&m.DecodeErrors),
		"chan_full_discarded": atomic.LoadInt64(&m.ChanFullDiscarded),
		"send_dropped":        atomic.LoadInt64(&m.SendDropped),
		"deltas_broadcast":    atomic.LoadInt64(&m.DeltasBroadcast),
		"bytes_out":           atomic.LoadInt64(&m.BytesOut),
		"snapshots_written":   atomic.LoadInt64(&m.SnapshotsWritten),
		"avg_tick_ms":         avgMs,
	}
}
