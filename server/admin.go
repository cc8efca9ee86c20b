package server

import (
	"encoding/json"
	"net/http"
)

// Register 挂载 WebSocket 与管理/监控接口
func (m *RoomManager) Register(mux *http.ServeMux) {
	mux.HandleFunc("/ws", m.HandleWS)
	mux.HandleFunc("/admin/config", m.HandleAdminConfig)
	mux.HandleFunc("/admin/state", m.HandleAdminState)
	mux.HandleFunc("/metrics", m.HandleMetrics)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (m *RoomManager) roomFromQuery(w http.ResponseWriter, r *http.Request) (*Room, bool) {
	roomID := r.URL.Query().Get("room")
	if roomID == "" {
		roomID = m.opts.DefaultRoom
	}
	room, ok := m.Room(roomID)
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
	}
	return room, ok
}

// HandleAdminConfig 提供房间设置的读取与更新（热更新）
// GET /admin/config?room=room-1  返回当前设置
// POST /admin/config?room=room-1 以 JSON 载荷更新部分字段
func (m *RoomManager) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	room, ok := m.roomFromQuery(w, r)
	if !ok {
		return
	}

	type patch struct {
		Strict              *bool `json:"strict,omitempty"`
		HeartbeatEveryTicks *int  `json:"heartbeatEveryTicks,omitempty"`
		SnapshotEveryTicks  *int  `json:"snapshotEveryTicks,omitempty"`
		MaxEntities         *int  `json:"maxEntities,omitempty"`
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, room.Settings())
	case http.MethodPost:
		var body patch
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		for _, v := range []*int{body.HeartbeatEveryTicks, body.SnapshotEveryTicks, body.MaxEntities} {
			if v != nil && *v < 0 {
				http.Error(w, "values must not be negative", http.StatusBadRequest)
				return
			}
		}
		cur := room.UpdateSettings(func(s *RoomSettings) {
			if body.Strict != nil {
				s.Strict = *body.Strict
			}
			if body.HeartbeatEveryTicks != nil {
				s.HeartbeatEveryTicks = *body.HeartbeatEveryTicks
			}
			if body.SnapshotEveryTicks != nil {
				s.SnapshotEveryTicks = *body.SnapshotEveryTicks
			}
			if body.MaxEntities != nil {
				s.MaxEntities = *body.MaxEntities
			}
		})
		writeJSON(w, map[string]any{"ok": true, "settings": cur})
		Log.Infof("config updated: room=%s strict=%v heartbeat=%d snapshot=%d maxEntities=%d",
			room.ID, cur.Strict, cur.HeartbeatEveryTicks, cur.SnapshotEveryTicks, cur.MaxEntities)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleAdminState 输出房间最近一次广播的完整状态
// GET /admin/state?room=room-1
func (m *RoomManager) HandleAdminState(w http.ResponseWriter, r *http.Request) {
	room, ok := m.roomFromQuery(w, r)
	if !ok {
		return
	}
	st := room.State()
	writeJSON(w, map[string]any{
		"room":     room.ID,
		"tick":     room.Tick(),
		"peers":    room.PeerCount(),
		"entities": st.Entities(),
	})
}

// HandleMetrics 输出指定房间的运行指标；不带 room 参数时输出全部房间
// GET /metrics?room=room-1
func (m *RoomManager) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("room") == "" {
		all := make(map[string]any)
		for _, id := range m.RoomIDs() {
			if room, ok := m.Room(id); ok {
				all[id] = roomMetrics(room)
			}
		}
		writeJSON(w, map[string]any{"rooms": all})
		return
	}
	room, ok := m.roomFromQuery(w, r)
	if !ok {
		return
	}
	writeJSON(w, roomMetrics(room))
}

func roomMetrics(room *Room) map[string]any {
	return map[string]any{
		"room":    room.ID,
		"tick":    room.Tick(),
		"peers":   room.PeerCount(),
		"metrics": room.metrics.Snapshot(),
	}
}
