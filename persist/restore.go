package persist

import (
	"errors"
	"fmt"
	"os"

	"roomsync/state"
)

// Restored 房间恢复结果
type Restored struct {
	State        state.RoomState
	SnapshotTick uint64 // 快照对应的 tick，没有快照时为 0
	LastTick     uint64 // 最后一条已应用记录的 tick
	Replayed     int    // 重放的日志记录数
	TornBytes    int64  // 日志末尾未写完、被忽略的字节数
}

// RestoreRoom 读取房间快照（不存在则从空状态开始），replayLog 为 true 时
// 再按宽松模式应用快照之后的 diff 日志记录。日志末尾写了一半的记录会被忽略。
func RestoreRoom(dir, roomID string, replayLog bool) (Restored, error) {
	var res Restored
	h, st, err := ReadSnapshot(SnapshotPath(dir, roomID))
	switch {
	case errors.Is(err, os.ErrNotExist):
		st = state.RoomState{}
	case err != nil:
		return res, err
	}
	res.State, res.SnapshotTick, res.LastTick = st, h.Tick, h.Tick
	if !replayLog {
		return res, nil
	}

	path := DiffLogPath(dir, roomID)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return res, nil
	}
	res.TornBytes, err = Replay(path, func(tick uint64, d state.Diff) error {
		if tick <= h.Tick {
			return nil
		}
		next, err := state.Apply(res.State, d, state.Lenient)
		if err != nil {
			return fmt.Errorf("tick %d: %w", tick, err)
		}
		res.State, res.LastTick = next, tick
		res.Replayed++
		return nil
	})
	return res, err
}
