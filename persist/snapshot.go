package persist

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"roomsync/state"
	"roomsync/wire"
)

// SnapshotVersion 快照文件格式版本
const SnapshotVersion = 1

type Header struct {
	Version  int    `json:"version"`
	RoomID   string `json:"room_id"`
	Tick     uint64 `json:"tick"`
	Entities int    `json:"entities"`
}

// SnapshotPath 房间快照的默认位置
func SnapshotPath(dir, roomID string) string {
	return filepath.Join(dir, "snapshots", roomID+".snap.zst")
}

// WriteSnapshot 写入 zstd 压缩的快照：一行 JSON 头，随后是以 StateUpdate 编码的全部实体。
// 先写临时文件再改名，避免读到半个快照。
func WriteSnapshot(path string, h Header, st state.RoomState) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	h.Version = SnapshotVersion
	h.Entities = st.Len()
	body, err := wire.EncodeDiff(state.Diff{Create: st.Entities()})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := writeSnapshotBody(f, h, body); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func writeSnapshotBody(w io.Writer, h Header, body []byte) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, _ := json.Marshal(h)
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}
	if _, err := bw.Write(body); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// ReadSnapshot 读取 WriteSnapshot 写出的文件
func ReadSnapshot(path string) (Header, state.RoomState, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, state.RoomState{}, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, state.RoomState{}, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return h, state.RoomState{}, fmt.Errorf("snapshot header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, state.RoomState{}, fmt.Errorf("snapshot header: %w", err)
	}
	if h.Version != SnapshotVersion {
		return h, state.RoomState{}, fmt.Errorf("snapshot version %d not supported", h.Version)
	}
	body, err := io.ReadAll(br)
	if err != nil {
		return h, state.RoomState{}, fmt.Errorf("snapshot body: %w", err)
	}
	d, err := wire.DecodeDiff(body)
	if err != nil {
		return h, state.RoomState{}, fmt.Errorf("snapshot body: %w", err)
	}
	st, err := state.Apply(state.RoomState{}, d, state.Strict)
	if err != nil {
		return h, state.RoomState{}, fmt.Errorf("snapshot body: %w", err)
	}
	return h, st, nil
}
