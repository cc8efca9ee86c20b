package persist

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/multierr"

	"roomsync/state"
	"roomsync/wire"
)

// 文件由若干 frame 依次组成：长度(uint32) + 一个完整的 zstd frame。
// 每个 frame 解压后是一条记录：tick(uint64) + 长度(uint32) + 以 StateUpdate 编码的 diff，小端序
const (
	frameHeaderSize  = 4
	recordHeaderSize = 12
	maxFrameSize     = 64 << 20
)

// DiffLogPath 房间 diff 日志的默认位置
func DiffLogPath(dir, roomID string) string {
	return filepath.Join(dir, "difflog", roomID+".diff.zst")
}

// DiffLog 追加写入的 diff 日志。每条记录单独压缩成一个 frame，
// 进程崩溃时最多丢失正在写入的最后一条。
type DiffLog struct {
	path string

	mu   sync.Mutex
	f    *os.File
	size int64
	enc  *zstd.Encoder
}

// OpenDiffLog 打开（不存在则创建）日志并定位到末尾。
// 末尾不完整的记录会被截掉，返回截掉的字节数。
func OpenDiffLog(path string) (*DiffLog, int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, 0, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, 0, err
	}
	good, torn, err := scanFrames(f, nil)
	if err == nil && torn > 0 {
		err = f.Truncate(good)
	}
	if err == nil {
		_, err = f.Seek(good, io.SeekStart)
	}
	if err != nil {
		return nil, 0, multierr.Append(fmt.Errorf("diff log %s: %w", path, err), f.Close())
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	return &DiffLog{path: path, f: f, size: good, enc: enc}, torn, nil
}

// Path 日志文件路径
func (l *DiffLog) Path() string { return l.path }

// Append 写入一条记录。记录在返回前已完整写入文件
func (l *DiffLog) Append(tick uint64, d state.Diff) error {
	body, err := wire.EncodeDiff(d)
	if err != nil {
		return err
	}
	rec := make([]byte, recordHeaderSize+len(body))
	binary.LittleEndian.PutUint64(rec[0:8], tick)
	binary.LittleEndian.PutUint32(rec[8:12], uint32(len(body)))
	copy(rec[recordHeaderSize:], body)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return errors.New("diff log closed")
	}
	frame := l.enc.EncodeAll(rec, make([]byte, frameHeaderSize, frameHeaderSize+len(rec)))
	binary.LittleEndian.PutUint32(frame[:frameHeaderSize], uint32(len(frame)-frameHeaderSize))
	if _, err := l.f.Write(frame); err != nil {
		// 写了一半的 frame 回退掉，后续记录仍然对齐
		_ = l.f.Truncate(l.size)
		_, _ = l.f.Seek(l.size, io.SeekStart)
		return err
	}
	l.size += int64(len(frame))
	return nil
}

// Close 关闭文件
func (l *DiffLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.enc.Close()
	err = multierr.Append(err, l.f.Close())
	l.enc, l.f = nil, nil
	return err
}

// scanFrames 从 r 的开头逐个读取 frame 并解压，把每条记录交给 fn（可为 nil）。
// 返回最后一个完整 frame 的结束位置与其后被丢弃的字节数。
// 末尾被截断或无法解压的 frame 视为写入中断；中间的坏 frame 返回错误。
func scanFrames(r io.Reader, fn func(n int, rec []byte) error) (good, torn int64, err error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return 0, 0, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(r, 64*1024)
	var hdr [frameHeaderSize]byte
	for n := 0; ; n++ {
		k, err := io.ReadFull(br, hdr[:])
		if errors.Is(err, io.EOF) {
			return good, 0, nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return good, int64(k), nil
		}
		if err != nil {
			return good, 0, err
		}
		size := int64(binary.LittleEndian.Uint32(hdr[:]))
		if size > maxFrameSize {
			return good, 0, fmt.Errorf("diff log record %d: frame size %d too large", n, size)
		}
		frame := make([]byte, size)
		k, err = io.ReadFull(br, frame)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return good, frameHeaderSize + int64(k), nil
		}
		if err != nil {
			return good, 0, err
		}
		rec, err := dec.DecodeAll(frame, nil)
		if err != nil {
			if _, peekErr := br.Peek(1); errors.Is(peekErr, io.EOF) {
				return good, frameHeaderSize + size, nil
			}
			return good, 0, fmt.Errorf("diff log record %d: %w", n, err)
		}
		if fn != nil {
			if err := fn(n, rec); err != nil {
				return good, 0, err
			}
		}
		good += frameHeaderSize + size
	}
}

// Replay 按写入顺序逐条回调；fn 返回错误时停止。
// 返回末尾被丢弃的不完整记录字节数。
func Replay(path string, fn func(tick uint64, d state.Diff) error) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	_, torn, err := scanFrames(f, func(n int, rec []byte) error {
		if len(rec) < recordHeaderSize {
			return fmt.Errorf("diff log record %d: short record (%d bytes)", n, len(rec))
		}
		tick := binary.LittleEndian.Uint64(rec[0:8])
		body := rec[recordHeaderSize:]
		if size := binary.LittleEndian.Uint32(rec[8:12]); int(size) != len(body) {
			return fmt.Errorf("diff log record %d: body is %d bytes, header says %d", n, len(body), size)
		}
		d, err := wire.DecodeDiff(body)
		if err != nil {
			return fmt.Errorf("diff log record %d: %w", n, err)
		}
		return fn(tick, d)
	})
	return torn, err
}

// ReplayState 从 base 开始依次应用日志中的全部 diff，返回最终状态与最后一条记录的 tick
func ReplayState(path string, base state.RoomState, mode state.Mode) (state.RoomState, uint64, error) {
	st := base
	var last uint64
	_, err := Replay(path, func(tick uint64, d state.Diff) error {
		next, err := state.Apply(st, d, mode)
		if err != nil {
			return fmt.Errorf("tick %d: %w", tick, err)
		}
		st, last = next, tick
		return nil
	})
	return st, last, err
}
