package wire

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode 字节流无法解析为合法消息
	ErrDecode = errors.New("wire: malformed message")
	// ErrEncode 构建消息失败（仅在缓冲区无法继续增长时出现）
	ErrEncode = errors.New("wire: encode failed")
	// ErrUnsupportedCombination 消息类型与载荷类型的组合不受支持
	ErrUnsupportedCombination = errors.New("wire: unsupported message type/payload combination")
)

// DecodeError 携带出错位置（相对缓冲区起点的字节偏移，未知时为 -1）
type DecodeError struct {
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("wire: malformed message at byte %d: %s", e.Offset, e.Reason)
}

func (e *DecodeError) Unwrap() error { return ErrDecode }

// UnsupportedCombinationError 记录具体的类型组合
type UnsupportedCombinationError struct {
	Type    MsgType
	Payload PayloadKind
}

func (e *UnsupportedCombinationError) Error() string {
	return fmt.Sprintf("wire: unsupported combination %s/%s", e.Type, e.Payload)
}

func (e *UnsupportedCombinationError) Unwrap() error { return ErrUnsupportedCombination }

// EncodeError 包装构建期间的 panic
type EncodeError struct {
	Cause any
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("wire: encode failed: %v", e.Cause)
}

func (e *EncodeError) Unwrap() error { return ErrEncode }
