package state

import (
	"errors"
	"fmt"
)

// ErrDiffConflict diff 与自身或当前状态冲突，整批拒绝
var ErrDiffConflict = errors.New("diff conflict")

// ConflictError 描述冲突的实体与操作
type ConflictError struct {
	ID     ID
	Op     string // create / update / delete
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("diff conflict: %s %d: %s", e.Op, e.ID, e.Reason)
}

func (e *ConflictError) Unwrap() error { return ErrDiffConflict }

func conflict(op string, id ID, reason string) error {
	return &ConflictError{ID: id, Op: op, Reason: reason}
}
