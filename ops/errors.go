package ops

import (
	"errors"
	"fmt"
)

var (
	// ErrOpAlreadyRegistered op 名称已被注册
	ErrOpAlreadyRegistered = errors.New("op already registered")

	// ErrOpNotFound op 未注册
	ErrOpNotFound = errors.New("op not found")

	// ErrInvalidOp op 描述不合法
	ErrInvalidOp = errors.New("invalid op")
)

// ArgumentError reports an argument that does not match the op's marshalling contract.
type ArgumentError struct {
	Index int
	Want  string
	Got   string
}

func (e *ArgumentError) Error() string {
	if e.Got == "" {
		return fmt.Sprintf("argument %d: expected %s", e.Index, e.Want)
	}
	return fmt.Sprintf("argument %d: expected %s, got %s", e.Index, e.Want, e.Got)
}
