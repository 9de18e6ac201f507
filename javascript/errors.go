package js

import "errors"

var (
	// ErrRuntimeClosed 运行时已关闭
	ErrRuntimeClosed = errors.New("javascript runtime closed")

	// ErrEntryAlreadyExecuted 入口脚本只能执行一次
	ErrEntryAlreadyExecuted = errors.New("entry script already executed")

	// ErrEntryNotExecuted 入口脚本尚未执行，不能排空事件循环
	ErrEntryNotExecuted = errors.New("entry script not executed")

	// ErrRuntimeFaulted 运行时已进入故障状态
	ErrRuntimeFaulted = errors.New("javascript runtime faulted")

	ErrFunctionNotFound = errors.New("function not found")

	ErrGlobalNotFound = errors.New("global variable not found")
)
