package flubber

import (
	"context"
	"io"
)

// Engine Define the interface for the embedded script runtime
type Engine interface {
	// GetType get the type of the script engine
	GetType() Type

	//////////////////////////////////////////////////////////////////////////////////////////
	// Lifecycle Management
	//////////////////////////////////////////////////////////////////////////////////////////

	// State get the current lifecycle state of the runtime
	State() State
	// Close the runtime and release resources
	Close() error

	//////////////////////////////////////////////////////////////////////////////////////////
	// Entry Script Execution
	//////////////////////////////////////////////////////////////////////////////////////////

	// ExecuteEntry parse and run the top-level code of the entry script
	ExecuteEntry(ctx context.Context, source, label string) error
	// ExecuteEntryFile read the entry script from a file path and run it
	ExecuteEntryFile(ctx context.Context, filePath string) error
	// ExecuteEntryReader read the entry script from io.Reader and run it
	ExecuteEntryReader(ctx context.Context, reader io.Reader, label string) error

	//////////////////////////////////////////////////////////////////////////////////////////
	// Event Loop
	//////////////////////////////////////////////////////////////////////////////////////////

	// DrainEventLoop run queued continuations until no ready or outstanding work remains
	DrainEventLoop(ctx context.Context) (DrainStats, error)
	// LoopStats snapshot the pending work of the event loop
	LoopStats() LoopStats

	//////////////////////////////////////////////////////////////////////////////////////////
	// Global Variable Registration
	//////////////////////////////////////////////////////////////////////////////////////////

	// RegisterGlobal register a global variable
	RegisterGlobal(name string, value any) error
	// GetGlobal get a global variable
	GetGlobal(name string) (any, error)

	//////////////////////////////////////////////////////////////////////////////////////////
	// Function Call
	//////////////////////////////////////////////////////////////////////////////////////////

	// CallFunction call a global script function with the given name and arguments
	CallFunction(ctx context.Context, name string, args ...any) (any, error)

	//////////////////////////////////////////////////////////////////////////////////////////
	// Error Handling
	//////////////////////////////////////////////////////////////////////////////////////////

	// GetLastError get the last error occurred in the engine
	GetLastError() error
	// ClearError clear the last error
	ClearError()
}
