package ops

import (
	"fmt"
	"strings"
)

const (
	// PrintOpName is the registry name of the print op.
	PrintOpName = "op_print"
	// PrintExport is the script-visible name of the print op.
	PrintExport = "print"
)

// NewPrintOp returns the print op: it forwards its text to the host sink
// and returns nothing. Failures are logged and never reach the script.
func NewPrintOp(sink Sink) Op {
	return Op{
		Name:    PrintOpName,
		Export:  PrintExport,
		Sync:    true,
		OnError: LogAndContinue,
		Handler: func(args Args) (any, error) {
			line, err := args.String(0)
			if err != nil {
				return nil, err
			}
			if rest := args.Display(1); len(rest) > 0 {
				line = line + " " + strings.Join(rest, " ")
			}
			if err := sink.Print(line); err != nil {
				return nil, fmt.Errorf("host sink: %w", err)
			}
			return nil, nil
		},
	}
}
