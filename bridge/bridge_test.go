package bridge

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/robbyt/go-loglater"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tx7do/flubber"
	"github.com/tx7do/flubber/internal/host"
	"github.com/tx7do/flubber/modules"
	"github.com/tx7do/flubber/ops"
	"github.com/tx7do/flubber/permissions"
	"github.com/tx7do/flubber/spinner"
)

type lines struct {
	mu  sync.Mutex
	out []string
}

func (l *lines) sink() ops.Sink {
	return ops.SinkFunc(func(line string) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.out = append(l.out, line)
		return nil
	})
}

func (l *lines) get() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.out...)
}

func writeEntry(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.js")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

func quietOptions(entry string, sink ops.Sink) Options {
	return Options{
		Entry:     entry,
		PrintSink: sink,
		Modules:   modules.Options{Stdout: io.Discard, Stderr: io.Discard},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestInitRegistersSpinnerAndRuns(t *testing.T) {
	out := &lines{}
	entry := writeEntry(t, `
		Flubber.print("start");
		setTimeout(() => Flubber.print("timer"), 1);
		Promise.resolve().then(() => Flubber.print("micro"));
	`)

	handle := host.NewInitHandle()
	res, err := Init(context.Background(), handle, quietOptions(entry, out.sink()))
	require.NoError(t, err)

	assert.Equal(t, []string{spinner.ClassName}, handle.Classes())
	assert.Equal(t, []string{"start", "micro", "timer"}, out.get())
	assert.NotEmpty(t, res.RuntimeID)
	assert.Equal(t, 1, res.Stats.Continuations)

	// the class can only be registered once per handle
	_, err = Init(context.Background(), handle, quietOptions(entry, out.sink()))
	assert.ErrorIs(t, err, host.ErrClassAlreadyRegistered)
}

func TestRunFetchUserAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.UserAgent())
	}))
	defer srv.Close()

	out := &lines{}
	entry := writeEntry(t, `fetch("`+srv.URL+`").then((r) => r.text()).then((ua) => Flubber.print(ua))`)
	opts := quietOptions(entry, out.sink())
	opts.Modules.Fetch.UserAgent = "flubber/9.9.9"

	_, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"flubber/9.9.9"}, out.get())
}

func TestRunDeniedFetch(t *testing.T) {
	out := &lines{}
	entry := writeEntry(t, `fetch("http://127.0.0.1:1/").catch((e) => Flubber.print(e.name))`)
	gate, err := permissions.NewStatic(false, false, false, nil, nil)
	require.NoError(t, err)
	opts := quietOptions(entry, out.sink())
	opts.Gate = gate

	_, err = Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"PermissionDenied"}, out.get())
}

func TestRunFailureReplaysHistory(t *testing.T) {
	collector := loglater.NewLogCollector(nil)
	entry := writeEntry(t, `throw new Error("boom")`)
	opts := quietOptions(entry, ops.SinkFunc(func(string) error { return nil }))
	opts.Logger = slog.New(collector)

	_, err := Run(context.Background(), opts)
	var se *flubber.ScriptError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Error: boom", se.Message)

	logs := collector.GetLogs()
	require.NotEmpty(t, logs)
	assert.Equal(t, "Script run failed", logs[0].Message)
}

func TestRunMissingEntry(t *testing.T) {
	opts := quietOptions(filepath.Join(t.TempDir(), "missing.js"), nil)
	_, err := Run(context.Background(), opts)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunDrainTimeout(t *testing.T) {
	entry := writeEntry(t, `setInterval(() => {}, 10)`)
	opts := quietOptions(entry, nil)
	opts.DrainTimeout = 50 * time.Millisecond

	_, err := Run(context.Background(), opts)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
