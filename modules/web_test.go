package modules

import (
	"bytes"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tx7do/flubber/permissions"
)

func TestTextEncoding(t *testing.T) {
	h := newHarness(t, nil, FetchOptions{})
	h.run(t, `
		const bytes = new TextEncoder().encode("héllo");
		const bom = new Uint8Array([0xEF, 0xBB, 0xBF, 0x68, 0x69]);
		result = [
			bytes.length,
			new TextDecoder().decode(bytes),
			new TextDecoder("utf-8").decode(bom),
			new TextDecoder("utf-8", { ignoreBOM: true }).decode(bom).length,
			new TextDecoder("latin1").encoding,
		];
	`)
	assert.Equal(t, []any{int64(6), "héllo", "hi", int64(3), "windows-1252"}, h.result())
}

func TestTextDecoderErrors(t *testing.T) {
	h := newHarness(t, nil, FetchOptions{})
	h.run(t, `
		result = [];
		try { new TextDecoder("no-such-encoding") } catch (e) { result.push(e instanceof RangeError) }
		try {
			new TextDecoder("utf-8", { fatal: true }).decode(new Uint8Array([0xff, 0xfe, 0xfd]));
		} catch (e) { result.push(e instanceof TypeError) }
	`)
	assert.Equal(t, []any{true, true}, h.result())
}

func TestTimersRunInDeadlineOrder(t *testing.T) {
	h := newHarness(t, nil, FetchOptions{})
	h.run(t, `
		result = [];
		setTimeout(() => result.push("b"), 20);
		setTimeout((x) => result.push(x), 0, "a");
		const id = setTimeout(() => result.push("never"), 5);
		clearTimeout(id);
		queueMicrotask(() => result.push("micro"));
		let n = 0;
		const iv = setInterval(() => { if (++n === 3) { clearInterval(iv); result.push("interval") } }, 1);
	`)
	res := h.result().([]any)
	require.Len(t, res, 4)
	assert.Equal(t, "micro", res[0])
	assert.Equal(t, "a", res[1])
	assert.NotContains(t, res, "never")
	assert.Contains(t, res, "interval")
	assert.Equal(t, "b", res[len(res)-1])
}

func TestPerformanceNowReducedPrecision(t *testing.T) {
	gate, err := permissions.NewStatic(false, false, false, nil, nil)
	require.NoError(t, err)
	h := newHarness(t, gate, FetchOptions{})
	h.run(t, `
		const a = performance.now();
		result = [a >= 0, a % 2 === 0, typeof performance.timeOrigin];
	`)
	assert.Equal(t, []any{true, true, "number"}, h.result())
}

func TestBlobAndObjectURL(t *testing.T) {
	h := newHarness(t, nil, FetchOptions{})
	h.run(t, `
		const blob = new Blob(["hello ", new TextEncoder().encode("world")], { type: "Text/Plain" });
		const url = URL.createObjectURL(blob);
		result = { size: blob.size, type: blob.type, url };
		blob.slice(-5).text().then((s) => { result.slice = s });
		fetch(url).then((r) => r.text()).then((s) => { result.fetched = s });
	`)
	res := h.result().(map[string]any)
	assert.Equal(t, int64(11), res["size"])
	assert.Equal(t, "text/plain", res["type"])
	assert.Regexp(t, `^blob:null/[0-9a-f-]{36}$`, res["url"])
	assert.Equal(t, "world", res["slice"])
	assert.Equal(t, "hello world", res["fetched"])
	assert.Equal(t, 1, h.env.Blobs.Len())

	h.run(t, `URL.revokeObjectURL(result.url); fetch(result.url).catch((e) => { result.revoked = e.name })`)
	assert.Equal(t, "TypeError", h.result().(map[string]any)["revoked"])
	assert.Equal(t, 0, h.env.Blobs.Len())
}

func TestEventTarget(t *testing.T) {
	h := newHarness(t, nil, FetchOptions{})
	h.run(t, `
		const target = new EventTarget();
		result = [];
		const fn = (e) => result.push(e.type);
		target.addEventListener("ping", fn);
		target.addEventListener("ping", fn);
		target.addEventListener("ping", (e) => result.push("once"), { once: true });
		target.addEventListener("ping", (e) => e.preventDefault());
		result.push(target.dispatchEvent(new Event("ping", { cancelable: true })));
		target.removeEventListener("ping", fn);
		result.push(target.dispatchEvent(new Event("ping")));
	`)
	assert.Equal(t, []any{"ping", "once", false, true}, h.result())
}

func TestEventListenerErrorDoesNotStopDispatch(t *testing.T) {
	env, loop := newEnv(nil)
	t.Cleanup(loop.Close)
	var logs bytes.Buffer
	env.Logger = slog.New(slog.NewTextHandler(&logs, nil))
	require.NoError(t, Default(Options{Stdout: io.Discard, Stderr: io.Discard}).Install(env))

	_, err := env.VM.RunString(`
		const target = new EventTarget();
		result = [];
		target.addEventListener("ping", () => { throw new Error("boom") });
		target.addEventListener("ping", (e) => result.push(e.type));
		result.push(target.dispatchEvent(new Event("ping")));
	`)
	require.NoError(t, err)
	assert.Equal(t, []any{"ping", true}, env.VM.Get("result").Export())
	assert.Contains(t, logs.String(), "Uncaught exception in event listener")
	assert.Contains(t, logs.String(), "boom")
}

func TestTimerDelay(t *testing.T) {
	tests := []struct {
		name string
		ms   float64
		want time.Duration
	}{
		{"zero", 0, 0},
		{"fractional", 1.5, 1500 * time.Microsecond},
		{"negative", -10, 0},
		{"nan", math.NaN(), 0},
		{"positive infinity", math.Inf(1), 0},
		{"negative infinity", math.Inf(-1), 0},
		{"max", maxTimerDelayMs, maxTimerDelayMs * time.Millisecond},
		{"overflow", 1e300, 0},
		{"just past max", maxTimerDelayMs + 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, timerDelay(tt.ms))
		})
	}
}

func TestTimerWithNonFiniteDelayRunsSoon(t *testing.T) {
	h := newHarness(t, nil, FetchOptions{})
	h.run(t, `
		result = [];
		setTimeout(() => result.push("nan"), NaN);
		setTimeout(() => result.push("inf"), Infinity);
		setTimeout(() => result.push("zero"), 0);
	`)
	assert.Equal(t, []any{"nan", "inf", "zero"}, h.result())
}

func TestLoopStatsIsUnstable(t *testing.T) {
	h := newHarness(t, nil, FetchOptions{})
	op, ok := h.env.Ops.Get(LoopStatsOpName)
	require.True(t, ok)
	assert.True(t, op.Unstable)
	assert.Equal(t, LoopStatsExport, op.Export)
}
