package modules

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dop251/goja"
	"golang.org/x/net/http/httpguts"

	"github.com/tx7do/flubber"
	"github.com/tx7do/flubber/eventloop"
	"github.com/tx7do/flubber/ops"
)

// FetchOpName is the op behind the fetch global.
const FetchOpName = "op_fetch"

const fetchAPI = "fetch()"

// fetchResult is a completed response before it is turned into a script object.
type fetchResult struct {
	url        string
	status     int
	statusText string
	redirected bool
	headers    *headerList
	body       []byte
}

// fetchRequest is a validated request, ready to leave the loop goroutine.
type fetchRequest struct {
	method  string
	url     *url.URL
	headers *headerList
	body    []byte
}

type fetchModule struct {
	opts FetchOptions
}

// NewFetch returns the fetch module: fetch, Headers and Response.
func NewFetch(opts FetchOptions) Module {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &fetchModule{opts: opts}
}

func (m *fetchModule) Name() string      { return "fetch" }
func (m *fetchModule) Deps() []string    { return []string{"web"} }
func (m *fetchModule) Globals() []string { return []string{"fetch", "Headers", "Response"} }
func (m *fetchModule) Ops() []string     { return []string{FetchOpName} }

func (m *fetchModule) Install(env *Env) error {
	vm := env.VM

	// every redirect hop is a new outbound request and goes through the gate
	client := *m.opts.Client
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 10 {
			return errors.New("stopped after 10 redirects")
		}
		return env.Gate.CheckNetURL(req.URL, fetchAPI)
	}

	if err := env.Ops.Register(ops.Op{
		Name: FetchOpName,
		Handler: func(args ops.Args) (any, error) {
			return m.fetch(env, &client, args), nil
		},
	}); err != nil {
		return err
	}

	if err := vm.Set("Headers", headersConstructor(vm)); err != nil {
		return err
	}
	if err := vm.Set("Response", responseConstructor(vm)); err != nil {
		return err
	}
	return vm.Set("fetch", func(call goja.FunctionCall) goja.Value {
		res, err := env.Ops.Invoke(FetchOpName, ops.NewArgs(vm, call.Arguments...))
		if err != nil {
			return rejected(vm, ops.ScriptError(vm, err))
		}
		return res.(goja.Value)
	})
}

// fetch validates the request on the loop goroutine and returns the promise
// the script awaits. I/O happens off the loop; the promise settles in the
// continuation it sends back.
func (m *fetchModule) fetch(env *Env, client *http.Client, args ops.Args) goja.Value {
	vm := env.VM
	req, err := parseFetchRequest(vm, args.Value(0), args.Value(1))
	if err != nil {
		return rejected(vm, vm.NewTypeError(err.Error()))
	}

	p, resolve, reject := vm.NewPromise()
	settle := func(res *fetchResult, err error) error {
		if err != nil {
			reject(fetchError(vm, err))
			return nil
		}
		obj, err := newResponse(vm, res)
		if err != nil {
			reject(errorValue(vm, err))
			return nil
		}
		resolve(obj)
		return nil
	}

	switch req.url.Scheme {
	case "http", "https":
		if err := env.Gate.CheckNetURL(req.url, fetchAPI); err != nil {
			reject(ops.ScriptError(vm, err))
			break
		}
		env.Loop.Go(func(ctx context.Context) eventloop.Task {
			res, err := m.roundTrip(ctx, client, req)
			if err != nil {
				env.Logger.Debug("Fetch failed", "url", req.url.String(), "error", err)
			}
			return func(*goja.Runtime) error { return settle(res, err) }
		})

	case "file":
		path := req.url.Path
		if err := env.Gate.CheckRead(path, fetchAPI); err != nil {
			reject(ops.ScriptError(vm, err))
			break
		}
		if req.method != http.MethodGet && req.method != http.MethodHead {
			reject(vm.NewTypeError(fmt.Sprintf("Fetching files only supports GET and HEAD, not %s", req.method)))
			break
		}
		env.Loop.Go(func(context.Context) eventloop.Task {
			res, err := readFile(req.url, m.opts.MaxBodyBytes)
			return func(*goja.Runtime) error { return settle(res, err) }
		})

	case "blob":
		part, ok := env.Blobs.Get(req.url.String())
		if !ok || req.method != http.MethodGet {
			reject(vm.NewTypeError(fetchFailedMessage))
			break
		}
		h := newHeaderList()
		_ = h.set("content-length", fmt.Sprint(len(part.Data)))
		if part.Type != "" {
			_ = h.set("content-type", part.Type)
		}
		res := &fetchResult{url: req.url.String(), status: http.StatusOK, statusText: "OK", headers: h, body: part.Data}
		env.Loop.Enqueue(func(*goja.Runtime) error { return settle(res, nil) })

	default:
		reject(vm.NewTypeError(fmt.Sprintf("scheme %q is not supported", req.url.Scheme)))
	}

	return vm.ToValue(p)
}

func (m *fetchModule) roundTrip(ctx context.Context, client *http.Client, req *fetchRequest) (*fetchResult, error) {
	var body io.Reader
	if req.body != nil {
		body = strings.NewReader(string(req.body))
	}
	hreq, err := http.NewRequestWithContext(ctx, req.method, req.url.String(), body)
	if err != nil {
		return nil, err
	}
	hreq.Header = req.headers.httpHeader()
	if hreq.Header.Get("User-Agent") == "" && m.opts.UserAgent != "" {
		hreq.Header.Set("User-Agent", m.opts.UserAgent)
	}

	resp, err := client.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, m.opts.MaxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > m.opts.MaxBodyBytes {
		return nil, fmt.Errorf("response body exceeds %d bytes", m.opts.MaxBodyBytes)
	}

	return &fetchResult{
		url:        resp.Request.URL.String(),
		status:     resp.StatusCode,
		statusText: http.StatusText(resp.StatusCode),
		redirected: resp.Request.URL.String() != req.url.String(),
		headers:    headerListFromHTTP(resp.Header),
		body:       data,
	}, nil
}

func readFile(u *url.URL, limit int64) (*fetchResult, error) {
	f, err := os.Open(u.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("file exceeds %d bytes", limit)
	}

	h := newHeaderList()
	_ = h.set("content-length", fmt.Sprint(len(data)))
	if ctype := mime.TypeByExtension(filepath.Ext(u.Path)); ctype != "" {
		_ = h.set("content-type", ctype)
	}
	return &fetchResult{url: u.String(), status: http.StatusOK, statusText: "OK", headers: h, body: data}, nil
}

const fetchFailedMessage = "fetch failed"

// fetchError converts a transport failure into the TypeError fetch rejects
// with. Permission denials from redirect checks keep their own shape.
func fetchError(vm *goja.Runtime, err error) goja.Value {
	var perr *flubber.PermissionError
	if errors.As(err, &perr) {
		return ops.ScriptError(vm, perr)
	}
	te := vm.NewTypeError(fetchFailedMessage)
	_ = te.Set("cause", vm.NewGoError(err))
	return te
}

func parseFetchRequest(vm *goja.Runtime, input, init goja.Value) (*fetchRequest, error) {
	if input == nil || goja.IsUndefined(input) {
		return nil, errors.New("fetch requires a URL")
	}
	u, err := url.Parse(input.String())
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %s", input.String())
	}
	if !u.IsAbs() {
		return nil, fmt.Errorf("URL must be absolute: %s", input.String())
	}

	req := &fetchRequest{method: http.MethodGet, url: u, headers: newHeaderList()}

	if v := option(vm, init, "method"); v != nil {
		method := v.String()
		if !validMethod(method) {
			return nil, fmt.Errorf("invalid method: %q", method)
		}
		switch upper := strings.ToUpper(method); upper {
		case "DELETE", "GET", "HEAD", "OPTIONS", "POST", "PUT":
			method = upper
		}
		req.method = method
	}

	if err := fillHeaders(vm, req.headers, option(vm, init, "headers")); err != nil {
		return nil, err
	}

	if v := option(vm, init, "body"); v != nil && !goja.IsNull(v) {
		if req.method == http.MethodGet || req.method == http.MethodHead {
			return nil, errors.New("request with GET/HEAD method cannot have body")
		}
		body, ctype, ok := bodySource(vm, v)
		if !ok {
			return nil, errors.New("unsupported request body")
		}
		req.body = body
		if _, ok := req.headers.get("content-type"); !ok && ctype != "" {
			_ = req.headers.set("content-type", ctype)
		}
	}
	return req, nil
}

func validMethod(m string) bool {
	if m == "" {
		return false
	}
	for i := 0; i < len(m); i++ {
		if !httpguts.IsTokenRune(rune(m[i])) {
			return false
		}
	}
	return true
}
