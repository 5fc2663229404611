// Package httpapi adapts net/http requests to the evaluator: it builds a
// RequestContext per request, dispatches it through the route table, and
// writes back the shaped response (spec.md §4.5, §6).
package httpapi

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/nonibytes/cssapi/internal/eval"
	"github.com/nonibytes/cssapi/internal/lang"
	"github.com/nonibytes/cssapi/internal/runtime"
)

// maxBodyBytes caps a request body so a misbehaving client can't exhaust
// memory building the in-memory body Value.
const maxBodyBytes = 10 << 20 // 10 MiB

// Handler dispatches HTTP requests against a loaded Runtime.
type Handler struct {
	rt *runtime.Runtime
}

func NewHandler(rt *runtime.Runtime) *Handler {
	return &Handler{rt: rt}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := h.serve(w, r)
	size := r.ContentLength
	if size < 0 {
		size = 0
	}
	log.Printf("%s %s %d %s %s", r.Method, r.URL.Path, status, humanize.Bytes(uint64(size)), time.Since(start))
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) int {
	match, ok := h.rt.Table.Lookup(lang.Method(r.Method), r.URL.Path)
	if !ok {
		return writeJSON(w, http.StatusNotFound, map[string]any{"error": "Not Found"})
	}

	ctx, err := buildContext(w, r, match.Params)
	if err != nil {
		return writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
	}

	route := match.Route
	for _, b := range route.Bindings {
		v, err := eval.Evaluate(b.Expr, ctx, h.executor())
		if err != nil {
			return writeInternalError(w, err)
		}
		ctx.SetVar(string(b.Name), v)
	}

	statusCode := http.StatusOK
	if route.Status != nil {
		sv, err := eval.Evaluate(*route.Status, ctx, h.executor())
		if err != nil {
			return writeInternalError(w, err)
		}
		if n, ok := sv.AsNumber(); ok {
			statusCode = int(n)
		}
	}

	retVal, err := eval.Evaluate(route.Return.Value, ctx, h.executor())
	if err != nil {
		return writeInternalError(w, err)
	}

	switch route.Return.Kind {
	case lang.ReturnHTML:
		return writeHTML(w, statusCode, retVal, r.Method)
	default:
		return writeJSONValue(w, statusCode, retVal, r.Method)
	}
}

// writeInternalError logs the underlying evaluator error and reports it to
// the client as a bare "internal error" with no further detail, per
// spec.md §7/NFR-03 — construct names and line/column info never leave the
// server.
func writeInternalError(w http.ResponseWriter, err error) int {
	log.Printf("internal error: %v", err)
	return writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
}

func (h *Handler) executor() eval.SQLExecutor {
	if h.rt.Executor == nil {
		return nil
	}
	return h.rt.Executor
}

// buildContext decodes the request body (when present) according to its
// Content-Type and assembles the per-request evaluation context.
func buildContext(w http.ResponseWriter, r *http.Request, params map[string]string) (*eval.RequestContext, error) {
	query := make(map[string]string)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}

	headers := make(map[string]string)
	for k := range r.Header {
		headers[strings.ToLower(k)] = r.Header.Get(k)
	}

	body, err := decodeBody(w, r)
	if err != nil {
		return nil, err
	}

	return eval.NewRequestContext(params, query, headers, body), nil
}

func decodeBody(w http.ResponseWriter, r *http.Request) (eval.Value, error) {
	if r.Body == nil || r.ContentLength == 0 {
		return eval.Null(), nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return eval.Null(), err
	}
	if len(data) == 0 {
		return eval.Null(), nil
	}

	ct := r.Header.Get("Content-Type")
	switch {
	case strings.Contains(ct, "application/json"):
		var decoded any
		if err := json.Unmarshal(data, &decoded); err != nil {
			return eval.Null(), err
		}
		return eval.FromInterface(decoded), nil

	case strings.Contains(ct, "application/x-www-form-urlencoded"):
		values, err := parseFormBody(string(data))
		if err != nil {
			return eval.Null(), err
		}
		return values, nil

	default:
		// Unknown content types yield an empty object body (spec.md §6).
		return eval.Object(nil, nil), nil
	}
}

func parseFormBody(raw string) (eval.Value, error) {
	form, err := url.ParseQuery(raw)
	if err != nil {
		return eval.Null(), err
	}
	keys := make([]string, 0, len(form))
	vals := make([]eval.Value, 0, len(form))
	for k, v := range form {
		keys = append(keys, k)
		if len(v) > 0 {
			vals = append(vals, eval.String(v[0]))
		} else {
			vals = append(vals, eval.String(""))
		}
	}
	return eval.Object(keys, vals), nil
}
