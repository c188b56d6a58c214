package httpadapter

import (
	_ "embed"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/kirillkom/contract-qa/internal/config"
	"github.com/kirillkom/contract-qa/internal/core/domain"
	"github.com/kirillkom/contract-qa/internal/core/ports"
	"github.com/kirillkom/contract-qa/internal/observability/metrics"
)

//go:embed openapi.yaml
var openAPISpec []byte

type Router struct {
	cfg      config.Config
	checkout ports.CheckoutService
	queryUC  ports.ContractQueryService
	metrics  *metrics.HTTPServerMetrics
	static   fs.FS
}

// NewRouter builds the HTTP surface. m may be nil. static is the client UI
// served when cfg.StaticDir is empty.
func NewRouter(
	cfg config.Config,
	checkout ports.CheckoutService,
	queryUC ports.ContractQueryService,
	m *metrics.HTTPServerMetrics,
	static fs.FS,
) *Router {
	if dir := strings.TrimSpace(cfg.StaticDir); dir != "" {
		static = os.DirFS(dir)
	}
	return &Router{
		cfg:      cfg,
		checkout: checkout,
		queryUC:  queryUC,
		metrics:  m,
		static:   static,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /openapi.yaml", rt.openAPI)
	mux.HandleFunc("POST /api/query", rt.query)
	mux.HandleFunc("POST /api/create-checkout-session", rt.createCheckoutSession)
	mux.HandleFunc("GET /api/checkout-session", rt.verifyCheckoutSession)
	mux.HandleFunc("GET /api/", rt.apiNotFound)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}
	mux.HandleFunc("GET /", rt.staticFiles)

	var handler http.Handler = recoverMiddleware(mux)
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPISpec)
}

func (rt *Router) apiNotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
}

func (rt *Router) query(w http.ResponseWriter, r *http.Request) {
	status := rt.answerQuery(w, r)
	if rt.metrics != nil {
		rt.metrics.RecordQuery(status)
	}
}

func (rt *Router) answerQuery(w http.ResponseWriter, r *http.Request) int {
	ctx := r.Context()

	// A body that is not multipart simply carries no file.
	if err := r.ParseMultipartForm(rt.cfg.MaxUploadBytes()); err == nil {
		defer r.MultipartForm.RemoveAll()
	} else if !errors.Is(err, http.ErrNotMultipart) {
		return writeError(ctx, w, "parse query form", domain.WrapError(domain.ErrInvalidInput, "parse query form", err))
	}

	var (
		body     io.Reader
		filename string
	)
	file, header, err := r.FormFile("contract")
	switch {
	case err == nil:
		defer file.Close()
		body, filename = file, header.Filename
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		return writeError(ctx, w, "read contract file", domain.WrapError(domain.ErrInvalidInput, "read contract file", err))
	}

	answer, err := rt.queryUC.Ask(ctx, r.FormValue("sessionId"), filename, body, r.FormValue("question"))
	if err != nil {
		return writeError(ctx, w, "answer contract query", err)
	}

	writeJSON(w, http.StatusOK, answer)
	return http.StatusOK
}

type checkoutSessionResponse struct {
	URL string `json:"url"`
	ID  string `json:"id"`
}

func (rt *Router) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	session, err := rt.checkout.CreateCheckoutSession(r.Context())
	if rt.metrics != nil {
		rt.metrics.RecordCheckoutSession(err)
	}
	if err != nil {
		writeError(r.Context(), w, "create checkout session", err)
		return
	}
	writeJSON(w, http.StatusOK, checkoutSessionResponse{URL: session.URL, ID: session.ID})
}

func (rt *Router) verifyCheckoutSession(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request", Details: "query parameter session_id is required"})
		return
	}

	paid, err := rt.checkout.VerifyCheckoutSession(r.Context(), sessionID)
	if rt.metrics != nil {
		rt.metrics.RecordVerification(paid, err)
	}
	if err != nil {
		writeError(r.Context(), w, "verify checkout session", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paid": paid})
}

// staticFiles serves the client UI and falls back to index.html for unknown
// paths so client-side routes survive a reload.
func (rt *Router) staticFiles(w http.ResponseWriter, r *http.Request) {
	if rt.static == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
		return
	}

	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name != "" && name != "index.html" {
		if info, err := fs.Stat(rt.static, name); err == nil && !info.IsDir() {
			http.ServeFileFS(w, r, rt.static, name)
			return
		}
	}
	if _, err := fs.Stat(rt.static, "index.html"); err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	serveIndex(w, r, rt.static)
}

func serveIndex(w http.ResponseWriter, r *http.Request, fsys fs.FS) {
	raw, err := fs.ReadFile(fsys, "index.html")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(raw)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
