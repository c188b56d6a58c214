package httpadapter

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"

	"github.com/kirillkom/contract-qa/internal/config"
)

func loadOpenAPIDoc(t *testing.T) *openapi3.T {
	t.Helper()
	doc, err := openapi3.NewLoader().LoadFromData(openAPISpec)
	if err != nil {
		t.Fatalf("load openapi.yaml: %v", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		t.Fatalf("openapi.yaml is invalid: %v", err)
	}
	return doc
}

func validateResponse(t *testing.T, doc *openapi3.T, specPath string, req *http.Request, res *httptest.ResponseRecorder) {
	t.Helper()
	pathItem := doc.Paths.Find(specPath)
	if pathItem == nil {
		t.Fatalf("path %s missing from openapi.yaml", specPath)
	}
	operation := pathItem.GetOperation(req.Method)
	if operation == nil {
		t.Fatalf("%s %s missing from openapi.yaml", req.Method, specPath)
	}

	input := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{
			Request: req,
			Route: &routers.Route{
				Spec:      doc,
				Path:      specPath,
				PathItem:  pathItem,
				Method:    req.Method,
				Operation: operation,
			},
		},
		Status: res.Code,
		Header: res.Header(),
		Body:   io.NopCloser(bytes.NewReader(res.Body.Bytes())),
		Options: &openapi3filter.Options{
			IncludeResponseStatus: true,
		},
	}
	if err := openapi3filter.ValidateResponse(context.Background(), input); err != nil {
		t.Fatalf("%s %s -> %d does not match openapi.yaml: %v\nbody: %s", req.Method, specPath, res.Code, err, res.Body.String())
	}
}

func TestResponsesMatchOpenAPIContract(t *testing.T) {
	doc := loadOpenAPIDoc(t)
	fx := newRouterFixture(t, config.Config{})

	tests := []struct {
		name     string
		specPath string
		req      func() *http.Request
	}{
		{
			name:     "healthz",
			specPath: "/healthz",
			req:      func() *http.Request { return httptest.NewRequest(http.MethodGet, "/healthz", nil) },
		},
		{
			name:     "create checkout session",
			specPath: "/api/create-checkout-session",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/create-checkout-session", nil)
			},
		},
		{
			name:     "verify paid session",
			specPath: "/api/checkout-session",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/api/checkout-session?session_id=cs_paid", nil)
			},
		},
		{
			name:     "verify without session id",
			specPath: "/api/checkout-session",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/api/checkout-session", nil)
			},
		},
		{
			name:     "answered query",
			specPath: "/api/query",
			req: func() *http.Request {
				return newQueryRequest(t, queryForm{filename: "a.txt", contract: "Term: 12 months", question: "What is the term?", sessionID: "cs_paid"})
			},
		},
		{
			name:     "unpaid query",
			specPath: "/api/query",
			req: func() *http.Request {
				return newQueryRequest(t, queryForm{filename: "a.txt", contract: "x", question: "q?", sessionID: "cs_unpaid"})
			},
		},
		{
			name:     "query without file",
			specPath: "/api/query",
			req: func() *http.Request {
				return newQueryRequest(t, queryForm{noFile: true, question: "q?", sessionID: "cs_paid"})
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req()
			res := fx.serve(req)
			validateResponse(t, doc, tt.specPath, req, res)
		})
	}
}

func TestOpenAPIEndpointServesEmbeddedContract(t *testing.T) {
	fx := newRouterFixture(t, config.Config{})

	res := fx.serve(httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !bytes.Equal(res.Body.Bytes(), openAPISpec) {
		t.Fatalf("served document differs from embedded openapi.yaml")
	}
}
