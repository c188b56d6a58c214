package web

import (
	"io/fs"
	"strings"
	"testing"
)

func TestStaticContainsIndex(t *testing.T) {
	raw, err := fs.ReadFile(Static(), "index.html")
	if err != nil {
		t.Fatalf("read index.html: %v", err)
	}
	for _, want := range []string{"/api/create-checkout-session", "/api/checkout-session", "/api/query", "localStorage"} {
		if !strings.Contains(string(raw), want) {
			t.Fatalf("index.html does not reference %q", want)
		}
	}
}

func TestPaymentRequiredReverifiesStoredSession(t *testing.T) {
	raw, err := fs.ReadFile(Static(), "index.html")
	if err != nil {
		t.Fatalf("read index.html: %v", err)
	}
	page := string(raw)

	start := strings.Index(page, "result.status === 402")
	if start < 0 {
		t.Fatalf("index.html has no 402 branch")
	}
	branch := page[start : start+strings.Index(page[start:], "}")]
	if !strings.Contains(branch, "reverifyStoredSession(") {
		t.Fatalf("402 branch must re-verify the stored session, got %q", branch)
	}
	if strings.Contains(branch, "removeItem") {
		t.Fatalf("402 branch must not drop the stored session directly")
	}
	if n := strings.Count(page, "localStorage.removeItem"); n != 1 {
		t.Fatalf("expected stored payment state removed only by clearState, found %d removals", n)
	}

	fn := page[strings.Index(page, "function reverifyStoredSession"):]
	fn = fn[:strings.Index(fn, "if (returnedSession)")]
	verify := strings.Index(fn, "verifySession(state.sessionId)")
	paidKept := strings.Index(fn, "result.body.paid === true")
	if verify < 0 || paidKept < verify {
		t.Fatalf("reverifyStoredSession must ask the verify endpoint and keep paid sessions")
	}
	if strings.LastIndex(fn, "clearState()") < verify {
		t.Fatalf("stored session may only be cleared after the verify endpoint answers")
	}
}
