package relay

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

type recordedRequest struct {
	Method      string
	Path        string
	ContentType string
	Body        string
}

type recorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (r *recorder) add(req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, recordedRequest{
		Method:      req.Method,
		Path:        req.URL.Path,
		ContentType: req.Header.Get("Content-Type"),
		Body:        string(body),
	})
}

func (r *recorder) all() []recordedRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedRequest(nil), r.requests...)
}

func TestRequestOK(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		_, _ = io.WriteString(w, "  body with spaces \n")
	}))
	defer server.Close()

	res, err := NewRequester(0, nil).Request(context.Background(), server.URL+"/exec", "", nil)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if res.StatusCode != http.StatusOK || res.Body != "  body with spaces \n" {
		t.Fatalf("unexpected result: %+v", res)
	}

	reqs := rec.all()
	if len(reqs) != 1 || reqs[0].Method != http.MethodGet || reqs[0].ContentType != "" {
		t.Fatalf("expected a single plain GET, got %+v", reqs)
	}
}

func TestRequestPostSetsJSON(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		_, _ = io.WriteString(w, "SUCCEEDED")
	}))
	defer server.Close()

	res, err := NewRequester(0, nil).Request(context.Background(), server.URL, "post", []byte(`{"a":1}`))
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if res.Body != "SUCCEEDED" || res.Redirected {
		t.Fatalf("unexpected result: %+v", res)
	}

	reqs := rec.all()
	if reqs[0].Method != http.MethodPost || reqs[0].ContentType != "application/json" || reqs[0].Body != `{"a":1}` {
		t.Fatalf("unexpected request: %+v", reqs[0])
	}
}

func TestRequestFollowsOneRedirectAsGet(t *testing.T) {
	rec := &recorder{}
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		switch r.URL.Path {
		case "/exec":
			w.Header().Set("Location", server.URL+"/echo?user_content_key=abc")
			w.WriteHeader(http.StatusFound)
			_, _ = io.WriteString(w, "moved")
		case "/echo":
			_, _ = io.WriteString(w, "SUCCEEDED")
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	res, err := NewRequester(0, nil).Request(context.Background(), server.URL+"/exec", http.MethodPost, []byte(`{"command":"unlock"}`))
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if res.Body != "SUCCEEDED" || res.StatusCode != http.StatusOK || !res.Redirected {
		t.Fatalf("unexpected result: %+v", res)
	}

	reqs := rec.all()
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(reqs))
	}
	second := reqs[1]
	if second.Method != http.MethodGet || second.Path != "/echo" || second.Body != "" || second.ContentType != "" {
		t.Fatalf("redirect should downgrade to a bare GET, got %+v", second)
	}
}

func TestRequestFollowsOnlyOneHop(t *testing.T) {
	rec := &recorder{}
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		w.Header().Set("Location", server.URL+"/again")
		w.WriteHeader(http.StatusFound)
		_, _ = io.WriteString(w, "still moving")
	}))
	defer server.Close()

	res, err := NewRequester(0, nil).Request(context.Background(), server.URL+"/exec", http.MethodGet, nil)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if len(rec.all()) != 2 {
		t.Fatalf("expected exactly one follow-up, got %d requests", len(rec.all()))
	}
	if res.StatusCode != http.StatusFound || res.Body != "still moving" {
		t.Fatalf("second response should be returned as-is: %+v", res)
	}
}

func TestRequestRelativeLocation(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		if r.URL.Path == "/exec" {
			w.Header().Set("Location", "/done")
			w.WriteHeader(http.StatusFound)
			return
		}
		_, _ = io.WriteString(w, "ok")
	}))
	defer server.Close()

	res, err := NewRequester(0, nil).Request(context.Background(), server.URL+"/exec", http.MethodPost, nil)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if res.Body != "ok" || rec.all()[1].Path != "/done" {
		t.Fatalf("unexpected redirect handling: %+v %+v", res, rec.all())
	}
}

func TestRequestOtherStatusReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, "INVALID API KEY")
	}))
	defer server.Close()

	res, err := NewRequester(0, nil).Request(context.Background(), server.URL, http.MethodPost, []byte("{}"))
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if res.StatusCode != http.StatusForbidden || res.Body != "INVALID API KEY" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestRequestTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	res, err := NewRequester(0, nil).Request(context.Background(), url, http.MethodPost, nil)
	if err == nil {
		t.Fatalf("expected transport error")
	}
	if res.Body != "" {
		t.Fatalf("expected empty body, got %q", res.Body)
	}
}

func TestUnlockPayload(t *testing.T) {
	payload, err := NewUnlockRequest("Unlock Remote", "key", "ssm://UI?t=sk&sk=x").Payload()
	if err != nil {
		t.Fatalf("Payload error: %v", err)
	}
	want := `{"command":"unlock","history":"Unlock Remote","apiKey":"key","qrCode":"ssm://UI?t=sk&sk=x"}`
	if string(payload) != want {
		t.Fatalf("unexpected payload:\n got %s\nwant %s", payload, want)
	}
}

func TestSucceeded(t *testing.T) {
	cases := map[string]bool{
		"SUCCEEDED":   true,
		"SUCCEEDED\n": false,
		"succeeded":   false,
		"":            false,
	}
	for body, want := range cases {
		if got := Succeeded(body); got != want {
			t.Errorf("Succeeded(%q) = %v, want %v", body, got, want)
		}
	}
}

func TestRequestFoundWithoutLocationIsFinal(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		w.WriteHeader(http.StatusFound)
		_, _ = io.WriteString(w, "moved somewhere")
	}))
	defer server.Close()

	res, err := NewRequester(0, nil).Request(context.Background(), server.URL, http.MethodPost, []byte("{}"))
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if res.StatusCode != http.StatusFound || res.Body != "moved somewhere" || res.Redirected {
		t.Fatalf("expected the 302 itself as the result, got %+v", res)
	}
	if n := len(rec.all()); n != 1 {
		t.Fatalf("expected no follow-up request, got %d requests", n)
	}
}
