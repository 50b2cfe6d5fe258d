package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
)

func TestRegistry_Definitions(t *testing.T) {
	r := NewRegistry(NewWebSearch(SearchConfig{}), NewWebFetch(FetchConfig{}))

	defs := r.Definitions()
	var names []string
	for _, d := range defs {
		names = append(names, d.Name)
	}
	if diff := cmp.Diff([]string{"web_fetch", "web_search"}, names); diff != "" {
		t.Errorf("definitions mismatch (-want +got):\n%s", diff)
	}
	if r.Get("web_search") == nil {
		t.Error("expected web_search to be registered")
	}
	if r.Get("bash") != nil {
		t.Error("unexpected tool")
	}
}

func TestWebSearch_Tavily(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"results":[{"title":"Go","url":"https://go.dev","content":"The Go language","score":0.9}]}`))
	}))
	defer srv.Close()

	ws := NewWebSearch(SearchConfig{Provider: "tavily", APIKey: "k", Endpoint: srv.URL})
	out, err := ws.Execute(context.Background(), map[string]interface{}{"query": "golang"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := []SearchResult{{Title: "Go", URL: "https://go.dev", Snippet: "The Go language", Score: 0.9}}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
	if got["query"] != "golang" || got["max_results"] != float64(5) {
		t.Errorf("unexpected request body: %v", got)
	}
}

func TestWebSearch_Brave(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Subscription-Token") != "bk" {
			t.Errorf("missing subscription token")
		}
		if r.URL.Query().Get("q") != "go lang" || r.URL.Query().Get("count") != "3" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`{"web":{"results":[{"title":"A","url":"https://a.dev","description":"desc"}]}}`))
	}))
	defer srv.Close()

	ws := NewWebSearch(SearchConfig{Provider: "brave", APIKey: "bk", MaxResults: 3, Endpoint: srv.URL})
	results, err := ws.Search(context.Background(), "go lang")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].URL != "https://a.dev" || results[0].Snippet != "desc" {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestWebSearch_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	tests := []struct {
		name string
		ws   *WebSearch
		args map[string]interface{}
		want string
	}{
		{"missing query", NewWebSearch(SearchConfig{APIKey: "k"}), map[string]interface{}{}, "query is required"},
		{"missing key", NewWebSearch(SearchConfig{}), map[string]interface{}{"query": "x"}, "no search API key"},
		{"bad provider", NewWebSearch(SearchConfig{Provider: "bing", APIKey: "k", Endpoint: srv.URL}), map[string]interface{}{"query": "x"}, "unsupported search provider"},
		{"http error", NewWebSearch(SearchConfig{APIKey: "k", Endpoint: srv.URL}), map[string]interface{}{"query": "x"}, "(401)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.ws.Execute(context.Background(), tt.args)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestWebSearch_RateLimitHonoursContext(t *testing.T) {
	ws := NewWebSearch(SearchConfig{APIKey: "k", RequestsPerSecond: 0.001, Endpoint: "http://127.0.0.1:0"})
	ws.limiter.Allow() // drain the single burst token

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ws.Search(ctx, "x"); err == nil || !strings.Contains(err.Error(), "rate limit") {
		t.Errorf("expected rate limit error, got %v", err)
	}
}

func TestExtractText(t *testing.T) {
	doc := `<html><head><title>Title</title><script>var secret = 1;</script></head>
<body><nav>menu</nav><h2>Heading</h2><p>Hello <a href="https://example.com/a">world</a></p>
<ul><li>one</li><li>two</li></ul></body></html>`

	text, err := ExtractText(doc)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	for _, want := range []string{"# Title", "## Heading", "Hello", "(https://example.com/a)", "- one", "- two"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in:\n%s", want, text)
		}
	}
	for _, bad := range []string{"secret", "menu", "\n\n\n"} {
		if strings.Contains(text, bad) {
			t.Errorf("unexpected %q in:\n%s", bad, text)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short", "abc", 5, "abc"},
		{"ascii", "abcdef", 3, "abc" + truncationMarker},
		{"inside two-byte rune", "héllo", 2, "h" + truncationMarker},
		{"on rune boundary", "héllo", 3, "hé" + truncationMarker},
		{"inside three-byte rune", "a€b", 2, "a" + truncationMarker},
		{"first rune cut", "€uro", 1, truncationMarker},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.max)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate(%q, %d) produced invalid UTF-8", tt.in, tt.max)
			}
		})
	}
}

func TestWebFetch_Execute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html><body><p>" + strings.Repeat("a", 200) + "</p></body></html>"))
		case "/plain":
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte("<b>raw</b>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	wf := NewWebFetch(FetchConfig{MaxBytes: 50})
	out, err := wf.Execute(context.Background(), map[string]interface{}{
		"urls": []interface{}{srv.URL + "/page", srv.URL + "/plain", srv.URL + "/missing", "ftp://x"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	results := out.([]FetchResult)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}

	if results[0].Status != "success" || !strings.HasSuffix(results[0].Content, truncationMarker) {
		t.Errorf("page result not truncated: %+v", results[0])
	}
	if results[1].Content != "<b>raw</b>" {
		t.Errorf("plain text should pass through, got %q", results[1].Content)
	}
	if results[2].Status != "error" || !strings.Contains(results[2].Error, "404") {
		t.Errorf("missing page: %+v", results[2])
	}
	if results[3].Status != "error" || !strings.Contains(results[3].Error, "scheme") {
		t.Errorf("bad scheme: %+v", results[3])
	}
}

func TestWebFetch_ExecuteArgs(t *testing.T) {
	wf := NewWebFetch(FetchConfig{MaxURLs: 1})
	if _, err := wf.Execute(context.Background(), map[string]interface{}{}); err == nil {
		t.Error("expected error for missing urls")
	}
	out, err := wf.Execute(context.Background(), map[string]interface{}{"urls": []interface{}{"ftp://a", "ftp://b"}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if n := len(out.([]FetchResult)); n != 1 {
		t.Errorf("expected MaxURLs cap of 1, got %d", n)
	}
}
