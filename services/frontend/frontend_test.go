package frontend

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestIndexPage_EscapesAPIBase(t *testing.T) {
	var buf bytes.Buffer
	if err := IndexPage(`/api/todos"><script>`).Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	html := buf.String()
	if strings.Contains(html, `"><script>`) {
		t.Fatalf("api base must be escaped: %s", html)
	}
	if !strings.Contains(html, `<script src="/static/app.js"></script>`) {
		t.Fatalf("page script missing")
	}
}

func TestIndexPage_HasElementsUsedByScript(t *testing.T) {
	var buf bytes.Buffer
	if err := IndexPage("/api/todos").Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	html := buf.String()
	for _, want := range []string{
		`<main data-api-base="/api/todos">`,
		`id="new-todo"`,
		`name="title"`,
		`name="description"`,
		`id="status"`,
		`id="todos"`,
		`href="/static/styles.css"`,
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("page is missing %s:\n%s", want, html)
		}
	}
}

func TestStaticHandler_ServesAssets(t *testing.T) {
	for _, path := range []string{"/styles.css", "/app.js"} {
		rr := httptest.NewRecorder()
		StaticHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rr.Code)
		}
		if rr.Body.Len() == 0 {
			t.Fatalf("%s: empty body", path)
		}
	}
}
