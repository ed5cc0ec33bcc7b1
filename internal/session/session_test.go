package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddlewareIssuesAndReusesCookie(t *testing.T) {
	var seen string
	h := Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen, _ = Visitor(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != cookieName || cookies[0].Value != seen || seen == "" {
		t.Fatalf("cookie = %+v, ctx id = %q", cookies, seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	first := seen
	h.ServeHTTP(rec, req)
	if seen != first {
		t.Fatalf("id changed: %q → %q", first, seen)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("existing visitor should not get a new cookie")
	}
}

func TestGarbageCookieReplaced(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: "../../etc"})
	rec := httptest.NewRecorder()
	id := Ensure(rec, req)
	if id == "../../etc" || len(rec.Result().Cookies()) != 1 {
		t.Fatalf("garbage accepted: %q", id)
	}
}
