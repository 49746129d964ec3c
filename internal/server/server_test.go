package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

func TestBasicRouter(t *testing.T) {
	t.Run("registers every handler route", func(t *testing.T) {
		router := NewBasicRouter()
		handler := NewOAuthHandler(&oauth2.Config{}, "state")
		router.Handler(handler)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=wrong", nil))

		if rec.Code == http.StatusNotFound {
			t.Error("expected /callback to be routed")
		}
	})

	t.Run("applies middleware in reverse order", func(t *testing.T) {
		var order []string
		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mw("outer"), mw("inner"))
		router.Handler(routeHandler{path: "/ping"})

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

		if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
			t.Errorf("expected [outer inner], got %v", order)
		}
	})

	t.Run("NoStore disables caching", func(t *testing.T) {
		router := NewBasicRouter()
		router.Use(NoStore)
		router.Handler(routeHandler{path: "/ping"})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

		if got := rec.Header().Get("Cache-Control"); got != "no-store" {
			t.Errorf("expected Cache-Control no-store, got %q", got)
		}
	})
}

type routeHandler struct {
	path string
}

func (h routeHandler) Routes() []string { return []string{h.path} }

func (h routeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestOAuthHandler(t *testing.T) {
	callback := func(query string) *http.Request {
		return httptest.NewRequest(http.MethodGet, "/callback?"+query, nil)
	}

	t.Run("rejects mismatched state", func(t *testing.T) {
		handler := NewOAuthHandler(&oauth2.Config{}, "expected")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, callback("state=forged&code=abc"))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
		result := <-handler.Result()
		if result.Error() == nil || !strings.Contains(result.Error().Error(), "state") {
			t.Errorf("expected state error, got %v", result.Error())
		}
	})

	t.Run("surfaces denied consent", func(t *testing.T) {
		handler := NewOAuthHandler(&oauth2.Config{}, "s")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, callback("state=s&error=access_denied&error_description=user+denied"))

		result := <-handler.Result()
		if result.Error() == nil || !strings.Contains(result.Error().Error(), "access_denied") {
			t.Errorf("expected access_denied error, got %v", result.Error())
		}
	})

	t.Run("rejects replayed callback", func(t *testing.T) {
		handler := NewOAuthHandler(&oauth2.Config{}, "expected")

		handler.ServeHTTP(httptest.NewRecorder(), callback("state=forged"))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, callback("state=expected&code=abc"))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected replay to be rejected, got status %d", rec.Code)
		}
	})
}
