package routerhelper

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
)

func TestRouteGroupPath(t *testing.T) {
	router := httprouter.New()
	testCases := []struct {
		name   string
		group  *RouteGroup
		path   string
		expect string
	}{
		{name: "api", group: NewRouteGroup(router, "/api"), path: "/route", expect: "/api/route"},
		{name: "no leading slash", group: NewRouteGroup(router, "api/"), path: "route", expect: "/api/route"},
		{name: "nested", group: NewRouteGroup(router, "/api").Group("v1"), path: "/route", expect: "/api/v1/route"},
		{name: "root", group: NewRouteGroup(router, ""), path: "/", expect: "/"},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.group.Path(tt.path))
		})
	}
}

func TestRouteGroupRegisters(t *testing.T) {
	router := httprouter.New()
	group := NewRouteGroup(router, "/api")
	group.POST("/route", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusAccepted)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/route", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/route", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
