package registry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{
			name: "list",
			path: "/api/objects",
			want: "/api/objects",
		},
		{
			name: "object",
			path: "/api/objects/org.softee:type=Test,name=one",
			want: "/api/objects/:name",
		},
		{
			name: "attribute",
			path: "/api/objects/org.softee:type=Test,name=one/attributes/InputCount",
			want: "/api/objects/:name/attributes/:attribute",
		},
		{
			name: "operation",
			path: "/api/objects/org.softee:type=Test,name=one/operations/Reset",
			want: "/api/objects/:name/operations/:operation",
		},
		{
			name: "summary",
			path: "/api/summary",
			want: "/api/summary",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeEndpoint(tt.path))
		})
	}
}

func TestMetricsMiddleware_PassesThrough(t *testing.T) {
	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/objects", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
}
