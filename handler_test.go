package tick

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ryhazerus/tick/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCount(t *testing.T) {
	st := store.NewMemoryStore()
	sup := NewSupervisor(func() *Service { return New(WithStore(st)) })
	r := NewRouter(sup, "")

	for _, want := range []string{"Tick: 0\n", "Tick: 1\n", "Tick: 2\n"} {
		rec := get(t, r, "/javacount")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, want, rec.Body.String())
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
}

func TestHandlerCurrent(t *testing.T) {
	sup := NewSupervisor(func() *Service { return New() })
	r := NewRouter(sup, "/count")

	rec := get(t, r, "/count/current")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	get(t, r, "/count")
	get(t, r, "/count")

	rec = get(t, r, "/count/current")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Counter: 1\n", rec.Body.String())
}

func TestHandlerStorageFailure(t *testing.T) {
	st := newFaultyStore()
	core, logs := observer.New(zapcore.ErrorLevel)
	sup := NewSupervisor(func() *Service {
		return New(WithStore(st))
	}, WithSupervisorLogger(zap.New(core)))
	r := NewRouter(sup, "")

	st.fail(errInjected)
	rec := get(t, r, "/javacount")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "storage failure\n", rec.Body.String())
	assert.NotContains(t, rec.Body.String(), errInjected.Error())

	// The detail goes to the log instead.
	entries := logs.FilterMessage("request failed").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["error"], errInjected.Error())
}

func TestHandlerCrashedInstance(t *testing.T) {
	st := newFaultyStore()
	sup := NewSupervisor(func() *Service { return New(WithStore(st)) })
	r := NewRouter(sup, "")

	st.panicking("boom")
	rec := get(t, r, "/javacount")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "instance crashed\n", rec.Body.String())
	assert.Equal(t, 1, sup.Restarts())
}
