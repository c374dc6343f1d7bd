package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yasashiisyndicate/ireul/internal/core"
	"github.com/yasashiisyndicate/ireul/internal/ogg"
)

type nullSink struct{}

func (nullSink) WritePage(ogg.Page) error { return nil }

func newTestRouter(t *testing.T) (*core.Facade, http.Handler) {
	t.Helper()
	fallback, err := core.ValidateTrack(core.DeadAir(), 48000)
	require.NoError(t, err)

	engine := core.NewEngine(nullSink{}, core.NewClock(48000),
		core.NewPlayQueue(4, 8), fallback, zap.NewNop())
	facade := core.NewFacade(engine, zap.NewNop())
	return facade, NewRouter(facade, true, zap.NewNop())
}

func TestHealth(t *testing.T) {
	_, router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestQueueSnapshot(t *testing.T) {
	facade, router := newTestRouter(t)

	handle, err := facade.Enqueue(core.DeadAir(), nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/queue", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var queue core.Queue
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &queue))
	require.Len(t, queue.Upcoming, 1)
	assert.Equal(t, handle, queue.Upcoming[0].Handle)
}
