package rpc

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yasashiisyndicate/ireul/internal/core"
	"github.com/yasashiisyndicate/ireul/internal/ogg"
	"github.com/yasashiisyndicate/ireul/internal/vorbis"
	"github.com/yasashiisyndicate/ireul/pkg/errors"
)

type nullSink struct{}

func (nullSink) WritePage(ogg.Page) error { return nil }

func startTestServer(t *testing.T, queueSize int) string {
	t.Helper()

	fallback, err := core.ValidateTrack(core.DeadAir(), 48000)
	require.NoError(t, err, "built-in dead air must validate")

	engine := core.NewEngine(nullSink{}, core.NewClock(48000),
		core.NewPlayQueue(queueSize, 8), fallback, zap.NewNop())
	facade := core.NewFacade(engine, zap.NewNop())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go NewServer(facade, zap.NewNop()).Serve(ctx, ln)

	return ln.Addr().String()
}

func TestServerEnqueueAndStatus(t *testing.T) {
	addr := startTestServer(t, 4)

	client, err := Dial(addr)
	require.NoError(t, err)
	defer client.Close()

	handle, err := client.Enqueue(core.DeadAir(), []vorbis.Comment{
		{Key: "ARTIST", Value: "X"},
	})
	require.NoError(t, err)
	assert.NotEqual(t, core.FallbackHandle, handle)

	queue, err := client.QueueStatus()
	require.NoError(t, err)
	require.Len(t, queue.Upcoming, 1)
	assert.Equal(t, handle, queue.Upcoming[0].Handle)
	assert.Empty(t, queue.History)
}

func TestServerRejectsInvalidTrack(t *testing.T) {
	addr := startTestServer(t, 4)

	client, err := Dial(addr)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.Enqueue([]byte("not an ogg stream"), nil)
	require.Error(t, err)
	code, ok := errors.AdmissionCodeOf(err)
	require.True(t, ok, "error should carry an admission code")
	assert.Equal(t, errors.CodeInvalidTrack, code)
}

func TestServerQueueFull(t *testing.T) {
	addr := startTestServer(t, 2)

	client, err := Dial(addr)
	require.NoError(t, err)
	defer client.Close()

	for i := 0; i < 2; i++ {
		_, err := client.Enqueue(core.DeadAir(), nil)
		require.NoError(t, err)
	}

	_, err = client.Enqueue(core.DeadAir(), nil)
	require.Error(t, err)
	code, _ := errors.AdmissionCodeOf(err)
	assert.Equal(t, errors.CodeQueueFull, code)
}

func TestServerFastForwardAndReplaceFallback(t *testing.T) {
	addr := startTestServer(t, 4)

	client, err := Dial(addr)
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.FastForward())
	assert.NoError(t, client.ReplaceFallback(core.DeadAir(), nil))
}

func TestServerClosesOnBadVersion(t *testing.T) {
	addr := startTestServer(t, 4)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte{9, 0, 0, 0, 1})
	require.NoError(t, err)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = conn.Read(make([]byte, 1))
	assert.Equal(t, io.EOF, err, "server should close the connection")
}

func TestServerClosesOnOversizedFrame(t *testing.T) {
	addr := startTestServer(t, 4)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	// EnqueueTrack with a length beyond the 20 MiB cap
	frame := []byte{Version, 0, 0, 0, 1, 0xFF, 0xFF, 0xFF, 0xFF}
	_, err = conn.Write(frame)
	require.NoError(t, err)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err = conn.Read(make([]byte, 1))
	assert.Equal(t, io.EOF, err, "server should close the connection")
}
