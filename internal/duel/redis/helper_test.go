package redis

import (
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/valkey-io/valkey-go"

	"github.com/park285/word-duel-go/internal/common/lua"
	"github.com/park285/word-duel-go/internal/common/testhelper"
)

func newTestClient(t *testing.T) (valkey.Client, *miniredis.Miniredis) {
	t.Helper()
	return testhelper.NewMiniValkeyClient(t)
}

func newTestRegistry() *lua.Registry {
	return lua.NewRegistry(append(SessionScripts(), QueueScripts()...))
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSessionStore(t *testing.T) *SessionStore {
	t.Helper()
	client, _ := newTestClient(t)
	return NewSessionStore(client, newTestRegistry(), testLogger())
}

func newTestQueueStore(t *testing.T) *QueueStore {
	t.Helper()
	client, _ := newTestClient(t)
	return NewQueueStore(client, newTestRegistry(), testLogger())
}
