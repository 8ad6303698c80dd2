package redis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNamespaced(t *testing.T) {
	require.Equal(t, "events", namespaced("", "events"))
	require.Equal(t, "team7:events", namespaced("team7", "events"))
}

func TestXAddArgsAreCappedAndPrefixed(t *testing.T) {
	sb := &SignalBus{prefix: "team7", maxLen: streamMaxLen}
	args := sb.xaddArgs("tenderbot:events:log", []byte(`{"type":"session_end"}`))

	require.Equal(t, "team7:tenderbot:events:log", args.Stream)
	require.Equal(t, streamMaxLen, args.MaxLen)
	require.True(t, args.Approx)
	require.Equal(t, []byte(`{"type":"session_end"}`), args.Values.(map[string]any)["payload"])
}

func TestLockKeyIsNamespaced(t *testing.T) {
	lm := &LockManager{prefix: "team7"}
	require.Equal(t, "team7:lock:ticker:CRZY", lm.lockKey("ticker:CRZY"))
}
