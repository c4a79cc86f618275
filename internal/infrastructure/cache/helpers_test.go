package cache

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/schoolpay/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/require"
)

func testRedisConfig(host string, port int) config.RedisConfig {
	return config.RedisConfig{Host: host, Port: port}
}

func testCacheConfig(backend string) config.CacheConfig {
	return config.CacheConfig{Backend: backend, SummaryTTL: time.Minute}
}

func splitAddr(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}
