package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCountersAndHistograms(t *testing.T) {
	m := New()

	m.ObserveAPI("POST", "/identify", "200", 20*time.Millisecond)
	m.ObserveAPI("POST", "/identify", "200", 30*time.Millisecond)
	m.ObserveAPI("", "", "", time.Millisecond)
	m.ApiInflightInc()
	m.ApiInflightInc()
	m.ApiInflightDec()
	m.IncAggregateConflict("Contacts.Identity.Identify")
	m.IncAggregateRetry("Contacts.Identity.Identify")
	m.IncAggregateRetry("Contacts.Identity.Identify")
	m.IncContactsCreated("primary")
	m.IncContactsCreated("secondary")
	m.IncContactsCreated("secondary")
	m.IncMerges(3)
	m.IncMerges(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.apiRequests.WithLabelValues("POST", "/identify", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.apiRequests.WithLabelValues("UNKNOWN", "unknown", "0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.apiInflight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.aggregateConflicts.WithLabelValues("Contacts.Identity.Identify")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.aggregateRetries.WithLabelValues("Contacts.Identity.Identify")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.contactsCreated.WithLabelValues("secondary")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.merges))

	m.ObserveAggregateOperation("Contacts.Identity.Identify", "success", 5*time.Millisecond)
	m.ObserveIdentifyAttempts(2)
	m.ObserveLockWait("acquired", time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(m.aggregateOps))
	assert.Equal(t, 1, testutil.CollectAndCount(m.identifyAttempts))
	assert.Equal(t, 1, testutil.CollectAndCount(m.lockWait))
}

func TestMetricsNilReceiverIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/", "200", time.Millisecond)
	m.ApiInflightInc()
	m.IncMerges(1)
	m.ObserveLockWait("timeout", time.Second)
	require.NoError(t, m.RegisterDBStats(nil, "x"))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsHandlerExposition(t *testing.T) {
	m := New()
	m.IncContactsCreated("primary")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `identity_contacts_created_total{precedence="primary"} 1`), body)
	assert.Contains(t, body, "go_goroutines")
}

func TestPingRedisMarksDown(t *testing.T) {
	m := New()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	m.redisUp.Set(1)
	m.pingRedis(context.Background(), nil, rdb)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.redisUp))
}
