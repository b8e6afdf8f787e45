package http

import (
	"context"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "github.com/yungbote/identity-backend/internal/clients/redis"
	"github.com/yungbote/identity-backend/internal/data/aggregates"
	"github.com/yungbote/identity-backend/internal/data/repos"
	repotestutil "github.com/yungbote/identity-backend/internal/data/repos/testutil"
	httpH "github.com/yungbote/identity-backend/internal/http/handlers"
	"github.com/yungbote/identity-backend/internal/observability"
	"github.com/yungbote/identity-backend/internal/services"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := repotestutil.DB(t)
	log := repotestutil.Logger(t)
	contacts := repos.NewContactRepo(db, log)
	events := repos.NewLinkEventRepo(db, log)
	base := aggregates.BaseDeps{DB: db, Log: log}
	agg := aggregates.NewIdentityAggregate(aggregates.IdentityAggregateDeps{
		Base:     base,
		Contacts: contacts,
		Events:   events,
	})
	svc := services.NewIdentityService(log, agg, events, aggregates.NewIntegrityChecker(base, contacts, 0),
		redisclient.NoopLocker{}, nil, services.RetryPolicy{})

	sqlDB, err := db.DB()
	require.NoError(t, err)
	return NewRouter(RouterConfig{
		Log:             log,
		Metrics:         observability.New(),
		IdentityHandler: httpH.NewIdentityHandler(svc),
		HealthHandler:   httpH.NewHealthHandler(func(ctx context.Context) error { return sqlDB.PingContext(ctx) }),
	})
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestIdentifyFlowGolden(t *testing.T) {
	r := newTestRouter(t)
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	steps := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"identify_new_primary", stdhttp.MethodPost, "/identify", `{"email":"lorraine@hillvalley.edu","phoneNumber":"123456"}`, 200},
		{"identify_numeric_phone_adds_secondary", stdhttp.MethodPost, "/identify", `{"email":"mcfly@hillvalley.edu","phoneNumber":123456}`, 200},
		{"identify_repeat_is_idempotent", stdhttp.MethodPost, "/identify", `{"email":null,"phoneNumber":"123456"}`, 200},
		{"identify_second_cluster", stdhttp.MethodPost, "/identify", `{"email":"george@hillvalley.edu","phoneNumber":"919191"}`, 200},
		{"identify_merges_clusters", stdhttp.MethodPost, "/identify", `{"email":"george@hillvalley.edu","phoneNumber":"123456"}`, 200},
		{"get_contact_by_secondary", stdhttp.MethodGet, "/contacts/3", "", 200},
		{"identify_empty_body", stdhttp.MethodPost, "/identify", `{}`, 400},
		{"identify_blank_values", stdhttp.MethodPost, "/identify", `{"email":"  ","phoneNumber":""}`, 400},
		{"identify_bad_email_type", stdhttp.MethodPost, "/identify", `{"email":42}`, 400},
		{"get_contact_unknown", stdhttp.MethodGet, "/contacts/99", "", 404},
		{"get_contact_bad_id", stdhttp.MethodGet, "/contacts/abc", "", 400},
	}
	for _, step := range steps {
		rec := do(r, step.method, step.path, step.body)
		require.Equal(t, step.status, rec.Code, "%s: %s", step.name, rec.Body.String())
		g.Assert(t, step.name, rec.Body.Bytes())
	}
}

func TestContactEventsRoute(t *testing.T) {
	r := newTestRouter(t)
	require.Equal(t, 200, do(r, stdhttp.MethodPost, "/identify", `{"email":"a@x.com","phoneNumber":"1"}`).Code)
	require.Equal(t, 200, do(r, stdhttp.MethodPost, "/identify", `{"email":"b@x.com","phoneNumber":"2"}`).Code)
	require.Equal(t, 200, do(r, stdhttp.MethodPost, "/identify", `{"email":"a@x.com","phoneNumber":"2"}`).Code)

	rec := do(r, stdhttp.MethodGet, "/contacts/2/events", "")
	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"action":"created_primary"`)
	assert.Contains(t, body, `"action":"demoted"`)

	rec = do(r, stdhttp.MethodGet, "/contacts/42/events", "")
	assert.Equal(t, 404, rec.Code)
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	r := newTestRouter(t)

	rec := do(r, stdhttp.MethodGet, "/healthcheck", "")
	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	do(r, stdhttp.MethodPost, "/identify", `{"email":"a@x.com"}`)
	rec = do(r, stdhttp.MethodGet, "/metrics", "")
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `identity_api_requests_total{method="POST",route="/identify",status="200"} 1`)
}

func TestResponsesCarryRequestID(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(stdhttp.MethodGet, "/healthcheck", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-Id"))
}
