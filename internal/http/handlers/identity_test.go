package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/identity-backend/internal/domain"
	domainagg "github.com/yungbote/identity-backend/internal/domain/aggregates"
	"github.com/yungbote/identity-backend/internal/services"
)

type fakeIdentityService struct {
	err     error
	lastReq services.IdentifyRequest
}

func (f *fakeIdentityService) Identify(_ context.Context, req services.IdentifyRequest) (domainagg.IdentifyResult, error) {
	f.lastReq = req
	return domainagg.IdentifyResult{}, f.err
}

func (f *fakeIdentityService) GetIdentity(context.Context, int64) (domainagg.IdentitySummary, error) {
	return domainagg.IdentitySummary{}, f.err
}

func (f *fakeIdentityService) ListLinkEvents(context.Context, int64) ([]*types.ContactLinkEvent, error) {
	return nil, f.err
}

func (f *fakeIdentityService) CheckIntegrity(context.Context) (domainagg.IntegrityReport, error) {
	return domainagg.IntegrityReport{}, f.err
}

func serveIdentify(h *IdentityHandler, body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/identify", h.Identify)
	req := httptest.NewRequest(http.MethodPost, "/identify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestIdentifyErrorStatuses(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		status     int
		retryAfter string
		message    string
	}{
		{"conflict", domainagg.NewError(domainagg.CodeConflict, "op", "primary already demoted", nil), http.StatusConflict, "1", "primary already demoted"},
		{"retryable", domainagg.NewError(domainagg.CodeRetryable, "op", "serialization failure", nil), http.StatusConflict, "1", "serialization failure"},
		{"invariant", domainagg.NewError(domainagg.CodeInvariantViolation, "op", "secondary chain at 4", nil), http.StatusInternalServerError, "", "internal error"},
		{"plain error", context.DeadlineExceeded, http.StatusInternalServerError, "", "internal error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serveIdentify(NewIdentityHandler(&fakeIdentityService{err: tc.err}), `{"email":"a@x.com"}`)
			require.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.retryAfter, rec.Header().Get("Retry-After"))

			var env struct {
				Error struct {
					Message string `json:"message"`
					Code    string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			assert.Equal(t, tc.message, env.Error.Message)
		})
	}
}

func TestDecodeField(t *testing.T) {
	cases := []struct {
		raw         string
		allowNumber bool
		want        *string
		wantErr     bool
	}{
		{raw: ``, want: nil},
		{raw: `null`, want: nil},
		{raw: `"a@x.com"`, want: ptr("a@x.com")},
		{raw: `""`, want: ptr("")},
		{raw: `123456`, allowNumber: true, want: ptr("123456")},
		{raw: `123456`, allowNumber: false, wantErr: true},
		{raw: `true`, allowNumber: true, wantErr: true},
		{raw: `{"n":1}`, allowNumber: true, wantErr: true},
	}
	for _, tc := range cases {
		got, err := decodeField(json.RawMessage(tc.raw), tc.allowNumber)
		if tc.wantErr {
			assert.Error(t, err, tc.raw)
			continue
		}
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}

func TestIdentifyPassesNullsAsAbsent(t *testing.T) {
	svc := &fakeIdentityService{}
	rec := serveIdentify(NewIdentityHandler(svc), `{"email":null,"phoneNumber":9876}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, svc.lastReq.Email)
	require.NotNil(t, svc.lastReq.PhoneNumber)
	assert.Equal(t, "9876", *svc.lastReq.PhoneNumber)
}

func ptr(s string) *string { return &s }
