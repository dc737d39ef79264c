package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/banklink/go-bank-link/aggregator"
	"github.com/banklink/go-bank-link/flow"
	"github.com/banklink/go-bank-link/internal/config"
	"github.com/banklink/go-bank-link/server"
	"github.com/banklink/go-bank-link/server/browsersession"
	"github.com/stretchr/testify/require"
)

// fakeAPI implements flow.AggregatorAPI and records upstream calls.
type fakeAPI struct {
	calls        int
	institutions []aggregator.Institution
	listErr      error
	agreement    aggregator.Agreement
	requisition  aggregator.Requisition
	bundleErr    error
}

func (f *fakeAPI) Institutions(_ context.Context, _, country string) ([]aggregator.Institution, error) {
	f.calls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.institutions, nil
}

func (f *fakeAPI) CreateRequisition(_ context.Context, _, institutionID, redirect, reference string) (aggregator.Agreement, error) {
	f.calls++
	agreement := f.agreement
	agreement.InstitutionID = institutionID
	agreement.ReferenceID = reference
	return agreement, nil
}

func (f *fakeAPI) Requisition(_ context.Context, _, requisitionID string) (aggregator.Requisition, error) {
	f.calls++
	return f.requisition, nil
}

func (f *fakeAPI) AccountBundle(_ context.Context, _, accountID string) (aggregator.AccountBundle, error) {
	f.calls++
	if f.bundleErr != nil {
		return aggregator.AccountBundle{}, f.bundleErr
	}
	return aggregator.AccountBundle{Metadata: []byte(`{"id": "` + accountID + `"}`)}, nil
}

type fakeTokens struct{}

func (fakeTokens) EnsureToken(_ context.Context, _ string) (aggregator.TokenPair, error) {
	return aggregator.TokenPair{Access: "access-1", Refresh: "refresh-1"}, nil
}

// testFixture holds all test dependencies
type testFixture struct {
	api      *fakeAPI
	sessions *browsersession.InMemoryRepo
	config   config.Config
	server   *server.Server
}

func setupTestFixture(t *testing.T, api *fakeAPI) *testFixture {
	t.Helper()

	cfg := config.New()
	sessions := browsersession.NewInMemoryRepo()
	orchestrator := flow.New(fakeTokens{}, api, cfg.GetBaseURL())

	return &testFixture{
		api:      api,
		sessions: sessions,
		config:   cfg,
		server:   server.New(cfg, orchestrator, sessions),
	}
}

// authenticatedRequest builds a request carrying a valid signed
// session cookie, returning the request and its session id.
func (f *testFixture) authenticatedRequest(t *testing.T, target string) (*http.Request, string) {
	t.Helper()

	cookies := server.NewSessionCookie(f.config.GetSessionSecret(), f.config.GetSessionMaxAge())
	sessionID, signed, err := cookies.Issue()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: signed})
	return req, sessionID
}

func TestInstitutionsPage(t *testing.T) {
	api := &fakeAPI{
		institutions: []aggregator.Institution{
			{ID: "SWEDBANK_HABALT22", Name: "Swedbank", Countries: []string{"LT"}},
		},
	}
	f := setupTestFixture(t, api)

	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?country=LT", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Swedbank")
	require.Contains(t, rec.Body.String(), "/agreements/SWEDBANK_HABALT22")

	// A fresh visit gets a signed session cookie.
	require.NotEmpty(t, rec.Result().Cookies())
}

func TestInstitutionsPageShowsNotification(t *testing.T) {
	f := setupTestFixture(t, &fakeAPI{})

	target := "/?error_notification=" + url.QueryEscape("Authorization to the bank was not made. Try again.")
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Authorization to the bank was not made. Try again.")
}

func TestInstitutionsUpstreamFailureRendersErrorPage(t *testing.T) {
	api := &fakeAPI{
		listErr: &aggregator.APIError{StatusCode: 429, Detail: "Rate limit exceeded"},
	}
	f := setupTestFixture(t, api)

	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Contains(t, rec.Body.String(), "Error 429")
	require.Contains(t, rec.Body.String(), "Rate limit exceeded")
}

func TestAgreementsRedirectsToConsentLink(t *testing.T) {
	api := &fakeAPI{
		agreement: aggregator.Agreement{
			RequisitionID: "req-1",
			ConsentLink:   "https://consent.example.com/start/abc",
		},
	}
	f := setupTestFixture(t, api)

	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/agreements/SWEDBANK_HABALT22", nil))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "https://consent.example.com/start/abc", rec.Header().Get("Location"))

	// The requisition id is stored against the fresh browser session.
	cookies := server.NewSessionCookie(f.config.GetSessionSecret(), f.config.GetSessionMaxAge())
	result := rec.Result()
	require.NotEmpty(t, result.Cookies())
	sessionID, err := cookies.Verify(result.Cookies()[0].Value)
	require.NoError(t, err)

	session, err := f.sessions.Get(sessionID)
	require.NoError(t, err)
	require.Equal(t, "req-1", session.RequisitionID)
	require.Equal(t, "SWEDBANK_HABALT22", session.InstitutionID)
}

func TestResultsWithoutSessionRedirects(t *testing.T) {
	f := setupTestFixture(t, &fakeAPI{})

	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/results", nil))

	require.Equal(t, http.StatusSeeOther, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/", location.Path)
	require.Equal(t, "Authorization to the bank was not made. Try again.",
		location.Query().Get("error_notification"))

	// No upstream call was made.
	require.Equal(t, 0, f.api.calls)
}

func TestResultsWithoutRequisitionRedirects(t *testing.T) {
	f := setupTestFixture(t, &fakeAPI{})

	// Session cookie present but no requisition was ever stored.
	req, _ := f.authenticatedRequest(t, "/results")
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, 0, f.api.calls)
}

func TestResultsRendersBundles(t *testing.T) {
	api := &fakeAPI{
		requisition: aggregator.Requisition{ID: "req-1", Accounts: []string{"acc-1", "acc-2"}},
	}
	f := setupTestFixture(t, api)

	req, sessionID := f.authenticatedRequest(t, "/results")
	require.NoError(t, f.sessions.Upsert(sessionID, browsersession.Session{
		RequisitionID: "req-1",
		CreatedAt:     time.Now(),
	}))

	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var bundles []aggregator.AccountBundle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bundles))
	require.Len(t, bundles, 2)
}

func TestResultsBundleFailureRendersErrorPage(t *testing.T) {
	api := &fakeAPI{
		requisition: aggregator.Requisition{ID: "req-1", Accounts: []string{"acc-1"}},
		bundleErr:   &aggregator.APIError{StatusCode: 400, Detail: "Date range exceeds 90 days"},
	}
	f := setupTestFixture(t, api)

	req, sessionID := f.authenticatedRequest(t, "/results")
	require.NoError(t, f.sessions.Upsert(sessionID, browsersession.Session{RequisitionID: "req-1"}))

	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Date range exceeds 90 days")
}

func TestMainPage(t *testing.T) {
	f := setupTestFixture(t, &fakeAPI{})

	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/main", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), f.config.GetAppName())
}
