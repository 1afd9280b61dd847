package occ

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// occServer counts calls per endpoint and lets each test script the returns
// handler. The token endpoint always issues "fresh-token".
type occServer struct {
	srv          *httptest.Server
	refreshCalls int
	apiCalls     int
	handler      http.HandlerFunc
}

func newOCCServer(t *testing.T, handler http.HandlerFunc) *occServer {
	t.Helper()
	s := &occServer{handler: handler}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		s.refreshCalls++
		assert.Equal(t, http.MethodPost, r.Method)
		_ = json.NewEncoder(w).Encode(Token{AccessToken: "fresh-token", TokenType: "bearer"})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.apiCalls++
		s.handler(w, r)
	})
	s.srv = httptest.NewServer(mux)
	t.Cleanup(s.srv.Close)
	return s
}

// newTestClient wires a Client against the fake server with a pre-seeded
// valid token cache holding "cached" credentials.
func newTestClient(t *testing.T, s *occServer) *Client {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token.json")
	store := NewTokenStore(zap.NewNop(), &http.Client{}, path, s.srv.URL+"/token")
	seeded := cacheableToken()
	require.NoError(t, store.Save(seeded))

	return NewClient(zap.NewNop(), &http.Client{}, store, nil, Endpoints{
		ReturnsList:   s.srv.URL + "/returns",
		CreateComment: s.srv.URL + "/returns/{returnNumber}/comments",
		DeleteComment: s.srv.URL + "/returns/{returnNumber}/comments/{commentNumber}",
	})
}

func listRequest() ListRequest {
	pageSize, currentPage := 30, 0
	return ListRequest{
		DateFrom:    "2026-08-01T00:00:00",
		DateTo:      "2026-08-31T00:00:00",
		PageSize:    &pageSize,
		CurrentPage: &currentPage,
		Fields:      "BASIC,CIS_BOSS_BASIC,FULL",
		Sort:        "date:asc",
		ContentType: "application/json",
		Country:     "KZ",
		Channel:     "WEB",
	}
}

// ─── dispatch: 401 then 200 → one refresh, second attempt wins ───────────────

func TestClient_Dispatch_RetriesOnceOn401(t *testing.T) {
	pageJSON := `{"returns":[{"code":1,"statusDisplay":"Approved","returnValue":0}]}`

	s := newOCCServer(t, nil)
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "bearer fresh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(pageJSON))
	}
	client := newTestClient(t, s)

	page, err := client.ListReturns(context.Background(), listRequest())
	require.NoError(t, err)
	assert.Len(t, page.Returns, 1)
	assert.Equal(t, 1, s.refreshCalls, "exactly one refresh after the 401")
	assert.Equal(t, 2, s.apiCalls, "initial attempt plus one retry")
}

// ─── dispatch: 401 then 401 → second response surfaced, no third attempt ─────

func TestClient_Dispatch_StopsAfterSecond401(t *testing.T) {
	s := newOCCServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"type":"InvalidTokenError"}]}`))
	})
	client := newTestClient(t, s)

	_, err := client.ListReturns(context.Background(), listRequest())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, 1, s.refreshCalls)
	assert.Equal(t, 2, s.apiCalls, "no third attempt after the refreshed 401")
}

// ─── dispatch: non-401 errors are not retried ────────────────────────────────

func TestClient_Dispatch_NoRetryOn5xx(t *testing.T) {
	s := newOCCServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	client := newTestClient(t, s)

	_, err := client.ListReturns(context.Background(), listRequest())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	assert.Equal(t, 0, s.refreshCalls)
	assert.Equal(t, 1, s.apiCalls)
}

// ─── ListRequest.query: absent values are dropped, and only those ────────────

func TestListRequest_Query_DropsAbsentValues(t *testing.T) {
	q := ListRequest{Fields: "F"}.query()
	assert.Equal(t, "F", q.Get("fields"))
	assert.Len(t, q, 1)

	zero := 0
	q = ListRequest{Fields: "F", CurrentPage: &zero}.query()
	assert.Equal(t, "0", q.Get("currentPage"), "explicit zero is sent, not dropped")
	assert.Len(t, q, 2)
}

// ─── ListReturns: request shape and 2xx passthrough ──────────────────────────

func TestClient_ListReturns_RequestAndResponse(t *testing.T) {
	pageJSON := `{"returns":[{"code":84630001,"statusDisplay":"Ожидает утверждения","returnValue":500.0}],"pagination":{"totalResults":1}}`

	s := newOCCServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/returns", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "BASIC,CIS_BOSS_BASIC,FULL", r.URL.Query().Get("fields"))
		assert.Equal(t, "date:asc", r.URL.Query().Get("sort"))
		assert.Equal(t, "30", r.URL.Query().Get("pageSize"))
		assert.Equal(t, "0", r.URL.Query().Get("currentPage"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "KZ", body["countryIsoCode"])
		assert.Equal(t, "WEB", body["channel"])
		assert.Equal(t, "2026-08-01T00:00:00", body["dateFrom"])

		_, _ = w.Write([]byte(pageJSON))
	})
	client := newTestClient(t, s)

	page, err := client.ListReturns(context.Background(), listRequest())
	require.NoError(t, err)
	require.Len(t, page.Returns, 1)
	assert.Equal(t, int64(84630001), page.Returns[0].Code)
	assert.Equal(t, "Ожидает утверждения", page.Returns[0].StatusDisplay)
	assert.True(t, page.Returns[0].ReturnValue.Equal(decimal.NewFromFloat(500.0)))
	assert.JSONEq(t, pageJSON, string(page.Raw), "upstream body forwarded unmodified")
}

// ─── ListReturns: 4xx raises APIError ────────────────────────────────────────

func TestClient_ListReturns_ClientError(t *testing.T) {
	s := newOCCServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad window"}]}`))
	})
	client := newTestClient(t, s)

	_, err := client.ListReturns(context.Background(), listRequest())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "list_returns", apiErr.Op)
	assert.Contains(t, string(apiErr.Body), "bad window")
}

// ─── CreateComment: URL templating, body, detail decoding ────────────────────

func TestClient_CreateComment(t *testing.T) {
	detailJSON := `{"code":84630001,"rma":84630001,"cisComments":[{"code":10,"text":".","author":{"name":"Anonymous"}}],"returnValue":500.0}`

	s := newOCCServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/returns/84630001/comments", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"comment": "."}, body)

		_, _ = w.Write([]byte(detailJSON))
	})
	client := newTestClient(t, s)

	detail, err := client.CreateComment(context.Background(), 84630001, ".")
	require.NoError(t, err)
	assert.Equal(t, int64(84630001), detail.RMA)
	require.Len(t, detail.CisComments, 1)
	assert.Equal(t, "Anonymous", detail.CisComments[0].Author.Name)
	assert.JSONEq(t, detailJSON, string(detail.Raw))
}

// ─── DeleteComment: URL templating and status checking ───────────────────────

func TestClient_DeleteComment(t *testing.T) {
	s := newOCCServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/returns/84630001/comments/10", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})
	client := newTestClient(t, s)

	require.NoError(t, client.DeleteComment(context.Background(), 84630001, 10))
}

func TestClient_DeleteComment_FailureIsRaised(t *testing.T) {
	s := newOCCServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	client := newTestClient(t, s)

	err := client.DeleteComment(context.Background(), 84630001, 10)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "delete_comment", apiErr.Op)
}

// ─── Authorization header uses the cached token first ────────────────────────

func TestClient_UsesCachedCredentialsFirst(t *testing.T) {
	var firstAuth string
	s := newOCCServer(t, func(w http.ResponseWriter, r *http.Request) {
		if firstAuth == "" {
			firstAuth = r.Header.Get("Authorization")
		}
		_, _ = w.Write([]byte(`{"returns":[]}`))
	})
	client := newTestClient(t, s)

	_, err := client.ListReturns(context.Background(), listRequest())
	require.NoError(t, err)
	assert.Equal(t, "bearer "+cacheableToken().AccessToken, firstAuth)
	assert.Equal(t, 0, s.refreshCalls)
}
