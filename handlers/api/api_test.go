package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JiaJunDeng5930/ChainContest-sub000/db"
	"github.com/JiaJunDeng5930/ChainContest-sub000/dbtypes"
	"github.com/JiaJunDeng5930/ChainContest-sub000/services"
	"github.com/JiaJunDeng5930/ChainContest-sub000/types"
)

type testResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

var testBaseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func setupTestApi(t *testing.T) http.Handler {
	t.Helper()

	require.NoError(t, db.InitDB(&types.DatabaseConfig{
		Engine: "sqlite",
		Sqlite: &types.SqliteDatabaseConfig{File: ":memory:"},
	}))
	require.NoError(t, db.ApplyEmbeddedDbSchema(-2))
	t.Cleanup(db.MustCloseDB)

	logger, _ := test.NewNullLogger()
	previous := services.GlobalContestService
	services.GlobalContestService = services.NewContestService(logger, &services.ContestServiceConfig{
		SupportedChainIds: []int64{1, 10},
		DefaultPageSize:   25,
		MaxPageSize:       100,
	})
	t.Cleanup(func() {
		services.GlobalContestService = previous
	})

	millis := func(offset time.Duration) int64 {
		return testBaseTime.Add(offset).UnixMilli()
	}
	require.NoError(t, db.RunDBTransaction(func(tx *sqlx.Tx) error {
		contests := []*dbtypes.Contest{}
		for _, id := range []string{"c-1", "c-2"} {
			end := time.Hour
			if id == "c-2" {
				end = 2 * time.Hour
			}
			contests = append(contests, &dbtypes.Contest{
				ID:              id,
				ChainID:         1,
				ContractAddress: "0x" + strings.Repeat(id[2:], 40),
				Status:          services.ContestStatusActive,
				TimeWindowStart: millis(0),
				TimeWindowEnd:   millis(end),
				OriginTag:       "factory",
				Metadata:        "{}",
				CreatedAt:       millis(0),
				UpdatedAt:       millis(0),
			})
		}
		if err := db.InsertContests(contests, tx); err != nil {
			return err
		}
		if err := db.InsertUserIdentity(&dbtypes.UserIdentity{IdentityID: "id-1", ExternalUserID: "user-1", CreatedAt: millis(0)}, tx); err != nil {
			return err
		}
		if err := db.InsertWalletBindings([]*dbtypes.WalletBinding{
			{IdentityID: "id-1", WalletAddress: "0x00000000000000000000000000000000000000aa", BoundAt: millis(0)},
		}, tx); err != nil {
			return err
		}
		if err := db.InsertParticipants([]*dbtypes.Participant{
			{ContestID: "c-1", WalletAddress: "0x00000000000000000000000000000000000000aa", Amount: "5", OccurredAt: millis(time.Minute)},
		}, tx); err != nil {
			return err
		}
		return db.InsertContestCreationRequests([]*dbtypes.ContestCreationRequest{
			{RequestID: "req-1", UserID: "user-1", ChainID: 10, Payload: `{"title":"Cup"}`, CreatedAt: millis(0), UpdatedAt: millis(0)},
		}, tx)
	}))

	router := mux.NewRouter()
	RegisterRoutes(router.PathPrefix("/api").Subrouter())
	return router
}

func doApiRequest(t *testing.T, handler http.Handler, method, path, body string) (int, *testResponse) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	response := &testResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), response), rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	return rec.Code, response
}

func TestAPIContestsQueryV1(t *testing.T) {
	handler := setupTestApi(t)

	code, response := doApiRequest(t, handler, "POST", "/api/v1/contests/query", `{
		"selector": {"filter": {"chainIds": [1]}},
		"includes": {"participants": true},
		"pagination": {"pageSize": 1}
	}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", response.Status)

	page := &services.ContestPage{}
	require.NoError(t, json.Unmarshal(response.Data, page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "c-2", page.Items[0].Contest.ID)
	assert.NotNil(t, page.Items[0].Participants)
	require.NotNil(t, page.NextCursor)

	code, response = doApiRequest(t, handler, "POST", "/api/v1/contests/query", `{
		"selector": {"filter": {}},
		"includes": {"participants": true},
		"pagination": {"pageSize": 1, "cursor": "`+*page.NextCursor+`"}
	}`)
	require.Equal(t, http.StatusOK, code)
	page = &services.ContestPage{}
	require.NoError(t, json.Unmarshal(response.Data, page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "c-1", page.Items[0].Contest.ID)
	assert.Len(t, page.Items[0].Participants, 1)
	assert.Nil(t, page.NextCursor)
}

func TestAPIContestsQueryV1Errors(t *testing.T) {
	handler := setupTestApi(t)

	tests := []struct {
		name string
		body string
		code int
		kind string
		ids  []string
	}{
		{name: "missing body", body: "", code: http.StatusBadRequest, kind: "input_invalid"},
		{name: "malformed body", body: `{"selector":`, code: http.StatusBadRequest, kind: "input_invalid"},
		{name: "unknown field", body: `{"selektor":{}}`, code: http.StatusBadRequest, kind: "input_invalid"},
		{name: "missing selector", body: `{}`, code: http.StatusBadRequest, kind: "input_invalid"},
		{name: "empty chain list", body: `{"selector":{"filter":{"chainIds":[]}}}`, code: http.StatusBadRequest, kind: "input_invalid"},
		{name: "invalid leaderboard include", body: `{"selector":{"filter":{}},"includes":{"leaderboard":"oldest"}}`, code: http.StatusBadRequest, kind: "input_invalid"},
		{name: "unsupported chain", body: `{"selector":{"filter":{"chainIds":[1,56]}}}`, code: http.StatusUnprocessableEntity, kind: "resource_unsupported", ids: []string{"56"}},
		{name: "missing leaderboard version", body: `{"selector":{"filter":{}},"includes":{"leaderboard":"version:4"}}`, code: http.StatusNotFound, kind: "not_found", ids: []string{"c-1", "c-2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, response := doApiRequest(t, handler, "POST", "/api/v1/contests/query", tt.body)
			assert.Equal(t, tt.code, code)
			assert.True(t, strings.HasPrefix(response.Status, "ERROR: "), response.Status)

			data := &ApiErrorData{}
			require.NoError(t, json.Unmarshal(response.Data, data))
			assert.Equal(t, tt.kind, data.Kind)
			assert.Equal(t, tt.ids, data.Ids)
		})
	}
}

func TestAPIUserContestsV1(t *testing.T) {
	handler := setupTestApi(t)

	code, response := doApiRequest(t, handler, "GET", "/api/v1/users/user-1/contests?chain_ids=1&page_size=10", "")
	require.Equal(t, http.StatusOK, code)
	page := &services.UserContestPage{}
	require.NoError(t, json.Unmarshal(response.Data, page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "c-1", page.Items[0].Contest.ID)
	assert.True(t, testBaseTime.Add(time.Minute).Equal(page.Items[0].LastActivity))

	code, response = doApiRequest(t, handler, "GET", "/api/v1/users/nobody/contests", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"items":[],"nextCursor":null}`, string(response.Data))

	code, _ = doApiRequest(t, handler, "GET", "/api/v1/users/user-1/contests?chain_ids=abc", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = doApiRequest(t, handler, "GET", "/api/v1/users/user-1/contests?page_size=ten", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = doApiRequest(t, handler, "GET", "/api/v1/users/user-1/contests?from=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = doApiRequest(t, handler, "GET", "/api/v1/users/user-1/contests?chain_ids=424242", "")
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestAPICreatorContestsV1(t *testing.T) {
	handler := setupTestApi(t)

	code, response := doApiRequest(t, handler, "GET", "/api/v1/users/user-1/creator-contests", "")
	require.Equal(t, http.StatusOK, code)
	page := &services.CreatorContestPage{}
	require.NoError(t, json.Unmarshal(response.Data, page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "req-1", page.Items[0].Request.RequestID)
	assert.JSONEq(t, `{"title":"Cup"}`, string(page.Items[0].Request.Payload))
	assert.Nil(t, page.Items[0].Artifact)

	code, response = doApiRequest(t, handler, "GET", "/api/v1/users/user-1/creator-contests?chain_ids=1", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"items":[],"nextCursor":null}`, string(response.Data))

	code, _ = doApiRequest(t, handler, "GET", "/api/v1/users/user-1/creator-contests?cursor=%21%21", "")
	assert.Equal(t, http.StatusBadRequest, code)
}
