package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jpreston42/warband-campaign/internal/battle"
	"github.com/jpreston42/warband-campaign/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.Mem) {
	t.Helper()
	mem := store.NewMem()
	srv := httptest.NewServer(SetupRoutes(NewHandler(mem, zap.NewNop()), zap.NewNop()))
	t.Cleanup(srv.Close)
	return srv, mem
}

func doJSON(t *testing.T, method, url, userID string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBattle(t *testing.T, resp *http.Response) battle.Battle {
	t.Helper()
	var b battle.Battle
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&b))
	return b
}

func createInput() battle.CreateInput {
	return battle.CreateInput{
		Title:    "Bridge skirmish",
		Scenario: "breakthrough",
		Invitees: []battle.Invitee{
			{User: battle.UserRef{ID: "creator", Name: "Ana"}, Warband: battle.WarbandRef{ID: "w1", Name: "Redcaps", Rating: 90}},
			{User: battle.UserRef{ID: "playerB", Name: "Bo"}, Warband: battle.WarbandRef{ID: "w2", Name: "Moss Eaters", Rating: 104}},
		},
	}
}

func TestCreateAndListBattles(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/campaigns/c1/battles", "creator", createInput())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBattle(t, resp)
	require.Equal(t, battle.StatusInviting, created.Status)
	require.Len(t, created.Participants, 2)

	resp = doJSON(t, http.MethodGet, srv.URL+"/campaigns/c1/battles", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []battle.Battle
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	require.Equal(t, created.ID, list[0].ID)
}

func TestListBattles_EmptyCampaign(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/campaigns/quiet/battles", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []battle.Battle
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Empty(t, list)
}

func TestJoinBattle(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/campaigns/c1/battles", "creator", createInput())
	created := decodeBattle(t, resp)

	resp = doJSON(t, http.MethodPost, srv.URL+"/campaigns/c1/battles/"+created.ID+"/join", "playerB", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	joined := decodeBattle(t, resp)
	require.Equal(t, battle.StatusPreBattle, joined.Status)

	// second join is idempotent, not a conflict
	resp = doJSON(t, http.MethodPost, srv.URL+"/campaigns/c1/battles/"+created.ID+"/join", "playerB", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	again := decodeBattle(t, resp)
	require.Len(t, again.Participants, 2)
}

func TestJoinBattle_ConflictOnRace(t *testing.T) {
	srv, mem := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/campaigns/c1/battles", "creator", createInput())
	created := decodeBattle(t, resp)

	mem.SetStatus(created.ID, battle.StatusActive)

	resp = doJSON(t, http.MethodPost, srv.URL+"/campaigns/c1/battles/"+created.ID+"/join", "playerB", nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var e struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	require.NotEmpty(t, e.Error)
}

func TestCancelBattle(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/campaigns/c1/battles", "creator", createInput())
	created := decodeBattle(t, resp)

	resp = doJSON(t, http.MethodPost, srv.URL+"/campaigns/c1/battles/"+created.ID+"/cancel", "playerB", nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode, "non-creator cannot cancel")

	resp = doJSON(t, http.MethodPost, srv.URL+"/campaigns/c1/battles/"+created.ID+"/cancel", "creator", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	canceled := decodeBattle(t, resp)
	require.Equal(t, battle.StatusCanceled, canceled.Status)
}

func TestIdentityRequiredForMutations(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/campaigns/c1/battles", "", createInput())
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/campaigns/c1/battles/xyz/join", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUnknownBattleIs404(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/campaigns/c1/battles/missing/join", "playerB", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
