package permissions

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*chi.Mux, *memoryOverrideStore) {
	t.Helper()
	store := newMemoryOverrideStore()
	svc := newTestService(t, store, projectOneDirectory(), &capturePublisher{})
	handler := NewHandler(nil, svc, nil)

	r := chi.NewRouter()
	r.Route("/projects", handler.MountRoutes)
	return r, store
}

func doRequest(t *testing.T, router http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerGetMemberPermissions(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/projects/1/members/10/permissions", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body memberPermissionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "supervisor", body.Role)
	require.Equal(t, []Kind{"create", "edit", "approve", "view_all"}, body.EffectivePermissions)
	require.Empty(t, body.Overrides)
}

func TestHandlerGetMemberPermissionsNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/projects/1/members/999/permissions", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerGetMatrix(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/projects/1/permissions/matrix", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body matrixResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Members, 3)
	require.Equal(t, int64(10), body.Members[0].MemberID)
	require.Equal(t, "Ayu", body.Members[0].DisplayName)
	require.Equal(t, []Kind{"create", "edit", "approve", "view_all"}, body.Members[0].EffectivePermissions)
}

func TestHandlerGetMatrixProjectNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/projects/404/permissions/matrix", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerPutOverrides(t *testing.T) {
	router, store := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPut, "/projects/1/members/10/permissions",
		`[{"permission":"manage_members","granted":true},{"permission":"approve","granted":false}]`,
		map[string]string{"X-Actor-Id": "99"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body effectiveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, []Kind{"create", "edit", "view_all", "manage_members"}, body.EffectivePermissions)
	require.Equal(t, map[Kind]bool{"manage_members": true, "approve": false}, store.overrides[1][10])

	// The stored overrides now appear on the single-member read, in
	// registry order.
	rec = doRequest(t, router, http.MethodGet, "/projects/1/members/10/permissions", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var read memberPermissionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &read))
	require.Equal(t, []overrideDTO{
		{Permission: "approve", Granted: false},
		{Permission: "manage_members", Granted: true},
	}, read.Overrides)
}

func TestHandlerPutOverridesClearsWithEmptyArray(t *testing.T) {
	router, store := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPut, "/projects/1/members/10/permissions",
		`[{"permission":"delete","granted":true}]`,
		map[string]string{"X-Actor-Id": "99"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodPut, "/projects/1/members/10/permissions",
		`[]`, map[string]string{"X-Actor-Id": "99"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body effectiveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, []Kind{"create", "edit", "approve", "view_all"}, body.EffectivePermissions)
	require.Empty(t, store.overrides[1][10])
}

func TestHandlerGetListsInertOverrides(t *testing.T) {
	router, store := newTestRouter(t)
	store.overrides[1] = map[int64]map[Kind]bool{
		10: {"approve": false, "retired_kind": true},
	}

	rec := doRequest(t, router, http.MethodGet, "/projects/1/members/10/permissions", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body memberPermissionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	// The override whose kind left the registry is inert but still listed,
	// after the registry-ordered kinds.
	require.Equal(t, []overrideDTO{
		{Permission: "approve", Granted: false},
		{Permission: "retired_kind", Granted: true},
	}, body.Overrides)
	require.NotContains(t, body.EffectivePermissions, Kind("retired_kind"))
	require.Equal(t, []Kind{"create", "edit", "view_all"}, body.EffectivePermissions)
}

func TestHandlerPutOverridesUnknownKind(t *testing.T) {
	router, store := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPut, "/projects/1/members/10/permissions",
		`[{"permission":"teleport","granted":true}]`,
		map[string]string{"X-Actor-Id": "99"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Zero(t, store.replaceCalls)

	// The problem document names the offending kind.
	require.Contains(t, rec.Body.String(), "teleport")
}

func TestHandlerPutOverridesRequiresActor(t *testing.T) {
	router, store := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPut, "/projects/1/members/10/permissions", `[]`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPut, "/projects/1/members/10/permissions", `[]`,
		map[string]string{"X-Actor-Id": "-5"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, store.replaceCalls)
}

func TestHandlerPutOverridesRejectsBadBody(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPut, "/projects/1/members/10/permissions",
		`{"permission":"edit"}`, map[string]string{"X-Actor-Id": "99"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPut, "/projects/1/members/10/permissions",
		`[{"granted":true}]`, map[string]string{"X-Actor-Id": "99"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerPutOverridesMemberNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodPut, "/projects/1/members/999/permissions",
		`[]`, map[string]string{"X-Actor-Id": "99"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerRejectsNonNumericIDs(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/projects/abc/permissions/matrix", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/projects/1/members/xyz/permissions", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
