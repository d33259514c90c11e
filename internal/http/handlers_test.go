package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"centrovision-data/internal/app"
	"centrovision-data/internal/apperr"
	"centrovision-data/internal/bridge"
	"centrovision-data/internal/config"
	"centrovision-data/internal/connectivity"
	"centrovision-data/internal/dualaccess"
	"centrovision-data/internal/localdb"
	"centrovision-data/internal/remote"
	"centrovision-data/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const seedJSON = `{
  "branches": [{"id": "b1", "code": "CV1", "name": "Centro", "active": true}],
  "profiles": [
    {"user_id": "u-admin", "email": "admin@clinic.mx", "full_name": "Admin", "role": "admin", "branch_id": "b1"},
    {"user_id": "u-rec", "email": "rec@clinic.mx", "full_name": "Recepcion", "role": "reception", "branch_id": "b1"}
  ],
  "suppliers": [{"id": "s1", "name": "Zeiss", "active": true}],
  "stages": [{"id": "st1", "pipeline": "cirugia", "name": "Nuevo", "position": 1}]
}`

type fakeModes struct {
	mode      connectivity.Mode
	shell     bool
	refreshed int
}

func (f *fakeModes) Mode() connectivity.Mode { return f.mode }
func (f *fakeModes) ShellPresent() bool      { return f.shell }
func (f *fakeModes) Refresh(context.Context) connectivity.Mode {
	f.refreshed++
	return f.mode
}

// newLocalServer serves the API from an in-memory desktop datastore. An empty
// sessionUser leaves the desktop signed out.
func newLocalServer(t *testing.T, sessionUser string) (*httptest.Server, *localdb.Store) {
	t.Helper()
	ctx := context.Background()
	db, err := localdb.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, localdb.Migrate(ctx, db))

	st := localdb.NewStore(db, t.TempDir(), nil)
	var seed localdb.SeedData
	require.NoError(t, json.Unmarshal([]byte(seedJSON), &seed))
	require.NoError(t, st.Seed(ctx, &seed))
	if sessionUser != "" {
		require.NoError(t, st.SetSession(ctx, sessionUser))
	}

	b := bridge.New(true, nil)
	st.Register(b)

	runner := dualaccess.NewRunner(dualaccess.StaticMode(connectivity.ModeLocal), nil, nil)
	svc := app.BuildServices(runner, nil, b, store.NewMemoryKV(), nil)

	router := NewRouter(nil)
	router.RegisterRoutes(NewHandlers(svc, &fakeModes{mode: connectivity.ModeLocal, shell: true}, nil))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, st
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeResult[T any](t *testing.T, resp *http.Response) Result[T] {
	t.Helper()
	var out Result[T]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestStatusFor(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.KindValidation:    http.StatusBadRequest,
		apperr.KindAuthorization: http.StatusForbidden,
		apperr.KindNotFound:      http.StatusNotFound,
		apperr.KindBusinessRule:  http.StatusConflict,
		apperr.KindExternal:      http.StatusBadGateway,
		apperr.KindUnknown:       http.StatusBadGateway,
	}
	for kind, want := range cases {
		assert.Equal(t, want, statusFor(kind), "kind %v", kind)
	}
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, bearerToken(r))
	r.Header.Set("Authorization", "Bearer abc.def")
	assert.Equal(t, "abc.def", bearerToken(r))
	r.Header.Set("Authorization", "bearer  xyz ")
	assert.Equal(t, "xyz", bearerToken(r))
	r.Header.Set("Authorization", "Basic Zm9v")
	assert.Empty(t, bearerToken(r))
}

func TestHealthAndConnectivity_NoSessionNeeded(t *testing.T) {
	srv, _ := newLocalServer(t, "")

	resp := doJSON(t, http.MethodGet, srv.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/connectivity", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeResult[connectivityView](t, resp)
	assert.Equal(t, ResultSuccess, out.Code)
	assert.Equal(t, connectivity.ModeLocal, out.Result.Mode)
	assert.Equal(t, dualaccess.PathLocal, out.Result.Path)
	assert.True(t, out.Result.ShellPresent)
}

func TestRefreshConnectivity(t *testing.T) {
	modes := &fakeModes{mode: connectivity.ModeRemote}
	h := NewHandlers(nil, modes, nil)
	rec := httptest.NewRecorder()
	h.RefreshConnectivity(rec, httptest.NewRequest(http.MethodPost, "/api/v1/connectivity/refresh", nil))

	assert.Equal(t, 1, modes.refreshed)
	var out Result[connectivityView]
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	assert.Equal(t, dualaccess.PathRemote, out.Result.Path)
	assert.False(t, out.Result.ShellPresent)
}

func TestSignedOutDesktop_Unauthenticated(t *testing.T) {
	srv, _ := newLocalServer(t, "")

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/suppliers", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "local", resp.Header.Get(HeaderDataPath))
	out := decodeResult[any](t, resp)
	assert.Equal(t, ResultUnauthenticated, out.Code)
	assert.Equal(t, "no active desktop session", out.Message)
}

func TestCurrentUser_FromDesktopSession(t *testing.T) {
	srv, _ := newLocalServer(t, "u-admin")

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeResult[map[string]any](t, resp)
	assert.Equal(t, "u-admin", out.Result["user_id"])
	assert.Equal(t, "admin", out.Result["role"])
}

func TestSuppliers_EnvelopeAndPathHeader(t *testing.T) {
	srv, _ := newLocalServer(t, "u-rec")

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/suppliers", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "local", resp.Header.Get(HeaderDataPath))
	out := decodeResult[[]map[string]any](t, resp)
	assert.Equal(t, ResultSuccess, out.Code)
	assert.Equal(t, "success", out.Type)
	require.Len(t, out.Result, 1)
	assert.Equal(t, "Zeiss", out.Result[0]["name"])
}

func TestCreateItem_ThenFetch(t *testing.T) {
	srv, _ := newLocalServer(t, "u-admin")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/inventory/items", map[string]any{
		"branch_id": "b1", "code": "LC-01", "name": "Lente de contacto", "category": "lentes",
		"unit_price": 450, "stock": 10, "min_stock": 2,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	created := decodeResult[map[string]any](t, resp)
	id, _ := created.Result["id"].(string)
	require.NotEmpty(t, id)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/inventory/items/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeResult[map[string]any](t, resp)
	assert.Equal(t, "LC-01", got.Result["code"])
	assert.Equal(t, true, got.Result["active"])
}

func TestErrorKinds_MapToStatus(t *testing.T) {
	srv, _ := newLocalServer(t, "u-rec")

	// validation
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/inventory/items", map[string]any{
		"branch_id": "b1", "code": "X", "name": "Y", "category": "juguetes",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	out := decodeResult[any](t, resp)
	assert.Equal(t, ResultError, out.Code)
	assert.Equal(t, `unknown category "juguetes"`, out.Message)

	// not found
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/inventory/items/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// authorization: reception cannot change roles
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/v1/profiles/u-admin/role", map[string]string{"role": "doctor"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// malformed body
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/crm/leads", strings.NewReader("{"))
	require.NoError(t, err)
	bad, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestSetUserRole_AdminCannotDemoteSelf(t *testing.T) {
	srv, _ := newLocalServer(t, "u-admin")

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/v1/profiles/u-admin/role", map[string]string{"role": "doctor"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "admins cannot change their own role", decodeResult[any](t, resp).Message)

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/v1/profiles/u-rec/role", map[string]string{"role": "cashier"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "cashier", decodeResult[map[string]any](t, resp).Result["role"])
}

func TestInventoryTemplate_IsSpreadsheet(t *testing.T) {
	srv, _ := newLocalServer(t, "u-rec")

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/inventory/template", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.NotEmpty(t, rows)
	assert.Equal(t, "Codigo", rows[0][0])
}

func TestCreateLead_DefaultsToFirstStage(t *testing.T) {
	srv, _ := newLocalServer(t, "u-rec")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/crm/leads", map[string]any{
		"pipeline": "cirugia", "full_name": "  Ana Ruiz ", "phone": "5551234567",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	lead := decodeResult[map[string]any](t, resp).Result
	assert.Equal(t, "st1", lead["stage_id"])
	assert.Equal(t, "Ana Ruiz", lead["full_name"])
}

func TestPreferences_RoundTrip(t *testing.T) {
	srv, _ := newLocalServer(t, "u-rec")

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/v1/preferences/theme", map[string]string{"value": "dark"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/preferences", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]string{"theme": "dark"}, decodeResult[map[string]string](t, resp).Result)
}

func TestDocumentLink_LocalFile(t *testing.T) {
	srv, st := newLocalServer(t, "u-rec")
	file := filepath.Join(t.TempDir(), "consent.pdf")
	require.NoError(t, os.WriteFile(file, []byte("%PDF"), 0o600))
	require.NoError(t, st.RegisterDocument(context.Background(), "consents", "p1/consent.pdf", file))

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/documents/consents/p1/consent.pdf", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	link := decodeResult[map[string]any](t, resp).Result
	assert.Equal(t, true, link["local"])
	assert.True(t, strings.HasPrefix(link["url"].(string), "file://"))

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/documents/consents/p2/missing.pdf", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// remoteBackend fakes the hosted auth and REST endpoints.
func remoteBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"msg":"invalid JWT"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"u-doc","email":"doc@clinic.mx"}`))
	})
	mux.HandleFunc("GET /rest/v1/profiles", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.pgrst.object+json")
		_, _ = w.Write([]byte(`{"id":"u-doc","email":"doc@clinic.mx","full_name":"Dra. Vega","role":"doctor","branch_id":"b1"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRemotePath_ResolvesCallerFromBearerToken(t *testing.T) {
	backend := remoteBackend(t)
	client := remote.NewClient(config.RemoteConfig{URL: backend.URL, AnonKey: "anon", Timeout: 5 * time.Second}, store.NewMemoryKV(), nil)
	runner := dualaccess.NewRunner(dualaccess.StaticMode(connectivity.ModeRemote), nil, nil)
	svc := app.BuildServices(runner, client, nil, nil, nil)

	router := NewRouter(nil)
	router.RegisterRoutes(NewHandlers(svc, &fakeModes{mode: connectivity.ModeRemote}, nil))
	srv := httptest.NewServer(router)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer good-token")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "remote", resp.Header.Get(HeaderDataPath))
	me := decodeResult[map[string]any](t, resp).Result
	assert.Equal(t, "u-doc", me["user_id"])
	assert.Equal(t, "doctor", me["role"])

	noToken := doJSON(t, http.MethodGet, srv.URL+"/api/v1/me", nil)
	assert.Equal(t, http.StatusUnauthorized, noToken.StatusCode)
	assert.Equal(t, "missing access token", decodeResult[any](t, noToken).Message)
}

func TestImportInventory_StoredCodeSkippedOthersImported(t *testing.T) {
	srv, _ := newLocalServer(t, "u-admin")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/inventory/items", map[string]any{
		"branch_id": "b1", "code": "A1", "name": "Gotas", "category": "gotas",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Codigo", "Nombre", "Categoria"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"A1", "Gotas otra vez", "gotas"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"B2", "Lente", "lentes"}))
	sheet, err := f.WriteToBuffer()
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/inventory/import?branch_id=b1", sheet)
	require.NoError(t, err)
	req.Header.Set("Content-Type", xlsxContentType)
	imp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer imp.Body.Close()
	require.Equal(t, http.StatusOK, imp.StatusCode)
	res := decodeResult[map[string]any](t, imp).Result
	assert.EqualValues(t, 1, res["imported"])
	assert.EqualValues(t, 1, res["skipped"])

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/inventory/items?branch_id=b1&search=B2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeResult[[]map[string]any](t, resp).Result, 1)
}

// flippingModes reports its first mode once and then the second forever.
type flippingModes struct {
	mu          sync.Mutex
	first, then connectivity.Mode
	reads       int
}

func (f *flippingModes) Mode() connectivity.Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.reads == 1 {
		return f.first
	}
	return f.then
}
func (f *flippingModes) ShellPresent() bool                        { return true }
func (f *flippingModes) Refresh(context.Context) connectivity.Mode { return f.Mode() }

func TestRequest_ModeChangeMidRequestStaysOnOneStore(t *testing.T) {
	ctx := context.Background()
	db, err := localdb.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, localdb.Migrate(ctx, db))
	st := localdb.NewStore(db, t.TempDir(), nil)
	var seed localdb.SeedData
	require.NoError(t, json.Unmarshal([]byte(seedJSON), &seed))
	require.NoError(t, st.Seed(ctx, &seed))
	require.NoError(t, st.SetSession(ctx, "u-admin"))
	b := bridge.New(true, nil)
	st.Register(b)

	var remoteHits atomic.Int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remoteHits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer backend.Close()
	client := remote.NewClient(config.RemoteConfig{URL: backend.URL, AnonKey: "anon", Timeout: 5 * time.Second}, store.NewMemoryKV(), nil)

	// the connection comes back right after the request starts
	modes := &flippingModes{first: connectivity.ModeOffline, then: connectivity.ModeRemote}
	runner := dualaccess.NewRunner(modes, nil, nil)
	svc := app.BuildServices(runner, client, b, store.NewMemoryKV(), nil)
	router := NewRouter(nil)
	router.RegisterRoutes(NewHandlers(svc, modes, nil))
	srv := httptest.NewServer(router)
	defer srv.Close()

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/suppliers", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "local", resp.Header.Get(HeaderDataPath))
	list := decodeResult[[]map[string]any](t, resp).Result
	require.Len(t, list, 1)
	assert.Equal(t, "Zeiss", list[0]["name"])
	assert.Equal(t, int32(0), remoteHits.Load())

	// the next request observes the new mode
	next := doJSON(t, http.MethodGet, srv.URL+"/api/v1/me", nil)
	assert.Equal(t, http.StatusUnauthorized, next.StatusCode)
	assert.Equal(t, "remote", next.Header.Get(HeaderDataPath))
}
