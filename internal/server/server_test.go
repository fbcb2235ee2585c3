package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-jobwatch/internal/ledger"
	"go-jobwatch/internal/models"
	"go-jobwatch/internal/storage"
)

var (
	nvidia = models.Target{Name: "NVIDIA", URL: "https://nvidia.example/jobs", Mode: models.ModeScreenshot, Slot: "nvidia"}
	intel  = models.Target{Name: "Intel", URL: "https://intel.example/jobs", Mode: models.ModeHTTP, Slot: "intel"}
)

type offlineStore struct {
	*storage.MemoryStore
}

func (offlineStore) Load(context.Context, string) ([]byte, error) {
	return nil, errors.New("store offline")
}

func setup(t *testing.T) (*Server, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	l := ledger.New(store, zerolog.Nop())
	_, err := l.Record(context.Background(), intel, []string{"Graduate Intern", "Student Researcher"})
	require.NoError(t, err)
	return New([]models.Target{nvidia, intel}, store, zerolog.Nop()), store
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := setup(t)
	rec := get(t, s.Handler(), "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestStatus(t *testing.T) {
	s, store := setup(t)

	rec := get(t, s.Handler(), "/status")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "no checks recorded yet")

	state := models.RunState{RunID: "run-1", TotalChecks: 3, Targets: map[string]models.TargetStatus{
		"Intel": {LastState: models.StateVerifiedChanged},
	}}
	data, err := json.Marshal(state)
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), storage.RunStateSlot, data))

	rec = get(t, s.Handler(), "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status string          `json:"status"`
		State  models.RunState `json:"state"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 3, body.State.TotalChecks)
	assert.Equal(t, models.StateVerifiedChanged, body.State.Targets["Intel"].LastState)
}

func TestTargets(t *testing.T) {
	s, _ := setup(t)

	rec := get(t, s.Handler(), "/targets")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Targets []struct {
			Name       string `json:"name"`
			KnownItems int    `json:"known_items"`
		} `json:"targets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Targets, 2)
	assert.Equal(t, 0, body.Targets[0].KnownItems)
	assert.Equal(t, 2, body.Targets[1].KnownItems)
}

func TestTargetItems(t *testing.T) {
	s, _ := setup(t)

	tests := []struct {
		name string
		path string
		code int
	}{
		{name: "by name", path: "/targets/Intel/items", code: http.StatusOK},
		{name: "by slot", path: "/targets/intel/items", code: http.StatusOK},
		{name: "unknown", path: "/targets/AMD/items", code: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s.Handler(), tt.path)
			assert.Equal(t, tt.code, rec.Code)
			if tt.code == http.StatusOK {
				assert.Contains(t, rec.Body.String(), "Student Researcher")
			}
		})
	}
}

func TestTargetScreenshot(t *testing.T) {
	s, store := setup(t)

	rec := get(t, s.Handler(), "/targets/NVIDIA/screenshot")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, s.Handler(), "/targets/Intel/screenshot")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 200)...)
	require.NoError(t, store.Save(context.Background(), nvidia.FingerprintSlot(), storage.EncodeImageSlot(png)))

	rec = get(t, s.Handler(), "/targets/NVIDIA/screenshot")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, png, rec.Body.Bytes())
}

func TestLedgerFailure(t *testing.T) {
	s := New([]models.Target{intel}, offlineStore{storage.NewMemoryStore()}, zerolog.Nop())

	rec := get(t, s.Handler(), "/targets")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "store offline")
}

func TestItemsReflectWritesFromAnotherLedger(t *testing.T) {
	s, store := setup(t)

	rec := get(t, s.Handler(), "/targets/NVIDIA/items")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Items []ledger.Entry `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Empty(t, body.Items)

	//a check run in another process records with its own ledger
	added, err := ledger.New(store, zerolog.Nop()).Record(context.Background(), nvidia, []string{"GPU Intern", "CUDA Intern"})
	require.NoError(t, err)
	require.Equal(t, 2, added)

	rec = get(t, s.Handler(), "/targets/NVIDIA/items")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Items, 2)

	rec = get(t, s.Handler(), "/targets")
	assert.Contains(t, rec.Body.String(), `"known_items":2`)
}

func TestCorruptLedgerReadsEmpty(t *testing.T) {
	s, store := setup(t)
	require.NoError(t, store.Save(context.Background(), intel.LedgerSlot(), []byte("{not json")))

	rec := get(t, s.Handler(), "/targets/Intel/items")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"items":[]`)
}
