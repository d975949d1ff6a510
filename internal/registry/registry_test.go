package registry_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/geomag-nowcast-service/internal/domain"
	"github.com/couchcryptid/geomag-nowcast-service/internal/registry"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func record(version string, samples int) domain.ModelRecord {
	loss := 1.5
	return domain.ModelRecord{
		Version:   version,
		TrainedAt: time.Date(2024, time.May, 11, 6, 0, 0, 0, time.UTC),
		Epochs:    20,
		Metrics: domain.ModelMetrics{
			Loss:        &loss,
			Samples:     samples,
			PredictMean: &domain.TargetVector{40, 0.5},
		},
		Dataset: "ml/data/train_dataset.jsonl",
		Status:  domain.ModelStatusReady,
	}
}

func TestRead_MissingFile(t *testing.T) {
	reg := registry.NewFileRegistry(filepath.Join(t.TempDir(), "registry.json"), discardLogger())

	doc, err := reg.Read()
	require.NoError(t, err)
	assert.NotNil(t, doc.Models)
	assert.Empty(t, doc.Models)
}

func TestAppend_PreservesOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models", "registry.json")
	reg := registry.NewFileRegistry(path, discardLogger())

	r1 := record("unet-baseline-v1", 10)
	r2 := record("unet-baseline-v1", 12)
	require.NoError(t, reg.Append(r1))
	require.NoError(t, reg.Append(r2))

	doc, err := reg.Read()
	require.NoError(t, err)
	if diff := cmp.Diff([]domain.ModelRecord{r1, r2}, doc.Models); diff != "" {
		t.Errorf("registry mismatch (-want +got):\n%s", diff)
	}
}

func TestAppend_PrettyPrinted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	reg := registry.NewFileRegistry(path, discardLogger())
	require.NoError(t, reg.Append(record("v1", 3)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"models\": [\n    {"))

	var raw map[string][]map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw["models"], 1)
	assert.Equal(t, "ready", raw["models"][0]["status"])
	assert.Equal(t, "2024-05-11T06:00:00Z", raw["models"][0]["trained_at"])
}

func TestAppend_NoDataRecordKeepsNullLoss(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	reg := registry.NewFileRegistry(path, discardLogger())

	rec := record("v1", 0)
	rec.Metrics = domain.Train(nil)
	require.NoError(t, reg.Append(rec))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"loss": null`)
	assert.Contains(t, string(data), `"message": "No data"`)
	assert.NotContains(t, string(data), "predict_mean")
}

func TestAppend_ExistingFileWithoutModelsKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))
	reg := registry.NewFileRegistry(path, discardLogger())

	require.NoError(t, reg.Append(record("v1", 1)))

	doc, err := reg.Read()
	require.NoError(t, err)
	assert.Len(t, doc.Models, 1)
}

func TestCorruptRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"models": [`), 0o644))
	reg := registry.NewFileRegistry(path, discardLogger())

	_, err := reg.Read()
	require.ErrorIs(t, err, domain.ErrRegistryCorrupt)

	err = reg.Append(record("v1", 1))
	require.ErrorIs(t, err, domain.ErrRegistryCorrupt)

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, `{"models": [`, string(data), "corrupt registry must not be overwritten")

	assert.ErrorIs(t, reg.CheckReadiness(t.Context()), domain.ErrRegistryCorrupt)
}

func TestAppend_ConcurrentWithinProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	reg := registry.NewFileRegistry(path, discardLogger())

	const writers = 8
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, reg.Append(record("v1", i)))
		}()
	}
	wg.Wait()

	doc, err := reg.Read()
	require.NoError(t, err)
	assert.Len(t, doc.Models, writers)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files should be cleaned up")
}

func TestRead_TrainedAtWithoutZone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	doc := `{"models": [
  {"version": "v1", "trained_at": "2024-05-10T17:00:00.123456", "epochs": 20,
   "metrics": {"loss": 1.0, "samples": 4}, "dataset": "d.jsonl", "status": "ready"},
  {"version": "v2", "trained_at": "last tuesday", "epochs": 1,
   "metrics": {"loss": null, "samples": 0}, "dataset": "d.jsonl", "status": "ready"}
]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	reg := registry.NewFileRegistry(path, discardLogger())

	got, err := reg.Read()
	require.NoError(t, err)
	require.Len(t, got.Models, 2)
	assert.Equal(t, time.Date(2024, time.May, 10, 17, 0, 0, 123456000, time.UTC), got.Models[0].TrainedAt)
	assert.True(t, got.Models[1].TrainedAt.IsZero())
	assert.Equal(t, 4, got.Models[0].Metrics.Samples)

	require.NoError(t, reg.CheckReadiness(t.Context()))
}

func TestAppend_KeepsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	doc := `{"owner": "ops", "models": [
  {"version": "v0", "trained_at": "2024-05-10T17:00:00.123456", "epochs": 5,
   "metrics": {"loss": 2.0, "samples": 8}, "dataset": "d.jsonl", "status": "ready",
   "notes": {"gpu": "a100"}}
]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	reg := registry.NewFileRegistry(path, discardLogger())

	require.NoError(t, reg.Append(record("v1", 3)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw struct {
		Owner  string           `json:"owner"`
		Models []map[string]any `json:"models"`
	}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "ops", raw.Owner)
	require.Len(t, raw.Models, 2)
	assert.Equal(t, "2024-05-10T17:00:00.123456", raw.Models[0]["trained_at"])
	assert.Equal(t, map[string]any{"gpu": "a100"}, raw.Models[0]["notes"])
	assert.Equal(t, "v1", raw.Models[1]["version"])
}
