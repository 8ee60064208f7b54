package catalog_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cheeseshop/internal/adapters/catalog"
	"cheeseshop/internal/blob"
	"cheeseshop/internal/core"
	"cheeseshop/pkg/domain"
)

func seededService(t *testing.T) *core.Service {
	t.Helper()
	svc := core.NewInMemoryService(core.WithClock(core.ClockFunc(func() time.Time { return fixedNow })))
	ctx := context.Background()
	region := "Normandy"
	producer, err := svc.CreateProducer(ctx, domain.ProducerInput{
		Name: "Fromagerie Lebeau", FoundingYear: 1952, Region: &region, OperationSize: "family",
	})
	require.NoError(t, err)
	_, _, err = svc.CreateCheese(ctx, domain.CheeseInput{
		ProducerID: producer.ID, Kind: "Brie", IsRawMilk: true, ProductionDate: "2023-05-01", Price: 22.5,
	})
	require.NoError(t, err)
	_, _, err = svc.CreateCheese(ctx, domain.CheeseInput{
		ProducerID: producer.ID, Kind: "Livarot, aged", ProductionDate: "2023-02-11", Price: 31,
	})
	require.NoError(t, err)
	return svc
}

func memoryBlob(t *testing.T) blob.Store {
	t.Helper()
	store, err := blob.Open(context.Background(), blob.Config{Driver: blob.DriverMemory})
	require.NoError(t, err)
	return store
}

func readArtifact(t *testing.T, store blob.Store, key string) string {
	t.Helper()
	_, body, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	defer body.Close()
	b, err := io.ReadAll(body)
	require.NoError(t, err)
	return string(b)
}

func TestWorkerRunRendersJSONAndCSV(t *testing.T) {
	store := memoryBlob(t)
	worker := catalog.NewWorker(seededService(t), store, nil)

	record, err := worker.Run(context.Background(), catalog.ExportInput{RequestedBy: "ops"})
	require.NoError(t, err)
	assert.Equal(t, catalog.ExportStatusSucceeded, record.Status)
	assert.Equal(t, []catalog.ExportFormat{catalog.FormatJSON, catalog.FormatCSV}, record.Formats)
	assert.Equal(t, 1, record.Producers)
	assert.Equal(t, 2, record.Cheeses)
	require.NotNil(t, record.CompletedAt)
	require.Len(t, record.Artifacts, 2)

	jsonKey := fmt.Sprintf("exports/%s/catalog.json", record.ID)
	assert.Equal(t, jsonKey, record.Artifacts[0].Key)
	var doc struct {
		GeneratedAt time.Time               `json:"generated_at"`
		Producers   []domain.ProducerDetail `json:"producers"`
	}
	require.NoError(t, json.Unmarshal([]byte(readArtifact(t, store, jsonKey)), &doc))
	require.Len(t, doc.Producers, 1)
	assert.Len(t, doc.Producers[0].Cheeses, 2)
	assert.Equal(t, fixedNow, doc.GeneratedAt)

	rows, err := csv.NewReader(strings.NewReader(readArtifact(t, store, record.Artifacts[1].Key))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"cheese_id", "producer_id", "producer_name", "kind", "is_raw_milk", "production_date", "price", "image"}, rows[0])
	assert.Equal(t, "Fromagerie Lebeau", rows[1][2])
	assert.Equal(t, "22.50", rows[1][6])
	assert.Equal(t, "Livarot, aged", rows[2][3])
	assert.Equal(t, "31.00", rows[2][6])
	assert.Equal(t, "text/csv", record.Artifacts[1].ContentType)
}

func TestWorkerSignedURLFromFilesystemStore(t *testing.T) {
	store, err := blob.Open(context.Background(), blob.Config{Driver: blob.DriverFilesystem, FSRoot: t.TempDir()})
	require.NoError(t, err)
	worker := catalog.NewWorker(seededService(t), store, nil)

	record, err := worker.Run(context.Background(), catalog.ExportInput{Formats: []catalog.ExportFormat{catalog.FormatJSON, catalog.FormatJSON}})
	require.NoError(t, err)
	require.Len(t, record.Artifacts, 1)
	assert.True(t, strings.HasPrefix(record.Artifacts[0].URL, "file://"), record.Artifacts[0].URL)
}

type failingSnapshot struct{}

func (failingSnapshot) Snapshot(context.Context) (core.CatalogSnapshot, error) {
	return core.CatalogSnapshot{}, errors.New("store offline")
}

func TestWorkerRunReportsFailure(t *testing.T) {
	worker := catalog.NewWorker(failingSnapshot{}, memoryBlob(t), nil)
	record, err := worker.Run(context.Background(), catalog.ExportInput{})
	require.Error(t, err)
	assert.Equal(t, catalog.ExportStatusFailed, record.Status)
	assert.Contains(t, record.Error, "store offline")
}

func TestWorkerProcessesQueuedExports(t *testing.T) {
	store := memoryBlob(t)
	worker := catalog.NewWorker(seededService(t), store, nil)
	worker.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, worker.Stop(ctx))
	})

	record, err := worker.EnqueueExport(context.Background(), catalog.ExportInput{Formats: []catalog.ExportFormat{catalog.FormatCSV}})
	require.NoError(t, err)
	assert.Equal(t, catalog.ExportStatusQueued, record.Status)

	require.Eventually(t, func() bool {
		got, ok := worker.GetExport(record.ID)
		return ok && got.Status == catalog.ExportStatusSucceeded
	}, 2*time.Second, 10*time.Millisecond)

	info, body, err := worker.OpenArtifact(context.Background(), record.ID, catalog.FormatCSV)
	require.NoError(t, err)
	_ = body.Close()
	assert.Positive(t, info.Size)

	_, _, err = worker.OpenArtifact(context.Background(), record.ID, catalog.FormatJSON)
	assert.ErrorIs(t, err, blob.ErrNotFound)
	_, _, err = worker.OpenArtifact(context.Background(), "missing", catalog.FormatCSV)
	assert.ErrorIs(t, err, blob.ErrNotFound)
}

func TestWorkerQueueFull(t *testing.T) {
	worker := catalog.NewWorker(seededService(t), memoryBlob(t), nil)
	for i := 0; i < catalog.QueueSize; i++ {
		_, err := worker.EnqueueExport(context.Background(), catalog.ExportInput{})
		require.NoError(t, err)
	}
	for i := 0; i < 8; i++ {
		_, err := worker.EnqueueExport(context.Background(), catalog.ExportInput{})
		assert.ErrorIs(t, err, catalog.ErrQueueFull)
	}
	assert.Equal(t, catalog.QueueSize, worker.Jobs(), "rejected exports must not be retained")
}

func TestParseExportFormat(t *testing.T) {
	f, err := catalog.ParseExportFormat(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, catalog.FormatCSV, f)
	_, err = catalog.ParseExportFormat("xlsx")
	assert.Error(t, err)
}

func TestExportRoutes(t *testing.T) {
	store := memoryBlob(t)
	svc := seededService(t)
	worker := catalog.NewWorker(svc, store, nil)
	worker.Start()
	t.Cleanup(func() { _ = worker.Stop(context.Background()) })
	h := catalog.NewHandler(svc)
	h.Exports = worker

	resp := do(t, h, http.MethodPost, "/exports", `{"formats":["pdf"]}`)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = do(t, h, http.MethodPost, "/exports", `{"formats":["json"],"requested_by":"ops"}`)
	require.Equal(t, http.StatusAccepted, resp.Code, resp.Body.String())
	created := decode[struct {
		Export catalog.ExportRecord `json:"export"`
	}](t, resp).Export
	assert.Equal(t, "ops", created.RequestedBy)

	require.Eventually(t, func() bool {
		got := decode[struct {
			Export catalog.ExportRecord `json:"export"`
		}](t, do(t, h, http.MethodGet, "/exports/"+created.ID, "")).Export
		return got.Status == catalog.ExportStatusSucceeded
	}, 2*time.Second, 10*time.Millisecond)

	resp = do(t, h, http.MethodGet, "/exports/"+created.ID+"/json", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/json", resp.Header().Get("Content-Type"))
	assert.Contains(t, resp.Body.String(), "Fromagerie Lebeau")

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/exports/"+created.ID+"/csv", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/exports/"+created.ID+"/xlsx", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/exports/nope", "").Code)
}

func TestExportRoutesAbsentWithoutScheduler(t *testing.T) {
	_, h := setupHandler(t)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/exports", `{}`).Code)
}
