package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/salesmerge/internal/mojibake"
)

// nameBackend builds a one-sheet workbook from the source name:
// "a.xlsx:10,2" yields rows with 單號 10 and 2. Names starting with
// "bad" fail and "empty" yields no rows.
type nameBackend struct {
	delay map[string]time.Duration
}

func (b nameBackend) Parse(_ context.Context, src Source, _ ParseOptions) (*Workbook, error) {
	if d, ok := b.delay[src.Name]; ok {
		time.Sleep(d)
	}
	if strings.HasPrefix(src.Name, "bad") {
		return nil, errors.New("corrupt file")
	}
	sheet := Sheet{Name: "Sheet1"}
	if _, values, ok := strings.Cut(src.Name, ":"); ok {
		for _, v := range strings.Split(values, ",") {
			sheet.Rows = append(sheet.Rows, rowOf("單號", v, "來源", src.Name))
		}
	}
	return workbookOf(sheet), nil
}

type recordingExporter struct {
	rows []Row
	err  error
}

func (e *recordingExporter) Export(w io.Writer, rows []Row) error {
	if e.err != nil {
		return e.err
	}
	e.rows = rows
	_, err := io.WriteString(w, "xlsx")
	return err
}

type memoryHistory struct {
	mu   sync.Mutex
	recs []MergeRecord
}

func (h *memoryHistory) Record(_ context.Context, rec MergeRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recs = append(h.recs, rec)
	return nil
}

func (h *memoryHistory) Recent(_ context.Context, limit int) ([]MergeRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.recs, nil
}

func newTestService(t *testing.T, backend Backend) (*Service, *recordingExporter, *memoryHistory) {
	t.Helper()
	exp := &recordingExporter{}
	hist := &memoryHistory{}
	svc, err := NewService(ServiceConfig{
		Ingester: NewIngester(backend, WithLogger(quietLogger())),
		Exporter: exp,
		History:  hist,
		Limiter:  NewParseLimiter(2, time.Second),
		Logger:   quietLogger(),
	})
	require.NoError(t, err)
	return svc, exp, hist
}

func TestNewService_RequiresCollaborators(t *testing.T) {
	_, err := NewService(ServiceConfig{Exporter: &recordingExporter{}})
	assert.Error(t, err)

	_, err = NewService(ServiceConfig{Ingester: NewIngester(nameBackend{})})
	assert.Error(t, err)
}

// ============================================================================
// IngestBatch
// ============================================================================

func TestIngestBatch_IsolatesFailures(t *testing.T) {
	svc, _, _ := newTestService(t, nameBackend{})

	outcomes := svc.IngestBatch(context.Background(), []Source{
		{Name: "a.xls:1,2"},
		{Name: "bad.xlsx"},
		{Name: "empty.csv"},
		{Name: "c.xlsx:3"},
	})

	require.Len(t, outcomes, 4)
	assert.NoError(t, outcomes[0].Err)
	var pe *ParseError
	assert.ErrorAs(t, outcomes[1].Err, &pe)
	assert.Nil(t, outcomes[1].File)
	require.NotNil(t, outcomes[2].File)
	assert.Equal(t, NoDataMessage, outcomes[2].File.Error)
	assert.NoError(t, outcomes[3].Err)

	files := svc.Files()
	require.Len(t, files, 3, "failed file must not enter the working set")
	assert.Equal(t, "a.xls:1,2", files[0].Name)
	assert.Equal(t, outcomes[0].File.ID, files[0].ID)
	assert.Equal(t, 3, svc.TotalRows())
}

func TestIngestBatch_KeepsInputOrderWhenSlowFirst(t *testing.T) {
	backend := nameBackend{delay: map[string]time.Duration{"slow.xlsx:1": 50 * time.Millisecond}}
	svc, _, _ := newTestService(t, backend)

	svc.IngestBatch(context.Background(), []Source{
		{Name: "slow.xlsx:1"},
		{Name: "fast.xlsx:2"},
	})

	files := svc.Files()
	require.Len(t, files, 2)
	assert.Equal(t, "slow.xlsx:1", files[0].Name)
	assert.Equal(t, "fast.xlsx:2", files[1].Name)
}

func TestIngestBatch_ResetDiscardsInFlight(t *testing.T) {
	backend := nameBackend{delay: map[string]time.Duration{"slow.xlsx:1": 100 * time.Millisecond}}
	svc, _, _ := newTestService(t, backend)

	done := make(chan []IngestOutcome)
	go func() {
		done <- svc.IngestBatch(context.Background(), []Source{{Name: "slow.xlsx:1"}})
	}()

	require.Eventually(t, func() bool { return svc.Workspace().Pending() == 1 }, time.Second, 5*time.Millisecond)
	svc.Reset()

	outcomes := <-done
	assert.True(t, outcomes[0].Discarded)
	assert.Empty(t, svc.Files())
}

// ============================================================================
// Export
// ============================================================================

func TestExport_MergesSortedAndRecordsHistory(t *testing.T) {
	svc, exp, hist := newTestService(t, nameBackend{})
	svc.IngestBatch(context.Background(), []Source{
		{Name: "a.xlsx:10,2"},
		{Name: "b.xlsx:1"},
	})

	var buf bytes.Buffer
	ctx := ContextWithClientIP(context.Background(), "10.0.0.1")
	ctx = ContextWithUserAgent(ctx, "report-client/1.0")
	rec, err := svc.Export(ctx, &buf, MergeRequest{SortKey: " 單號 ", FileName: "out.xlsx"})
	require.NoError(t, err)

	assert.Equal(t, "xlsx", buf.String())
	assert.Equal(t, []string{"1", "2", "10"}, keyValues(t, exp.rows, "單號"))
	assert.Equal(t, 3, rec.TotalRows)
	assert.Equal(t, "單號", rec.SortKey)
	assert.Equal(t, []string{"a.xlsx:10,2", "b.xlsx:1"}, rec.FileNames)
	assert.Equal(t, "10.0.0.1", rec.ClientIP)
	assert.Equal(t, "report-client/1.0", rec.UserAgent)
	assert.Equal(t, mojibake.Version, rec.RepairVersion)

	require.Len(t, hist.recs, 1)
	assert.Equal(t, rec.ID, hist.recs[0].ID)
}

func TestExport_DefaultSortKey(t *testing.T) {
	svc, exp, _ := newTestService(t, nameBackend{})
	svc.IngestBatch(context.Background(), []Source{{Name: "a.xlsx:3,1"}})

	_, err := svc.Export(context.Background(), io.Discard, MergeRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, keyValues(t, exp.rows, DefaultSortKey))
}

func TestExport_NoFiles(t *testing.T) {
	svc, _, _ := newTestService(t, nameBackend{})
	_, err := svc.Export(context.Background(), io.Discard, MergeRequest{SortKey: "單號"})
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestExport_MissingSortKeyNeedsForce(t *testing.T) {
	svc, exp, hist := newTestService(t, nameBackend{})
	svc.IngestBatch(context.Background(), []Source{{Name: "a.xlsx:2,1"}})

	var buf bytes.Buffer
	_, err := svc.Export(context.Background(), &buf, MergeRequest{SortKey: "品號"})
	warn, ok := IsSortKeyWarning(err)
	require.True(t, ok, "expected SortKeyWarning, got %v", err)
	assert.Equal(t, "品號", warn.SortKey)
	assert.Equal(t, []string{"單號", "來源"}, warn.Available)
	assert.Zero(t, buf.Len(), "nothing should be written without force")
	assert.Empty(t, hist.recs)

	rec, err := svc.Export(context.Background(), &buf, MergeRequest{SortKey: "品號", Force: true})
	require.NoError(t, err)
	assert.True(t, rec.Forced)
	assert.Equal(t, []string{"2", "1"}, keyValues(t, exp.rows, "單號"), "rows keep input order")
}

func TestExport_ExporterFailureAborts(t *testing.T) {
	svc, exp, hist := newTestService(t, nameBackend{})
	svc.IngestBatch(context.Background(), []Source{{Name: "a.xlsx:1"}})
	exp.err = errors.New("disk full")

	_, err := svc.Export(context.Background(), io.Discard, MergeRequest{SortKey: "單號"})
	assert.ErrorContains(t, err, "disk full")
	assert.Empty(t, hist.recs)
}

func TestRemoveFile(t *testing.T) {
	svc, _, _ := newTestService(t, nameBackend{})
	out := svc.IngestBatch(context.Background(), []Source{{Name: "a.xlsx:1"}, {Name: "b.xlsx:2"}})

	require.NoError(t, svc.RemoveFile(out[0].File.ID))
	assert.Len(t, svc.Files(), 1)
	assert.ErrorIs(t, svc.RemoveFile("nope"), ErrFileNotFound)
}

func TestDefaultOutputName(t *testing.T) {
	got := DefaultOutputName(time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, "合併銷售報表_2024-05-06", got)
}
