package core

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend returns a canned workbook or error and records the options it saw.
type fakeBackend struct {
	wb   *Workbook
	err  error
	opts ParseOptions
	seen []string
}

func (f *fakeBackend) Parse(_ context.Context, src Source, opts ParseOptions) (*Workbook, error) {
	f.opts = opts
	f.seen = append(f.seen, src.Name)
	if f.err != nil {
		return nil, f.err
	}
	return f.wb, nil
}

func workbookOf(sheets ...Sheet) *Workbook {
	wb := &Workbook{Sheets: make(map[string]Sheet)}
	for _, s := range sheets {
		wb.SheetNames = append(wb.SheetNames, s.Name)
		wb.Sheets[s.Name] = s
	}
	return wb
}

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestIngest_NormalizesFirstSheet(t *testing.T) {
	backend := &fakeBackend{wb: workbookOf(
		Sheet{Name: "Sheet1", Rows: []Row{
			rowOf(garble(t, "單號"), "A-2", " 數量 ", 3),
			rowOf(garble(t, "單號"), garble(t, "客戶"), " 數量 ", 1),
		}},
		Sheet{Name: "Sheet2", Rows: []Row{rowOf("ignored", 1)}},
	)}
	ing := NewIngester(backend, WithLogger(quietLogger()))

	file, err := ing.Ingest(context.Background(), Source{Name: "report.xls", Data: []byte("abc")})
	require.NoError(t, err)

	assert.Equal(t, "report.xlsx", file.Name)
	assert.Equal(t, int64(3), file.Size)
	assert.Equal(t, 2, file.RowCount)
	assert.Len(t, file.Data, file.RowCount)
	assert.Equal(t, []string{"單號", "數量"}, file.Headers)
	assert.Empty(t, file.Error)
	assert.NotEmpty(t, file.ID)

	c, ok := file.Data[1].Get("單號")
	require.True(t, ok)
	assert.Equal(t, Text("客戶"), c)
}

func TestIngest_RequestsDefaultOptions(t *testing.T) {
	backend := &fakeBackend{wb: workbookOf(Sheet{Name: "S", Rows: []Row{rowOf("a", 1)}})}
	_, err := NewIngester(backend, WithLogger(quietLogger())).Ingest(context.Background(), Source{Name: "a.xlsx"})
	require.NoError(t, err)

	assert.Equal(t, DefaultParseOptions(), backend.opts)
	assert.Equal(t, 950, backend.opts.Codepage)
}

func TestIngest_CodepageOverride(t *testing.T) {
	backend := &fakeBackend{wb: workbookOf(Sheet{Name: "S", Rows: []Row{rowOf("a", 1)}})}
	ing := NewIngester(backend, WithCodepage(936), WithLogger(quietLogger()))
	_, err := ing.Ingest(context.Background(), Source{Name: "a.xls"})
	require.NoError(t, err)
	assert.Equal(t, 936, backend.opts.Codepage)
}

func TestIngest_DatesAsValuesOff(t *testing.T) {
	backend := &fakeBackend{wb: workbookOf(Sheet{Name: "S", Rows: []Row{rowOf("a", 1)}})}
	ing := NewIngester(backend, WithDatesAsValues(false), WithLogger(quietLogger()))
	_, err := ing.Ingest(context.Background(), Source{Name: "a.xlsx"})
	require.NoError(t, err)
	assert.False(t, backend.opts.DatesAsValues)
}

func TestIngest_EmptySheetIsSoftError(t *testing.T) {
	backend := &fakeBackend{wb: workbookOf(Sheet{Name: "Sheet1"})}
	ing := NewIngester(backend, WithLogger(quietLogger()))

	file, err := ing.Ingest(context.Background(), Source{Name: "empty.csv", Data: []byte("x")})
	require.NoError(t, err)

	assert.Equal(t, NoDataMessage, file.Error)
	assert.Equal(t, 0, file.RowCount)
	assert.Empty(t, file.Headers)
	assert.NotNil(t, file.Headers)
	assert.Empty(t, file.Data)
	assert.Equal(t, "empty.xlsx", file.Name)
}

func TestIngest_NoSheetsIsSoftError(t *testing.T) {
	backend := &fakeBackend{wb: workbookOf()}
	file, err := NewIngester(backend, WithLogger(quietLogger())).Ingest(context.Background(), Source{Name: "a.xlsx"})
	require.NoError(t, err)
	assert.Equal(t, NoDataMessage, file.Error)
}

func TestIngest_BackendFailureIsParseError(t *testing.T) {
	cause := errors.New("zip: not a valid zip file")
	backend := &fakeBackend{err: cause}

	_, err := NewIngester(backend, WithLogger(quietLogger())).Ingest(context.Background(), Source{Name: "bad.xlsx"})

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "bad.xlsx", pe.FileName)
	assert.ErrorIs(t, err, cause)
}

func TestIngest_TooLarge(t *testing.T) {
	backend := &fakeBackend{wb: workbookOf()}
	ing := NewIngester(backend, WithMaxFileSize(4), WithLogger(quietLogger()))

	_, err := ing.Ingest(context.Background(), Source{Name: "big.xlsx", Data: []byte("12345")})

	assert.ErrorIs(t, err, ErrFileTooLarge)
	assert.Empty(t, backend.seen, "backend should not be called")
}

func TestIngest_DeclaredHeaderOrder(t *testing.T) {
	tests := []struct {
		name     string
		declared []string
		want     []string
	}{
		{name: "none declared", declared: nil, want: []string{"單號", "數量"}},
		{name: "declared order wins", declared: []string{" 數量", garble(t, "門市"), "單號"}, want: []string{"數量", "門市", "單號"}},
		{name: "undeclared columns follow", declared: []string{"數量"}, want: []string{"數量", "單號"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{wb: workbookOf(Sheet{
				Name:    "S",
				Rows:    []Row{rowOf("單號", "A-1", "數量", 2)},
				Headers: tt.declared,
			})}
			file, err := NewIngester(backend, WithLogger(quietLogger())).Ingest(context.Background(), Source{Name: "a.xlsx"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, file.Headers)
		})
	}
}

func TestIngest_KeepsPreassignedID(t *testing.T) {
	backend := &fakeBackend{wb: workbookOf(Sheet{Name: "S", Rows: []Row{rowOf("a", 1)}})}
	file, err := NewIngester(backend, WithLogger(quietLogger())).Ingest(context.Background(), Source{ID: "fixed", Name: "a.xlsx"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", file.ID)
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"report.xls", "report.xlsx"},
		{"REPORT.XLS", "REPORT.xlsx"},
		{"data.csv", "data.xlsx"},
		{"data.CsV", "data.xlsx"},
		{"book.xlsx", "book.xlsx"},
		{"notes.txt", "notes.txt"},
		{"xls.backup", "xls.backup"},
		{"a.xls.csv", "a.xls.xlsx"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayName(tt.in))
		})
	}
}
