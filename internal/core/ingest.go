package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/salesmerge/internal/mojibake"
)

// DefaultMaxFileSize is the largest file accepted for ingestion (100MB).
const DefaultMaxFileSize int64 = 100 * 1024 * 1024

// legacyExt matches the extensions whose display name is rewritten to .xlsx.
var legacyExt = regexp.MustCompile(`(?i)\.(xls|csv)$`)

// Ingester turns raw file bytes into a normalized ProcessedFile.
type Ingester struct {
	backend     Backend
	opts        ParseOptions
	maxFileSize int64
	logger      *slog.Logger
	now         func() time.Time
}

// IngesterOption configures an Ingester.
type IngesterOption func(*Ingester)

// WithMaxFileSize sets the size limit. Non-positive values disable the check.
func WithMaxFileSize(n int64) IngesterOption {
	return func(i *Ingester) { i.maxFileSize = n }
}

// WithCodepage overrides the codepage hint passed to the backend.
func WithCodepage(cp int) IngesterOption {
	return func(i *Ingester) {
		if cp > 0 {
			i.opts.Codepage = cp
		}
	}
}

// WithDatesAsValues controls whether date-formatted cells arrive as dates.
func WithDatesAsValues(on bool) IngesterOption {
	return func(i *Ingester) { i.opts.DatesAsValues = on }
}

// WithLogger sets the ingest logger.
func WithLogger(l *slog.Logger) IngesterOption {
	return func(i *Ingester) {
		if l != nil {
			i.logger = l
		}
	}
}

// NewIngester creates an ingester that parses with backend.
func NewIngester(backend Backend, opts ...IngesterOption) *Ingester {
	i := &Ingester{
		backend:     backend,
		opts:        DefaultParseOptions(),
		maxFileSize: DefaultMaxFileSize,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Ingest parses src and normalizes the rows of its first sheet.
//
// An empty first sheet is not an error: the result carries NoDataMessage in
// Error and zero rows. Parser failures come back as *ParseError.
func (i *Ingester) Ingest(ctx context.Context, src Source) (ProcessedFile, error) {
	start := i.now()

	if i.maxFileSize > 0 && int64(len(src.Data)) > i.maxFileSize {
		return ProcessedFile{}, &ParseError{
			FileName: src.Name,
			Err:      fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFileTooLarge, len(src.Data), i.maxFileSize),
		}
	}

	wb, err := i.backend.Parse(ctx, src, i.opts)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			return ProcessedFile{}, err
		}
		return ProcessedFile{}, &ParseError{FileName: src.Name, Err: err}
	}

	id := src.ID
	if id == "" {
		id = uuid.NewString()
	}
	file := ProcessedFile{
		ID:     id,
		Name:   DisplayName(src.Name),
		Size:   int64(len(src.Data)),
		Loaded: start,
	}

	sheet, _ := wb.FirstSheet()
	if len(sheet.Rows) == 0 {
		file.Headers = []string{}
		file.Data = []Row{}
		file.Error = NoDataMessage
		i.logger.Info("ingested empty sheet",
			slog.String("file", src.Name),
			slog.String("sheet", sheet.Name),
		)
		return file, nil
	}

	rows, stats := NormalizeAll(sheet.Rows)
	file.Data = rows
	file.RowCount = len(rows)
	file.Headers = rows[0].Keys()
	if len(sheet.Headers) > 0 {
		// Declared order first; first-row columns the backend left out follow.
		file.Headers = NormalizeHeaders(append(slices.Clone(sheet.Headers), file.Headers...))
	}

	i.logger.Info("ingested file",
		slog.String("file", src.Name),
		slog.String("sheet", sheet.Name),
		slog.Int("rows", file.RowCount),
		slog.Int("codepage", sheet.Codepage),
		slog.Int("repaired_headers", stats.RepairedHeaders),
		slog.Int("repaired_cells", stats.RepairedCells),
		slog.Int("header_collisions", stats.Collisions),
		slog.String("repair_version", mojibake.Version),
		slog.Duration("duration", i.now().Sub(start)),
	)
	return file, nil
}

// DisplayName rewrites a trailing .xls or .csv (any case) to .xlsx.
// Other names are returned unchanged.
func DisplayName(name string) string {
	return legacyExt.ReplaceAllString(name, ".xlsx")
}
