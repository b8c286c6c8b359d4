package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/salesmerge/internal/mojibake"
)

// DefaultSortKey is the column reports are ordered by unless told otherwise.
const DefaultSortKey = "單號"

// ExportTimeout is the maximum duration for a merge and export.
var ExportTimeout = 2 * time.Minute

// Exporter writes merged rows as a spreadsheet.
type Exporter interface {
	Export(w io.Writer, rows []Row) error
}

// MergeRecord describes one completed export.
type MergeRecord struct {
	ID            string    `json:"id"`
	OutputName    string    `json:"outputName"`
	SortKey       string    `json:"sortKey"`
	FileNames     []string  `json:"fileNames"`
	TotalRows     int       `json:"totalRows"`
	Forced        bool      `json:"forced"`
	ClientIP      string    `json:"clientIp,omitempty"`
	UserAgent     string    `json:"userAgent,omitempty"`
	RepairVersion string    `json:"repairVersion"` // mojibake.Version the rows were normalized with
	CreatedAt     time.Time `json:"createdAt"`
}

// HistoryRecorder persists completed exports.
type HistoryRecorder interface {
	Record(ctx context.Context, rec MergeRecord) error
	Recent(ctx context.Context, limit int) ([]MergeRecord, error)
}

// MergeRequest names the sort column and output file of an export.
type MergeRequest struct {
	SortKey  string `json:"sortKey"`
	FileName string `json:"fileName"`
	Force    bool   `json:"force"` // Proceed even if no file has SortKey
}

// IngestOutcome is the per-file result of IngestBatch, in input order.
type IngestOutcome struct {
	Name      string         `json:"name"`
	File      *ProcessedFile `json:"file,omitempty"`
	Err       error          `json:"-"`
	Discarded bool           `json:"discarded,omitempty"` // Slot removed before the ingest finished
}

// Service ties ingestion, the working set and merging together.
type Service struct {
	ingester  *Ingester
	merger    *Merger
	exporter  Exporter
	history   HistoryRecorder
	limiter   *ParseLimiter
	workspace *Workspace
	logger    *slog.Logger
}

// ServiceConfig holds the collaborators of a Service.
// History may be nil. Limiter, Workspace, Merger and Logger get defaults.
type ServiceConfig struct {
	Ingester  *Ingester
	Merger    *Merger
	Exporter  Exporter
	History   HistoryRecorder
	Limiter   *ParseLimiter
	Workspace *Workspace
	Logger    *slog.Logger
}

// NewService creates a new Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Ingester == nil {
		return nil, errors.New("service: ingester is required")
	}
	if cfg.Exporter == nil {
		return nil, errors.New("service: exporter is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Merger == nil {
		cfg.Merger = NewMerger(DefaultCollation, cfg.Logger)
	}
	if cfg.Limiter == nil {
		cfg.Limiter = NewParseLimiter(DefaultMaxConcurrentParses, DefaultMaxWaitTime)
	}
	if cfg.Workspace == nil {
		cfg.Workspace = NewWorkspace()
	}
	return &Service{
		ingester:  cfg.Ingester,
		merger:    cfg.Merger,
		exporter:  cfg.Exporter,
		history:   cfg.History,
		limiter:   cfg.Limiter,
		workspace: cfg.Workspace,
		logger:    cfg.Logger,
	}, nil
}

// Workspace returns the working set.
func (s *Service) Workspace() *Workspace { return s.workspace }

// Limiter returns the parse limiter.
func (s *Service) Limiter() *ParseLimiter { return s.limiter }

// Locale returns the collation locale exports are sorted with.
func (s *Service) Locale() string { return s.merger.Locale() }

// IngestBatch ingests every source concurrently and adds the results to the
// working set in input order. One file failing never affects the others.
//
// Ingests are not cancelled when ctx is: ctx only bounds the wait for a
// parse slot. A file removed from the working set while it is still being
// parsed is dropped when its result arrives.
func (s *Service) IngestBatch(ctx context.Context, sources []Source) []IngestOutcome {
	outcomes := make([]IngestOutcome, len(sources))
	ids := make([]string, len(sources))
	for i := range sources {
		ids[i] = s.workspace.Reserve()
	}

	parseCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	for i, src := range sources {
		g.Go(func() error {
			src.ID = ids[i]
			outcomes[i].Name = src.Name

			var file ProcessedFile
			err := s.limiter.Do(ctx, func() error {
				var err error
				file, err = s.ingester.Ingest(parseCtx, src)
				return err
			})
			if err != nil {
				s.workspace.Abandon(ids[i])
				outcomes[i].Err = err
				s.logger.Warn("ingest failed",
					slog.String("file", src.Name),
					slog.String("error", err.Error()),
				)
				return nil
			}

			if !s.workspace.Commit(ids[i], file) {
				outcomes[i].Discarded = true
				s.logger.Info("discarded late ingest result",
					slog.String("file", src.Name),
					slog.String("id", ids[i]),
				)
				return nil
			}
			file.ID = ids[i]
			outcomes[i].File = &file
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// Files returns the working set.
func (s *Service) Files() []ProcessedFile {
	return s.workspace.Files()
}

// RemoveFile drops one file from the working set.
func (s *Service) RemoveFile(id string) error {
	if err := s.workspace.Remove(id); err != nil {
		return fmt.Errorf("remove %s: %w", id, err)
	}
	return nil
}

// Reset empties the working set.
func (s *Service) Reset() {
	s.workspace.Reset()
	s.logger.Info("workspace reset")
}

// TotalRows sums the row counts of the working set.
func (s *Service) TotalRows() int {
	total := 0
	for _, f := range s.workspace.Files() {
		total += f.RowCount
	}
	return total
}

// Export merges the working set ordered by req.SortKey and writes the
// spreadsheet to w. When no file has the sort key, Export returns a
// *SortKeyWarning without writing anything unless req.Force is set.
// Any merge or export failure aborts the whole export.
func (s *Service) Export(ctx context.Context, w io.Writer, req MergeRequest) (MergeRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, ExportTimeout)
	defer cancel()

	files := s.workspace.Files()
	if len(files) == 0 {
		return MergeRecord{}, ErrNoFiles
	}

	key := strings.TrimSpace(req.SortKey)
	if key == "" {
		key = DefaultSortKey
	}

	if warn := CheckSortKey(files, key); warn != nil {
		if !req.Force {
			return MergeRecord{}, warn
		}
		s.logger.Warn("sort key missing from all files, merging anyway",
			slog.String("sort_key", key),
			slog.Any("available", warn.Available),
		)
	}

	rows := s.merger.Merge(files, key)
	if err := ctx.Err(); err != nil {
		return MergeRecord{}, fmt.Errorf("merge: %w", err)
	}

	if err := s.exporter.Export(w, rows); err != nil {
		return MergeRecord{}, fmt.Errorf("export: %w", err)
	}

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	rec := MergeRecord{
		ID:            uuid.NewString(),
		OutputName:    req.FileName,
		SortKey:       key,
		FileNames:     names,
		TotalRows:     len(rows),
		Forced:        req.Force,
		ClientIP:      ClientIPFromContext(ctx),
		UserAgent:     UserAgentFromContext(ctx),
		RepairVersion: mojibake.Version,
		CreatedAt:     time.Now(),
	}

	s.logger.Info("exported merge",
		slog.String("output", rec.OutputName),
		slog.String("sort_key", key),
		slog.Int("files", len(files)),
		slog.Int("rows", rec.TotalRows),
	)

	if s.history != nil {
		// The file is already written; a history failure is not an export failure.
		if err := s.history.Record(context.WithoutCancel(ctx), rec); err != nil {
			s.logger.Error("record merge history failed",
				slog.String("id", rec.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	return rec, nil
}

// History returns the most recent exports, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]MergeRecord, error) {
	if s.history == nil {
		return []MergeRecord{}, nil
	}
	return s.history.Recent(ctx, limit)
}

// DefaultOutputName is the suggested output name for an export made at t.
func DefaultOutputName(t time.Time) string {
	return "合併銷售報表_" + t.Format("2006-01-02")
}
