// Package bridge runs an out-of-process spreadsheet parser.
//
// The external parser is any program that takes a file path as its last
// argument and prints one JSON object to stdout:
//
//	{"success": true, "data": [{"單號": "A-1", "數量": 3}, ...],
//	 "headers": ["單號", "數量"], "rowCount": 1}
//
// or {"success": false, "error": "..."}. Diagnostic lines around the JSON
// are tolerated: only the text from the first '{' to the last '}' is read.
// Key order in each data object is preserved.
package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/JonMunkholm/salesmerge/internal/core"
)

// DefaultTimeout bounds one external parse.
const DefaultTimeout = 60 * time.Second

// waitDelay bounds how long output is drained after the parser is killed.
const waitDelay = 2 * time.Second

// maxStderr is how much of the parser's stderr is kept for error messages.
const maxStderr = 2048

var (
	// ErrNoJSON is returned when the parser printed no JSON object.
	ErrNoJSON = errors.New("external parser: no JSON object in output")
	// ErrInvalidJSON is returned when the parser output is not valid JSON.
	ErrInvalidJSON = errors.New("external parser: invalid JSON output")
)

// External is a core.Backend that shells out to a parser program.
type External struct {
	Command string
	Args    []string
	Timeout time.Duration
	TempDir string // Defaults to os.TempDir()
	Logger  *slog.Logger
}

// NewExternal creates an external backend running command with args.
func NewExternal(command string, args []string, timeout time.Duration, logger *slog.Logger) *External {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &External{Command: command, Args: args, Timeout: timeout, Logger: logger}
}

// Parse writes src to a temporary file, runs the parser on it and decodes its output.
// The result is a single-sheet workbook.
func (e *External) Parse(ctx context.Context, src core.Source, opts core.ParseOptions) (*core.Workbook, error) {
	if e.Command == "" {
		return nil, errors.New("external parser: no command configured")
	}

	path, cleanup, err := e.writeTemp(src)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string{}, e.Args...), path)
	cmd := exec.CommandContext(ctx, e.Command, args...)
	cmd.Env = append(os.Environ(), fmt.Sprintf("SALESMERGE_CODEPAGE=%d", opts.Codepage))
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	e.logger().Debug("external parser finished",
		slog.String("file", src.Name),
		slog.Duration("duration", time.Since(start)),
		slog.Int("stdout_bytes", stdout.Len()),
	)

	if runErr != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("external parser: %w", ctx.Err())
		}
		return nil, fmt.Errorf("external parser: %w: %s", runErr, truncate(stderr.String(), maxStderr))
	}

	return decodeOutput(stdout.Bytes())
}

func (e *External) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// writeTemp stores the source bytes in a temp file with the source's extension.
func (e *External) writeTemp(src core.Source) (string, func(), error) {
	ext := strings.ToLower(filepath.Ext(src.Name))
	f, err := os.CreateTemp(e.TempDir, "salesmerge-*"+ext)
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	cleanup := func() { _ = os.Remove(path) }

	if _, err := f.Write(src.Data); err != nil {
		f.Close()
		cleanup()
		return "", nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp file: %w", err)
	}
	return path, cleanup, nil
}

// decodeOutput extracts and decodes the JSON object in out.
func decodeOutput(out []byte) (*core.Workbook, error) {
	start := bytes.IndexByte(out, '{')
	end := bytes.LastIndexByte(out, '}')
	if start < 0 || end < start {
		return nil, ErrNoJSON
	}
	doc := out[start : end+1]
	if !gjson.ValidBytes(doc) {
		return nil, ErrInvalidJSON
	}

	res := gjson.ParseBytes(doc)
	if !res.Get("success").Bool() {
		msg := res.Get("error").String()
		if msg == "" {
			msg = "unknown error"
		}
		return nil, fmt.Errorf("external parser: %s", msg)
	}

	data := res.Get("data")
	if data.Exists() && !data.IsArray() {
		return nil, fmt.Errorf("%w: data is not an array", ErrInvalidJSON)
	}

	var rows []core.Row
	var rowErr error
	data.ForEach(func(_, obj gjson.Result) bool {
		if !obj.IsObject() {
			rowErr = fmt.Errorf("%w: row %d is not an object", ErrInvalidJSON, len(rows))
			return false
		}
		row := core.NewRow(8)
		obj.ForEach(func(key, value gjson.Result) bool {
			row.Set(key.String(), cellFromJSON(value))
			return true
		})
		rows = append(rows, row)
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}

	// rowCount is len(data) on the parser side and is not read.
	var headers []string
	if h := res.Get("headers"); h.IsArray() {
		for _, v := range h.Array() {
			headers = append(headers, v.String())
		}
	}

	const name = "Sheet1"
	return &core.Workbook{
		SheetNames: []string{name},
		Sheets:     map[string]core.Sheet{name: {Name: name, Rows: rows, Headers: headers}},
	}, nil
}

func cellFromJSON(v gjson.Result) core.Cell {
	switch v.Type {
	case gjson.String:
		return core.Text(v.String())
	case gjson.Number:
		return core.Number(v.Float())
	case gjson.True:
		return core.Bool(true)
	case gjson.False:
		return core.Bool(false)
	case gjson.Null:
		return core.Empty()
	default:
		// Nested arrays and objects are kept as their JSON text.
		return core.Text(v.Raw)
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
