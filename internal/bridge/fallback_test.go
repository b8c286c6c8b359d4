package bridge

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/salesmerge/internal/core"
)

type stubBackend struct {
	wb    *core.Workbook
	err   error
	calls int
}

func (s *stubBackend) Parse(context.Context, core.Source, core.ParseOptions) (*core.Workbook, error) {
	s.calls++
	return s.wb, s.err
}

func TestFallback_UsesPrimaryWhenItWorks(t *testing.T) {
	primary := &stubBackend{wb: &core.Workbook{SheetNames: []string{"p"}}}
	secondary := &stubBackend{wb: &core.Workbook{SheetNames: []string{"s"}}}

	wb, err := NewFallback(primary, secondary, slog.New(slog.DiscardHandler)).Parse(context.Background(), core.Source{}, core.ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"p"}, wb.SheetNames)
	assert.Equal(t, 0, secondary.calls)
}

func TestFallback_SwallowsPrimaryFailure(t *testing.T) {
	primary := &stubBackend{err: errors.New("python not found")}
	secondary := &stubBackend{wb: &core.Workbook{SheetNames: []string{"s"}}}

	wb, err := NewFallback(primary, secondary, slog.New(slog.DiscardHandler)).Parse(context.Background(), core.Source{Name: "a.xls"}, core.ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"s"}, wb.SheetNames)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestFallback_ReturnsSecondaryFailure(t *testing.T) {
	primary := &stubBackend{err: errors.New("primary")}
	secondary := &stubBackend{err: errors.New("corrupt workbook")}

	_, err := NewFallback(primary, secondary, nil).Parse(context.Background(), core.Source{}, core.ParseOptions{})
	require.Error(t, err)
	assert.ErrorContains(t, err, "corrupt workbook")
	assert.NotContains(t, err.Error(), "primary")
}
