package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func render(t *testing.T, data DashboardData) string {
	t.Helper()
	var buf bytes.Buffer
	if err := Dashboard(data).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return buf.String()
}

func TestDashboard_Empty(t *testing.T) {
	out := render(t, DashboardData{SortKey: "單號", OutputName: "合併銷售報表_2024-01-01"})

	for _, want := range []string{"No files loaded.", `value="單號"`, "合併銷售報表_2024-01-01", " disabled"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, "Recent merges") {
		t.Error("history section rendered without history")
	}
	for _, asset := range []string{`href="/static/dashboard.css"`, `src="/static/dashboard.js"`} {
		if !strings.Contains(out, asset) {
			t.Errorf("output missing asset reference %s", asset)
		}
	}
}

func TestDashboard_FilesAndHistory(t *testing.T) {
	out := render(t, DashboardData{
		Files: []FileView{
			{ID: "f1", Name: "a.xlsx", RowCount: 3, Headers: []string{"單號", "日期"}},
			{ID: "f2", Name: "b.xlsx", Error: "No data found in the first sheet"},
		},
		TotalRows: 3,
		SortKey:   "單號",
		History: []HistoryView{
			{OutputName: "out", SortKey: "單號", Files: 2, TotalRows: 3, CreatedAt: time.Date(2024, 5, 6, 7, 8, 0, 0, time.UTC)},
		},
	})

	for _, want := range []string{"a.xlsx", "單號, 日期", `data-id="f1"`, "No data found", "2 files", "2024-05-06 07:08: out"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, "<button type=\"submit\" disabled") {
		t.Error("merge button disabled with files loaded")
	}
}

func TestDashboard_EscapesNames(t *testing.T) {
	out := render(t, DashboardData{
		Files: []FileView{{ID: "x", Name: `<script>alert(1)</script>.xlsx`}},
	})
	if strings.Contains(out, "<script>alert(1)") {
		t.Error("file name was not escaped")
	}
	if !strings.Contains(out, "&lt;script&gt;") {
		t.Error("escaped file name missing")
	}
}

func TestDashboard_EscapesAttributes(t *testing.T) {
	out := render(t, DashboardData{SortKey: `"><b>x`, OutputName: "a&b"})
	if strings.Contains(out, `"><b>x`) {
		t.Error("sort key broke out of the value attribute")
	}
	if !strings.Contains(out, `value="&#34;&gt;&lt;b&gt;x"`) {
		t.Errorf("escaped sort key missing from %s", out)
	}
	if !strings.Contains(out, `value="a&amp;b"`) {
		t.Error("escaped file name missing")
	}
}
