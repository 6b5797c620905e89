package out

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"focustrail/internal/modules/session/domain"
	sessionout "focustrail/internal/modules/session/port/out"
	"focustrail/internal/platform/markdown"
	"focustrail/internal/platform/slug"
)

const reportSchemaVersion = 1

var segmentsBlock = markdown.Block{Name: "segments"}

// MarkdownReportStore writes one note per session under
// <dir>/YYYY/MM/DD/HHMMSS-<label>.md. Rewriting a report refreshes the
// frontmatter and the segments block and keeps everything else.
type MarkdownReportStore struct {
	dir string
}

func NewMarkdownReportStore(dir string) sessionout.ReportStore {
	return &MarkdownReportStore{dir: dir}
}

func (s *MarkdownReportStore) Write(_ context.Context, report domain.Report) (string, error) {
	session := report.Session
	date := session.StartedAt.Local()
	dir := filepath.Join(s.dir, date.Format("2006"), date.Format("01"), date.Format("02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	name := session.Label
	if name == "" {
		name = string(session.Mode)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.md", date.Format("150405"), slug.Make(name)))

	meta := map[string]any{
		"schema_version": reportSchemaVersion,
		"id":             session.ID,
		"status":         string(session.Status),
		"mode":           string(session.Mode),
		"started_at":     session.StartedAt.Format(time.RFC3339),
		"target_minutes": minutes(session.TargetMS),
		"active_minutes": minutes(session.ActiveMS),
		"segments":       len(report.Segments),
	}
	if session.Label != "" {
		meta["label"] = session.Label
	}
	if session.Stopped() {
		meta["stopped_at"] = session.StoppedAt.Format(time.RFC3339)
	}

	doc := markdown.Document{Meta: meta, Body: renderHeader(session) + "\n" + segmentsBlock.Wrap(renderSegments(report)) + "\n"}
	if existing, err := os.ReadFile(path); err == nil {
		prev, err := markdown.Parse(string(existing))
		if err != nil {
			return "", fmt.Errorf("parse existing report: %w", err)
		}
		doc.Body = segmentsBlock.Replace(prev.Body, renderSegments(report))
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read existing report: %w", err)
	}
	rendered, err := doc.Render()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return "", fmt.Errorf("write session report: %w", err)
	}
	return path, nil
}

func renderHeader(session domain.Session) string {
	b := strings.Builder{}
	title := session.Label
	if title == "" {
		title = "Focus session " + session.StartedAt.Local().Format("2006-01-02 15:04")
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "- Status: %s\n", session.Status)
	fmt.Fprintf(&b, "- Active: %s of %s\n", duration(session.ActiveMS), duration(session.TargetMS))
	b.WriteString("\n## Notes\n")
	return b.String()
}

func renderSegments(report domain.Report) string {
	b := strings.Builder{}
	b.WriteString("## Segments\n\n")
	if len(report.Segments) == 0 {
		b.WriteString("No segments recorded.\n")
		return b.String()
	}

	rows := make([][]string, 0, len(report.Segments))
	for _, seg := range report.Segments {
		app := seg.AppID
		switch {
		case seg.Type == "distracted":
			app += " (distracted)"
		case seg.Transitioning:
			app += " (switching)"
		}
		rows = append(rows, []string{
			seg.Start.Local().Format("15:04:05"),
			(time.Duration(seg.DurationSecs * float64(time.Second))).Round(time.Second).String(),
			app,
			seg.WindowTitle,
			fmt.Sprintf("%.0f%%", seg.Confidence*100),
		})
	}
	b.WriteString(markdown.Table([]string{"Start", "Duration", "App", "Window", "Confidence"}, rows))

	for _, seg := range report.Segments {
		if seg.Summary == "" && len(seg.Interruptions) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n### %s %s\n\n", seg.Start.Local().Format("15:04"), seg.AppID)
		if seg.Summary != "" {
			fmt.Fprintf(&b, "%s\n", seg.Summary)
		}
		for _, in := range seg.Interruptions {
			fmt.Fprintf(&b, "- Interrupted by %s at %s for %.0fs\n", in.AppID, in.Timestamp.Local().Format("15:04:05"), in.DurationSecs)
		}
	}
	return b.String()
}

func minutes(ms int64) float64 {
	return float64(ms/1000) / 60
}

func duration(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Round(time.Second).String()
}
