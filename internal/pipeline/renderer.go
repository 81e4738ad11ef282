package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/okoshkin/trendscout/internal/model"
)

// Renderer writes a manifest to disk as JSON (the full nested artifact)
// and CSV (a flat view of the item list for spreadsheet consumers). Both
// carry the same items in the same order.
type Renderer struct {
	dir string
}

// NewRenderer creates a renderer targeting the given output directory.
func NewRenderer(dir string) *Renderer {
	return &Renderer{dir: dir}
}

// Write persists both formats and returns the JSON path.
func (r *Renderer) Write(m *model.Manifest) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	base := "manifest-" + m.RunID
	jsonPath := filepath.Join(r.dir, base+".json")
	if err := r.writeJSON(jsonPath, m); err != nil {
		return "", err
	}
	if err := r.writeCSV(filepath.Join(r.dir, base+".csv"), m); err != nil {
		return "", err
	}
	return jsonPath, nil
}

func (r *Renderer) writeJSON(path string, m *model.Manifest) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return nil
}

var csvHeader = []string{
	"rank", "source", "id", "title", "url",
	"outlier_score", "engagement", "published_at",
}

func (r *Renderer) writeCSV(path string, m *model.Manifest) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, item := range m.Items {
		published := ""
		if item.PublishedAt != nil {
			published = item.PublishedAt.UTC().Format(time.RFC3339)
		}
		row := []string{
			strconv.Itoa(i + 1),
			string(item.Source),
			item.ID,
			item.Title,
			item.URL,
			strconv.FormatFloat(item.OutlierScore, 'f', 4, 64),
			strconv.FormatFloat(item.Engagement.Primary, 'f', 0, 64),
			published,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// Summary prints a human-readable run digest.
func Summary(w io.Writer, m *model.Manifest, verbose bool) {
	status := "ok"
	if !m.Success {
		status = "FAILED"
	}
	fmt.Fprintf(w, "run %s: %s, %d items from %d/%d sources, est. cost $%.4f",
		m.RunID, status, len(m.Items), m.SucceededSources(), len(m.Sources), m.TotalCost)
	if m.CumulativeCost > 0 {
		fmt.Fprintf(w, " (all-time $%.4f)", m.CumulativeCost)
	}
	fmt.Fprintln(w)

	for _, s := range m.Sources {
		mark := "+"
		detail := fmt.Sprintf("%d items", s.ItemCount)
		if s.Duplicates > 0 {
			detail += fmt.Sprintf(", %d duplicates dropped", s.Duplicates)
		}
		if !s.Success {
			mark = "-"
			detail = s.Error
		}
		fmt.Fprintf(w, "  %s %-9s (%s) %s\n", mark, string(s.Source), string(s.Tier), detail)
	}

	if !verbose {
		return
	}
	for i, item := range m.Items {
		fmt.Fprintf(w, "  %2d. [%.2f] %-9s %s\n",
			i+1, item.OutlierScore, string(item.Source), item.Title)
	}
}
