// Package report writes per-zone CSV reports of matched resources and
// a per-run summary.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nisops/lzops/orchestrator"
	"github.com/nisops/lzops/telemetry"
	"github.com/nisops/lzops/types"
)

const timestampLayout = "20060102_150405"

// Writer emits CSV files under a fixed directory.
type Writer struct {
	dir    string
	logger *telemetry.Logger
	now    func() time.Time
}

func NewWriter(dir string, logger *telemetry.Logger) *Writer {
	return &Writer{dir: dir, logger: logger, now: time.Now}
}

// WriteZone writes one zone's matched resources to
// <zone>_matched_resources_<timestamp>.csv and returns the path.
// Nothing is written for an empty resource set.
func (w *Writer) WriteZone(zone string, resources []types.Resource) (string, error) {
	if len(resources) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s_matched_resources_%s.csv", zone, w.now().Format(timestampLayout))
	path := filepath.Join(w.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}

	cw := csv.NewWriter(f)
	if err := writeRows(cw, resources); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	w.logger.Info().Str("path", path).Int("resources", len(resources)).Msg("zone report written")
	return path, nil
}

// WriteRun writes a report per completed zone and returns the paths.
func (w *Writer) WriteRun(result *orchestrator.RunResult) ([]string, error) {
	var paths []string
	for _, zr := range result.PerZone {
		if zr.Status != orchestrator.ZoneCompleted {
			continue
		}
		path, err := w.WriteZone(zr.Zone.Name, zr.Resources)
		if err != nil {
			return paths, fmt.Errorf("report for zone %s: %w", zr.Zone.Name, err)
		}
		if path != "" {
			paths = append(paths, path)
		}
	}
	return paths, nil
}

func writeRows(cw *csv.Writer, resources []types.Resource) error {
	if err := cw.Write([]string{"ResourceARN", "Service", "State", "Tags"}); err != nil {
		return err
	}
	for _, r := range resources {
		if err := cw.Write([]string{r.ARN, r.Service, r.State, formatTags(r.Tags)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// formatTags renders tags as "k=v" pairs joined by "; ", keys sorted
// for stable output.
func formatTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+tags[k])
	}
	return strings.Join(pairs, "; ")
}
