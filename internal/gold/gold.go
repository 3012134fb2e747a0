// Package gold loads the gold-standard lease dataset and builds it from
// spreadsheet lease abstracts.
package gold

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/lease-abstract/internal/model"
)

// Load reads a gold-standard JSON file.
func Load(path string) ([]model.GoldRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "gold: read %s", path)
	}
	var records []model.GoldRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, eris.Wrapf(err, "gold: parse %s", path)
	}
	for i, r := range records {
		if r.LeaseFile == "" {
			return nil, eris.Errorf("gold: record %d has no lease_file", i)
		}
	}
	return records, nil
}

// Save writes records as indented JSON.
func Save(path string, records []model.GoldRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return eris.Wrap(err, "gold: encode records")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "gold: write %s", path)
	}
	return nil
}

// Mapping pairs a lease document with its spreadsheet abstract.
type Mapping struct {
	LeaseFile     string `json:"lease_file"`
	AbstractFile  string `json:"abstract_file"`
	AbstractSheet string `json:"abstract_sheet"`
	TenantDBA     string `json:"tenant_dba"`
	TenantLegal   string `json:"tenant_legal"`
}

// Tenant returns the display name for the lease.
func (m Mapping) Tenant() string {
	if m.TenantDBA != "" {
		return m.TenantDBA
	}
	return m.TenantLegal
}

// LoadMappings reads the lease-to-abstract mapping file.
func LoadMappings(path string) ([]Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "gold: read mapping %s", path)
	}
	var mappings []Mapping
	if err := json.Unmarshal(data, &mappings); err != nil {
		return nil, eris.Wrapf(err, "gold: parse mapping %s", path)
	}
	return mappings, nil
}

// ImportError records an abstract that could not be read.
type ImportError struct {
	AbstractFile string
	Err          error
}

func (e ImportError) Error() string {
	return e.AbstractFile + ": " + e.Err.Error()
}

// Import reads every mapped abstract under abstractDir. Abstracts that fail
// to open or parse are reported and skipped.
func Import(abstractDir string, mappings []Mapping) ([]model.GoldRecord, []ImportError) {
	var (
		records []model.GoldRecord
		failed  []ImportError
	)
	for _, m := range mappings {
		truth, err := ReadAbstract(filepath.Join(abstractDir, m.AbstractFile), m.AbstractSheet)
		if err != nil {
			zap.L().Warn("gold: abstract import failed",
				zap.String("abstract", m.AbstractFile),
				zap.Error(err),
			)
			failed = append(failed, ImportError{AbstractFile: m.AbstractFile, Err: err})
			continue
		}
		records = append(records, model.GoldRecord{
			LeaseFile:     m.LeaseFile,
			AbstractFile:  m.AbstractFile,
			AbstractSheet: m.AbstractSheet,
			Tenant:        m.Tenant(),
			GroundTruth:   truth,
		})
	}
	zap.L().Info("gold: abstracts imported",
		zap.Int("records", len(records)),
		zap.Int("errors", len(failed)),
	)
	return records, failed
}

// ReadAbstract parses one abstract workbook. An empty sheet name selects
// the first sheet.
func ReadAbstract(path, sheetName string) (map[string]any, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "gold: open %s", filepath.Base(path))
	}
	sheet, err := selectSheet(f, sheetName)
	if err != nil {
		return nil, err
	}
	return ParseAbstract(NewGrid(sheet)), nil
}

// FieldCoverage counts how many records carry a value for a field.
type FieldCoverage struct {
	Field   string  `json:"field"`
	Count   int     `json:"count"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

// Coverage reports, most covered first, how often each ground-truth field
// has a value.
func Coverage(records []model.GoldRecord) []FieldCoverage {
	counts := make(map[string]int)
	for _, r := range records {
		for k, v := range r.GroundTruth {
			if present(v) {
				counts[k]++
			}
		}
	}

	out := make([]FieldCoverage, 0, len(counts))
	for field, n := range counts {
		out = append(out, FieldCoverage{
			Field:   field,
			Count:   n,
			Total:   len(records),
			Percent: float64(n) / float64(len(records)) * 100,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Field < out[j].Field
	})
	return out
}

func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case []map[string]any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
