package accuracy

import (
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lease-abstract/internal/model"
)

// Export sheet names.
const (
	SheetSummary = "Summary"
	SheetFields  = "Fields"
	SheetDetails = "Details"
)

// ExportXLSX writes a run report as a workbook with a summary sheet, a
// per-field accuracy sheet and one row per compared field.
func ExportXLSX(report model.RunReport, path string) error {
	f := xlsx.NewFile()

	if err := summarySheet(f, report.Summary); err != nil {
		return err
	}
	if err := fieldsSheet(f, report.Summary); err != nil {
		return err
	}
	if err := detailsSheet(f, report.Details); err != nil {
		return err
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "accuracy: save workbook %s", path)
	}
	return nil
}

func summarySheet(f *xlsx.File, s model.RunSummary) error {
	sheet, err := f.AddSheet(SheetSummary)
	if err != nil {
		return eris.Wrap(err, "accuracy: add summary sheet")
	}
	addRow(sheet, "Run ID", s.RunID)
	addRow(sheet, "Label", s.Label)
	addRow(sheet, "Timestamp", s.Timestamp.Format("2006-01-02 15:04:05"))
	addRow(sheet, "Prompt Version", s.PromptVersion)
	addRow(sheet, "Few-Shot Examples", s.FewShotCount)
	addRow(sheet, "Multi-Pass", s.MultiPass)
	addRow(sheet, "Leases Tested", s.LeasesTested)
	addRow(sheet, "Leases Errored", s.LeasesErrored)
	addRow(sheet, "Average Accuracy %", roundTo(s.AverageAccuracy, 1))
	addRow(sheet, "Total Cost $", s.TotalCost)
	addRow(sheet, "Total Time s", s.TotalTime)

	addRow(sheet)
	addRow(sheet, "Tenant", "Accuracy %", "Error")
	for _, l := range s.PerLease {
		addRow(sheet, l.Tenant, roundTo(l.Accuracy, 1), l.Error)
	}
	return nil
}

func fieldsSheet(f *xlsx.File, s model.RunSummary) error {
	sheet, err := f.AddSheet(SheetFields)
	if err != nil {
		return eris.Wrap(err, "accuracy: add fields sheet")
	}
	names := make([]string, 0, len(s.FieldAccuracy))
	for name := range s.FieldAccuracy {
		names = append(names, name)
	}
	// worst fields first, then by name
	sort.Slice(names, func(i, j int) bool {
		a, b := s.FieldAccuracy[names[i]], s.FieldAccuracy[names[j]]
		if a != b {
			return a < b
		}
		return names[i] < names[j]
	})

	addRow(sheet, "Field", "Accuracy %")
	for _, name := range names {
		addRow(sheet, name, s.FieldAccuracy[name])
	}
	return nil
}

func detailsSheet(f *xlsx.File, details []model.LeaseResult) error {
	sheet, err := f.AddSheet(SheetDetails)
	if err != nil {
		return eris.Wrap(err, "accuracy: add details sheet")
	}
	addRow(sheet, "Tenant", "Lease File", "Field", "Match", "Detail", "Gold", "Extracted", "Confidence")
	for _, d := range details {
		if d.Error != "" {
			addRow(sheet, d.Tenant, d.LeaseFile, "", false, "error: "+d.Error)
			continue
		}
		names := make([]string, 0, len(d.FieldResults))
		for name := range d.FieldResults {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fr := d.FieldResults[name]
			addRow(sheet, d.Tenant, d.LeaseFile, name, fr.Match, fr.Reason, cellText(fr.Gold), cellText(fr.Extracted), fr.Confidence)
		}
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values ...any) {
	row := sheet.AddRow()
	for _, v := range values {
		cell := row.AddCell()
		switch t := v.(type) {
		case string:
			cell.SetString(t)
		case int:
			cell.SetInt(t)
		case float64:
			cell.SetFloat(t)
		case bool:
			cell.SetBool(t)
		default:
			cell.SetString(fmt.Sprint(t))
		}
	}
}

func cellText(v any) string {
	if v == nil {
		return ""
	}
	return text(v)
}
