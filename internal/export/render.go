package export

import (
	"archive/zip"
	"bytes"
	"encoding/csv"

	"github.com/xuri/excelize/v2"
)

func renderCSV(t table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// renderXLSX writes one sheet per table with a bold header row.
func renderXLSX(tables []table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", t.Name); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			return nil, err
		}

		if err := writeRow(f, t.Name, 1, t.Header); err != nil {
			return nil, err
		}
		last, err := excelize.CoordinatesToCellName(len(t.Header), 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(t.Name, "A1", last, header); err != nil {
			return nil, err
		}
		for r, row := range t.Rows {
			if err := writeRow(f, t.Name, r+2, row); err != nil {
				return nil, err
			}
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(sheet, cell, &cells)
}

// renderZIP bundles one CSV per table and the PDF summary.
func renderZIP(snap Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, t := range snap.tables() {
		body, err := renderCSV(t)
		if err != nil {
			return nil, err
		}
		w, err := zw.Create(t.Name + ".csv")
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(body); err != nil {
			return nil, err
		}
	}

	summary, err := renderPDF(snap)
	if err != nil {
		return nil, err
	}
	w, err := zw.Create("summary.pdf")
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(summary); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
