package tables

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Sheet is one state's table in a workbook.
type Sheet struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// maxSheetName is Excel's sheet name length limit.
const maxSheetName = 31

// WriteWorkbook writes all sheets into a single .xlsx file. Cells are written
// as text so FIPS codes keep their leading zeros.
func WriteWorkbook(path string, sheets []Sheet) error {
	f := xlsx.NewFile()
	for _, s := range sheets {
		name := s.Name
		if len(name) > maxSheetName {
			name = name[:maxSheetName]
		}
		sheet, err := f.AddSheet(name)
		if err != nil {
			return eris.Wrapf(err, "tables: add sheet %s", name)
		}
		writeRow(sheet, s.Columns)
		for _, r := range s.Rows {
			writeRow(sheet, r)
		}
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "tables: save workbook %s", path)
	}
	return nil
}

func writeRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
