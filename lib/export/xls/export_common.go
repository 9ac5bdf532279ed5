package xlsexport

import "github.com/xuri/excelize/v2"

const fontFamily = "Times New Roman"

type sheetStyles struct {
	header int
	data   int
	urgent int
}

func newSheetStyles(f *excelize.File) (styles sheetStyles, err error) {
	styles.header, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Font:      &excelize.Font{Bold: true, Family: fontFamily, Size: 11},
	})
	if err != nil {
		return styles, err
	}
	styles.data, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
		Font:      &excelize.Font{Family: fontFamily, Size: 11},
	})
	if err != nil {
		return styles, err
	}
	// срочные и просроченные строки подсвечиваются
	styles.urgent, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
		Font:      &excelize.Font{Family: fontFamily, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FCE4D6"}},
	})
	return styles, err
}

// writeRow значения пишутся с первой колонки, стиль применяется ко всей строке
func writeRow(f *excelize.File, sheet string, row int, values []interface{}, style int) error {
	for idx, value := range values {
		cell, err := excelize.CoordinatesToCellName(idx+1, row)
		if err != nil {
			return err
		}
		if err = f.SetCellValue(sheet, cell, value); err != nil {
			return err
		}
	}
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(values), row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, first, last, style)
}

func setColumnWidths(f *excelize.File, sheet string, widths []float64) error {
	for idx, width := range widths {
		col, err := excelize.ColumnNumberToName(idx + 1)
		if err != nil {
			return err
		}
		if err = f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}
	return nil
}
