package workbook

import "github.com/xuri/excelize/v2"

const (
	colorHeaderFill  = "F2F4F7"
	colorHeaderLine  = "D9D9D9"
	colorZebraEven   = "FAFAFA"
	colorZebraOdd    = "FFFFFF"
	colorAmountFill  = "E8F5E9"
	colorTotalFill   = "FFF3CD"
	colorTotalFont   = "0056B3"
	numFmtTwoDecimal = 2 // 0.00
)

type styles struct {
	title     int
	doctor    int
	header    int
	zebraEven int
	zebraOdd  int
	amount    int
	total     int
}

func solid(color string) excelize.Fill {
	return excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
}

func newStyles(f *excelize.File, titleAlign string) (styles, error) {
	var s styles
	defs := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&s.title, &excelize.Style{
			Font:      &excelize.Font{Bold: true, Size: 14},
			Alignment: &excelize.Alignment{Horizontal: titleAlign, Vertical: "center"},
		}},
		{&s.doctor, &excelize.Style{
			Font: &excelize.Font{Bold: true, Size: 11},
		}},
		{&s.header, &excelize.Style{
			Font:   &excelize.Font{Bold: true},
			Fill:   solid(colorHeaderFill),
			Border: []excelize.Border{{Type: "bottom", Color: colorHeaderLine, Style: 1}},
		}},
		{&s.zebraEven, &excelize.Style{
			Fill:      solid(colorZebraEven),
			Alignment: &excelize.Alignment{Vertical: "center"},
		}},
		{&s.zebraOdd, &excelize.Style{
			Fill:      solid(colorZebraOdd),
			Alignment: &excelize.Alignment{Vertical: "center"},
		}},
		{&s.amount, &excelize.Style{
			Font:   &excelize.Font{Bold: true},
			Fill:   solid(colorAmountFill),
			NumFmt: numFmtTwoDecimal,
		}},
		{&s.total, &excelize.Style{
			Font:      &excelize.Font{Bold: true, Color: colorTotalFont},
			Fill:      solid(colorTotalFill),
			Alignment: &excelize.Alignment{Horizontal: "center"},
		}},
	}
	for _, def := range defs {
		id, err := f.NewStyle(def.style)
		if err != nil {
			return s, err
		}
		*def.dst = id
	}
	return s, nil
}
