// Package workbook renders one doctor's finalized orders as an xlsx workbook.
package workbook

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/labdent/labexport/internal/laborator"
)

const (
	// SheetName is the only sheet in every workbook.
	SheetName = "Comenzi"
	// DefaultTitle is written into the merged A1:D2 header.
	DefaultTitle = "Export Laborator"
	// Extension is appended to archive entry names.
	Extension = ".xlsx"

	// HeaderRow holds the column labels; data starts on the next row.
	HeaderRow    = 5
	FirstDataRow = 6

	logoMaxWidth  = 98.0
	logoMaxHeight = 48.0
	titleRowPt    = 20.0
)

// Column labels of the data grid.
var Headers = [4]string{"PACIENT", "PRODUS", "CANTITATE", "PREȚ"}

var columnWidths = [4]float64{28, 36, 12, 16}

// Options tunes the builder. Zero values fall back to defaults.
type Options struct {
	Title      string
	TitleAlign string
	LogoPath   string
	Logger     *slog.Logger
	ReadFile   func(name string) ([]byte, error)
}

// Builder renders workbooks. It holds no per-export state.
type Builder struct {
	title      string
	titleAlign string
	logoPath   string
	logger     *slog.Logger
	readFile   func(name string) ([]byte, error)
}

// NewBuilder constructs a Builder.
func NewBuilder(opts Options) *Builder {
	b := &Builder{
		title:      opts.Title,
		titleAlign: opts.TitleAlign,
		logoPath:   opts.LogoPath,
		logger:     opts.Logger,
		readFile:   opts.ReadFile,
	}
	if b.title == "" {
		b.title = DefaultTitle
	}
	switch b.titleAlign {
	case "left", "center", "right":
	default:
		b.titleAlign = "left"
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.readFile == nil {
		b.readFile = os.ReadFile
	}
	return b
}

// Summary describes what a build produced.
type Summary struct {
	Total    float64
	DataRows int
	TotalRow int
	// Merges lists the vertical patient merges as "A6:A8" ranges.
	Merges []string
	Logo   bool
}

// Build renders the workbook for doctorName and orders.
func (b *Builder) Build(doctorName string, orders []laborator.Order) ([]byte, error) {
	data, _, err := b.BuildWithSummary(doctorName, orders)
	return data, err
}

// BuildWithSummary renders the workbook and reports its layout.
func (b *Builder) BuildWithSummary(doctorName string, orders []laborator.Order) ([]byte, Summary, error) {
	var summary Summary
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, summary, err
	}
	st, err := newStyles(f, b.titleAlign)
	if err != nil {
		return nil, summary, err
	}
	for i, width := range columnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(SheetName, col, col, width); err != nil {
			return nil, summary, err
		}
	}

	if err := b.writeHeader(f, st, doctorName); err != nil {
		return nil, summary, err
	}

	row := FirstDataRow
	for _, group := range laborator.GroupByPatient(orders).Groups() {
		start := row
		for _, line := range group.Lines {
			amount := line.Item.Amount()
			values := []any{group.Name(), line.Item.Name, line.Item.Quantity, amount}
			for col, v := range values {
				if err := f.SetCellValue(SheetName, cell(col+1, row), v); err != nil {
					return nil, summary, err
				}
			}
			zebra := st.zebraOdd
			if row%2 == 0 {
				zebra = st.zebraEven
			}
			if err := f.SetCellStyle(SheetName, cell(1, row), cell(3, row), zebra); err != nil {
				return nil, summary, err
			}
			if err := f.SetCellStyle(SheetName, cell(4, row), cell(4, row), st.amount); err != nil {
				return nil, summary, err
			}
			summary.Total += amount
			row++
		}
		if row-start > 1 {
			if err := f.MergeCell(SheetName, cell(1, start), cell(1, row-1)); err != nil {
				return nil, summary, err
			}
			summary.Merges = append(summary.Merges, cell(1, start)+":"+cell(1, row-1))
		}
	}
	summary.DataRows = row - FirstDataRow
	summary.TotalRow = row

	if err := f.MergeCell(SheetName, cell(1, row), cell(4, row)); err != nil {
		return nil, summary, err
	}
	if err := f.SetCellValue(SheetName, cell(1, row), FormatTotal(summary.Total)); err != nil {
		return nil, summary, err
	}
	if err := f.SetCellStyle(SheetName, cell(1, row), cell(4, row), st.total); err != nil {
		return nil, summary, err
	}

	summary.Logo = b.embedLogo(f)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, summary, err
	}
	return buf.Bytes(), summary, nil
}

// FormatTotal renders the grand total line.
func FormatTotal(total float64) string {
	return fmt.Sprintf("TOTAL: %.2f RON", total)
}

func (b *Builder) writeHeader(f *excelize.File, st styles, doctorName string) error {
	if err := f.MergeCell(SheetName, "A1", "D2"); err != nil {
		return err
	}
	if err := f.SetCellValue(SheetName, "A1", b.title); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", "D2", st.title); err != nil {
		return err
	}
	for _, r := range []int{1, 2} {
		if err := f.SetRowHeight(SheetName, r, titleRowPt); err != nil {
			return err
		}
	}

	if err := f.MergeCell(SheetName, "A3", "D3"); err != nil {
		return err
	}
	if err := f.SetCellValue(SheetName, "A3", "Medic: "+doctorName); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A3", "D3", st.doctor); err != nil {
		return err
	}

	for i, label := range Headers {
		if err := f.SetCellValue(SheetName, cell(i+1, HeaderRow), label); err != nil {
			return err
		}
	}
	return f.SetCellStyle(SheetName, cell(1, HeaderRow), cell(4, HeaderRow), st.header)
}

// embedLogo places the optional logo over the title rows. Every failure is
// logged and ignored.
func (b *Builder) embedLogo(f *excelize.File) bool {
	if b.logoPath == "" {
		return false
	}
	data, err := b.readFile(b.logoPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			b.logger.Warn("logo read failed", slog.String("path", b.logoPath), slog.Any("error", err))
		}
		return false
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		b.logger.Warn("logo decode failed", slog.String("path", b.logoPath), slog.Any("error", err))
		return false
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		b.logger.Warn("logo has no size", slog.String("path", b.logoPath))
		return false
	}
	scale := math.Min(logoMaxWidth/float64(cfg.Width), logoMaxHeight/float64(cfg.Height))
	ext := strings.ToLower(filepath.Ext(b.logoPath))
	if ext == "" {
		ext = ".png"
	}
	err = f.AddPictureFromBytes(SheetName, "C1", &excelize.Picture{
		Extension: ext,
		File:      data,
		Format: &excelize.GraphicOptions{
			OffsetX:     18,
			OffsetY:     2,
			ScaleX:      scale,
			ScaleY:      scale,
			Positioning: "oneCell",
		},
	})
	if err != nil {
		b.logger.Warn("logo embed failed", slog.String("path", b.logoPath), slog.Any("error", err))
		return false
	}
	return true
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
