package importer

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/civicbench/council-cli/internal/model"
)

// SourceSpreadsheet labels payloads produced by grid imports.
const SourceSpreadsheet = "spreadsheet"

// GridOptions configures a spreadsheet import.
type GridOptions struct {
	Sheet  string // sheet name; default first sheet
	Source string // payload source label; default SourceSpreadsheet
}

// ImportGrid reads a councils-by-metrics spreadsheet into per-council
// payloads. The header row carries raw metric names, the first column the
// council id; each later row becomes one payload for that council. Cells
// that parse as numbers become numeric leaves, anything else text.
func ImportGrid(ctx context.Context, st Store, path string, opts GridOptions) (*Result, error) {
	source := opts.Source
	if source == "" {
		source = SourceSpreadsheet
	}

	rows, err := readGrid(path, opts.Sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.New("importer: spreadsheet is empty")
	}

	header := rows[0]
	if len(header) < 2 {
		return nil, eris.New("importer: header row needs a council column and at least one metric")
	}

	var payloads []model.SourcePayload
	for i, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		id := strings.TrimSpace(row[0])
		if id == "" {
			return nil, eris.Errorf("importer: row %d: council id is required", i+2)
		}

		data := model.RawMap{}
		for j := 1; j < len(header) && j < len(row); j++ {
			name := strings.TrimSpace(header[j])
			cell := strings.TrimSpace(row[j])
			if name == "" || cell == "" {
				continue
			}
			if f, ok := parseCell(cell); ok {
				data[name] = model.Number(f)
			} else {
				data[name] = model.Text(cell)
			}
		}
		if len(data) == 0 {
			continue
		}

		payloads = append(payloads, model.SourcePayload{
			CouncilID: id,
			Source:    source,
			Data:      data,
		})
	}

	n, err := st.ImportPayloads(ctx, payloads)
	if err != nil {
		return nil, eris.Wrap(err, "importer: grid payloads")
	}

	zap.L().Debug("grid imported",
		zap.String("path", path),
		zap.String("source", source),
		zap.Int("payloads", n),
	)
	return &Result{Payloads: n}, nil
}

func readGrid(path, sheetName string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "importer: open spreadsheet")
	}

	sheet, err := pickSheet(f, sheetName)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func pickSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("importer: sheet %q not found", name)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("importer: spreadsheet has no sheets")
	}
	return f.Sheets[0], nil
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// parseCell reports the numeric value of a grid cell. Currency prefixes and
// thousands separators are tolerated, matching how councils publish figures.
func parseCell(s string) (float64, bool) {
	cleaned := strings.ReplaceAll(s, ",", "")
	cleaned = strings.TrimPrefix(cleaned, "$")
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
