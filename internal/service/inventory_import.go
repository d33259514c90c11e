package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"centrovision-data/internal/apperr"
	"centrovision-data/internal/domain"
	"centrovision-data/internal/dualaccess"
	"centrovision-data/internal/repository"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const inventorySheet = "Inventario"

// InventoryImportHeader is the template header row, in column order.
var InventoryImportHeader = []string{
	"Codigo",
	"Nombre",
	"Categoria",
	"Proveedor",
	"Precio",
	"Costo",
	"Stock",
	"Stock minimo",
	"Notas",
}

// inventoryExportHeader adds the read-only columns to the import header.
var inventoryExportHeader = append(append([]string{}, InventoryImportHeader...), "Activo", "Actualizado")

// importColumns maps folded header text to the item field it fills.
var importColumns = map[string]string{
	"codigo":        "code",
	"code":          "code",
	"sku":           "code",
	"nombre":        "name",
	"name":          "name",
	"descripcion":   "name",
	"categoria":     "category",
	"category":      "category",
	"proveedor":     "supplier",
	"supplier":      "supplier",
	"precio":        "unit_price",
	"precio_venta":  "unit_price",
	"unit_price":    "unit_price",
	"costo":         "cost_price",
	"precio_costo":  "cost_price",
	"cost_price":    "cost_price",
	"stock":         "stock",
	"existencia":    "stock",
	"stock_actual":  "stock",
	"stock_minimo":  "min_stock",
	"minimo":        "min_stock",
	"min_stock":     "min_stock",
	"notas":         "notes",
	"observaciones": "notes",
	"notes":         "notes",
}

// ImportIssue is one problem found in a spreadsheet row.
type ImportIssue struct {
	Field      string `json:"field"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// ImportRow is one parsed data row. Row is the 1-based sheet row number.
type ImportRow struct {
	Row    int                   `json:"row"`
	Item   *domain.InventoryItem `json:"item"`
	Issues []ImportIssue         `json:"issues,omitempty"`
}

func (r ImportRow) Valid() bool { return len(r.Issues) == 0 }

type ImportReport struct {
	Total   int         `json:"total"`
	Valid   int         `json:"valid"`
	Invalid int         `json:"invalid"`
	Rows    []ImportRow `json:"rows"`
}

// ValidItems returns the items of rows without issues.
func (r *ImportReport) ValidItems() []*domain.InventoryItem {
	items := make([]*domain.InventoryItem, 0, r.Valid)
	for _, row := range r.Rows {
		if row.Valid() {
			items = append(items, row.Item)
		}
	}
	return items
}

type ImportResult struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Report   *ImportReport `json:"report"`
}

// foldKey lowercases s, strips accents and joins words with underscores.
func foldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(strings.TrimSpace(folded))
	return strings.Join(strings.FieldsFunc(folded, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-' || r == '.'
	}), "_")
}

// ParseCategory accepts a category written with any case, accents or spacing.
func ParseCategory(raw string) (domain.Category, bool) {
	c := domain.Category(foldKey(raw))
	return c, c.Valid()
}

// SuggestCategory returns the valid category closest to raw: categories that
// are a prefix or substring of raw (or the reverse) win, ranked by common
// prefix length; otherwise the longest common prefix of at least three letters.
func SuggestCategory(raw string) (domain.Category, bool) {
	key := foldKey(raw)
	if key == "" {
		return "", false
	}
	var best domain.Category
	bestScore := -1
	for _, c := range domain.Categories {
		name := string(c)
		if !strings.Contains(name, key) && !strings.Contains(key, name) {
			continue
		}
		if score := commonPrefix(name, key); score > bestScore {
			best, bestScore = c, score
		}
	}
	if bestScore >= 0 {
		return best, true
	}
	for _, c := range domain.Categories {
		if score := commonPrefix(string(c), key); score >= 3 && score > bestScore {
			best, bestScore = c, score
		}
	}
	return best, bestScore >= 3
}

func commonPrefix(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// parseAmount reads a spreadsheet number; "$1,200.50" and "12,5" are accepted.
func parseAmount(raw string) (float64, error) {
	v := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "$"))
	if v == "" {
		return 0, nil
	}
	if strings.Contains(v, ",") && !strings.Contains(v, ".") {
		v = strings.ReplaceAll(v, ",", ".")
	} else {
		v = strings.ReplaceAll(v, ",", "")
	}
	return strconv.ParseFloat(v, 64)
}

// ValidateImport parses an inventory spreadsheet for branchID and reports,
// per row, what would be imported and what is wrong. Nothing is written.
func (s *InventoryService) ValidateImport(ctx context.Context, branchID string, r io.Reader) (*ImportReport, error) {
	if err := required("branch_id", branchID); err != nil {
		return nil, err
	}
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperr.Validation("cannot read spreadsheet: %v", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, apperr.Validation("spreadsheet has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperr.Validation("cannot read rows: %v", err)
	}
	report := &ImportReport{Rows: []ImportRow{}}
	if len(rows) == 0 {
		return report, nil
	}

	columns := map[string]int{}
	for i, h := range rows[0] {
		if field, ok := importColumns[foldKey(h)]; ok {
			if _, dup := columns[field]; !dup {
				columns[field] = i
			}
		}
	}
	for _, field := range []string{"code", "name", "category"} {
		if _, ok := columns[field]; !ok {
			return nil, apperr.Validation("missing column for %s", field)
		}
	}

	// codes already stored in the branch, inactive items included
	stored, err := s.ListItems(ctx, repository.ItemFilters{BranchID: branchID, IncludeInactive: true})
	if err != nil {
		return nil, err
	}
	existing := make(map[string]bool, len(stored))
	for _, it := range stored {
		existing[strings.ToLower(it.Code)] = true
	}

	var suppliers map[string]*domain.Supplier
	if _, ok := columns["supplier"]; ok {
		list, err := s.ListSuppliers(ctx)
		if err != nil {
			return nil, err
		}
		suppliers = make(map[string]*domain.Supplier, len(list))
		for _, sup := range list {
			suppliers[foldKey(sup.Name)] = sup
		}
	}

	seen := map[string]int{}
	for i := 1; i < len(rows); i++ {
		cells := rows[i]
		cell := func(field string) string {
			idx, ok := columns[field]
			if !ok || idx >= len(cells) {
				return ""
			}
			return strings.TrimSpace(cells[idx])
		}
		if strings.TrimSpace(strings.Join(cells, "")) == "" {
			continue
		}

		row := ImportRow{Row: i + 1, Item: &domain.InventoryItem{
			BranchID: branchID,
			Code:     cell("code"),
			Name:     cell("name"),
			Notes:    cell("notes"),
			Active:   true,
		}}
		issue := func(field, format string, args ...any) {
			row.Issues = append(row.Issues, ImportIssue{Field: field, Message: fmt.Sprintf(format, args...)})
		}

		if row.Item.Code == "" {
			issue("code", "code is required")
		} else if first, dup := seen[strings.ToLower(row.Item.Code)]; dup {
			issue("code", "code %s repeats row %d", row.Item.Code, first)
		} else if existing[strings.ToLower(row.Item.Code)] {
			issue("code", "code %s already exists in this branch", row.Item.Code)
			seen[strings.ToLower(row.Item.Code)] = row.Row
		} else {
			seen[strings.ToLower(row.Item.Code)] = row.Row
		}
		if row.Item.Name == "" {
			issue("name", "name is required")
		}

		rawCategory := cell("category")
		if c, ok := ParseCategory(rawCategory); ok {
			row.Item.Category = c
		} else if rawCategory == "" {
			issue("category", "category is required")
		} else {
			is := ImportIssue{Field: "category", Message: fmt.Sprintf("unknown category %q", rawCategory)}
			if suggestion, ok := SuggestCategory(rawCategory); ok {
				is.Suggestion = string(suggestion)
				is.Message += fmt.Sprintf(", did you mean %q?", suggestion)
			}
			row.Issues = append(row.Issues, is)
		}

		if name := cell("supplier"); name != "" {
			if sup, ok := suppliers[foldKey(name)]; ok {
				row.Item.SupplierID = sup.ID
				row.Item.SupplierName = sup.Name
			} else {
				issue("supplier", "unknown or inactive supplier %q", name)
			}
		}

		for _, n := range []struct {
			field string
			dest  *float64
		}{
			{"unit_price", &row.Item.UnitPrice},
			{"cost_price", &row.Item.CostPrice},
			{"stock", &row.Item.Stock},
			{"min_stock", &row.Item.MinStock},
		} {
			v, err := parseAmount(cell(n.field))
			switch {
			case err != nil:
				issue(n.field, "%s is not a number: %q", n.field, cell(n.field))
			case v < 0:
				issue(n.field, "%s cannot be negative", n.field)
			default:
				*n.dest = domain.Round2(v)
			}
		}

		report.Rows = append(report.Rows, row)
		report.Total++
		if row.Valid() {
			report.Valid++
		} else {
			report.Invalid++
		}
	}
	return report, nil
}

// ImportValid imports the valid rows of the spreadsheet in one all-or-nothing
// batch; invalid rows are skipped and reported.
func (s *InventoryService) ImportValid(ctx context.Context, branchID string, r io.Reader) (*ImportResult, error) {
	report, err := s.ValidateImport(ctx, branchID, r)
	if err != nil {
		return nil, err
	}
	result := &ImportResult{Skipped: report.Invalid, Report: report}
	items := report.ValidItems()
	if len(items) == 0 {
		return result, nil
	}
	n, err := dualaccess.Do(ctx, s.runner, familyInventory, "ImportItems", s.repos,
		func(ctx context.Context, r repository.InventoryRepository) (int, error) {
			return r.ImportItems(ctx, items)
		})
	if err != nil {
		return nil, err
	}
	result.Imported = n
	s.logger.Info("Inventory imported",
		zap.String("branch_id", branchID),
		zap.Int("imported", n),
		zap.Int("skipped", report.Invalid),
	)
	return result, nil
}

// ImportTemplate writes an empty import spreadsheet with a category drop-down.
func (s *InventoryService) ImportTemplate(w io.Writer) error {
	return writeInventorySheet(w, InventoryImportHeader, nil, true)
}

// ExportItems writes the items matching f as a spreadsheet.
func (s *InventoryService) ExportItems(ctx context.Context, f repository.ItemFilters, w io.Writer) error {
	items, err := s.ListItems(ctx, f)
	if err != nil {
		return err
	}
	rows := make([][]any, 0, len(items))
	for _, it := range items {
		active := "No"
		if it.Active {
			active = "Si"
		}
		updated := ""
		if !it.UpdatedAt.IsZero() {
			updated = it.UpdatedAt.Format("2006-01-02 15:04")
		}
		rows = append(rows, []any{
			it.Code, it.Name, string(it.Category), it.SupplierName,
			it.UnitPrice, it.CostPrice, it.Stock, it.MinStock, it.Notes,
			active, updated,
		})
	}
	return writeInventorySheet(w, inventoryExportHeader, rows, false)
}

func writeInventorySheet(w io.Writer, header []string, rows [][]any, withCategoryList bool) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(inventorySheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(inventorySheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(inventorySheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(inventorySheet, "A", lastCol, 18); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(inventorySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if withCategoryList {
		list := make([]string, 0, len(domain.Categories))
		for _, c := range domain.Categories {
			list = append(list, string(c))
		}
		dv := excelize.NewDataValidation(true)
		dv.Sqref = "C2:C1000"
		if err := dv.SetDropList(list); err != nil {
			return fmt.Errorf("failed to build category list: %w", err)
		}
		if err := f.AddDataValidation(inventorySheet, dv); err != nil {
			return fmt.Errorf("failed to add category list: %w", err)
		}
	}

	if err := f.SetPanes(inventorySheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return fmt.Errorf("failed to write spreadsheet: %w", err)
	}
	_, err = buf.WriteTo(w)
	return err
}
