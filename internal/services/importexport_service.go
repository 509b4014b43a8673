// Package services – ImportExportService
//
// Bulk catalog interchange: CSV and XLSX import of animal rows and the
// matching exports. Import is line-tolerant: a malformed row is counted and
// skipped rather than aborting the batch, and the response reports both
// totals so an operator can spot a half-broken file.
package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/barinakhq/shelter-backend/internal/cache"
	"github.com/barinakhq/shelter-backend/internal/domain"
	"github.com/barinakhq/shelter-backend/internal/repo"
)

// animalColumns is the canonical column order for both formats.
var animalColumns = []string{"name", "species", "age", "description", "imageurl", "adopted"}

// ImportResult summarizes a bulk import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// ImportExportService implements bulk catalog import and export.
type ImportExportService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Cache is flushed after a successful import.
	Cache CacheInvalidator
}

// NewImportExportService constructs an ImportExportService.
func NewImportExportService(db *gorm.DB, c CacheInvalidator) *ImportExportService {
	return &ImportExportService{DB: db, Cache: c}
}

// ImportCSV reads animal rows from CSV. The first row must be a header
// containing at least "name" and "species"; column order is free.
func (s *ImportExportService) ImportCSV(ctx context.Context, r io.Reader) (*ImportResult, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	res := &ImportResult{}
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		s.importRow(ctx, record, idx, line, res)
	}

	s.flushCaches(ctx, res.Imported)
	return res, nil
}

// ImportXLSX reads animal rows from the first sheet of an XLSX workbook,
// using the same header convention as CSV.
func (s *ImportExportService) ImportXLSX(ctx context.Context, r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	idx, err := columnIndex(rows[0])
	if err != nil {
		return nil, err
	}

	res := &ImportResult{}
	for i, row := range rows[1:] {
		s.importRow(ctx, row, idx, i+2, res)
	}

	s.flushCaches(ctx, res.Imported)
	return res, nil
}

// ExportCSV writes the full catalog as CSV.
func (s *ImportExportService) ExportCSV(ctx context.Context, w io.Writer) error {
	animals, err := repo.ListAnimals(ctx, s.DB)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(animalColumns); err != nil {
		return err
	}
	for _, a := range animals {
		rec := []string{
			a.Name,
			a.Species,
			strconv.Itoa(a.Age),
			a.Description,
			a.ImageURL,
			strconv.FormatBool(a.Adopted),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportXLSX writes the full catalog as an XLSX workbook and returns its
// serialized bytes.
func (s *ImportExportService) ExportXLSX(ctx context.Context) ([]byte, error) {
	animals, err := repo.ListAnimals(ctx, s.DB)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)

	for col, name := range animalColumns {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheet, cell, name)
	}
	for i, a := range animals {
		values := []any{a.Name, a.Species, a.Age, a.Description, a.ImageURL, a.Adopted}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// importRow parses and persists one record, updating the result counters.
func (s *ImportExportService) importRow(ctx context.Context, record []string, idx map[string]int, line int, res *ImportResult) {
	get := func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	name := get("name")
	species := get("species")
	if name == "" || species == "" {
		res.Skipped++
		res.Errors = append(res.Errors, fmt.Sprintf("line %d: name and species are required", line))
		return
	}

	age := 0
	if v := get("age"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: invalid age %q", line, v))
			return
		}
		age = n
	}

	adopted := false
	if v := get("adopted"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: invalid adopted flag %q", line, v))
			return
		}
		adopted = b
	}

	a := &domain.Animal{
		Name:        name,
		Species:     species,
		Age:         age,
		Description: get("description"),
		ImageURL:    get("imageurl"),
		Adopted:     adopted,
	}
	if _, err := repo.CreateAnimal(ctx, s.DB, a); err != nil {
		res.Skipped++
		res.Errors = append(res.Errors, fmt.Sprintf("line %d: %v", line, err))
		return
	}
	res.Imported++
}

// flushCaches drops the animal caches after an import touched the catalog.
func (s *ImportExportService) flushCaches(ctx context.Context, imported int) {
	if s.Cache == nil || imported == 0 {
		return
	}
	if _, err := s.Cache.Invalidate(ctx, cache.PatternAnimalLists); err != nil {
		log.Error().Err(err).Msg("cache invalidation failed after import")
	}
}

// columnIndex maps canonical column names to their positions in the header.
// Name and species are required; everything else is optional.
func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := idx["name"]; !ok {
		return nil, fmt.Errorf("missing required column %q", "name")
	}
	if _, ok := idx["species"]; !ok {
		return nil, fmt.Errorf("missing required column %q", "species")
	}
	return idx, nil
}
