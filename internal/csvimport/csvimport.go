// Package csvimport implements batch CSV ingestion for the three
// methodologies (spec §6): M1's value,date?,time? rows, M2's formula-symbol
// columns (or a single JSON variables column), and M3's itemId_variableName
// grouped columns. Every row is parsed independently; a malformed row is
// reported in the result's Errors slice by its 1-based index and does not
// abort the rest of the batch.
package csvimport

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/GreonXpert/netreduction-engine/internal/apperr"
)

// RowError is one row's failure, 1-based against the data rows (the header
// is row 0 and never reported).
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// M1Row is one parsed M1 CSV row.
type M1Row struct {
	Row   int
	Date  string
	Time  string
	Value float64
}

// M2Row is one parsed M2 CSV row: symbol name to numeric value, sourced
// either from per-symbol columns or a single JSON `variables` column.
type M2Row struct {
	Row       int
	Date      string
	Time      string
	Variables map[string]float64
}

// M3Row is one parsed M3 CSV row, grouped by itemId from itemId_variableName
// columns.
type M3Row struct {
	Row   int
	Date  string
	Time  string
	Items map[string]map[string]float64
}

func readAll(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	return cr.ReadAll()
}

func colIndex(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ParseM1 reads an M1 CSV: header `value,date?,time?`.
func ParseM1(r io.Reader) (rows []M1Row, errs []RowError, err error) {
	records, err := readAll(r)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.ValidationError, err, "reading CSV")
	}
	if len(records) == 0 {
		return nil, nil, apperr.New(apperr.ValidationError, "empty CSV file")
	}

	header := records[0]
	valueCol := colIndex(header, "value")
	dateCol := colIndex(header, "date")
	timeCol := colIndex(header, "time")
	if valueCol < 0 {
		return nil, nil, apperr.New(apperr.ValidationError, "missing required column: value")
	}

	for i, record := range records[1:] {
		rowNum := i + 1
		if isBlankRow(record) {
			continue
		}
		raw := cell(record, valueCol)
		v, parseErr := strconv.ParseFloat(raw, 64)
		if parseErr != nil {
			errs = append(errs, RowError{Row: rowNum, Error: "value is not numeric: " + raw})
			continue
		}
		rows = append(rows, M1Row{Row: rowNum, Value: v, Date: cell(record, dateCol), Time: cell(record, timeCol)})
	}
	return rows, errs, nil
}

// ParseM2 reads an M2 CSV: either formula-symbol columns directly, or a
// single `variables` column holding a JSON object, plus optional date/time.
func ParseM2(r io.Reader) (rows []M2Row, errs []RowError, err error) {
	records, err := readAll(r)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.ValidationError, err, "reading CSV")
	}
	if len(records) == 0 {
		return nil, nil, apperr.New(apperr.ValidationError, "empty CSV file")
	}

	header := records[0]
	dateCol := colIndex(header, "date")
	timeCol := colIndex(header, "time")
	variablesCol := colIndex(header, "variables")

	for i, record := range records[1:] {
		rowNum := i + 1
		if isBlankRow(record) {
			continue
		}

		vars := map[string]float64{}
		rowErr := ""

		if variablesCol >= 0 {
			raw := cell(record, variablesCol)
			gjson.Parse(raw).ForEach(func(key, value gjson.Result) bool {
				if value.Type != gjson.Number {
					rowErr = "variable " + key.String() + " is not numeric"
					return false
				}
				vars[key.String()] = value.Num
				return true
			})
		} else {
			for col, h := range header {
				name := strings.TrimSpace(h)
				if col == dateCol || col == timeCol || name == "" {
					continue
				}
				raw := cell(record, col)
				if raw == "" {
					continue
				}
				v, parseErr := strconv.ParseFloat(raw, 64)
				if parseErr != nil {
					rowErr = "symbol " + name + " is not numeric: " + raw
					break
				}
				vars[name] = v
			}
		}

		if rowErr != "" {
			errs = append(errs, RowError{Row: rowNum, Error: rowErr})
			continue
		}
		rows = append(rows, M2Row{Row: rowNum, Date: cell(record, dateCol), Time: cell(record, timeCol), Variables: vars})
	}
	return rows, errs, nil
}

// ParseM3 reads an M3 CSV: columns named `itemId_variableName` group into
// Items[itemId][variableName], plus optional date/time.
func ParseM3(r io.Reader) (rows []M3Row, errs []RowError, err error) {
	records, err := readAll(r)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.ValidationError, err, "reading CSV")
	}
	if len(records) == 0 {
		return nil, nil, apperr.New(apperr.ValidationError, "empty CSV file")
	}

	header := records[0]
	dateCol := colIndex(header, "date")
	timeCol := colIndex(header, "time")

	for i, record := range records[1:] {
		rowNum := i + 1
		if isBlankRow(record) {
			continue
		}

		items := map[string]map[string]float64{}
		rowErr := ""
		for col, h := range header {
			if col == dateCol || col == timeCol {
				continue
			}
			name := strings.TrimSpace(h)
			itemID, varName, ok := strings.Cut(name, "_")
			if !ok || itemID == "" || varName == "" {
				continue
			}
			raw := cell(record, col)
			if raw == "" {
				continue
			}
			v, parseErr := strconv.ParseFloat(raw, 64)
			if parseErr != nil {
				rowErr = "item " + itemID + " variable " + varName + " is not numeric: " + raw
				break
			}
			if items[itemID] == nil {
				items[itemID] = map[string]float64{}
			}
			items[itemID][varName] = v
		}

		if rowErr != "" {
			errs = append(errs, RowError{Row: rowNum, Error: rowErr})
			continue
		}
		rows = append(rows, M3Row{Row: rowNum, Date: cell(record, dateCol), Time: cell(record, timeCol), Items: items})
	}
	return rows, errs, nil
}

// Cleanup always attempts to remove the staged upload at path, logging but
// never surfacing a failure: a CSV import's HTTP response must never fail
// because the temp file could not be deleted (spec §9).
func Cleanup(path string, log *logrus.Logger) {
	if path == "" {
		return
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.WithError(err).WithField("path", path).Warn("csvimport: failed to clean up staged upload")
	}
}
