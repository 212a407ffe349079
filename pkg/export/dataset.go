package export

import (
	"fmt"
	"strings"
)

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Record returns row i ordered by Headers.
func (d Dataset) Record(i int) []string {
	record := make([]string, len(d.Headers))
	if i < 0 || i >= len(d.Rows) {
		return record
	}
	for j, header := range d.Headers {
		record[j] = d.Rows[i][header]
	}
	return record
}

func (d Dataset) validate(format string) error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("%s requires at least one header", format)
	}
	return nil
}

// fromRows converts a header row followed by data rows into a Dataset.
// Headers are trimmed, blank rows are dropped and short rows are padded.
func fromRows(rows [][]string) (Dataset, error) {
	if len(rows) == 0 {
		return Dataset{}, fmt.Errorf("sheet is empty")
	}
	headers := make([]string, 0, len(rows[0]))
	for _, h := range rows[0] {
		headers = append(headers, strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}
	for len(headers) > 0 && headers[len(headers)-1] == "" {
		headers = headers[:len(headers)-1]
	}
	if len(headers) == 0 {
		return Dataset{}, fmt.Errorf("header row is empty")
	}

	data := Dataset{Headers: headers, Rows: make([]map[string]string, 0, len(rows)-1)}
	for _, raw := range rows[1:] {
		if blank(raw) {
			continue
		}
		row := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(raw) {
				row[header] = strings.TrimSpace(raw[i])
			} else {
				row[header] = ""
			}
		}
		data.Rows = append(data.Rows, row)
	}
	return data, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
