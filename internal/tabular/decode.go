package tabular

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/xuri/excelize/v2"
)

var (
	errNoHeader = errors.New("file has no header row")
	errNoRows   = errors.New("file has no identifier rows")
)

// decodeFunc turns a file into a Table.
type decodeFunc func(path string) (*Table, error)

var decoders = map[Format]decodeFunc{
	FormatCSV:         decodeCSV,
	FormatJSON:        decodeJSON,
	FormatSpreadsheet: decodeSpreadsheet,
}

func decodeCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(wrapText(f))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errNoHeader
	}
	return fromRows(records[0], records[1:]), nil
}

// decodeJSON accepts the three layouts identifier exports use:
//
//	[{"Uid": "a", "Name": "x"}, ...]   records
//	["a", "b"]                         a bare list (one unnamed column)
//	{"Uid": ["a", "b"], "Name": [...]} columns
func decodeJSON(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(wrapText(f))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, errNoHeader
		}
		return nil, err
	}

	switch v := doc.(type) {
	case []any:
		return jsonList(v)
	case map[string]any:
		return jsonColumns(v)
	default:
		return nil, fmt.Errorf("expected a JSON array or object, got %T", doc)
	}
}

func jsonList(items []any) (*Table, error) {
	if len(items) == 0 {
		return nil, errNoRows
	}

	if _, ok := items[0].(map[string]any); !ok {
		col := Column{Name: "0", Values: make([]string, 0, len(items))}
		for i, item := range items {
			cell, err := jsonCell(item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			col.Values = append(col.Values, cell)
		}
		return &Table{Columns: []Column{col}}, nil
	}

	seen := make(map[string]bool)
	var header []string
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("item %d: expected an object, got %T", i, item)
		}
		keys := sortedKeys(obj)
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				header = append(header, k)
			}
		}
	}

	rows := make([][]string, len(items))
	for i, item := range items {
		obj := item.(map[string]any)
		row := make([]string, len(header))
		for j, k := range header {
			cell, err := jsonCell(obj[k])
			if err != nil {
				return nil, fmt.Errorf("item %d field %q: %w", i, k, err)
			}
			row[j] = cell
		}
		rows[i] = row
	}
	return fromRows(header, rows), nil
}

func jsonColumns(obj map[string]any) (*Table, error) {
	if len(obj) == 0 {
		return nil, errNoHeader
	}

	t := &Table{}
	for _, k := range sortedKeys(obj) {
		list, ok := obj[k].([]any)
		if !ok {
			return nil, fmt.Errorf("column %q: expected an array, got %T", k, obj[k])
		}
		col := Column{Name: k, Values: make([]string, 0, len(list))}
		for i, item := range list {
			cell, err := jsonCell(item)
			if err != nil {
				return nil, fmt.Errorf("column %q item %d: %w", k, i, err)
			}
			col.Values = append(col.Values, cell)
		}
		t.Columns = append(t.Columns, col)
	}
	return t, nil
}

// jsonCell renders a scalar as text. Nested values are rejected.
func jsonCell(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	default:
		return "", fmt.Errorf("unsupported JSON value %T", v)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// decodeSpreadsheet reads the first worksheet of an OOXML workbook.
func decodeSpreadsheet(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errNoHeader
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errNoHeader
	}
	return fromRows(rows[0], rows[1:]), nil
}
