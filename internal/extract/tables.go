package extract

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

// GeneralTable collects the record's scalar fields.
const GeneralTable = "General"

// Table is a display table derived from a record.
type Table struct {
	Name    string     `json:"name"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Tables converts a record into display tables. Scalar fields and lists of
// scalars go into the General table (Field, Value), which comes first. A
// list of objects becomes a table named after its key with the union of the
// object keys as columns. A nested object becomes a one-row table.
func Tables(rec *Record) ([]Table, error) {
	if rec == nil || len(rec.JSON) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(rec.JSON) {
		return nil, errors.New("failed to decode record: invalid JSON")
	}
	doc := gjson.ParseBytes(rec.JSON)
	if !doc.IsObject() {
		return nil, errNotObject
	}

	general := Table{Name: GeneralTable, Columns: []string{"Field", "Value"}}
	var tables []Table
	doc.ForEach(func(k, v gjson.Result) bool {
		key := k.String()
		switch {
		case v.IsObject():
			tables = append(tables, objectTable(key, []gjson.Result{v}))
		case v.IsArray():
			items := v.Array()
			if isObjectList(items) {
				tables = append(tables, objectTable(key, items))
				break
			}
			general.Rows = append(general.Rows, []string{key, formatList(items)})
		default:
			general.Rows = append(general.Rows, []string{key, formatValue(v)})
		}
		return true
	})

	if len(general.Rows) > 0 {
		tables = append([]Table{general}, tables...)
	}
	return tables, nil
}

// FindTable returns the table with the given name.
func FindTable(tables []Table, name string) (Table, bool) {
	for _, t := range tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

func isObjectList(items []gjson.Result) bool {
	return len(items) > 0 && items[0].IsObject()
}

func objectTable(name string, items []gjson.Result) Table {
	t := Table{Name: name}
	seen := make(map[string]bool)
	for _, item := range items {
		item.ForEach(func(k, _ gjson.Result) bool {
			if col := k.String(); !seen[col] {
				seen[col] = true
				t.Columns = append(t.Columns, col)
			}
			return true
		})
	}
	if len(t.Columns) == 0 {
		t.Columns = []string{"value"}
	}

	for _, item := range items {
		row := make([]string, len(t.Columns))
		if !item.IsObject() {
			row[0] = formatValue(item)
			t.Rows = append(t.Rows, row)
			continue
		}
		values := make(map[string]gjson.Result)
		item.ForEach(func(k, v gjson.Result) bool {
			values[k.String()] = v
			return true
		})
		for i, col := range t.Columns {
			if v, ok := values[col]; ok {
				row[i] = formatValue(v)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func formatList(items []gjson.Result) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = formatValue(item)
	}
	return strings.Join(parts, ", ")
}

// formatValue renders a cell. Numbers keep the spelling the model used and
// nested objects stay compact JSON.
func formatValue(v gjson.Result) string {
	switch v.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return v.Str
	case gjson.True:
		return "true"
	case gjson.False:
		return "false"
	}
	if v.IsArray() {
		if items := v.Array(); !isObjectList(items) {
			return formatList(items)
		}
	}
	return v.Raw
}
