package querybuilder

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// columnIndexes caches the db-tagged field positions per struct type.
var columnIndexes sync.Map

type modelColumns struct {
	names   []string
	indexes []int
}

// InsertModel starts an insert whose columns and values come from the
// exported db-tagged fields of model.
func InsertModel(table string, model any) *InsertBuilder {
	b := InsertInto(table)

	value := reflect.ValueOf(model)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			b.err = fmt.Errorf("model cannot be nil")
			return b
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		b.err = fmt.Errorf("model must be struct, got %s", value.Kind())
		return b
	}

	cols := columnsOf(value.Type())
	if len(cols.names) == 0 {
		b.err = fmt.Errorf("model %s has no db columns", value.Type())
		return b
	}

	vals := make([]any, len(cols.indexes))
	for i, idx := range cols.indexes {
		vals[i] = value.Field(idx).Interface()
	}
	return b.Columns(cols.names...).Values(vals...)
}

func columnsOf(typ reflect.Type) modelColumns {
	if cached, ok := columnIndexes.Load(typ); ok {
		return cached.(modelColumns)
	}

	var cols modelColumns
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(field.Tag.Get("db"), ",")
		name = strings.TrimSpace(name)
		if name == "" || name == "-" {
			continue
		}
		cols.names = append(cols.names, name)
		cols.indexes = append(cols.indexes, i)
	}

	columnIndexes.Store(typ, cols)
	return cols
}
