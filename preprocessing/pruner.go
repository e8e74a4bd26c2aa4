package preprocessing

import (
	"github.com/YuminosukeSato/houseprice/core/table"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

// DropColumns removes the named columns. Every name must exist in t, so a
// renamed or missing input column is reported instead of ignored.
func DropColumns(t *table.Table, names []string) (*table.Table, error) {
	for _, n := range names {
		if !t.Has(n) {
			return nil, errors.NewColumnNotFoundError("DropColumns", n)
		}
	}
	return t.Drop(names...)
}
