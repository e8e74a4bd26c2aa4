package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/houseprice/core/table"
	"github.com/YuminosukeSato/houseprice/dataset"
	"github.com/YuminosukeSato/houseprice/schema"
)

var labels = []string{"Ex", "Gd", "TA", "Fa"}

// synthCSV renders n rows covering every declared column. Ids start at
// firstID. When withTarget is false the target column is left out, as in
// the evaluation file. override may replace single cells.
func synthCSV(s *schema.Schema, n, firstID int, withTarget bool, override func(col string, row int) (string, bool)) string {
	var cols []schema.ColumnSpec
	for _, c := range s.Columns {
		if c.Name == s.Target && !withTarget {
			continue
		}
		cols = append(cols, c)
	}

	var b strings.Builder
	for j, c := range cols {
		if j > 0 {
			b.WriteByte(',')
		}
		b.WriteString(c.Name)
	}
	b.WriteByte('\n')

	for i := 0; i < n; i++ {
		for j, c := range cols {
			if j > 0 {
				b.WriteByte(',')
			}
			if override != nil {
				if v, ok := override(c.Name, i); ok {
					b.WriteString(v)
					continue
				}
			}
			switch {
			case c.Name == s.ID:
				fmt.Fprintf(&b, "%d", firstID+i)
			case c.Name == s.Target:
				fmt.Fprintf(&b, "%d", 100000+1000*(i%13)+500*(i%4))
			case c.Kind == "numeric":
				fmt.Fprintf(&b, "%d", (i*(j+3))%11)
			default:
				b.WriteString(labels[(i+j)%len(labels)])
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func readTable(t *testing.T, s *schema.Schema, csv string) *table.Table {
	t.Helper()
	tb, err := dataset.ReadCSV(strings.NewReader(csv), s)
	require.NoError(t, err)
	return tb
}

func writeInputs(t *testing.T, dir string, s *schema.Schema, trainRows, evalRows int) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "train.csv"),
		[]byte(synthCSV(s, trainRows, 1, true, basementNA)), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.csv"),
		[]byte(synthCSV(s, evalRows, 1461, false, basementNA)), 0o644))
}

// basementNA marks every fifth house as having no basement.
func basementNA(col string, row int) (string, bool) {
	if (col == "BsmtQual" || col == "BsmtCond") && row%5 == 0 {
		return "NA", true
	}
	if col == "LotFrontage" && row%7 == 3 {
		return "NA", true
	}
	return "", false
}
