package preprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/houseprice/core/table"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

func numericValues(t *testing.T, tbl *table.Table, name string) []float64 {
	t.Helper()
	c, err := tbl.Numeric(name)
	require.NoError(t, err)
	return c.Values()
}

func labels(t *testing.T, tbl *table.Table, name string) []string {
	t.Helper()
	c, err := tbl.Categorical(name)
	require.NoError(t, err)
	return c.Values()
}

func TestFillNamedColumnsWithConstant(t *testing.T) {
	in := table.MustNew(
		table.CategoricalOf("BsmtQual", "Gd", "", "TA"),
		table.CategoricalOf("BsmtCond", "", "", "TA"),
		table.CategoricalOf("Alley", "", "Pave", ""),
	)

	out, err := FillNamedColumnsWithConstant(in, []string{"BsmtQual", "BsmtCond"}, "No")
	require.NoError(t, err)

	assert.Equal(t, []string{"Gd", "No", "TA"}, labels(t, out, "BsmtQual"))
	assert.Equal(t, []string{"No", "No", "TA"}, labels(t, out, "BsmtCond"))
	assert.Equal(t, []string{"", "Pave", ""}, labels(t, out, "Alley"), "unnamed columns stay untouched")

	assert.Equal(t, []string{"Gd", "", "TA"}, labels(t, in, "BsmtQual"), "input must not be modified")
	assert.Equal(t, in.Names(), out.Names())
}

func TestFillNamedColumnsWithConstantNumeric(t *testing.T) {
	in := table.MustNew(table.NumericOf("MasVnrArea", math.NaN(), 3))

	out, err := FillNamedColumnsWithConstant(in, []string{"MasVnrArea"}, "0")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 3}, numericValues(t, out, "MasVnrArea"))

	_, err = FillNamedColumnsWithConstant(in, []string{"MasVnrArea"}, "No")
	var verr *errors.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestFillNamedColumnsWithConstantRejectsNonFinite(t *testing.T) {
	in := table.MustNew(table.NumericOf("MasVnrArea", math.NaN(), 3))

	for _, constant := range []string{"NaN", "Inf", "-Inf", "+infinity"} {
		_, err := FillNamedColumnsWithConstant(in, []string{"MasVnrArea"}, constant)
		var verr *errors.ValidationError
		require.True(t, errors.As(err, &verr), constant)
		assert.Equal(t, "MasVnrArea", verr.ParamName)
	}

	// Categorical columns take the constant as a label.
	cat := table.MustNew(table.CategoricalOf("BsmtQual", "", "Gd"))
	out, err := FillNamedColumnsWithConstant(cat, []string{"BsmtQual"}, "NaN")
	require.NoError(t, err)
	c, err := out.Categorical("BsmtQual")
	require.NoError(t, err)
	assert.Equal(t, []string{"NaN", "Gd"}, c.Values())
}

func TestFillNamedColumnsWithConstantMissingColumn(t *testing.T) {
	in := table.MustNew(table.CategoricalOf("BsmtQual", "Gd"))

	_, err := FillNamedColumnsWithConstant(in, []string{"BsmtQual", "FireplaceQu"}, "No")
	var nf *errors.ColumnNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "FireplaceQu", nf.Column)
}

func TestFillAllRemainingMissingMean(t *testing.T) {
	in := table.MustNew(table.NumericOf("LotFrontage", 10, 20, math.NaN()))

	out, err := FillAllRemainingMissing(in)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20, 15}, numericValues(t, out, "LotFrontage"))
}

func TestFillAllRemainingMissingLeavesNoMissing(t *testing.T) {
	in := table.MustNew(
		table.NumericOf("LotFrontage", 65, math.NaN(), 80, math.NaN()),
		table.NumericOf("LotArea", 8450, 9600, 11250, 9550),
		table.CategoricalOf("MasVnrType", "BrkFace", "", "BrkFace", "Stone"),
		table.CategoricalOf("Electrical", "", "SBrkr", "FuseA", "SBrkr"),
	)

	out, err := FillAllRemainingMissing(in)
	require.NoError(t, err)
	for _, c := range out.Columns() {
		assert.Zero(t, c.MissingCount(), c.Name())
	}
	assert.Equal(t, []float64{65, 72.5, 80, 72.5}, numericValues(t, out, "LotFrontage"))
	assert.Equal(t, []string{"BrkFace", "BrkFace", "BrkFace", "Stone"}, labels(t, out, "MasVnrType"))
	assert.Equal(t, []string{"SBrkr", "SBrkr", "FuseA", "SBrkr"}, labels(t, out, "Electrical"))
}

func TestFillAllRemainingMissingKeepsConstantSentinel(t *testing.T) {
	in := table.MustNew(table.CategoricalOf("BsmtCond", "TA", "TA", ""))

	filled, err := FillNamedColumnsWithConstant(in, []string{"BsmtCond"}, "No")
	require.NoError(t, err)
	out, err := FillAllRemainingMissing(filled)
	require.NoError(t, err)
	assert.Equal(t, []string{"TA", "TA", "No"}, labels(t, out, "BsmtCond"))
}

func TestModeTieBreakFirstEncountered(t *testing.T) {
	c := table.CategoricalOf("Fence", "MnPrv", "GdWo", "GdWo", "MnPrv", "")

	v, ok, err := ModeStrategy{}.FillValue(c)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "MnPrv", v.Label)
}

func TestStrategiesRejectWrongKind(t *testing.T) {
	_, _, err := MeanStrategy{}.FillValue(table.CategoricalOf("Street", "Pave"))
	assert.Error(t, err)
	_, _, err = ModeStrategy{}.FillValue(table.NumericOf("LotArea", 1))
	assert.Error(t, err)
}

func TestFillAllRemainingMissingEmptyColumnWarns(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(func(error) {})

	in := table.MustNew(
		table.CategoricalOf("PoolQC", "", ""),
		table.NumericOf("LotArea", 1, math.NaN()),
	)
	out, err := FillAllRemainingMissing(in)
	require.NoError(t, err)

	pool, err := out.Categorical("PoolQC")
	require.NoError(t, err)
	assert.Equal(t, 2, pool.MissingCount())
	assert.Equal(t, []float64{1, 1}, numericValues(t, out, "LotArea"))

	require.Len(t, warnings, 1)
	var w *errors.EmptyColumnWarning
	require.True(t, errors.As(warnings[0], &w))
	assert.Equal(t, "PoolQC", w.Column)
}

func TestDropColumns(t *testing.T) {
	in := table.MustNew(
		table.NumericOf("Id", 1, 2),
		table.CategoricalOf("Alley", "", "Pave"),
		table.NumericOf("MoSold", 2, 5),
	)

	out, err := DropColumns(in, []string{"Alley", "MoSold"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Id"}, out.Names())
	assert.Equal(t, 2, out.Rows())
	assert.Len(t, in.Names(), 3)

	_, err = DropColumns(in, []string{"Alley", "PoolQC"})
	var nf *errors.ColumnNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "PoolQC", nf.Column)
}
