package preprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/houseprice/core/table"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"github.com/YuminosukeSato/houseprice/pkg/log"
	"github.com/YuminosukeSato/houseprice/schema"
)

func trainTable() *table.Table {
	return table.MustNew(
		table.NumericOf("Id", 1, 2, 3, 4),
		table.NumericOf("LotFrontage", 10, 20, math.NaN(), 30),
		table.CategoricalOf("Foundation", "PConc", "CBlock", "PConc", ""),
		table.CategoricalOf("Street", "Pave", "Pave", "Grvl", "Pave"),
		table.CategoricalOf("Alley", "", "", "Grvl", ""),
		table.NumericOf("SalePrice", 208500, 181500, 223500, 140000),
	)
}

func evalTable() *table.Table {
	return table.MustNew(
		table.NumericOf("Id", 5, 6),
		table.NumericOf("LotFrontage", math.NaN(), 40),
		table.CategoricalOf("Foundation", "Stone", "CBlock"),
		table.CategoricalOf("Street", "Grvl", ""),
		table.CategoricalOf("Alley", "Pave", ""),
	)
}

func newTestEncoder(opts ...EncoderOption) *ColumnEncoder {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	opts = append([]EncoderOption{WithEncoderLogger(logger)}, opts...)
	return NewColumnEncoder([]string{"Id", "LotFrontage"}, []string{"Foundation", "Street"}, opts...)
}

func TestEncoderFit(t *testing.T) {
	encoded, a, err := newTestEncoder().Fit(trainTable())
	require.NoError(t, err)

	assert.Equal(t, []string{"Id", "LotFrontage", "Foundation", "Street"}, encoded.Names(), "numeric then categorical, remainder dropped")
	assert.Equal(t, []float64{10, 20, 20, 30}, numericValues(t, encoded, "LotFrontage"))

	assert.Equal(t, []string{"CBlock", "PConc"}, a.Categories("Foundation"))
	assert.Equal(t, []float64{1, 0, 1, -1}, numericValues(t, encoded, "Foundation"), "missing label gets the unknown code")
	assert.Equal(t, []float64{1, 1, 0, 1}, numericValues(t, encoded, "Street"))

	mean, ok := a.Mean("LotFrontage")
	require.True(t, ok)
	assert.Equal(t, 20.0, mean)
	assert.Equal(t, -1, a.UnknownCode())
	assert.Equal(t, 4, a.TrainRows())
	assert.Equal(t, []string{"Id", "LotFrontage", "Foundation", "Street"}, a.OutputColumns())
}

func TestEncoderFitIsDeterministic(t *testing.T) {
	enc := newTestEncoder()
	t1, a1, err := enc.Fit(trainTable())
	require.NoError(t, err)
	t2, a2, err := enc.Fit(trainTable())
	require.NoError(t, err)

	assert.True(t, a1.Equal(a2))
	for _, name := range t1.Names() {
		assert.Equal(t, numericValues(t, t1, name), numericValues(t, t2, name), name)
	}
}

func TestEncoderParallelMatchesSequential(t *testing.T) {
	tp, ap, err := newTestEncoder(WithParallel(true)).Fit(trainTable())
	require.NoError(t, err)
	ts, as, err := newTestEncoder(WithParallel(false)).Fit(trainTable())
	require.NoError(t, err)

	assert.True(t, ap.Equal(as))
	assert.Equal(t, tp.Names(), ts.Names())
	for _, name := range tp.Names() {
		assert.Equal(t, numericValues(t, tp, name), numericValues(t, ts, name))
	}
}

func TestEncoderTransformUsesTrainingState(t *testing.T) {
	_, a, err := newTestEncoder().Fit(trainTable())
	require.NoError(t, err)
	before := a.Categories("Foundation")

	encoded, err := Transform(evalTable(), a)
	require.NoError(t, err)

	assert.Equal(t, []float64{20, 40}, numericValues(t, encoded, "LotFrontage"), "training mean, not the evaluation mean")
	assert.Equal(t, []float64{-1, 0}, numericValues(t, encoded, "Foundation"), "unseen Stone maps to the unknown code")
	assert.Equal(t, []float64{0, -1}, numericValues(t, encoded, "Street"))

	assert.Equal(t, before, a.Categories("Foundation"), "artifact must not learn unseen labels")
	_, known := a.Code("Foundation", "Stone")
	assert.False(t, known)
}

func TestEncoderTransformNeverMintsCodes(t *testing.T) {
	_, a, err := newTestEncoder().Fit(trainTable())
	require.NoError(t, err)

	eval := table.MustNew(
		table.NumericOf("Id", 1, 2, 3, 4, 5),
		table.NumericOf("LotFrontage", 1, 2, 3, 4, 5),
		table.CategoricalOf("Foundation", "Slab", "Wood", "PConc", "BrkTil", "CBlock"),
		table.CategoricalOf("Street", "Pave", "Dirt", "Grvl", "", "Pave"),
	)
	encoded, err := Transform(eval, a)
	require.NoError(t, err)

	for _, name := range a.CategoricalColumns() {
		allowed := map[float64]bool{float64(a.UnknownCode()): true}
		for _, code := range a.KnownCodes(name) {
			allowed[float64(code)] = true
		}
		for _, v := range numericValues(t, encoded, name) {
			assert.True(t, allowed[v], "%s: code %v was not learned", name, v)
		}
	}
}

func TestEncoderTransformErrors(t *testing.T) {
	_, err := Transform(evalTable(), nil)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	_, a, err := newTestEncoder().Fit(trainTable())
	require.NoError(t, err)

	noStreet, err := evalTable().Drop("Street")
	require.NoError(t, err)
	_, err = Transform(noStreet, a)
	var missing *errors.ColumnNotFoundError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "Street", missing.Column)

	wrongKind, err := evalTable().WithColumn(table.NumericOf("Street", 1, 2))
	require.NoError(t, err)
	_, err = Transform(wrongKind, a)
	var kindErr *errors.ColumnKindError
	assert.True(t, errors.As(err, &kindErr))
}

func TestEncoderFitErrors(t *testing.T) {
	empty := table.MustNew(
		table.NumericOf("Id", 1, 2),
		table.NumericOf("LotFrontage", math.NaN(), math.NaN()),
		table.CategoricalOf("Foundation", "PConc", "CBlock"),
		table.CategoricalOf("Street", "Pave", "Pave"),
	)
	_, _, err := newTestEncoder().Fit(empty)
	var emptyErr *errors.EmptyColumnError
	require.True(t, errors.As(err, &emptyErr))
	assert.Equal(t, "LotFrontage", emptyErr.Column)

	_, _, err = newTestEncoder(WithUnknownCode(0)).Fit(trainTable())
	var verr *errors.ValidationError
	assert.True(t, errors.As(err, &verr))

	noID, err := trainTable().Drop("Id")
	require.NoError(t, err)
	_, _, err = newTestEncoder().Fit(noID)
	var nf *errors.ColumnNotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestEncoderLogsUnseenCategories(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	enc := NewColumnEncoder([]string{"Id"}, []string{"Foundation"}, WithEncoderLogger(logger), WithParallel(false))

	_, a, err := enc.Fit(trainTable())
	require.NoError(t, err)
	assert.True(t, logger.ContainsMessage("encoder fitted"))

	_, err = enc.Transform(evalTable(), a)
	require.NoError(t, err)
	assert.True(t, logger.ContainsField(log.ColumnKey, "Foundation"))
}

func TestNewColumnEncoderFromSchema(t *testing.T) {
	s := schema.Default()
	enc := NewColumnEncoderFromSchema(s)
	assert.Equal(t, s.Encoding.Numeric, enc.numeric)
	assert.Equal(t, s.Encoding.UnknownCode, enc.unknownCode)
	assert.Equal(t, "houseprices/v1", enc.schemaVersion)
}

func TestArtifactEqual(t *testing.T) {
	_, a, err := newTestEncoder().Fit(trainTable())
	require.NoError(t, err)

	other := trainTable()
	other, err = other.WithColumn(table.CategoricalOf("Street", "Pave", "Pave", "Pave", "Pave"))
	require.NoError(t, err)
	_, b, err := newTestEncoder().Fit(other)
	require.NoError(t, err)

	assert.False(t, a.Equal(b))
	assert.False(t, a.Equal(nil))
	var nilArtifact *EncodingArtifact
	assert.True(t, nilArtifact.Equal(nil))
}
