package preprocessing

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/houseprice/core/table"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"github.com/YuminosukeSato/houseprice/pkg/log"
	"github.com/YuminosukeSato/houseprice/schema"
)

// DefaultUnknownCode is the code given to missing and unseen labels.
const DefaultUnknownCode = -1

// EncodingArtifact is the state learned by ColumnEncoder.Fit: the training
// mean of every numeric column and the label codes of every categorical
// column. It cannot be modified after Fit returns and may be shared by any
// number of Transform calls.
type EncodingArtifact struct {
	schemaVersion string
	numeric       []string
	categorical   []string
	means         map[string]float64
	categories    map[string][]string
	codes         map[string]map[string]int
	unknownCode   int
	trainRows     int
}

// NumericColumns returns the numeric inputs in output order.
func (a *EncodingArtifact) NumericColumns() []string { return slices.Clone(a.numeric) }

// CategoricalColumns returns the categorical inputs in output order.
func (a *EncodingArtifact) CategoricalColumns() []string { return slices.Clone(a.categorical) }

// OutputColumns returns the encoded column order.
func (a *EncodingArtifact) OutputColumns() []string {
	return append(a.NumericColumns(), a.categorical...)
}

// Mean returns the training mean of a numeric column.
func (a *EncodingArtifact) Mean(column string) (float64, bool) {
	m, ok := a.means[column]
	return m, ok
}

// Categories returns the sorted training labels of a categorical column.
// The label at index i has code i.
func (a *EncodingArtifact) Categories(column string) []string {
	return slices.Clone(a.categories[column])
}

// Code returns the code of a label; ok is false for unseen labels.
func (a *EncodingArtifact) Code(column, label string) (int, bool) {
	c, ok := a.codes[column][label]
	return c, ok
}

// UnknownCode is the code of missing and unseen labels.
func (a *EncodingArtifact) UnknownCode() int { return a.unknownCode }

// KnownCodes returns the codes assigned during Fit for a column.
func (a *EncodingArtifact) KnownCodes(column string) []int {
	n := len(a.categories[column])
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// SchemaVersion is the schema reference the encoder was configured with.
func (a *EncodingArtifact) SchemaVersion() string { return a.schemaVersion }

// TrainRows is the number of rows the artifact was learned from.
func (a *EncodingArtifact) TrainRows() int { return a.trainRows }

// Equal reports whether two artifacts encode identically.
func (a *EncodingArtifact) Equal(b *EncodingArtifact) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.unknownCode != b.unknownCode ||
		!slices.Equal(a.numeric, b.numeric) ||
		!slices.Equal(a.categorical, b.categorical) {
		return false
	}
	for _, c := range a.numeric {
		if a.means[c] != b.means[c] {
			return false
		}
	}
	for _, c := range a.categorical {
		if !slices.Equal(a.categories[c], b.categories[c]) {
			return false
		}
	}
	return true
}

// ColumnEncoder mean-imputes a fixed list of numeric columns and ordinally
// encodes a fixed list of categorical columns. Every other column is
// dropped from its output.
type ColumnEncoder struct {
	numeric       []string
	categorical   []string
	unknownCode   int
	parallel      bool
	schemaVersion string
	logger        log.Logger
}

// EncoderOption configures a ColumnEncoder.
type EncoderOption func(*ColumnEncoder)

// WithUnknownCode sets the code of missing and unseen labels. It must be
// negative so it never equals a learned code.
func WithUnknownCode(code int) EncoderOption {
	return func(e *ColumnEncoder) { e.unknownCode = code }
}

// WithParallel encodes the numeric and categorical lists on separate
// goroutines. Output is identical either way.
func WithParallel(parallel bool) EncoderOption {
	return func(e *ColumnEncoder) { e.parallel = parallel }
}

// WithSchemaVersion records the schema reference in the artifact.
func WithSchemaVersion(ref string) EncoderOption {
	return func(e *ColumnEncoder) { e.schemaVersion = ref }
}

// WithEncoderLogger replaces the component logger.
func WithEncoderLogger(logger log.Logger) EncoderOption {
	return func(e *ColumnEncoder) { e.logger = logger }
}

// NewColumnEncoder creates an encoder for the given column lists.
func NewColumnEncoder(numeric, categorical []string, opts ...EncoderOption) *ColumnEncoder {
	e := &ColumnEncoder{
		numeric:     slices.Clone(numeric),
		categorical: slices.Clone(categorical),
		unknownCode: DefaultUnknownCode,
		parallel:    true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.GetLoggerWithName("ColumnEncoder")
	}
	return e
}

// NewColumnEncoderFromSchema creates an encoder from a schema's encoding section.
func NewColumnEncoderFromSchema(s *schema.Schema, opts ...EncoderOption) *ColumnEncoder {
	base := []EncoderOption{
		WithUnknownCode(s.Encoding.UnknownCode),
		WithSchemaVersion(s.Ref()),
	}
	return NewColumnEncoder(s.Encoding.Numeric, s.Encoding.Categorical, append(base, opts...)...)
}

// Fit learns the artifact from the training table and returns the training
// table encoded with it. The encoded table is produced by the same code as
// Transform.
func (e *ColumnEncoder) Fit(train *table.Table) (*table.Table, *EncodingArtifact, error) {
	const op = "ColumnEncoder.Fit"
	start := time.Now()

	if e.unknownCode >= 0 {
		return nil, nil, errors.NewValidationError("unknown_code", "must be negative", e.unknownCode)
	}
	if train == nil || train.Rows() == 0 {
		return nil, nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}

	a := &EncodingArtifact{
		schemaVersion: e.schemaVersion,
		numeric:       slices.Clone(e.numeric),
		categorical:   slices.Clone(e.categorical),
		means:         make(map[string]float64, len(e.numeric)),
		categories:    make(map[string][]string, len(e.categorical)),
		codes:         make(map[string]map[string]int, len(e.categorical)),
		unknownCode:   e.unknownCode,
		trainRows:     train.Rows(),
	}

	learnNumeric := func() error {
		for _, name := range a.numeric {
			c, err := numericInput(train, op, name)
			if err != nil {
				return err
			}
			present := c.Present()
			if len(present) == 0 {
				return errors.NewEmptyColumnError(op, name)
			}
			a.means[name] = stat.Mean(present, nil)
		}
		return nil
	}
	learnCategorical := func() error {
		for _, name := range a.categorical {
			c, err := categoricalInput(train, op, name)
			if err != nil {
				return err
			}
			cats := distinct(c.Present())
			sort.Strings(cats)
			codes := make(map[string]int, len(cats))
			for i, label := range cats {
				codes[label] = i
			}
			a.categories[name] = cats
			a.codes[name] = codes
		}
		return nil
	}

	// The two learners write disjoint maps.
	if err := run(e.parallel, learnNumeric, learnCategorical); err != nil {
		return nil, nil, err
	}

	encoded, err := transform(train, a, e.parallel, e.logger)
	if err != nil {
		return nil, nil, err
	}

	rows, cols := encoded.Shape()
	e.logger.Info("encoder fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.SchemaVersionKey, a.schemaVersion,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return encoded, a, nil
}

// Transform encodes t with a previously learned artifact.
func (e *ColumnEncoder) Transform(t *table.Table, a *EncodingArtifact) (*table.Table, error) {
	return transform(t, a, e.parallel, e.logger)
}

// Transform encodes t with a previously learned artifact. Numeric missing
// cells get the training mean; labels not seen during Fit get the unknown
// code. The artifact is only read.
func Transform(t *table.Table, a *EncodingArtifact) (*table.Table, error) {
	return transform(t, a, true, log.GetLoggerWithName("ColumnEncoder"))
}

func transform(t *table.Table, a *EncodingArtifact, parallel bool, logger log.Logger) (*table.Table, error) {
	const op = "ColumnEncoder.Transform"
	if a == nil {
		return nil, errors.NewNotFittedError("ColumnEncoder", "Transform")
	}
	if t == nil {
		return nil, errors.NewModelError(op, "nil table", errors.ErrEmptyData)
	}

	numericOut := make([]table.Column, len(a.numeric))
	categoricalOut := make([]table.Column, len(a.categorical))
	unseen := make([]int, len(a.categorical))

	encodeNumeric := func() error {
		for i, name := range a.numeric {
			c, err := numericInput(t, op, name)
			if err != nil {
				return err
			}
			filled, err := c.FillMissing(table.NumericValue(a.means[name]))
			if err != nil {
				return errors.Wrap(err, op)
			}
			numericOut[i] = filled
		}
		return nil
	}
	encodeCategorical := func() error {
		for i, name := range a.categorical {
			c, err := categoricalInput(t, op, name)
			if err != nil {
				return err
			}
			codes := a.codes[name]
			values := make([]float64, c.Len())
			for row := range values {
				label, present := c.Value(row)
				code, known := codes[label]
				switch {
				case !present:
					values[row] = float64(a.unknownCode)
				case !known:
					values[row] = float64(a.unknownCode)
					unseen[i]++
				default:
					values[row] = float64(code)
				}
			}
			categoricalOut[i] = table.NewNumericColumn(name, values, nil)
		}
		return nil
	}

	if err := run(parallel, encodeNumeric, encodeCategorical); err != nil {
		return nil, err
	}

	for i, n := range unseen {
		if n > 0 {
			logger.Info("unseen categories mapped to unknown code",
				log.ColumnKey, a.categorical[i],
				"count", n,
				"unknown_code", a.unknownCode,
			)
		}
	}

	return table.New(append(numericOut, categoricalOut...)...)
}

// run executes the tasks, concurrently when parallel is set.
func run(parallel bool, tasks ...func() error) error {
	if !parallel {
		for _, task := range tasks {
			if err := task(); err != nil {
				return err
			}
		}
		return nil
	}
	var g errgroup.Group
	for _, task := range tasks {
		g.Go(task)
	}
	return g.Wait()
}

func numericInput(t *table.Table, op, name string) (*table.NumericColumn, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, errors.NewColumnNotFoundError(op, name)
	}
	n, ok := c.(*table.NumericColumn)
	if !ok {
		return nil, errors.NewColumnKindError(op, name, table.Numeric.String(), c.Kind().String())
	}
	return n, nil
}

func categoricalInput(t *table.Table, op, name string) (*table.CategoricalColumn, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, errors.NewColumnNotFoundError(op, name)
	}
	s, ok := c.(*table.CategoricalColumn)
	if !ok {
		return nil, errors.NewColumnKindError(op, name, table.Categorical.String(), c.Kind().String())
	}
	return s, nil
}

func distinct(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0)
	for _, l := range labels {
		if _, ok := seen[l]; !ok {
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}
	return out
}

// String summarizes the artifact for logs.
func (a *EncodingArtifact) String() string {
	return fmt.Sprintf("EncodingArtifact{schema=%s numeric=%d categorical=%d unknown=%d}",
		a.schemaVersion, len(a.numeric), len(a.categorical), a.unknownCode)
}
