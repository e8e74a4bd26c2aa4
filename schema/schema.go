// Package schema describes the fixed house-price table layout as a
// versioned value: declared columns and kinds, fill rules, drop lists,
// encoder column lists and derived features. Every stage receives the parts
// it needs from a Schema instead of reading package level lists.
package schema

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/houseprice/core/table"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

//go:embed houseprices-v1.yaml
var defaultYAML []byte

// Derived feature operations.
const (
	OpProduct = "product"
	OpSum     = "sum"
)

// Schema is the declared layout of the training and evaluation files.
type Schema struct {
	Name          string       `yaml:"name" validate:"required"`
	Version       int          `yaml:"version" validate:"gte=1"`
	ID            string       `yaml:"id" validate:"required"`
	Target        string       `yaml:"target" validate:"required"`
	MissingTokens []string     `yaml:"missing_tokens"`
	Columns       []ColumnSpec `yaml:"columns" validate:"required,min=1,dive"`

	ConstantFill        ConstantFill     `yaml:"constant_fill"`
	DropBeforeEncoding  []string         `yaml:"drop_before_encoding" validate:"dive,required"`
	Encoding            Encoding         `yaml:"encoding"`
	Derived             []DerivedFeature `yaml:"derived" validate:"dive"`
	DropAfterDerivation []string         `yaml:"drop_after_derivation" validate:"dive,required"`
}

// ColumnSpec declares one input column.
type ColumnSpec struct {
	Name string `yaml:"name" validate:"required"`
	Kind string `yaml:"kind" validate:"oneof=numeric categorical"`
}

// ConstantFill names the columns whose missing cells mean "none" rather
// than "unknown".
type ConstantFill struct {
	Columns []string `yaml:"columns" validate:"dive,required"`
	Value   string   `yaml:"value" validate:"required_with=Columns"`
}

// Encoding lists the encoder inputs. Columns outside both lists are
// dropped by the encoder.
type Encoding struct {
	Numeric     []string `yaml:"numeric" validate:"dive,required"`
	Categorical []string `yaml:"categorical" validate:"dive,required"`
	UnknownCode int      `yaml:"unknown_code" validate:"lt=0"`
}

// DerivedFeature is a new column computed from encoded columns.
type DerivedFeature struct {
	Name   string   `yaml:"name" validate:"required"`
	Op     string   `yaml:"op" validate:"oneof=product sum"`
	Inputs []string `yaml:"inputs" validate:"min=2,dive,required"`
}

// Default returns the built-in houseprices v1 schema. Each call returns a
// fresh value.
func Default() *Schema {
	s, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded schema is invalid: %v", err))
	}
	return s
}

// Load reads and validates a schema file.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read schema %s", path)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "schema %s", path)
	}
	return s, nil
}

// Parse decodes and validates a schema. Unknown keys are rejected.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, errors.Wrap(err, "decode schema")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Ref identifies the schema in logs, e.g. "houseprices/v1".
func (s *Schema) Ref() string {
	return fmt.Sprintf("%s/v%d", s.Name, s.Version)
}

// KindOf returns the declared kind of a column.
func (s *Schema) KindOf(name string) (table.Kind, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			k, err := table.ParseKind(c.Kind)
			return k, err == nil
		}
	}
	return table.Numeric, false
}

// IsMissingToken reports whether a raw cell denotes a missing value.
func (s *Schema) IsMissingToken(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return true
	}
	for _, tok := range s.MissingTokens {
		if raw == tok {
			return true
		}
	}
	return false
}

// EncodedColumns is the encoder output order: numeric list, then categorical list.
func (s *Schema) EncodedColumns() []string {
	out := make([]string, 0, len(s.Encoding.Numeric)+len(s.Encoding.Categorical))
	out = append(out, s.Encoding.Numeric...)
	return append(out, s.Encoding.Categorical...)
}

// FeatureColumns is the column order of the final model input.
func (s *Schema) FeatureColumns() []string {
	cols := s.EncodedColumns()
	for _, d := range s.Derived {
		cols = append(cols, d.Name)
	}
	drop := toSet(s.DropAfterDerivation)
	out := cols[:0]
	for _, c := range cols {
		if _, ok := drop[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field constraints and that every list refers to columns
// available at the stage that uses it.
func (s *Schema) Validate() error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.NewValidationError(fe.Namespace(), fmt.Sprintf("failed on '%s'", fe.Tag()), fe.Value())
		}
		return errors.Wrap(err, "validate schema")
	}

	kinds := make(map[string]string, len(s.Columns))
	for _, c := range s.Columns {
		if _, dup := kinds[c.Name]; dup {
			return errors.NewValidationError("columns", "duplicate column", c.Name)
		}
		kinds[c.Name] = c.Kind
	}
	for _, name := range []string{s.ID, s.Target} {
		if _, ok := kinds[name]; !ok {
			return errors.NewValidationError("id/target", "column is not declared", name)
		}
	}
	if err := declared("constant_fill.columns", s.ConstantFill.Columns, kinds); err != nil {
		return err
	}
	if err := declared("drop_before_encoding", s.DropBeforeEncoding, kinds); err != nil {
		return err
	}

	dropped := toSet(s.DropBeforeEncoding)
	seen := make(map[string]string)
	check := func(field string, names []string, kind string) error {
		for _, n := range names {
			k, ok := kinds[n]
			if !ok {
				return errors.NewValidationError(field, "column is not declared", n)
			}
			if k != kind {
				return errors.NewValidationError(field, fmt.Sprintf("column is %s, expected %s", k, kind), n)
			}
			if _, ok := dropped[n]; ok {
				return errors.NewValidationError(field, "column is dropped before encoding", n)
			}
			if n == s.Target {
				return errors.NewValidationError(field, "target column cannot be an encoder input", n)
			}
			if prev, dup := seen[n]; dup {
				return errors.NewValidationError(field, "column already listed in "+prev, n)
			}
			seen[n] = field
		}
		return nil
	}
	if err := check("encoding.numeric", s.Encoding.Numeric, table.Numeric.String()); err != nil {
		return err
	}
	if err := check("encoding.categorical", s.Encoding.Categorical, table.Categorical.String()); err != nil {
		return err
	}

	available := toSet(s.EncodedColumns())
	for _, d := range s.Derived {
		for _, in := range d.Inputs {
			if _, ok := available[in]; !ok {
				return errors.NewValidationError("derived."+d.Name, "input is not an encoded or earlier derived column", in)
			}
		}
		if _, dup := available[d.Name]; dup {
			return errors.NewValidationError("derived", "name collides with an existing column", d.Name)
		}
		available[d.Name] = struct{}{}
	}
	for _, n := range s.DropAfterDerivation {
		if _, ok := available[n]; !ok {
			return errors.NewValidationError("drop_after_derivation", "column is not produced by encoding or derivation", n)
		}
	}
	return nil
}

func declared(field string, names []string, kinds map[string]string) error {
	for _, n := range names {
		if _, ok := kinds[n]; !ok {
			return errors.NewValidationError(field, "column is not declared", n)
		}
	}
	return nil
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
