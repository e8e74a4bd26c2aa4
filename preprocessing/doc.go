// Package preprocessing holds the table transformations of the feature
// pipeline: missing value imputation, column pruning, the fit/transform
// column encoder and derived features. It also provides the matrix
// StandardScaler used in front of the linear model.
//
// Every function takes a *table.Table and returns a new one; inputs are
// never modified.
package preprocessing
