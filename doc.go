// Package houseprice turns the house price training and evaluation tables
// into numeric feature matrices and predicts a sale price for every
// evaluation house.
//
// The work is split into small packages that can be used on their own or
// through the pipeline driver and the houseprice command.
//
// # Quick Start
//
//	houseprice run --data-dir ./data --results-dir ./results 250
//
// or from Go:
//
//	package main
//
//	import (
//	    "context"
//	    "log"
//
//	    "github.com/YuminosukeSato/houseprice/config"
//	    "github.com/YuminosukeSato/houseprice/pipeline"
//	    "github.com/YuminosukeSato/houseprice/schema"
//	)
//
//	func main() {
//	    cfg, err := config.Load("", nil)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    report, err := pipeline.NewRunner(cfg, schema.Default()).Run(context.Background())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    log.Printf("R² %.3f, predictions in %s", report.CVMean, report.PredictionsPath)
//	}
//
// # Stages
//
// Both tables go through the same stages, in this order:
//
//  1. constant fill: "no basement" style columns get the literal "No"
//  2. blanket fill: remaining gaps get the column mean or most frequent label
//  3. drop before encoding
//  4. encode: numeric columns are mean imputed, categorical columns get
//     integer codes learned from the training table only; unseen labels get
//     the unknown code
//  5. derive: rating products and bath/porch sums
//  6. drop after derivation
//
// The encoder's fitted state is an immutable EncodingArtifact. The
// evaluation table is transformed with the artifact fitted on the training
// table, never refitted.
//
// # Packages
//
//   - core/table: typed columns with missing cells
//   - schema: the versioned column layout (embedded houseprices/v1)
//   - dataset: CSV input and prediction output
//   - preprocessing: imputer, pruner, encoder, feature deriver, scaler
//   - pipeline: stage driver and the run orchestration
//   - sklearn/tree, sklearn/ensemble, linear: regressors
//   - sklearn/model_selection: k-fold cross-validation
//   - metrics: regression metrics
//   - eda: exploratory plots
//   - config: koanf based configuration
//   - pkg/errors, pkg/log: error types and structured logging
package houseprice
