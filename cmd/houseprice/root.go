package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/houseprice/config"
	"github.com/YuminosukeSato/houseprice/pipeline"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"github.com/YuminosukeSato/houseprice/pkg/log"
	"github.com/YuminosukeSato/houseprice/schema"
)

// Version is set at build time.
var Version = "0.1.0"

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "houseprice",
		Short:         "House price feature pipeline and regressor",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./"+config.DefaultConfigFile+")")

	root.AddCommand(newRunCmd(&cfgFile))
	root.AddCommand(newSchemaCmd(&cfgFile))
	root.AddCommand(newVersionCmd())
	return root
}

func newRunCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [max_leaf]",
		Short: "Prepare the tables, cross-validate and write predictions",
		Long: `Run loads the training and evaluation CSV files, writes the exploratory
plots, transforms both tables with one encoder fitted on the training table,
reports cross-validated R² and writes one prediction per evaluation row.

The optional max_leaf argument is the same as --max-leaf-nodes.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if err := cmd.Flags().Set("max-leaf-nodes", args[0]); err != nil {
					return errors.NewValidationError("max_leaf", "must be an integer", args[0])
				}
			}
			cfg, err := config.Load(*cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			closer, err := log.Setup(log.Options{
				Level:      cfg.Log.Level,
				File:       cfg.Log.File,
				Console:    cfg.Log.Console,
				ConsoleOut: cmd.ErrOrStderr(),
				MaxSizeMB:  cfg.Log.MaxSizeMB,
				MaxBackups: cfg.Log.MaxBackups,
				MaxAgeDays: cfg.Log.MaxAgeDays,
			})
			if err != nil {
				return err
			}
			defer closer.Close()

			s, err := loadSchema(cfg.SchemaFile)
			if err != nil {
				return err
			}

			report, err := pipeline.NewRunner(cfg, s).Run(cmd.Context())
			if report != nil {
				printReport(cmd.OutOrStdout(), report)
			}
			return err
		},
	}
	config.BindFlags(cmd.Flags())
	return cmd
}

func newSchemaCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show the columns and what each stage does with them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			s, err := loadSchema(cfg.SchemaFile)
			if err != nil {
				return err
			}
			printSchema(cmd.OutOrStdout(), s)
			return nil
		},
	}
	cmd.Flags().String("schema", "", "schema YAML file (default: embedded houseprices/v1)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "houseprice %s (schema %s)\n", Version, schema.Default().Ref())
		},
	}
}

func loadSchema(path string) (*schema.Schema, error) {
	if path == "" {
		return schema.Default(), nil
	}
	return schema.Load(path)
}

func printReport(w io.Writer, r *pipeline.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("run " + r.RunID)
	t.AppendRows([]table.Row{
		{"schema", r.Schema},
		{"model", r.Model},
		{"started", r.StartedAt.Format(time.RFC3339)},
		{"duration", r.Duration.Round(time.Millisecond)},
		{"train rows", r.TrainRows},
		{"eval rows", r.EvalRows},
		{"features", len(r.Features)},
	})
	if len(r.CVScores) > 0 {
		t.AppendSeparator()
		for i, s := range r.CVScores {
			row := fmt.Sprintf("%.4f", s)
			if i < len(r.CVRMSE) && i < len(r.CVMAE) {
				row += fmt.Sprintf("  RMSE %.1f  MAE %.1f", r.CVRMSE[i], r.CVMAE[i])
			}
			t.AppendRow(table.Row{fmt.Sprintf("fold %d R²", i+1), row})
		}
		t.AppendRow(table.Row{"mean R²", fmt.Sprintf("%.4f ± %.4f", r.CVMean, r.CVStd)})
		t.AppendRow(table.Row{"mean RMSE", fmt.Sprintf("%.1f", r.CVMeanRMSE)})
		t.AppendRow(table.Row{"mean MAE", fmt.Sprintf("%.1f", r.CVMeanMAE)})
		t.AppendRow(table.Row{"train R²", fmt.Sprintf("%.4f", r.TrainR2)})
	}
	t.AppendSeparator()
	for _, p := range r.Plots {
		t.AppendRow(table.Row{"plot", p})
	}
	for _, e := range r.PlotErrors {
		t.AppendRow(table.Row{"plot error", e})
	}
	if r.PredictionsWritten {
		t.AppendRow(table.Row{"predictions", r.PredictionsPath})
	} else if r.PredictionsError != "" {
		t.AppendRow(table.Row{"predictions", text.FgRed.Sprint("not written: " + r.PredictionsError)})
	}
	t.Render()
}

func printSchema(w io.Writer, s *schema.Schema) {
	roles := make(map[string][]string)
	add := func(role string, cols ...string) {
		for _, c := range cols {
			roles[c] = append(roles[c], role)
		}
	}
	add("id", s.ID)
	add("target", s.Target)
	add("fill "+s.ConstantFill.Value, s.ConstantFill.Columns...)
	add("drop before encoding", s.DropBeforeEncoding...)
	add("encode", s.Encoding.Numeric...)
	add("encode", s.Encoding.Categorical...)
	add("drop after derivation", s.DropAfterDerivation...)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(s.Ref())
	t.AppendHeader(table.Row{"#", "Column", "Kind", "Stages"})
	for i, c := range s.Columns {
		t.AppendRow(table.Row{i + 1, c.Name, c.Kind, strings.Join(roles[c.Name], ", ")})
	}
	t.AppendSeparator()
	for _, d := range s.Derived {
		t.AppendRow(table.Row{"", d.Name, "derived", d.Op + "(" + strings.Join(d.Inputs, ", ") + ")"})
	}
	t.AppendFooter(table.Row{"", "features", len(s.FeatureColumns()), ""})
	t.Render()
}
