package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/metrics"
	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/report"
	"github.com/AeroToyota-Develop/Urban-structure-analysis/internal/store"
)

var (
	metricsOutputDir string
	metricsFamilies  []string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Compute evaluation indicators and write CSV reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		outputDir := metricsOutputDir
		if outputDir == "" {
			outputDir = cfg.Output.Dir
		}
		writer, err := report.NewWriter(outputDir)
		if err != nil {
			return err
		}

		run, err := st.CreateRun(ctx, "metrics")
		if err != nil {
			return err
		}

		runErr := runFamilies(cmd, st, writer)

		status := store.RunStatusComplete
		if runErr != nil {
			status = store.RunStatusFailed
		}
		if err := st.FinishRun(ctx, run.ID, status); err != nil {
			zap.L().Warn("metrics: could not record run outcome", zap.Error(err))
		}

		return runErr
	},
}

func runFamilies(cmd *cobra.Command, st store.Store, writer *report.Writer) error {
	ctx := cmd.Context()
	calc := metrics.NewCalculator(st)

	selected := make(map[string]bool, len(metricsFamilies))
	for _, f := range metricsFamilies {
		selected[f] = true
	}
	wants := func(name string) bool {
		return len(selected) == 0 || selected[name]
	}

	if wants("residential") {
		rows, err := calc.Residential(ctx)
		if err != nil {
			return eris.Wrap(err, "metrics: residential")
		}
		if err := writer.Write(report.FileResidential, rows); err != nil {
			return err
		}
	}

	if wants("urbanfunc") {
		rows, err := calc.UrbanFunc(ctx)
		if err != nil {
			return eris.Wrap(err, "metrics: urbanfunc")
		}
		if err := writer.Write(report.FileUrbanFunc, rows); err != nil {
			return err
		}
	}

	if wants("disaster") {
		rows, err := calc.Disaster(ctx)
		if err != nil {
			return eris.Wrap(err, "metrics: disaster")
		}
		if err := writer.Write(report.FileDisaster, rows); err != nil {
			return err
		}
	}

	if wants("transit") {
		rows, err := calc.Transit(ctx)
		if err != nil {
			return eris.Wrap(err, "metrics: transit")
		}
		if err := writer.Write(report.FileTransit, rows); err != nil {
			return err
		}
	}

	if wants("landuse") {
		rows, err := calc.LandUse(ctx)
		if err != nil {
			return eris.Wrap(err, "metrics: landuse")
		}
		if err := writer.Write(report.FileLandUse, rows); err != nil {
			return err
		}
	}

	if wants("fiscal") {
		fixed, expenditure, err := calc.Fiscal(ctx, cfg.Input.Dir)
		if err != nil {
			return eris.Wrap(err, "metrics: fiscal")
		}
		if err := writer.Write(report.FileFixedAsset, fixed); err != nil {
			return err
		}
		if err := writer.Write(report.FileExpenditure, expenditure); err != nil {
			return err
		}
	}

	return nil
}

func init() {
	metricsCmd.Flags().StringVar(&metricsOutputDir, "output", "", "report output directory (default from config)")
	metricsCmd.Flags().StringSliceVar(&metricsFamilies, "only", nil, "indicator families to compute (default all)")
	rootCmd.AddCommand(metricsCmd)
}
