package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var layersCmd = &cobra.Command{
	Use:   "layers",
	Short: "List the layers in the dataset store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		layers, err := st.ListLayers(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tALIAS\tSRID\tFEATURES\tUPDATED")
		for _, l := range layers {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
				l.Name, l.Alias, l.SRID, l.FeatureCount, l.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(layersCmd)
}
