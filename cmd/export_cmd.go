package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/school-intel/internal/export"
	"github.com/sells-group/school-intel/internal/model"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export schools and cached talking points to Excel",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if !cfg.Features.ExportToExcel {
			return eris.New("export is disabled (features.export_to_excel)")
		}

		env, err := initEnv(ctx, "query")
		if err != nil {
			return err
		}
		defer env.Close()

		out, _ := cmd.Flags().GetString("out")
		schools := env.Loader.Schools()
		err = export.WriteFile(out, schools, func(urn string) []model.TalkingPoint {
			return env.cachedPoints(ctx, urn)
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "Exported %d schools to %s\n", len(schools), out)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("out", "schools.xlsx", "output workbook path")
	rootCmd.AddCommand(exportCmd)
}
