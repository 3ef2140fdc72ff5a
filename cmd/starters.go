package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/school-intel/internal/intel"
)

var startersCmd = &cobra.Command{
	Use:   "starters <urn-or-name>",
	Short: "Generate conversation starters for a school",
	Long:  "Returns cached talking points when fresh, otherwise generates them from the school's financial data and, with --inspection, its latest inspection report.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "query")
		if err != nil {
			return err
		}
		defer env.Close()

		force, _ := cmd.Flags().GetBool("force")
		count, _ := cmd.Flags().GetInt("count")
		withInspection, _ := cmd.Flags().GetBool("inspection")
		asJSON, _ := cmd.Flags().GetBool("json")

		if !env.Intel.FinancialAvailable() && !env.Intel.InspectionAvailable() {
			zap.L().Warn("no generator available, only cached talking points can be returned")
		}

		school, ok := lookupSchool(env.Loader, args[0])
		if !ok {
			return eris.Wrapf(intel.ErrSchoolNotFound, "starters %q", args[0])
		}

		res, err := env.Intel.TalkingPointsForURN(ctx, school.URN, force, count, withInspection)
		if err != nil {
			return eris.Wrap(err, "starters")
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		formatTalkingPoints(os.Stdout, res)
		return nil
	},
}

func init() {
	startersCmd.Flags().Bool("force", false, "ignore the cache and regenerate")
	startersCmd.Flags().Int("count", 0, "number of talking points (default from config)")
	startersCmd.Flags().Bool("inspection", false, "blend in points from the latest inspection report")
	startersCmd.Flags().Bool("json", false, "print the result as JSON")
	rootCmd.AddCommand(startersCmd)
}
