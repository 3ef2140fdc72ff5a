package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/school-intel/internal/loader"
	"github.com/sells-group/school-intel/internal/model"
)

// -- schools --

var schoolsCmd = &cobra.Command{
	Use:   "schools",
	Short: "List schools matching filters",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f, err := filterFromFlags(cmd)
		if err != nil {
			return err
		}

		env, err := initEnv(cmd.Context(), "query")
		if err != nil {
			return err
		}
		defer env.Close()

		schools := env.Loader.Filter(f)
		if len(schools) == 0 {
			fmt.Fprintln(os.Stderr, "No schools found.")
			return nil
		}
		formatSchoolList(os.Stdout, schools)
		return nil
	},
}

// filterFromFlags builds a loader filter from the schools command flags.
// Spend thresholds apply only when the flag was given.
func filterFromFlags(cmd *cobra.Command) (loader.Filter, error) {
	flags := cmd.Flags()
	name, _ := flags.GetString("name")
	authority, _ := flags.GetString("authority")
	priority, _ := flags.GetString("priority")
	limit, _ := flags.GetInt("limit")

	f := loader.Filter{Name: name, Authority: authority, Limit: limit}
	if priority != "" {
		f.Priority = model.ParsePriority(priority)
		if f.Priority == model.PriorityUnknown && !strings.EqualFold(priority, string(model.PriorityUnknown)) {
			return f, eris.Errorf("unknown priority %q (want HIGH, MEDIUM, LOW or UNKNOWN)", priority)
		}
	}
	if flags.Changed("min-staffing") {
		v, _ := flags.GetFloat64("min-staffing")
		f.MinStaffing = &v
	}
	if flags.Changed("min-agency") {
		v, _ := flags.GetFloat64("min-agency")
		f.MinAgency = &v
	}
	return f, nil
}

// -- show --

var showCmd = &cobra.Command{
	Use:   "show <urn-or-name>",
	Short: "Show one school",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), "query")
		if err != nil {
			return err
		}
		defer env.Close()

		school, ok := lookupSchool(env.Loader, args[0])
		if !ok {
			return eris.Errorf("school %q not found", args[0])
		}

		if asContext, _ := cmd.Flags().GetBool("context"); asContext {
			fmt.Fprintln(os.Stdout, school.LLMContext())
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(school)
	},
}

// lookupSchool resolves an identifier first, then an exact name.
func lookupSchool(l *loader.Loader, key string) (*model.School, bool) {
	if s, ok := l.ByURN(key); ok {
		return s, true
	}
	return l.ByName(key)
}

// -- stats --

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show summary statistics for the loaded schools",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initEnv(cmd.Context(), "query")
		if err != nil {
			return err
		}
		defer env.Close()

		formatStats(os.Stdout, env.Loader.Stats())
		return nil
	},
}

// -- top --

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "List the highest spending schools",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initEnv(cmd.Context(), "query")
		if err != nil {
			return err
		}
		defer env.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		metric, _ := cmd.Flags().GetString("metric")
		byPriority, _ := cmd.Flags().GetBool("by-priority")

		var schools []*model.School
		if byPriority {
			schools = env.Loader.HighPriority(limit)
		} else {
			schools = env.Loader.TopSpenders(limit, loader.ParseSpendMetric(metric))
		}
		if len(schools) == 0 {
			fmt.Fprintln(os.Stderr, "No schools with spend data.")
			return nil
		}
		formatSchoolList(os.Stdout, schools)
		return nil
	},
}

// -- authorities --

var authoritiesCmd = &cobra.Command{
	Use:   "authorities",
	Short: "List local authorities with school counts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initEnv(cmd.Context(), "query")
		if err != nil {
			return err
		}
		defer env.Close()

		for _, la := range env.Loader.Authorities() {
			fmt.Fprintf(os.Stdout, "%s\t%d\n", la, len(env.Loader.ByAuthority(la)))
		}
		return nil
	},
}

func init() {
	schoolsCmd.Flags().String("name", "", "filter by name substring (case-insensitive)")
	schoolsCmd.Flags().String("priority", "", "filter by tier (HIGH, MEDIUM, LOW, UNKNOWN)")
	schoolsCmd.Flags().String("authority", "", "filter by local authority")
	schoolsCmd.Flags().Float64("min-staffing", 0, "only schools with total staffing spend above this")
	schoolsCmd.Flags().Float64("min-agency", 0, "only schools with agency supply spend above this")
	schoolsCmd.Flags().Int("limit", 50, "max number of schools to display (0 for all)")

	showCmd.Flags().Bool("context", false, "print the text context sent to the model instead of JSON")

	topCmd.Flags().Int("limit", 10, "number of schools")
	topCmd.Flags().String("metric", string(loader.MetricTotal), "spend metric (total, agency)")
	topCmd.Flags().Bool("by-priority", false, "order by priority tier instead of spend")

	rootCmd.AddCommand(schoolsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(topCmd)
	rootCmd.AddCommand(authoritiesCmd)
}
