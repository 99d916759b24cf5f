package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/modai/app"
	"github.com/kilianp07/modai/infra/logger"
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "Load the configured modules and print what happened to each",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		svc, err := app.New(cfg)
		if err != nil {
			return err
		}
		defer closeService(svc, logger.New("modules"))

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tCLASS\tSTATUS\tPASS\tERROR")
		for _, o := range svc.Loader().Outcomes() {
			msg := ""
			if o.Err != nil {
				msg = o.Err.Error()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", o.Name, o.Class, o.Status, o.Pass, msg)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(modulesCmd)
}
