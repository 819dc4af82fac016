// File: cmd/list.go
package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Lists the scenarios a run would execute",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scs, err := selectScenarios(a.cfg)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SCENARIO\tTARGET\tSTEPS\tTAGS")
			for _, sc := range scs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", sc.Name, sc.Target, len(sc.Steps), strings.Join(sc.Tags, ","))
			}
			return tw.Flush()
		},
	}

	f := listCmd.Flags()
	f.String("suite", "", "suite file (default: built-in suite)")
	f.String("run", "", "only list scenarios whose name matches this regexp")
	f.String("skip", "", "skip scenarios whose name matches this regexp")
	a.bind(listCmd, map[string]string{
		"suite": "run.suite",
		"run":   "run.run",
		"skip":  "run.skip",
	})
	return listCmd
}
