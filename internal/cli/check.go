package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func (c *cli) checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Scan the store for cluster rule violations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Services.Identity.CheckIntegrity(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			ok := color.New(color.FgGreen, color.Bold)
			bad := color.New(color.FgRed, color.Bold)
			dim := color.New(color.Faint)

			if report.OK() {
				ok.Fprint(w, "OK")
				fmt.Fprintf(w, " scanned %d contacts in %d clusters\n", report.Scanned, report.Primaries)
				return nil
			}
			bad.Fprintf(w, "FAIL")
			fmt.Fprintf(w, " %d violations in %d contacts\n", len(report.Violations), report.Scanned)
			for _, v := range report.Violations {
				fmt.Fprintf(w, "  contact %d  ", v.ContactID)
				bad.Fprintf(w, "%-20s", v.Rule)
				dim.Fprintf(w, " %s\n", v.Detail)
			}
			return ErrViolations
		},
	}
}
