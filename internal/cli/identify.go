package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	domainagg "github.com/yungbote/identity-backend/internal/domain/aggregates"
	"github.com/yungbote/identity-backend/internal/services"
)

func (c *cli) identifyCommand() *cobra.Command {
	var (
		email  string
		phone  string
		output string
	)
	cmd := &cobra.Command{
		Use:   "identify",
		Short: "Reconcile one observation and print the resulting identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if output != "json" && output != "yaml" {
				return fmt.Errorf("unknown output format %q (want json or yaml)", output)
			}
			a, err := c.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			req := services.IdentifyRequest{}
			if cmd.Flags().Changed("email") {
				req.Email = &email
			}
			if cmd.Flags().Changed("phone") {
				req.PhoneNumber = &phone
			}
			out, err := a.Services.Identity.Identify(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeSummary(cmd.OutOrStdout(), output, out.Summary)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "observed email")
	cmd.Flags().StringVar(&phone, "phone", "", "observed phone number")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json or yaml")
	return cmd
}

func writeSummary(w io.Writer, format string, summary domainagg.IdentitySummary) error {
	payload := map[string]domainagg.IdentitySummary{"contact": summary}
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(payload); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
