package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	qerrors "github.com/medleyre/leasehound/internal/errors"
)

func newCompareCmd() *cobra.Command {
	var tenants []string

	cmd := &cobra.Command{
		Use:   "compare <question>",
		Short: "Compare two or more tenants' leases on a question",
		Example: `  leasehound compare "What are the renewal terms?" \
    --tenant "Summit Coffee" --tenant "Harbor Books"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(tenants) < 2 {
				return fmt.Errorf("at least two --tenant flags are required")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			engine, cleanup, err := buildEngine(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			comparison, err := engine.CompareTenants(cmd.Context(), strings.Join(args, " "), tenants)
			if err != nil {
				if qerrors.IsNoRelevantContext(err) {
					fmt.Println("No relevant lease passages found for any of those tenants.")
					return nil
				}
				return err
			}

			fmt.Println(comparison.Answer)
			fmt.Println()
			for _, tenant := range tenants {
				fmt.Printf("%s: %d passages\n", tenant, len(comparison.Sources[tenant]))
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&tenants, "tenant", nil, "Tenant to include (repeat for each)")

	return cmd
}
