package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	qerrors "github.com/medleyre/leasehound/internal/errors"
	"github.com/medleyre/leasehound/internal/query"
)

func newQueryCmd() *cobra.Command {
	var tenant string
	var topN int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Ask a one-shot question about the indexed leases",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			engine, cleanup, err := buildEngine(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			question := strings.Join(args, " ")
			result, err := engine.Query(cmd.Context(), question, query.QueryOptions{
				Tenant: tenant,
				TopN:   topN,
			})
			if err != nil {
				if qerrors.IsNoRelevantContext(err) {
					fmt.Println("No relevant lease passages found for that question.")
					return nil
				}
				return err
			}

			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(result)
			}

			fmt.Println(result.Answer)
			fmt.Printf("\n(%d supporting passages)\n", len(result.SupportingChunkIDs))
			return nil
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "Restrict to one tenant's lease")
	cmd.Flags().IntVar(&topN, "top-n", 0, "Number of passages to retrieve (default from config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")

	return cmd
}
