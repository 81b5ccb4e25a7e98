package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/medleyre/leasehound/internal/query"
	"github.com/medleyre/leasehound/internal/search"
)

func newSearchCmd() *cobra.Command {
	var tenant string
	var topN int
	var mode string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run hybrid retrieval without answer generation",
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

			switch search.Mode(mode) {
			case search.ModeHybrid, search.ModeLexical, search.ModeVector:
			default:
				return fmt.Errorf("invalid mode %q (hybrid, lexical, vector)", mode)
			}

			results, err := engine.Search(cmd.Context(), strings.Join(args, " "), query.QueryOptions{
				Tenant: tenant,
				TopN:   topN,
				Mode:   search.Mode(mode),
			})
			if err != nil {
				return err
			}

			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(results)
			}

			if len(results) == 0 {
				fmt.Println("No results.")
				return nil
			}

			for i, r := range results {
				fmt.Printf("%2d. [%.5f] %s", i+1, r.Score, r.Chunk.ID)
				if tenant := r.Chunk.Tenant(); tenant != "" {
					fmt.Printf(" (%s)", tenant)
				}
				fmt.Println()
				fmt.Printf("    %s\n", snippet(r.Chunk.Text, 120))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "Restrict to one tenant's lease")
	cmd.Flags().IntVar(&topN, "top-n", 0, "Number of results (default from config)")
	cmd.Flags().StringVar(&mode, "mode", "hybrid", "Retrieval mode: hybrid, lexical, or vector")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON output")

	return cmd
}

func snippet(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
