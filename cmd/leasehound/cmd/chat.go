package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	qerrors "github.com/medleyre/leasehound/internal/errors"
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Hold a conversation about the indexed leases",
		Long: `Starts an interactive conversation. Follow-up questions are
reformulated using the conversation so far, and the conversation tracks
which tenant is being discussed.

Commands inside the chat:
  /new       start a fresh conversation
  /summary   show the conversation summary
  /sessions  list conversations in this chat
  /quit      exit`,
		Args: cobra.NoArgs,
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

			sessionID := ""
			scanner := bufio.NewScanner(os.Stdin)

			fmt.Println("leasehound chat. Ask about your leases; /quit to exit.")
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}

				switch line {
				case "/quit", "/exit":
					return nil
				case "/new":
					sessionID = ""
					fmt.Println("Started a new conversation.")
					continue
				case "/summary":
					if sessionID == "" {
						fmt.Println("No conversation yet.")
						continue
					}
					sess, err := engine.Sessions().Get(sessionID)
					if err != nil {
						fmt.Println("No conversation yet.")
						continue
					}
					fmt.Println(sess.Summary())
					continue
				case "/sessions":
					sessions := engine.Sessions().List()
					if len(sessions) == 0 {
						fmt.Println("No conversations yet.")
						continue
					}
					for _, sess := range sessions {
						marker := " "
						if sess.ID == sessionID {
							marker = "*"
						}
						fmt.Printf("%s %s: %s\n", marker, sess.ID, sess.Summary())
					}
					continue
				}

				result, err := engine.Chat(cmd.Context(), sessionID, line)
				if err != nil {
					switch {
					case qerrors.IsNoRelevantContext(err):
						fmt.Println("I couldn't find anything in the leases about that.")
					case qerrors.IsRetrievalUnavailable(err):
						fmt.Println("Search is temporarily unavailable, please try again.")
					default:
						fmt.Fprintln(os.Stderr, "Error:", err)
					}
					continue
				}

				sessionID = result.SessionID

				fmt.Println(result.Answer)
				if result.ActiveEntity != "" {
					fmt.Printf("  [discussing: %s]\n", result.ActiveEntity)
				}
				if result.UsedQuery != line {
					fmt.Printf("  [searched for: %s]\n", result.UsedQuery)
				}
			}

			return scanner.Err()
		},
	}

	return cmd
}
