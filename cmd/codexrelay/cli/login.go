package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/majorcontext/codexrelay/internal/ui"
)

var loginWait bool

var loginCmd = &cobra.Command{
	Use:   "login [account-name]",
	Short: "Log in to a ChatGPT account via OAuth",
	Long: `Starts the PKCE login flow and binds a loopback callback server.
With --wait, blocks until the browser redirect completes and prints the
resulting account. Without it, prints the URL to open and returns
immediately; the flow completes in the background.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().BoolVar(&loginWait, "wait", false, "block until login completes")
}

func runLogin(cmd *cobra.Command, args []string) error {
	name := "ChatGPT"
	if len(args) == 1 {
		name = args[0]
	}

	svc, err := newService()
	if err != nil {
		return err
	}

	if loginWait {
		info, err := svc.StartOAuthAndWait(context.Background(), name)
		if err != nil {
			return err
		}
		if jsonOut {
			return json.NewEncoder(os.Stdout).Encode(info)
		}
		fmt.Printf("%s logged in as %s (%s)\n", ui.OKTag(), info.Name, info.Email)
		return nil
	}

	loginInfo, err := svc.StartOAuth(context.Background(), name)
	if err != nil {
		return err
	}
	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(loginInfo)
	}
	fmt.Printf("Open this URL to finish login:\n%s\n", loginInfo.AuthURL)
	return nil
}
