package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/majorcontext/codexrelay/internal/codexaccount"
	"github.com/majorcontext/codexrelay/internal/ui"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage stored Codex/ChatGPT accounts",
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	RunE:  runAccountsList,
}

var accountsActiveCmd = &cobra.Command{
	Use:   "active",
	Short: "Show the currently active account",
	RunE:  runAccountsActive,
}

var accountsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an API-key account",
	Long: `Add a new account authenticated with an OpenAI API key.

When --label is omitted, the account is named Codex-<unix timestamp>.
When --api-key is omitted, the key is read from a hidden prompt.`,
	RunE: runAccountsAdd,
}

var accountsAddFileCmd = &cobra.Command{
	Use:   "add-file <auth.json>",
	Short: "Add an account by importing a foreign auth.json",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountsAddFile,
}

var accountsSwitchCmd = &cobra.Command{
	Use:   "switch <account-id>",
	Short: "Make an account active",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountsSwitch,
}

var accountsRemoveCmd = &cobra.Command{
	Use:     "rm <account-id>",
	Aliases: []string{"remove", "delete"},
	Short:   "Delete a stored account",
	Args:    cobra.ExactArgs(1),
	RunE:    runAccountsRemove,
}

var accountsRenameCmd = &cobra.Command{
	Use:   "rename <account-id> <new-name>",
	Short: "Rename a stored account",
	Args:  cobra.ExactArgs(2),
	RunE:  runAccountsRename,
}

var (
	addLabel  string
	addAPIKey string
	addName   string
)

func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.AddCommand(accountsListCmd, accountsActiveCmd, accountsAddCmd, accountsAddFileCmd,
		accountsSwitchCmd, accountsRemoveCmd, accountsRenameCmd)

	accountsAddCmd.Flags().StringVar(&addLabel, "label", "", "display name (default: Codex-<timestamp>)")
	accountsAddCmd.Flags().StringVar(&addAPIKey, "api-key", "", "OpenAI API key (prompted for if omitted)")

	accountsAddFileCmd.Flags().StringVar(&addName, "name", "", "display name for the imported account")
}

func runAccountsList(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	infos, err := svc.ListAccounts()
	if err != nil {
		return err
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(infos)
	}

	if len(infos) == 0 {
		fmt.Println("No accounts stored")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ACTIVE\tID\tNAME\tMODE\tEMAIL")
	for _, info := range infos {
		active := " "
		if info.IsActive {
			active = ui.OKTag()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", active, info.ID, info.Name, info.Mode, info.Email)
	}
	return w.Flush()
}

func runAccountsActive(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	info, err := svc.GetActiveAccount()
	if err != nil {
		return err
	}
	if info == nil {
		if jsonOut {
			return json.NewEncoder(os.Stdout).Encode(nil)
		}
		fmt.Println("No active account")
		return nil
	}
	return printAccount(*info)
}

func runAccountsAdd(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}

	key := addAPIKey
	if key == "" {
		label := addLabel
		if label == "" {
			label = "account"
		}
		key, err = ui.PromptForAPIKey(label)
		if err != nil {
			return err
		}
	}

	info, err := svc.AddAccount(addLabel, key)
	if err != nil {
		return err
	}
	return printAccount(info)
}

func runAccountsAddFile(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	name := addName
	if name == "" {
		name = "imported"
	}
	info, err := svc.AddAccountFromFile(args[0], name)
	if err != nil {
		return err
	}
	return printAccount(info)
}

func runAccountsSwitch(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	if err := svc.SwitchAccount(args[0]); err != nil {
		return err
	}
	ui.Info(fmt.Sprintf("switched to %s", args[0]))
	return nil
}

func runAccountsRemove(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	if err := svc.DeleteAccount(args[0]); err != nil {
		return err
	}
	ui.Info(fmt.Sprintf("deleted %s", args[0]))
	return nil
}

func runAccountsRename(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	if err := svc.RenameAccount(args[0], args[1]); err != nil {
		return err
	}
	ui.Info(fmt.Sprintf("renamed %s to %s", args[0], args[1]))
	return nil
}

func printAccount(info codexaccount.Info) error {
	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(info)
	}
	fmt.Printf("%s %s (%s) [%s]\n", ui.OKTag(), info.Name, info.ID, info.Mode)
	return nil
}
