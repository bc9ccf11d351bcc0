package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/majorcontext/codexrelay/internal/codexaccount"
)

var usageCmd = &cobra.Command{
	Use:   "usage [account-id]",
	Short: "Show rate-limit usage for one or all accounts",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runUsage,
}

var usageRefreshAllCmd = &cobra.Command{
	Use:   "refresh-all",
	Short: "Refresh usage for every stored account",
	RunE:  runUsageRefreshAll,
}

func init() {
	rootCmd.AddCommand(usageCmd)
	usageCmd.AddCommand(usageRefreshAllCmd)
}

func runUsage(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		snap, err := svc.GetUsage(context.Background(), args[0])
		if err != nil {
			return err
		}
		return printUsage([]codexaccount.UsageSnapshot{snap})
	}
	return runUsageRefreshAll(cmd, args)
}

func runUsageRefreshAll(cmd *cobra.Command, args []string) error {
	svc, err := newService()
	if err != nil {
		return err
	}
	snapshots, err := svc.RefreshAllUsage(context.Background())
	if err != nil {
		return err
	}
	return printUsage(snapshots)
}

func printUsage(snapshots []codexaccount.UsageSnapshot) error {
	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(snapshots)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tPRIMARY %\tSECONDARY %\tCREDITS\tERROR")
	for _, s := range snapshots {
		primary, secondary, credits := "-", "-", "-"
		if s.PrimaryUsedPercent != nil {
			primary = fmt.Sprintf("%.1f", *s.PrimaryUsedPercent)
		}
		if s.SecondaryUsedPercent != nil {
			secondary = fmt.Sprintf("%.1f", *s.SecondaryUsedPercent)
		}
		if s.CreditsBalance != "" {
			credits = s.CreditsBalance
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.AccountID, primary, secondary, credits, s.Error)
	}
	return w.Flush()
}
