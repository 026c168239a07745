package main

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

type globalOptions struct {
	baseURL   string
	timeout   time.Duration
	token     string
	accountID string
	role      string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "poolledger-cli",
		Short:         "PoolLedger CLI tool",
		Long:          `A command line interface for operating the PoolLedger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", envOr("POOLLEDGER_URL", "http://localhost:8080"), "Base URL of the PoolLedger API")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("POOLLEDGER_TOKEN"), "Bearer token")
	rootCmd.PersistentFlags().StringVar(&opts.accountID, "as", "admin", "Caller account ID when the server runs without token auth")
	rootCmd.PersistentFlags().StringVar(&opts.role, "role", "admin", "Caller role when the server runs without token auth (admin needs DEV_HEADER_ADMIN)")

	rootCmd.AddCommand(
		ledgerCmd(opts),
		accountsCmd(opts),
		withdrawalsCmd(opts),
		tokenCmd(opts),
		auditCmd(opts),
		faucetCmd(),
		migrateCmd(),
	)
	return rootCmd
}

func ledgerCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "consistency",
		Short: "Check ledger consistency",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result map[string]any
			if err := newAPIClient(opts).get(cmd.Context(), "/api/v1/admin/consistency", &result); err != nil {
				return fmt.Errorf("consistency check FAILED: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Consistency check PASSED")
			return nil
		},
	})

	var limit int
	reconcile := &cobra.Command{
		Use:   "reconcile [account-id]",
		Short: "Compare balances with the transaction log",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(opts)
			var result map[string]any
			path := fmt.Sprintf("/api/v1/admin/reconciliation?limit=%d", limit)
			if len(args) == 1 {
				path = "/api/v1/admin/accounts/" + args[0] + "/reconciliation"
			}
			if err := client.get(cmd.Context(), path, &result); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	reconcile.Flags().IntVar(&limit, "limit", 100, "Maximum discrepancies to list")
	cmd.AddCommand(reconcile)

	return cmd
}

func accountsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Account administration",
	}

	var id, name, address string
	create := &cobra.Command{
		Use:   "create",
		Short: "Provision an account bound to a deposit address",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result map[string]any
			body := map[string]string{"id": id, "name": name, "deposit_address": address}
			if err := newAPIClient(opts).post(cmd.Context(), "/api/v1/admin/accounts/", body, &result); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	create.Flags().StringVar(&id, "id", "", "Account ID (generated when empty)")
	create.Flags().StringVar(&name, "name", "", "Display name")
	create.Flags().StringVar(&address, "address", "", "Custodial deposit address")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("address")

	get := &cobra.Command{
		Use:   "get <account-id>",
		Short: "Show an account summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result map[string]any
			if err := newAPIClient(opts).get(cmd.Context(), "/api/v1/admin/accounts/"+args[0], &result); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.AddCommand(create, get)
	return cmd
}

func withdrawalsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdrawals",
		Short: "Withdrawal disposition",
	}

	var status, accountID string
	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List withdrawal requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/api/v1/admin/withdrawals/?status=%s&account_id=%s&limit=%d", status, accountID, limit)
			var result []withdrawalRow
			if err := newAPIClient(opts).get(cmd.Context(), path, &result); err != nil {
				return err
			}
			printWithdrawals(cmd.OutOrStdout(), result)
			return nil
		},
	}
	list.Flags().StringVar(&status, "status", "pending", "Filter by status")
	list.Flags().StringVar(&accountID, "account", "", "Filter by account")
	list.Flags().IntVar(&limit, "limit", 50, "Page size")

	dispose := func(action string) *cobra.Command {
		return &cobra.Command{
			Use:   action + " <withdrawal-id>",
			Short: "Mark a pending withdrawal " + action + "d",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var result map[string]any
				path := "/api/v1/admin/withdrawals/" + args[0] + "/" + action
				if err := newAPIClient(opts).post(cmd.Context(), path, nil, &result); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			},
		}
	}

	cmd.AddCommand(list, dispose("approve"), dispose("reject"))
	return cmd
}

func tokenCmd(opts *globalOptions) *cobra.Command {
	var role, email string
	cmd := &cobra.Command{
		Use:   "token <account-id>",
		Short: "Issue an access token for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result struct {
				Token string `json:"token"`
			}
			body := map[string]string{"account_id": args[0], "role": role, "email": email}
			if err := newAPIClient(opts).post(cmd.Context(), "/api/v1/admin/tokens", body, &result); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "token-role", "investor", "Role embedded in the token")
	cmd.Flags().StringVar(&email, "email", "", "Email embedded in the token")
	return cmd
}

func auditCmd(opts *globalOptions) *cobra.Command {
	var action, resourceID string
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List administrative audit logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("limit", strconv.Itoa(limit))
			if action != "" {
				q.Set("action", action)
			}
			if resourceID != "" {
				q.Set("resource_id", resourceID)
			}
			var result []map[string]any
			if err := newAPIClient(opts).get(cmd.Context(), "/api/v1/admin/audit-logs?"+q.Encode(), &result); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&action, "action", "", "Filter by action, e.g. withdrawal.approve")
	cmd.Flags().StringVar(&resourceID, "resource", "", "Filter by resource ID")
	cmd.Flags().IntVar(&limit, "limit", 50, "Page size")
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
