package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xraph/reel"
	"github.com/xraph/reel/id"
	"github.com/xraph/reel/quota"
)

var accountLimit int64

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage accounts",
}

var accountCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create an account with a monthly limit and print its first API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(r *reel.Reel) error {
			a, secret, err := r.ProvisionAccount(cmd.Context(), args[0], accountLimit)
			if err != nil {
				if a != nil {
					return fmt.Errorf("account %s created but incomplete: %w", a.ID, err)
				}
				return err
			}
			return printJSON(map[string]any{"account": a, "secret": secret})
		})
	},
}

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage API keys",
}

var keyIssueCmd = &cobra.Command{
	Use:   "issue ACCOUNT_ID",
	Short: "Issue a new API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		accountID, err := id.ParseAccountID(args[0])
		if err != nil {
			return err
		}
		return withEngine(cmd, func(r *reel.Reel) error {
			k, secret, err := r.IssueKey(cmd.Context(), accountID)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"key": k, "secret": secret})
		})
	},
}

var keyListCmd = &cobra.Command{
	Use:   "list ACCOUNT_ID",
	Short: "List an account's API keys",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		accountID, err := id.ParseAccountID(args[0])
		if err != nil {
			return err
		}
		return withEngine(cmd, func(r *reel.Reel) error {
			keys, err := r.ListKeys(cmd.Context(), accountID)
			if err != nil {
				return err
			}
			return printJSON(keys)
		})
	},
}

var keyRevokeCmd = &cobra.Command{
	Use:   "revoke KEY_ID",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keyID, err := id.ParseAPIKeyID(args[0])
		if err != nil {
			return err
		}
		return withEngine(cmd, func(r *reel.Reel) error {
			return r.RevokeKey(cmd.Context(), keyID)
		})
	},
}

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Inspect and change quotas",
}

var quotaGetCmd = &cobra.Command{
	Use:   "get ACCOUNT_ID",
	Short: "Show current usage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		accountID, err := id.ParseAccountID(args[0])
		if err != nil {
			return err
		}
		return withEngine(cmd, func(r *reel.Reel) error {
			q, err := r.Quota(cmd.Context(), accountID)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{
				"quota":     q,
				"remaining": q.Remaining(),
				"resets_at": quota.PeriodEnd(q.PeriodStart),
			})
		})
	},
}

var quotaSetCmd = &cobra.Command{
	Use:   "set ACCOUNT_ID",
	Short: "Set the monthly limit (-1 for unlimited)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		accountID, err := id.ParseAccountID(args[0])
		if err != nil {
			return err
		}
		return withEngine(cmd, func(r *reel.Reel) error {
			return r.SetQuota(cmd.Context(), accountID, accountLimit)
		})
	},
}

var quotaResetCmd = &cobra.Command{
	Use:   "reset ACCOUNT_ID",
	Short: "Zero the usage for the current period",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		accountID, err := id.ParseAccountID(args[0])
		if err != nil {
			return err
		}
		return withEngine(cmd, func(r *reel.Reel) error {
			return r.ResetQuota(cmd.Context(), accountID)
		})
	},
}

func withEngine(cmd *cobra.Command, fn func(*reel.Reel) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := openEngine(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = engine.Stop() }() //nolint:errcheck // best-effort close of a one-shot command

	return fn(engine)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func init() {
	accountCreateCmd.Flags().Int64Var(&accountLimit, "limit", 10, "monthly analysis limit (-1 for unlimited)")
	quotaSetCmd.Flags().Int64Var(&accountLimit, "limit", 10, "monthly analysis limit (-1 for unlimited)")
	_ = quotaSetCmd.MarkFlagRequired("limit")

	accountCmd.AddCommand(accountCreateCmd)
	keyCmd.AddCommand(keyIssueCmd, keyListCmd, keyRevokeCmd)
	quotaCmd.AddCommand(quotaGetCmd, quotaSetCmd, quotaResetCmd)
	rootCmd.AddCommand(accountCmd, keyCmd, quotaCmd)
}
