package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/erazemk/polyswap/internal/auth"
	"github.com/erazemk/polyswap/internal/store"
)

var (
	userPhoto string
	withToken bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		fmt.Printf("Schema is up to date (%s).\n", cfg.DBDriver)
		return nil
	},
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a user",
	Long: `Create a user and print its id.

Examples:
  polyswap user add "Ana Novak"
  polyswap user add "Ana Novak" --photo https://cdn.example/ana.jpg --token`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		ctx := cmd.Context()
		u, err := store.CreateUser(ctx, database, args[0], userPhoto)
		if err != nil {
			return err
		}
		fmt.Printf("User created: %s (%s)\n", u.Name, u.ID)

		if withToken {
			secret, err := jwtSecret(ctx, cfg, database)
			if err != nil {
				return err
			}
			tok, err := auth.GenerateToken(secret, u.ID, u.Name, cfg.TokenTTL)
			if err != nil {
				return err
			}
			fmt.Printf("Token: %s\n", tok)
		}
		return nil
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		users, err := store.ListUsers(cmd.Context(), database)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCREATED")
		for _, u := range users {
			fmt.Fprintf(w, "%s\t%s\t%s\n", u.ID, u.Name, u.CreatedAt.Format("2006-01-02"))
		}
		return w.Flush()
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue and revoke bearer tokens",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue <user-id>",
	Short: "Issue a bearer token for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		ctx := cmd.Context()
		u, err := store.GetUser(ctx, database, args[0])
		if err != nil {
			return err
		}
		if u == nil {
			return fmt.Errorf("user %s not found", args[0])
		}

		secret, err := jwtSecret(ctx, cfg, database)
		if err != nil {
			return err
		}
		tok, err := auth.GenerateToken(secret, u.ID, u.Name, cfg.TokenTTL)
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil
	},
}

var tokenRevokeCmd = &cobra.Command{
	Use:   "revoke <token>",
	Short: "Revoke a bearer token before it expires",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		ctx := cmd.Context()
		secret, err := jwtSecret(ctx, cfg, database)
		if err != nil {
			return err
		}
		claims, err := auth.ValidateToken(secret, args[0])
		if err != nil {
			return err
		}
		if claims.ID == "" {
			return fmt.Errorf("token has no id and cannot be revoked")
		}
		if err := store.RevokeToken(ctx, database, claims.ID, claims.ExpiresAt.Time); err != nil {
			return err
		}
		fmt.Printf("Token %s for user %s revoked.\n", claims.ID, claims.UserID())
		return nil
	},
}

var tokenPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Drop revocations whose tokens have expired",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		n, err := store.PurgeExpiredTokens(cmd.Context(), database, time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("Purged %d expired revocations.\n", n)
		return nil
	},
}

func init() {
	userAddCmd.Flags().StringVar(&userPhoto, "photo", "", "profile photo URL")
	userAddCmd.Flags().BoolVar(&withToken, "token", false, "also issue a bearer token")

	userCmd.AddCommand(userAddCmd, userListCmd)
	tokenCmd.AddCommand(tokenIssueCmd, tokenRevokeCmd, tokenPurgeCmd)
	rootCmd.AddCommand(migrateCmd, userCmd, tokenCmd)
}
