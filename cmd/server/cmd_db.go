package main

import (
	"fmt"
	"strconv"

	"github.com/diewo77/go-faktur/auth"
	"github.com/diewo77/go-faktur/internal/db"
	"github.com/diewo77/go-faktur/internal/models"
	"github.com/spf13/cobra"
)

// faktur migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, conn, err := boot()
		if err != nil {
			return err
		}
		if err := db.Migrate(conn, cfg.Database, true); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Migrations completed successfully")
		return nil
	},
}

// faktur seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the default user, parties and catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, conn, err := boot()
		if err != nil {
			return err
		}
		if err := db.Migrate(conn, cfg.Database, cfg.App.Migrations); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		if err := db.Seed(conn); err != nil {
			return fmt.Errorf("seeding failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Seeding completed successfully")
		return nil
	},
}

// faktur token <user-id>
var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Print a bearer token for an existing user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		uid, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil || uid == 0 {
			return fmt.Errorf("invalid user id %q", args[0])
		}
		cfg, conn, err := boot()
		if err != nil {
			return err
		}
		var user models.User
		if err := conn.First(&user, uid).Error; err != nil {
			return fmt.Errorf("user %d: %w", uid, err)
		}
		token, err := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL).Issue(user.ID)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}
