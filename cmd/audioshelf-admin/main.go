// Command audioshelf-admin is an operator tool for tasks that should not go
// through the HTTP API: applying migrations and managing accounts directly
// against the database.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"audioshelf/internal/config"
	"audioshelf/internal/repository/postgres"
	"audioshelf/internal/service"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	root := &cobra.Command{
		Use:           "audioshelf-admin",
		Short:         "Administrative tool for an audioshelf instance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(migrateCmd(), createUserCmd(), listUsersCmd(), setAdminCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// connect opens the database from the same environment the server reads.
func connect(ctx context.Context) (*sql.DB, error) {
	cfg := config.Load()
	db, err := config.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return db, nil
}

func authFromDB(db *sql.DB) (*service.AuthService, error) {
	cfg := config.Load()
	userRepo := postgres.NewUserRepository(db)
	sessionRepo, err := postgres.NewSessionRepository(db)
	if err != nil {
		return nil, err
	}
	return service.NewAuthService(userRepo, sessionRepo, cfg.SessionTTL, config.RenewalThreshold), nil
}

// readPassword securely reads a password with masking
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println()
	return strings.TrimSpace(string(bytePassword)), nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			db, err := connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.Migrate(ctx, db); err != nil {
				return err
			}
			fmt.Println("Migrations applied.")
			return nil
		},
	}
}

func createUserCmd() *cobra.Command {
	var admin bool

	cmd := &cobra.Command{
		Use:   "create-user <username>",
		Short: "Create an account, prompting for the password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword("Password: ")
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			confirm, err := readPassword("Confirm password: ")
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			if password != confirm {
				return fmt.Errorf("passwords do not match")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			db, err := connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			auth, err := authFromDB(db)
			if err != nil {
				return err
			}

			user, err := auth.CreateUser(ctx, args[0], password, admin)
			if err != nil {
				return err
			}
			fmt.Printf("Created user %s (id %s, admin=%t)\n", user.Username, user.ID, user.Admin)
			return nil
		},
	}

	cmd.Flags().BoolVar(&admin, "admin", false, "grant the admin flag")
	return cmd
}

func listUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-users",
		Short: "List all accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			db, err := connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			auth, err := authFromDB(db)
			if err != nil {
				return err
			}

			users, err := auth.ListUsers(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUSERNAME\tADMIN\tCREATED")
			for _, u := range users {
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\n",
					u.ID, u.Username, u.Admin, u.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}

func setAdminCmd() *cobra.Command {
	var revoke bool

	cmd := &cobra.Command{
		Use:   "set-admin <user-id>",
		Short: "Grant (or revoke with --revoke) the admin flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			db, err := connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			auth, err := authFromDB(db)
			if err != nil {
				return err
			}

			admin := !revoke
			if err := auth.UpdateUser(ctx, args[0], nil, nil, &admin); err != nil {
				return err
			}
			fmt.Printf("User %s admin=%t\n", args[0], admin)
			return nil
		},
	}

	cmd.Flags().BoolVar(&revoke, "revoke", false, "revoke the admin flag instead of granting it")
	return cmd
}
