package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	auditpg "github.com/frahmantamala/performance-management/internal/audit/postgres"
)

var auditCmd = &cobra.Command{
	Use:   "audit [user-id]",
	Short: "Show recent session audit entries for a user",
	Long:  `Lists the most recent session lifecycle events (sign-ins, sign-outs, failures, denied navigations) recorded for a user`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		showRecentAudit(args[0])
	},
}

var auditListLimit int

func showRecentAudit(userID string) {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	db, err := initDB(config.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open gorm connection: %v\n", err)
		os.Exit(1)
	}

	repo := auditpg.NewRepository(gormDB)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entries, err := repo.RecentForUser(ctx, userID, auditListLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query audit entries: %v\n", err)
		os.Exit(1)
	}

	if len(entries) == 0 {
		fmt.Printf("No audit entries for user %s\n", userID)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "OCCURRED AT\tEVENT\tUSERNAME\tROLE")
	for _, entry := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			entry.OccurredAt.Format(time.RFC3339),
			entry.EventType,
			entry.Username,
			entry.Role)
	}
	w.Flush()
}

func init() {
	auditCmd.Flags().IntVar(&auditListLimit, "limit", 50, "Maximum number of entries to list")

	rootCmd.AddCommand(auditCmd)
}
