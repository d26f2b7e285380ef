package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	auditpg "github.com/frahmantamala/performance-management/internal/audit/postgres"
	"github.com/frahmantamala/performance-management/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start and manage background workers like the audit retention sweeper`,
}

// Audit retention worker command
var auditWorkerCmd = &cobra.Command{
	Use:   "audit",
	Short: "Start the audit retention worker",
	Long:  `Periodically deletes session audit entries older than the retention window`,
	Run: func(cmd *cobra.Command, args []string) {
		startAuditWorker()
	},
}

var (
	auditRetention     time.Duration
	auditSweepInterval time.Duration
)

func startAuditWorker() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	lg := logger.LoggerWrapper()

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

	lg.Info("audit retention worker started",
		"retention", auditRetention,
		"sweep_interval", auditSweepInterval)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(auditSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			deleted, err := repo.DeleteOlderThan(ctx, time.Now().Add(-auditRetention))
			cancel()
			if err != nil {
				lg.Error("audit sweep failed", "error", err)
				continue
			}
			lg.Info("audit sweep complete", "deleted", deleted)
		case sig := <-sigChan:
			lg.Info("received signal, shutting down audit worker", "signal", sig)
			return
		}
	}
}

func init() {
	auditWorkerCmd.Flags().DurationVar(&auditRetention, "retention", 90*24*time.Hour, "How long audit entries are kept")
	auditWorkerCmd.Flags().DurationVar(&auditSweepInterval, "sweep-interval", time.Hour, "How often the sweep runs")

	workerCmd.AddCommand(auditWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
