package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/engageflow/engageflow/pkg/engageflow"
)

var rootCmd = &cobra.Command{Use: "engageflow"}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the workflow engine and HTTP API",
	Run: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil {
			slog.Debug("No .env file found", "error", err)
		}
		engageflow.SetupLogger()
		if err := engageflow.Start(nil); err != nil {
			slog.Error("Engine exited with error", "error", err)
			os.Exit(1)
		}
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations and exit",
	Run: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil {
			slog.Debug("No .env file found", "error", err)
		}
		engageflow.SetupLogger()
		if err := engageflow.Migrate(); err != nil {
			fmt.Printf("Failed to apply migrations: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Migrations applied successfully")
	},
}

func main() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
