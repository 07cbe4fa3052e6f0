package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"message-scheduler/internal/app"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "message-scheduler",
		Short:        "Schedule messages over HTTP and deliver them by email when due",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(configPath)
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a config file (default ./config.yaml or ./config/config.yaml)")

	if err := rootCmd.Execute(); err != nil {
		logrus.Fatalf("application error: %v", err)
	}
}
