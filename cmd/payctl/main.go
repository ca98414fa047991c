package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "payctl",
		Short:         "Developer tool for the payment aggregator",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("url", envOr("PAYCTL_URL", "http://localhost:8080"), "payment API base URL")

	root.AddCommand(signCmd())
	root.AddCommand(sendCmd())
	root.AddCommand(healthCmd())
	root.AddCommand(tokenCmd())
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
