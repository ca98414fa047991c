package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/josh-kwaku/payment-aggregator/internal/domain"
)

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show the router's view of provider health",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, _ := cmd.Flags().GetString("url")
			client := &http.Client{Timeout: 10 * time.Second}

			resp, err := client.Get(strings.TrimRight(base, "/") + "/api/v1/payments/health")
			if err != nil {
				return fmt.Errorf("fetch health: %w", err)
			}
			defer resp.Body.Close()

			var envelope struct {
				Success bool                    `json:"success"`
				Data    []domain.ProviderHealth `json:"data"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
				return fmt.Errorf("decode health: %w", err)
			}
			if !envelope.Success {
				return fmt.Errorf("health request failed with %s", resp.Status)
			}

			printHealth(cmd, envelope.Data)
			return nil
		},
	}
}

func printHealth(cmd *cobra.Command, providers []domain.ProviderHealth) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tHEALTHY\tFAILURES\tLATENCY\tLAST CHECKED")
	for _, p := range providers {
		latency := "-"
		if p.Sampled {
			latency = fmt.Sprintf("%dms", p.LastResponseTimeMs)
		}
		checked := "never"
		if !p.LastCheckedAt.IsZero() {
			checked = p.LastCheckedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%t\t%d\t%s\t%s\n", p.Provider, p.Healthy, p.ConsecutiveFailures, latency, checked)
	}
	tw.Flush()
}
