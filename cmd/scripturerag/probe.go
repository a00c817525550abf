package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/BaSui01/scripturerag/api"
	"github.com/BaSui01/scripturerag/llm/providers"
)

// =============================================================================
// 🏥 health / version 命令
// =============================================================================

var healthAddr string

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check a running server",
	Args:  cobra.NoArgs,
	RunE:  runHealthCheck,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("scripturerag %s\n", Version)
		cmd.Printf("  Build Time: %s\n", BuildTime)
		cmd.Printf("  Git Commit: %s\n", GitCommit)
	},
}

func init() {
	healthCmd.Flags().StringVar(&healthAddr, "addr", "http://localhost:8080", "server address")
	rootCmd.AddCommand(healthCmd, versionCmd)
}

func runHealthCheck(cmd *cobra.Command, _ []string) error {
	client := providers.NewHTTPClient(5 * time.Second)

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet,
		strings.TrimRight(healthAddr, "/")+"/api/health", nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer providers.SafeCloseBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed: status %d", resp.StatusCode)
	}

	var health api.StoreHealth
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("health check failed: decode response: %w", err)
	}

	cmd.Printf("%s (%d entries)\n", strings.ToUpper(health.Status), health.TotalEntries)
	names := make([]string, 0, len(health.Texts))
	for name := range health.Texts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cmd.Printf("  %-14s %6d\n", name, health.Texts[name])
	}
	return nil
}
