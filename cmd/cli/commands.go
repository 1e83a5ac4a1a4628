package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

var (
	teamA     []string
	teamB     []string
	winner    int
	actor     string
	dryRun    bool
	sortOrder string
)

func init() {
	settleCmd.Flags().StringSliceVar(&teamA, "team-a", nil, "Comma-separated player ids for team A (captain first)")
	settleCmd.Flags().StringSliceVar(&teamB, "team-b", nil, "Comma-separated player ids for team B (captain first)")
	settleCmd.Flags().IntVar(&winner, "winner", 1, "Winning team: 1 for team A, 2 for team B")
	settleCmd.Flags().StringVar(&actor, "by", "", "Id of the player or admin settling the match")
	settleCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute the settlement without writing it")

	previewCmd.Flags().StringSliceVar(&teamA, "team-a", nil, "Comma-separated player ids for team A")
	previewCmd.Flags().StringSliceVar(&teamB, "team-b", nil, "Comma-separated player ids for team B")

	revertCmd.Flags().StringVar(&actor, "by", "", "Id of the admin reverting the match")

	leaderboardCmd.Flags().StringVar(&sortOrder, "sort", "rating", "Leaderboard ordering: rating, wins, or captain_wins")

	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(matchesCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(settleCmd)
	rootCmd.AddCommand(revertCmd)
	rootCmd.AddCommand(metricsCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/health")
	},
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the player leaderboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/leaderboard?sort=" + url.QueryEscape(sortOrder))
	},
}

var matchesCmd = &cobra.Command{
	Use:   "matches [token]",
	Short: "List recent matches, or show one by token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return performGetRequest("/matches?token=" + url.QueryEscape(args[0]))
		}
		return performGetRequest("/matches")
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Preview the stakes of a prospective match",
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]any{
			"roster": map[string]any{"team_a": teamA, "team_b": teamB},
		}
		return performPostRequest("/preview", body)
	},
}

var settleCmd = &cobra.Command{
	Use:   "settle <token>",
	Short: "Settle a match with its outcome",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]any{
			"token":      args[0],
			"roster":     map[string]any{"team_a": teamA, "team_b": teamB},
			"winner":     winner,
			"settled_by": actor,
		}
		endpoint := "/settle"
		if dryRun {
			endpoint += "?dry_run=true"
		}
		return performPostRequest(endpoint, body)
	},
}

var revertCmd = &cobra.Command{
	Use:   "revert <token>",
	Short: "Revert a settled match",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]any{
			"token":    args[0],
			"actor_id": actor,
		}
		return performPostRequest("/revert", body)
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Get application metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performGetRequest("/metrics")
	},
}

func performGetRequest(endpoint string) error {
	url := host + endpoint
	fmt.Printf("Making request to %s\n", url)

	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	return printResponse(resp)
}

func performPostRequest(endpoint string, body any) error {
	url := host + endpoint
	fmt.Printf("Making request to %s\n", url)

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	return printResponse(resp)
}

func printResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	fmt.Printf("Status Code: %d\n", resp.StatusCode)
	fmt.Println("Response Body:")
	fmt.Println(string(body))

	return nil
}
