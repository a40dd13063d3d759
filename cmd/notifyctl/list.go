package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	listTenant string
	listUser   string
	listLimit  int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's notifications, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		url := fmt.Sprintf("%s/v1/notifications?limit=%d", serviceURL(), listLimit)
		req, _ := http.NewRequest(http.MethodGet, url, nil)
		req.Header.Set("X-Tenant-ID", listTenant)
		req.Header.Set("X-User-ID", listUser)

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Printf("Error connecting to notifications service: %v\n", err)
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			fmt.Printf("List failed (%d)\n", resp.StatusCode)
			return
		}

		var body struct {
			Notifications []struct {
				ID             string `json:"id"`
				Event          string `json:"event"`
				Title          string `json:"title"`
				IsRead         bool   `json:"is_read"`
				DeliveryStatus string `json:"delivery_status"`
				RetryCount     int    `json:"retry_count"`
				CreatedAt      string `json:"created_at"`
			} `json:"notifications"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			fmt.Printf("Failed to decode response: %v\n", err)
			return
		}

		for _, n := range body.Notifications {
			read := " "
			if n.IsRead {
				read = "r"
			}
			fmt.Printf("%s [%s] %-20s %-9s retries=%d  %s\n",
				n.CreatedAt, read, n.Event, n.DeliveryStatus, n.RetryCount, n.Title)
		}
	},
}

func init() {
	listCmd.Flags().StringVar(&listTenant, "tenant", "", "tenant id (required)")
	listCmd.Flags().StringVar(&listUser, "user", "", "user id (required)")
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "maximum notifications to return")
	listCmd.MarkFlagRequired("tenant")
	listCmd.MarkFlagRequired("user")
}
