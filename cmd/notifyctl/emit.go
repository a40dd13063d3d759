package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	emitTenant    string
	emitUser      string
	emitBroadcast bool
	emitTitle     string
	emitMessage   string
	emitSubject   string
	emitActionURL string
)

var emitCmd = &cobra.Command{
	Use:   "emit <event>",
	Short: "Emit a business event to the notifications service",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		req := map[string]any{
			"event":      args[0],
			"tenant_id":  emitTenant,
			"user_id":    emitUser,
			"broadcast":  emitBroadcast,
			"title":      emitTitle,
			"message":    emitMessage,
			"subject_id": emitSubject,
			"action_url": emitActionURL,
		}
		body, _ := json.Marshal(req)

		resp, err := http.Post(serviceURL()+"/v1/events", "application/json", bytes.NewBuffer(body))
		if err != nil {
			fmt.Printf("Error connecting to notifications service: %v\n", err)
			return
		}
		defer resp.Body.Close()

		out, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 300 {
			fmt.Printf("Emit failed (%d): %s\n", resp.StatusCode, out)
			return
		}
		fmt.Println(string(out))
	},
}

func init() {
	emitCmd.Flags().StringVar(&emitTenant, "tenant", "", "tenant id (required)")
	emitCmd.Flags().StringVar(&emitUser, "user", "", "user id (omit with --broadcast)")
	emitCmd.Flags().BoolVar(&emitBroadcast, "broadcast", false, "fan out to all active users of the tenant")
	emitCmd.Flags().StringVar(&emitTitle, "title", "", "override the default title")
	emitCmd.Flags().StringVar(&emitMessage, "message", "", "override the default message")
	emitCmd.Flags().StringVar(&emitSubject, "subject", "", "subject id for deduplication")
	emitCmd.Flags().StringVar(&emitActionURL, "action-url", "", "action URL attached to the notification")
	emitCmd.MarkFlagRequired("tenant")
}
