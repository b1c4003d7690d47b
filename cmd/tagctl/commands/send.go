package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// NewSendCmd creates the send command
func NewSendCmd() *cobra.Command {
	var server string
	var token string

	cmd := &cobra.Command{
		Use:   "send <utterance>",
		Short: "Send a conversational command to the server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				token = os.Getenv("TAGTALK_TOKEN")
			}
			if token == "" {
				return fmt.Errorf("--token or TAGTALK_TOKEN is required")
			}

			utterance := strings.Join(args, " ")
			body, err := json.Marshal(map[string]string{"text": utterance})
			if err != nil {
				return fmt.Errorf("failed to encode request: %w", err)
			}

			req, err := http.NewRequest(http.MethodPost, server+"/api/v1/commands", bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("failed to build request: %w", err)
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+token)

			client := &http.Client{Timeout: 30 * time.Second}
			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			defer func() {
				_ = resp.Body.Close()
			}()

			raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			if err != nil {
				return fmt.Errorf("failed to read response: %w", err)
			}

			var pretty bytes.Buffer
			if err := json.Indent(&pretty, raw, "", "  "); err != nil {
				fmt.Println(string(raw))
			} else {
				fmt.Println(pretty.String())
			}

			if resp.StatusCode >= 400 {
				return fmt.Errorf("server returned %s", resp.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "Server base URL")
	cmd.Flags().StringVar(&token, "token", "", "Bearer token (defaults to TAGTALK_TOKEN)")
	return cmd
}
