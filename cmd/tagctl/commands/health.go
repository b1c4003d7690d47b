package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

// NewHealthCmd creates the health command
func NewHealthCmd() *cobra.Command {
	var server string
	var extended bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			url := server + "/healthz"
			if extended {
				url += "?mode=extended"
			}

			client := &http.Client{Timeout: 10 * time.Second}
			resp, err := client.Get(url)
			if err != nil {
				return fmt.Errorf("failed to reach server: %w", err)
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

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("server unhealthy: %s", resp.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "Server base URL")
	cmd.Flags().BoolVar(&extended, "extended", false, "Include dependency checks")
	return cmd
}
