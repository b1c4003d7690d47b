package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tagtalk/tagtalk/internal/classifier"
)

// NewClassifyCmd creates the classify command, which runs the pattern
// classifier locally without contacting a server. Useful for checking how an
// utterance will be interpreted.
func NewClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <utterance>",
		Short: "Classify an utterance locally",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			utterance := strings.Join(args, " ")
			result := classifier.NewPatternClassifier().Classify(utterance)

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return fmt.Errorf("failed to encode result: %w", err)
			}
			return nil
		},
	}
	return cmd
}
