package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tagtalk/tagtalk/cmd/tagctl/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "tagctl",
		Short: "CLI for the tagtalk command service",
		Long:  "Send conversational tag commands to a tagtalk server and inspect classification",
	}

	rootCmd.AddCommand(commands.NewSendCmd())
	rootCmd.AddCommand(commands.NewClassifyCmd())
	rootCmd.AddCommand(commands.NewHealthCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
