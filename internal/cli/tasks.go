// ABOUTME: Tasks command listing the registered task type catalogue
// ABOUTME: Shows what the built-in task runner can execute

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loferris/artificer/internal/tasks"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List available task types",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		registry := tasks.New(&tasks.Config{Logger: &logger})
		for _, taskType := range registry.Types() {
			fmt.Fprintln(os.Stdout, taskType)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tasksCmd)
}
