// ABOUTME: Run command executing a workflow file or a registered workflow id
// ABOUTME: Loads inputs, runs synchronously, and prints the result as JSON

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/loferris/artificer/internal/engine"
	"github.com/loferris/artificer/internal/inputs"
	"github.com/loferris/artificer/internal/workflow/parser"
	"github.com/loferris/artificer/pkg/types"
)

var (
	runInputsFile string
	runInputSet   []string
	runStrictRefs bool
)

var runCmd = &cobra.Command{
	Use:   "run <workflow-file-or-id>",
	Short: "Execute a workflow synchronously",
	Long: `Run executes a workflow and prints its output as JSON.

The argument is either a path to a workflow definition file (YAML or
JSON) or the id of a pre-built workflow such as pdf-to-html.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runWorkflow(cmd.Context(), args[0])
	},
}

func init() {
	runCmd.Flags().StringVar(&runInputsFile, "inputs", "", "YAML or JSON file with workflow inputs")
	runCmd.Flags().StringArrayVar(&runInputSet, "input", nil, "workflow input override (key=value, repeatable)")
	runCmd.Flags().BoolVar(&runStrictRefs, "strict-refs", false, "fail on unresolvable references instead of passing null")
	rootCmd.AddCommand(runCmd)
}

func runWorkflow(ctx context.Context, target string) error {
	fs := afero.NewOsFs()

	workflowInputs, err := loadInputs(fs)
	if err != nil {
		return newExitError(ExitValidation, err.Error())
	}

	e, err := engine.New(&engine.Config{Logger: &logger, StrictRefs: runStrictRefs})
	if err != nil {
		return err
	}

	var result types.ExecutionResult
	if isFilePath(fs, target) {
		def, err := parser.New(fs).ParseWorkflowFile(target)
		if err != nil {
			return newExitError(exitCode(err), err.Error())
		}
		result = e.ExecuteDefinition(ctx, def, workflowInputs)
	} else {
		result = e.Execute(ctx, target, workflowInputs)
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(encoded))

	if !result.Success {
		return newExitError(classifyExecutionError(result.Error), "workflow failed: "+result.Error)
	}
	return nil
}

func loadInputs(fs afero.Fs) (map[string]any, error) {
	loaded := make(map[string]any)
	if runInputsFile != "" {
		var err error
		loaded, err = inputs.New(fs).LoadFile(runInputsFile)
		if err != nil {
			return nil, err
		}
	}
	return inputs.ApplyOverrides(loaded, runInputSet)
}

func isFilePath(fs afero.Fs, target string) bool {
	if strings.ContainsAny(target, "/\\") || strings.HasSuffix(target, ".yaml") ||
		strings.HasSuffix(target, ".yml") || strings.HasSuffix(target, ".json") {
		return true
	}
	exists, _ := afero.Exists(fs, target)
	return exists
}

// classifyExecutionError maps a failure message onto the exit code
// contract; execution results carry messages, not error values.
func classifyExecutionError(message string) int {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "validation error"):
		return ExitValidation
	case strings.Contains(lower, "not found"):
		return ExitNotFound
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline"):
		return ExitTimeout
	case strings.Contains(lower, "cancelled"):
		return ExitCancelled
	default:
		return ExitError
	}
}
