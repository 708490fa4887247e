// ABOUTME: Validate command checking workflow and graph definition files
// ABOUTME: Prints the structured validation result without executing anything

package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/loferris/artificer/internal/workflow/parser"
)

var validateGraph bool

var validateCmd = &cobra.Command{
	Use:   "validate <definition-file>",
	Short: "Validate a workflow or graph definition file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return validateFile(args[0])
	},
}

func init() {
	validateCmd.Flags().BoolVar(&validateGraph, "graph", false, "validate as a graph definition")
	rootCmd.AddCommand(validateCmd)
}

func validateFile(filename string) error {
	p := parser.New(afero.NewOsFs())

	var err error
	if validateGraph {
		_, err = p.ParseGraphFile(filename)
	} else {
		_, err = p.ParseWorkflowFile(filename)
	}

	result := map[string]any{"valid": err == nil}
	if err != nil {
		result["error"] = err.Error()
	}

	encoded, encodeErr := json.MarshalIndent(result, "", "  ")
	if encodeErr != nil {
		return encodeErr
	}
	fmt.Fprintln(os.Stdout, string(encoded))

	if err != nil {
		return newExitError(exitCode(err), err.Error())
	}
	logger.Info().Str("file", filename).Msg("Definition is valid")
	return nil
}
