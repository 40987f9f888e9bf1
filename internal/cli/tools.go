package cli

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/gptbridge/pkg/llmutils"
	"github.com/effective-security/gptbridge/pkg/schema"
	"github.com/effective-security/gptbridge/tools"
	"github.com/spf13/cobra"
)

func newToolsCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Print the tool definitions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			defs := tools.Definitions()
			switch format {
			case "json":
				fmt.Fprintln(cmd.OutOrStdout(), llmutils.ToJSONIndent(defs))
			case "yaml":
				list := make([]map[string]any, 0, len(defs))
				for _, d := range defs {
					input, err := schema.ToMap(d.InputSchema)
					if err != nil {
						return err
					}
					list = append(list, map[string]any{
						"name":        d.Name,
						"description": d.Description,
						"inputSchema": input,
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), llmutils.ToYAML(list))
			default:
				return errors.Errorf("unsupported format: %s", format)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json|yaml")
	return cmd
}
