package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goran-ethernal/TokenLedger/pkg/config"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := config.JSONSchemaIndent()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	},
}
