package main

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the users and rooms tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		return migrateDatabase(cmd.Context(), config.databaseConfig())
	},
}
