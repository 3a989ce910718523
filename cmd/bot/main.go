package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/gestionbot/core/cmd/bot/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gestionbot",
		Short: "GestionBot Discord server",
		Long:  `GestionBot tracks clean and dirty money balances and merchandise stock through restricted Discord slash commands, with persistent state, live status messages and a history channel.`,
	}

	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewMigrateCommand())
	rootCmd.AddCommand(commands.NewStateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
