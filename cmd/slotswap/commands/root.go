package commands

import (
	"github.com/spf13/cobra"
)

const ServiceName = "slotswap"

var dotEnvFile string

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           ServiceName,
		Short:         "Peer-to-peer calendar slot swapping service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&dotEnvFile, "env-file", "", "dotenv file to load before reading the environment")

	root.AddCommand(serveCmd(), migrateCmd())
	return root
}
