package cmd

import (
	"os"
	"strings"

	"github.com/nexagreement/agreementd/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "agreementd",
	Short: "Turns on-chain purchase transactions into published ownership-transfer agreements",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	initConfig()

	rootCmd.PersistentFlags().Bool(config.Debug, false, `"true" or "false"`)

	rootCmd.PersistentFlags().String(config.EthereumRpcBaseUrl, "", `e.g. "http://<hostname>:8545"`)

	rootCmd.PersistentFlags().String(config.VerifierBaseUrl, "https://fdc-verifiers-testnet.flare.network", `Attestation verifier base URL`)
	rootCmd.PersistentFlags().String(config.VerifierExplorerBaseUrl, "https://fdc-explorer-testnet.flare.network", `Attestation round explorer base URL`)
	rootCmd.PersistentFlags().Int(config.VerifierRoundPollSeconds, 5, `Seconds between attestation round finalization checks`)
	rootCmd.PersistentFlags().Int(config.VerifierRoundPollMax, 12, `Maximum number of attestation round finalization checks`)

	rootCmd.PersistentFlags().String(config.PinataBaseUrl, "https://api.pinata.cloud", `Pinata API base URL`)
	rootCmd.PersistentFlags().String(config.PinataJwt, "", `Pinata API JWT`)
	rootCmd.PersistentFlags().String(config.PinataGatewayUrl, "https://ipfs.io", `IPFS HTTP gateway used to resolve locators`)

	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		key := config.KebabToSnakeCase(f.Name)
		viper.BindPFlag(key, f) //nolint:errcheck
		viper.BindEnv(key)      //nolint:errcheck
	})
}

func initConfig() {
	viper.SetEnvPrefix(config.ENV_PREFIX)

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.AutomaticEnv()
}
