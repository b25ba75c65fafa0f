package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const ENV_PREFIX = "AGREEMENTD"

// Flag names shared between the cobra commands and viper bindings.
const (
	Debug = "debug"

	EthereumRpcBaseUrl = "ethereum.rpc-url"

	VerifierBaseUrl          = "verifier.base-url"
	VerifierExplorerBaseUrl  = "verifier.explorer-base-url"
	VerifierRoundPollSeconds = "verifier.round-poll-seconds"
	VerifierRoundPollMax     = "verifier.round-poll-max-attempts"

	PinataBaseUrl    = "pinata.base-url"
	PinataJwt        = "pinata.jwt"
	PinataGatewayUrl = "pinata.gateway-url"
)

type EthereumRpcConfig struct {
	BaseUrl string
}

type VerifierConfig struct {
	BaseUrl          string
	ExplorerBaseUrl  string
	RoundPollPeriod  time.Duration
	RoundPollMaximum int
}

type PinataConfig struct {
	BaseUrl    string
	Jwt        string
	GatewayUrl string
}

type Config struct {
	Debug             bool
	EthereumRpcConfig EthereumRpcConfig
	VerifierConfig    VerifierConfig
	PinataConfig      PinataConfig
}

// NewConfig reads all values from viper, which is expected to have been
// populated via bound cobra flags and AGREEMENTD_-prefixed environment
// variables (see cmd/root.go).
func NewConfig() *Config {
	return &Config{
		Debug: viper.GetBool(KebabToSnakeCase(Debug)),

		EthereumRpcConfig: EthereumRpcConfig{
			BaseUrl: viper.GetString(KebabToSnakeCase(EthereumRpcBaseUrl)),
		},

		VerifierConfig: VerifierConfig{
			BaseUrl:          viper.GetString(KebabToSnakeCase(VerifierBaseUrl)),
			ExplorerBaseUrl:  viper.GetString(KebabToSnakeCase(VerifierExplorerBaseUrl)),
			RoundPollPeriod:  time.Duration(viper.GetInt(KebabToSnakeCase(VerifierRoundPollSeconds))) * time.Second,
			RoundPollMaximum: viper.GetInt(KebabToSnakeCase(VerifierRoundPollMax)),
		},

		PinataConfig: PinataConfig{
			BaseUrl:    viper.GetString(KebabToSnakeCase(PinataBaseUrl)),
			Jwt:        viper.GetString(KebabToSnakeCase(PinataJwt)),
			GatewayUrl: viper.GetString(KebabToSnakeCase(PinataGatewayUrl)),
		},
	}
}

// KebabToSnakeCase converts a flag name like "ethereum.rpc-url" into the
// viper key used for environment binding ("ethereum.rpc_url").
func KebabToSnakeCase(str string) string {
	return strings.ReplaceAll(str, "-", "_")
}
