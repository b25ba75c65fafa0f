package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/nexagreement/agreementd/internal/config"
	"github.com/nexagreement/agreementd/internal/logger"
	"github.com/nexagreement/agreementd/internal/version"
	"github.com/nexagreement/agreementd/pkg/agreement"
	"github.com/nexagreement/agreementd/pkg/attestation"
	"github.com/nexagreement/agreementd/pkg/clients/ethereum"
	"github.com/nexagreement/agreementd/pkg/clients/pinata"
	"github.com/nexagreement/agreementd/pkg/contractCaller/sequentialProductCaller"
	"github.com/nexagreement/agreementd/pkg/decoder"
	"github.com/nexagreement/agreementd/pkg/pipeline"
	"github.com/nexagreement/agreementd/pkg/publisher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var processCmd = &cobra.Command{
	Use:   "process <transaction-hash>",
	Short: "Decode a purchase transaction, generate its agreement and publish it to IPFS",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.NewConfig()
		txHash := args[0]

		if cfg.EthereumRpcConfig.BaseUrl == "" {
			log.Fatalf("--%s is required", config.EthereumRpcBaseUrl)
		}
		if cfg.PinataConfig.Jwt == "" {
			log.Fatalf("--%s is required", config.PinataJwt)
		}

		l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})

		l.Sugar().Infow("agreementd process",
			zap.String("version", version.GetVersion()),
			zap.String("commit", version.GetCommit()),
			zap.String("transactionHash", txHash),
		)

		client := ethereum.NewClient(&ethereum.EthereumClientConfig{
			BaseUrl: cfg.EthereumRpcConfig.BaseUrl,
		}, l)

		productCaller := sequentialProductCaller.NewSequentialProductCaller(client, l)

		verifier := attestation.NewVerifier(&attestation.VerifierConfig{
			BaseUrl:          cfg.VerifierConfig.BaseUrl,
			ExplorerBaseUrl:  cfg.VerifierConfig.ExplorerBaseUrl,
			RoundPollPeriod:  cfg.VerifierConfig.RoundPollPeriod,
			RoundPollMaximum: cfg.VerifierConfig.RoundPollMaximum,
		}, l)

		pinataClient := pinata.NewClient(&pinata.PinataClientConfig{
			BaseUrl: cfg.PinataConfig.BaseUrl,
			Jwt:     cfg.PinataConfig.Jwt,
		}, l)

		pub := publisher.NewPublisher(&publisher.PublisherConfig{
			GatewayUrl: cfg.PinataConfig.GatewayUrl,
		}, pinataClient, l)

		p := pipeline.NewPipeline(
			decoder.NewDecoder(client, productCaller, l),
			verifier,
			agreement.NewGenerator(l),
			pub,
			l,
		)

		storageUrl, err := p.ProcessTransaction(context.Background(), txHash)
		if err != nil {
			l.Sugar().Fatalw("Failed to process transaction", zap.Error(err))
		}

		fmt.Println(storageUrl)
		fmt.Println(pub.ResolveToHttp(storageUrl))
	},
}
