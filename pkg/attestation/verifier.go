// Package attestation obtains a cross-chain attestation for a transaction
// from a Flare Data Connector style verifier service. The protocol is three
// phases: prepare the attestation request, submit it, then wait for the
// voting round to finalize. Every failure is captured in the returned
// Result; this step never fails the pipeline.
package attestation

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type VerifierConfig struct {
	// BaseUrl is the verifier service root, e.g.
	// "https://fdc-verifiers-testnet.flare.network"
	BaseUrl string
	// ExplorerBaseUrl is the round explorer used to build attestation links
	ExplorerBaseUrl string
	// RoundPollPeriod is the wait between round finalization checks
	RoundPollPeriod time.Duration
	// RoundPollMaximum bounds the number of finalization checks
	RoundPollMaximum int
}

func DefaultVerifierConfig() *VerifierConfig {
	return &VerifierConfig{
		BaseUrl:          "https://fdc-verifiers-testnet.flare.network",
		ExplorerBaseUrl:  "https://fdc-explorer-testnet.flare.network",
		RoundPollPeriod:  5 * time.Second,
		RoundPollMaximum: 12,
	}
}

func DefaultHttpClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
	}
}

// Result is the outcome of one attestation attempt. Success carries the
// round id and explorer link; failure carries the reason. A Result is never
// mutated after creation.
type Result struct {
	Success         bool
	AttestationLink string
	RoundId         string
	Error           string
}

type Verifier struct {
	config     *VerifierConfig
	httpClient *http.Client
	Logger     *zap.Logger
}

func NewVerifier(cfg *VerifierConfig, l *zap.Logger) *Verifier {
	return &Verifier{
		config:     cfg,
		httpClient: DefaultHttpClient(),
		Logger:     l,
	}
}

func (v *Verifier) SetHttpClient(client *http.Client) {
	v.httpClient = client
}

type attestationRequestBody struct {
	TransactionHash       string `json:"transactionHash"`
	RequiredConfirmations string `json:"requiredConfirmations"`
	ProvideInput          bool   `json:"provideInput"`
	ListEvents            bool   `json:"listEvents"`
	LogIndices            []int  `json:"logIndices"`
}

type prepareRequest struct {
	AttestationType string                 `json:"attestationType"`
	SourceId        string                 `json:"sourceId"`
	RequestBody     attestationRequestBody `json:"requestBody"`
}

type prepareResponse struct {
	Status            string `json:"status"`
	AbiEncodedRequest string `json:"abiEncodedRequest"`
}

type submitRequest struct {
	EncodedData string `json:"encodedData"`
}

type submitResponse struct {
	VotingRound string `json:"votingRound"`
}

type roundStatusResponse struct {
	Finalized bool `json:"finalized"`
}

// Verify runs the attestation protocol for the given transaction hash. It
// always returns a Result; network errors, non-2xx responses and missing
// fields all degrade to Success=false.
func (v *Verifier) Verify(ctx context.Context, txHash string) *Result {
	encodedRequest, err := v.prepare(ctx, txHash)
	if err != nil {
		v.Logger.Sugar().Warnw("Failed to prepare attestation request",
			zap.String("transactionHash", txHash),
			zap.Error(err),
		)
		return &Result{Success: false, Error: "failed to prepare attestation request"}
	}

	roundId, err := v.submit(ctx, encodedRequest)
	if err != nil {
		v.Logger.Sugar().Warnw("Failed to submit attestation request",
			zap.String("transactionHash", txHash),
			zap.Error(err),
		)
		return &Result{Success: false, Error: "failed to submit attestation request"}
	}

	if err := v.waitForRoundFinalization(ctx, roundId); err != nil {
		v.Logger.Sugar().Warnw("Attestation round did not finalize",
			zap.String("roundId", roundId),
			zap.Error(err),
		)
		return &Result{Success: false, Error: err.Error()}
	}

	result := &Result{
		Success:         true,
		RoundId:         roundId,
		AttestationLink: fmt.Sprintf("%s/rounds/%s", strings.TrimSuffix(v.config.ExplorerBaseUrl, "/"), roundId),
	}
	v.Logger.Sugar().Infow("Obtained attestation",
		zap.String("transactionHash", txHash),
		zap.String("roundId", roundId),
	)
	return result
}

func (v *Verifier) prepare(ctx context.Context, txHash string) (string, error) {
	request := &prepareRequest{
		AttestationType: "0x" + encodeTypeTag("EVMTransaction"),
		SourceId:        "0x" + encodeTypeTag("testETH"),
		RequestBody: attestationRequestBody{
			TransactionHash:       txHash,
			RequiredConfirmations: "1",
			ProvideInput:          true,
			ListEvents:            true,
			LogIndices:            []int{},
		},
	}

	response := &prepareResponse{}
	if err := v.postJson(ctx, "/verifier/eth/EVMTransaction/prepareRequest", request, response); err != nil {
		return "", err
	}
	if response.AbiEncodedRequest == "" {
		return "", errors.New("verifier returned no encoded request")
	}
	return response.AbiEncodedRequest, nil
}

func (v *Verifier) submit(ctx context.Context, encodedRequest string) (string, error) {
	response := &submitResponse{}
	if err := v.postJson(ctx, "/verifier/submitAttestation", &submitRequest{EncodedData: encodedRequest}, response); err != nil {
		return "", err
	}
	if response.VotingRound == "" {
		return "", errors.New("verifier returned no voting round id")
	}
	return response.VotingRound, nil
}

// waitForRoundFinalization polls the round status until it finalizes or the
// configured attempt budget runs out.
func (v *Verifier) waitForRoundFinalization(ctx context.Context, roundId string) error {
	for attempt := 0; attempt < v.config.RoundPollMaximum; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(v.config.RoundPollPeriod):
			}
		}

		status, err := v.getRoundStatus(ctx, roundId)
		if err != nil {
			v.Logger.Sugar().Debugw("Round status check failed",
				zap.String("roundId", roundId),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}
		if status.Finalized {
			return nil
		}
	}
	return errors.New("attestation round did not finalize in time")
}

func (v *Verifier) getRoundStatus(ctx context.Context, roundId string) (*roundStatusResponse, error) {
	url := fmt.Sprintf("%s/verifier/rounds/%s", strings.TrimSuffix(v.config.BaseUrl, "/"), roundId)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("verifier returned status %d", resp.StatusCode)
	}

	status := &roundStatusResponse{}
	if err := json.Unmarshal(body, status); err != nil {
		return nil, errors.Wrap(err, "failed to parse round status response")
	}
	return status, nil
}

func (v *Verifier) postJson(ctx context.Context, path string, request interface{}, response interface{}) error {
	requestBody, err := json.Marshal(request)
	if err != nil {
		return errors.Wrap(err, "failed to marshal request")
	}

	url := strings.TrimSuffix(v.config.BaseUrl, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("verifier returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, response); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	return nil
}

// encodeTypeTag hex-encodes an attestation type tag and zero-pads it to the
// 32-byte width the verifier expects.
func encodeTypeTag(tag string) string {
	encoded := hex.EncodeToString([]byte(tag))
	for len(encoded) < 64 {
		encoded += "0"
	}
	return encoded
}
