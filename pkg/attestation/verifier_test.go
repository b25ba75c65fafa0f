package attestation

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/nexagreement/agreementd/internal/logger"
	"github.com/stretchr/testify/assert"
)

const (
	verifierBaseUrl = "http://localhost:9500"
	explorerBaseUrl = "http://localhost:9501"
	verifierTxHash  = "0x9d4a1f3b6c8e2d7f0a5b9c3e1d6f8a2b4c7e0d3f5a8b1c4e7d0f3a6b9c2e5d8f"
)

func setup() *Verifier {
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	v := NewVerifier(&VerifierConfig{
		BaseUrl:          verifierBaseUrl,
		ExplorerBaseUrl:  explorerBaseUrl,
		RoundPollPeriod:  time.Millisecond,
		RoundPollMaximum: 3,
	}, l)
	v.SetHttpClient(&http.Client{
		Transport: httpmock.DefaultTransport,
	})
	return v
}

func registerPrepare(t *testing.T, encodedRequest string) {
	httpmock.RegisterResponder("POST", verifierBaseUrl+"/verifier/eth/EVMTransaction/prepareRequest",
		func(req *http.Request) (*http.Response, error) {
			body, _ := io.ReadAll(req.Body)
			request := &prepareRequest{}
			assert.Nil(t, json.Unmarshal(body, request))

			assert.True(t, strings.HasPrefix(request.AttestationType, "0x"))
			assert.Len(t, request.AttestationType, 66)
			assert.True(t, strings.HasPrefix(request.SourceId, "0x"))
			assert.Len(t, request.SourceId, 66)
			assert.Equal(t, verifierTxHash, request.RequestBody.TransactionHash)
			assert.Equal(t, "1", request.RequestBody.RequiredConfirmations)

			return httpmock.NewJsonResponse(200, map[string]interface{}{
				"status":            "VALID",
				"abiEncodedRequest": encodedRequest,
			})
		})
}

func Test_Verifier(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	t.Run("successful attestation", func(t *testing.T) {
		httpmock.Reset()
		v := setup()

		registerPrepare(t, "0xdeadbeef")
		httpmock.RegisterResponder("POST", verifierBaseUrl+"/verifier/submitAttestation",
			func(req *http.Request) (*http.Response, error) {
				body, _ := io.ReadAll(req.Body)
				request := &submitRequest{}
				assert.Nil(t, json.Unmarshal(body, request))
				assert.Equal(t, "0xdeadbeef", request.EncodedData)

				return httpmock.NewJsonResponse(200, map[string]interface{}{
					"votingRound": "812345",
				})
			})
		httpmock.RegisterResponder("GET", verifierBaseUrl+"/verifier/rounds/812345",
			httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{"finalized": true}))

		result := v.Verify(context.Background(), verifierTxHash)
		assert.True(t, result.Success)
		assert.Equal(t, "812345", result.RoundId)
		assert.Equal(t, explorerBaseUrl+"/rounds/812345", result.AttestationLink)
		assert.Empty(t, result.Error)
	})

	t.Run("round finalizes after a few polls", func(t *testing.T) {
		httpmock.Reset()
		v := setup()

		registerPrepare(t, "0xdeadbeef")
		httpmock.RegisterResponder("POST", verifierBaseUrl+"/verifier/submitAttestation",
			httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{"votingRound": "7"}))

		polls := 0
		httpmock.RegisterResponder("GET", verifierBaseUrl+"/verifier/rounds/7",
			func(req *http.Request) (*http.Response, error) {
				polls++
				return httpmock.NewJsonResponse(200, map[string]interface{}{"finalized": polls >= 3})
			})

		result := v.Verify(context.Background(), verifierTxHash)
		assert.True(t, result.Success)
		assert.Equal(t, 3, polls)
	})

	t.Run("prepare failure", func(t *testing.T) {
		httpmock.Reset()
		v := setup()

		httpmock.RegisterResponder("POST", verifierBaseUrl+"/verifier/eth/EVMTransaction/prepareRequest",
			httpmock.NewStringResponder(500, `internal error`))

		result := v.Verify(context.Background(), verifierTxHash)
		assert.False(t, result.Success)
		assert.Equal(t, "failed to prepare attestation request", result.Error)
		assert.Empty(t, result.AttestationLink)
	})

	t.Run("prepare returns no encoded request", func(t *testing.T) {
		httpmock.Reset()
		v := setup()

		httpmock.RegisterResponder("POST", verifierBaseUrl+"/verifier/eth/EVMTransaction/prepareRequest",
			httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{"status": "INVALID"}))

		result := v.Verify(context.Background(), verifierTxHash)
		assert.False(t, result.Success)
		assert.Equal(t, "failed to prepare attestation request", result.Error)
	})

	t.Run("submit failure", func(t *testing.T) {
		httpmock.Reset()
		v := setup()

		registerPrepare(t, "0xdeadbeef")
		httpmock.RegisterResponder("POST", verifierBaseUrl+"/verifier/submitAttestation",
			httpmock.NewStringResponder(502, `bad gateway`))

		result := v.Verify(context.Background(), verifierTxHash)
		assert.False(t, result.Success)
		assert.Equal(t, "failed to submit attestation request", result.Error)
	})

	t.Run("round never finalizes", func(t *testing.T) {
		httpmock.Reset()
		v := setup()

		registerPrepare(t, "0xdeadbeef")
		httpmock.RegisterResponder("POST", verifierBaseUrl+"/verifier/submitAttestation",
			httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{"votingRound": "9"}))
		httpmock.RegisterResponder("GET", verifierBaseUrl+"/verifier/rounds/9",
			httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{"finalized": false}))

		result := v.Verify(context.Background(), verifierTxHash)
		assert.False(t, result.Success)
		assert.Equal(t, "attestation round did not finalize in time", result.Error)

		info := httpmock.GetCallCountInfo()
		assert.Equal(t, 3, info["GET "+verifierBaseUrl+"/verifier/rounds/9"])
	})

	t.Run("cancelled context stops polling", func(t *testing.T) {
		httpmock.Reset()
		v := setup()

		registerPrepare(t, "0xdeadbeef")
		httpmock.RegisterResponder("POST", verifierBaseUrl+"/verifier/submitAttestation",
			httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{"votingRound": "11"}))

		ctx, cancel := context.WithCancel(context.Background())
		httpmock.RegisterResponder("GET", verifierBaseUrl+"/verifier/rounds/11",
			func(req *http.Request) (*http.Response, error) {
				cancel()
				return httpmock.NewJsonResponse(200, map[string]interface{}{"finalized": false})
			})

		result := v.Verify(ctx, verifierTxHash)
		assert.False(t, result.Success)
		assert.Equal(t, context.Canceled.Error(), result.Error)
	})

	t.Run("encodeTypeTag pads to 32 bytes", func(t *testing.T) {
		encoded := encodeTypeTag("EVMTransaction")
		assert.Len(t, encoded, 64)
		assert.True(t, strings.HasPrefix(encoded, "45564d5472616e73616374696f6e"))
		assert.True(t, strings.HasSuffix(encoded, "0000"))
	})
}
