// Package pinata is a client for the Pinata pinning API, used to persist
// agreement documents to IPFS.
package pinata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type PinataClientConfig struct {
	BaseUrl string
	Jwt     string
}

func DefaultPinataClientConfig() *PinataClientConfig {
	return &PinataClientConfig{
		BaseUrl: "https://api.pinata.cloud",
	}
}

func DefaultHttpClient() *http.Client {
	return &http.Client{
		Timeout: 60 * time.Second,
	}
}

type Client struct {
	config     *PinataClientConfig
	httpClient *http.Client
	Logger     *zap.Logger
}

func NewClient(cfg *PinataClientConfig, l *zap.Logger) *Client {
	return &Client{
		config:     cfg,
		httpClient: DefaultHttpClient(),
		Logger:     l,
	}
}

func (c *Client) SetHttpClient(client *http.Client) {
	c.httpClient = client
}

type pinFileResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int    `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// UploadFile pins the given content and returns the resulting CID.
func (c *Client) UploadFile(ctx context.Context, content []byte, filename string, mimeType string) (string, error) {
	var requestBody bytes.Buffer
	writer := multipart.NewWriter(&requestBody)

	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filename)))
	partHeader.Set("Content-Type", mimeType)

	part, err := writer.CreatePart(partHeader)
	if err != nil {
		return "", errors.Wrap(err, "failed to create multipart body")
	}
	if _, err := part.Write(content); err != nil {
		return "", errors.Wrap(err, "failed to write multipart body")
	}
	if err := writer.Close(); err != nil {
		return "", errors.Wrap(err, "failed to finalize multipart body")
	}

	url := strings.TrimSuffix(c.config.BaseUrl, "/") + "/pinning/pinFileToIPFS"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &requestBody)
	if err != nil {
		return "", errors.Wrap(err, "failed to create upload request")
	}
	req.Header.Set("Authorization", "Bearer "+c.config.Jwt)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.Logger.Sugar().Errorw("Upload request failed",
			zap.String("filename", filename),
			zap.Error(err),
		)
		return "", errors.Wrap(err, "upload request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read upload response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("pinata returned status %d: %s", resp.StatusCode, string(body))
	}

	response := &pinFileResponse{}
	if err := json.Unmarshal(body, response); err != nil {
		return "", errors.Wrap(err, "failed to parse upload response")
	}
	if response.IpfsHash == "" {
		return "", errors.New("pinata returned no content identifier")
	}

	c.Logger.Sugar().Debugw("Pinned file",
		zap.String("filename", filename),
		zap.String("cid", response.IpfsHash),
		zap.Int("pinSize", response.PinSize),
	)
	return response.IpfsHash, nil
}

func escapeQuotes(s string) string {
	return strings.NewReplacer("\\", "\\\\", `"`, "\\\"").Replace(s)
}
