// Package publisher persists rendered agreement documents to
// content-addressed storage and resolves the resulting locators to
// fetchable HTTP URLs.
package publisher

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/nexagreement/agreementd/pkg/agreement"
	"github.com/nexagreement/agreementd/pkg/clients/pinata"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const ipfsScheme = "ipfs://"

const defaultMimeType = "application/octet-stream"

var dataUriPattern = regexp.MustCompile(`^data:(.*?);base64$`)

type PublisherConfig struct {
	// GatewayUrl is the HTTP gateway root used by ResolveToHttp, e.g.
	// "https://ipfs.io"
	GatewayUrl string
}

type Publisher struct {
	config       *PublisherConfig
	PinataClient *pinata.Client
	Logger       *zap.Logger
}

func NewPublisher(cfg *PublisherConfig, pc *pinata.Client, l *zap.Logger) *Publisher {
	return &Publisher{
		config:       cfg,
		PinataClient: pc,
		Logger:       l,
	}
}

// Publish uploads the document to content-addressed storage and returns the
// canonical ipfs:// locator. Upload failure is fatal to the pipeline; the
// underlying cause is preserved.
func (p *Publisher) Publish(ctx context.Context, document *agreement.Document) (string, error) {
	mimeType, payload, err := decodeDataUri(document.DataUri)
	if err != nil {
		return "", errors.Wrap(err, "invalid document data uri")
	}

	cid, err := p.PinataClient.UploadFile(ctx, payload, document.Filename, mimeType)
	if err != nil {
		return "", errors.Wrap(err, "failed to upload agreement document")
	}

	locator := ipfsScheme + cid
	p.Logger.Sugar().Infow("Published agreement document",
		zap.String("filename", document.Filename),
		zap.String("locator", locator),
	)
	return locator, nil
}

// ResolveToHttp rewrites an ipfs:// locator into a gateway URL. Inputs not
// carrying the ipfs scheme pass through unchanged; empty input yields empty
// output. No network call is made.
func (p *Publisher) ResolveToHttp(locator string) string {
	if locator == "" {
		return ""
	}
	if !strings.HasPrefix(locator, ipfsScheme) {
		return locator
	}
	return fmt.Sprintf("%s/ipfs/%s", strings.TrimSuffix(p.config.GatewayUrl, "/"), strings.TrimPrefix(locator, ipfsScheme))
}

// FilenameFromLocator extracts the trailing path segment of an ipfs://
// locator, or returns an empty string when the locator carries no filename.
func FilenameFromLocator(locator string) string {
	if !strings.HasPrefix(locator, ipfsScheme) {
		return ""
	}
	parts := strings.Split(locator, "/")
	if len(parts) <= 3 {
		return ""
	}
	decoded, err := url.PathUnescape(parts[len(parts)-1])
	if err != nil {
		return parts[len(parts)-1]
	}
	return decoded
}

// decodeDataUri splits a base64 data URI into its MIME type and payload.
// An unparseable header falls back to the generic octet-stream type.
func decodeDataUri(uri string) (string, []byte, error) {
	if !strings.HasPrefix(uri, "data:") {
		return "", nil, errors.New("not a data uri")
	}
	separator := strings.Index(uri, ",")
	if separator < 0 {
		return "", nil, errors.New("data uri has no payload")
	}

	mimeType := defaultMimeType
	if match := dataUriPattern.FindStringSubmatch(uri[:separator]); match != nil && match[1] != "" {
		mimeType = match[1]
	}

	payload, err := base64.StdEncoding.DecodeString(uri[separator+1:])
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to decode data uri payload")
	}
	return mimeType, payload, nil
}
