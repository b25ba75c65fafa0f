// Package agreement renders the ownership-transfer agreement for a decoded
// purchase as a single-page PDF. Rendering is pure computation; no I/O.
package agreement

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/nexagreement/agreementd/pkg/attestation"
	"github.com/nexagreement/agreementd/pkg/purchase"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrMissingData is returned when the record lacks a field the agreement
// cannot be generated without. It indicates the decoder/synthesizer contract
// was violated.
var ErrMissingData = errors.New("missing required data for agreement generation")

// US Letter, measured in points.
const (
	pageWidth  = 612.0
	pageHeight = 792.0
	margin     = 50.0
	lineHeight = 20.0
)

var whitespacePattern = regexp.MustCompile(`\s+`)

// Document is the rendered agreement.
type Document struct {
	// Content is the raw PDF
	Content []byte
	// DataUri is the base64-encoded PDF wrapped in a data URI, the transport
	// encoding consumed by the publisher
	DataUri string
	// Filename is the suggested download filename, derived from the item
	// name and the generation date
	Filename string
}

type Generator struct {
	Logger *zap.Logger
}

func NewGenerator(l *zap.Logger) *Generator {
	return &Generator{
		Logger: l,
	}
}

// line is one rendered row of the agreement body.
type line struct {
	text string
	bold bool
	size float64
	// spacing is the number of line heights to advance after this row
	spacing float64
}

func bodyLine(text string) line {
	return line{text: text, size: 12, spacing: 1}
}

func headingLine(text string) line {
	return line{text: text, bold: true, size: 12, spacing: 1}
}

// endOfSection marks the last row of a section, which is followed by a
// blank row.
func endOfSection(l line) line {
	l.spacing = 2
	return l
}

// Generate renders the agreement for the given record. The attestation
// result may be nil; its section is included only when the attestation
// succeeded.
func (g *Generator) Generate(record *purchase.Record, att *attestation.Result, now time.Time) (*Document, error) {
	if record == nil ||
		record.BuyerAddress == "" ||
		record.SellerAddress == "" ||
		record.ContractAddress == "" ||
		record.TransactionHash == "" {
		return nil, ErrMissingData
	}

	generationDate := now.Format("January 2, 2006")
	lines := buildLines(record, att, generationDate)

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: pageWidth, Ht: pageHeight},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	currentY := margin + lineHeight
	for _, l := range lines {
		style := ""
		if l.bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, l.size)
		pdf.SetTextColor(0, 0, 0)
		pdf.Text(margin, currentY, l.text)
		currentY += lineHeight * l.spacing
	}

	// Footer: truncated transaction hash in a smaller, lighter typeface.
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(127, 127, 127)
	pdf.Text(margin, pageHeight-margin, fmt.Sprintf("Transaction Hash: %s...", truncateHash(record.TransactionHash)))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		g.Logger.Sugar().Errorw("Failed to render agreement pdf",
			zap.String("transactionHash", record.TransactionHash),
			zap.Error(err),
		)
		return nil, errors.Wrap(err, "failed to render agreement pdf")
	}

	content := buf.Bytes()
	document := &Document{
		Content:  content,
		DataUri:  "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(content),
		Filename: buildFilename(record.Item.Name, generationDate),
	}

	g.Logger.Sugar().Debugw("Generated agreement document",
		zap.String("transactionHash", record.TransactionHash),
		zap.String("filename", document.Filename),
		zap.Int("bytes", len(document.Content)),
	)
	return document, nil
}

// buildLines assembles the agreement body in its fixed section order. The
// royalty section appears only for a positive royalty percentage, and the
// attestation section only for a successful attestation.
func buildLines(record *purchase.Record, att *attestation.Result, generationDate string) []line {
	lines := []line{
		endOfSection(line{text: "DIGITAL ASSET OWNERSHIP TRANSFER AGREEMENT", bold: true, size: 16, spacing: 1}),
		endOfSection(bodyLine(fmt.Sprintf("Date: %s", generationDate))),

		bodyLine(`This Digital Asset Ownership Transfer Agreement (the "Agreement") is entered into on the date above by and between:`),
		bodyLine(fmt.Sprintf(`%s (the "Seller")`, record.SellerAddress)),
		endOfSection(bodyLine(fmt.Sprintf(`%s (the "Buyer")`, record.BuyerAddress))),

		headingLine("1. ASSET DETAILS"),
		bodyLine(fmt.Sprintf("   Product Name: %s", record.Item.Name)),
		bodyLine(fmt.Sprintf("   Category: %s", record.Item.Category)),
		endOfSection(bodyLine(fmt.Sprintf("   Description: %s", record.Item.Description))),

		headingLine("2. TRANSACTION DETAILS"),
		bodyLine(fmt.Sprintf("   Purchase Price: %s ETH", record.Item.UnitPrice)),
		bodyLine(fmt.Sprintf("   NFT Contract Address: %s", record.NFTReference.ContractAddress)),
		bodyLine(fmt.Sprintf("   NFT Token ID: %s", record.NFTReference.TokenId)),
		bodyLine(fmt.Sprintf("   Product Sale Contract Address: %s", record.ContractAddress)),
		endOfSection(bodyLine(fmt.Sprintf("   Transaction Hash: %s", record.TransactionHash))),

		headingLine("3. OWNERSHIP TRANSFER"),
		bodyLine("   The Seller hereby transfers all rights, title, and interest in the digital asset to the Buyer."),
		endOfSection(bodyLine("   The Buyer acknowledges receipt of the digital asset and accepts all rights and responsibilities associated with ownership.")),

		headingLine("4. REPRESENTATIONS AND WARRANTIES"),
		bodyLine("   The Seller represents and warrants that they are the lawful owner of the digital asset and have the right to transfer it."),
		endOfSection(bodyLine("   The Buyer acknowledges that they have inspected the digital asset and are satisfied with its condition.")),
	}

	if royalty := parseRoyaltyPercentage(record.Item.RoyaltyPercentage); royalty > 0 {
		lines = append(lines,
			headingLine("5. ROYALTY PROVISIONS"),
			bodyLine(fmt.Sprintf("   The Buyer acknowledges that a royalty of %d%% will be paid to the original creator", royalty)),
			endOfSection(bodyLine("   upon any subsequent sale of this digital asset, as encoded in the smart contract.")),
		)
	}

	lines = append(lines,
		headingLine("6. BLOCKCHAIN VERIFICATION"),
		bodyLine("   This transfer is verified and recorded on the blockchain through the transaction referenced above."),
		endOfSection(bodyLine("   Both parties acknowledge that this blockchain record serves as proof of this ownership transfer agreement.")),
	)

	if att != nil && att.Success {
		lines = append(lines,
			headingLine("7. CROSS-CHAIN ATTESTATION"),
			bodyLine("   This transaction has been verified by Flare Data Connector (FDC), providing cross-chain attestation"),
			bodyLine("   of the transaction's authenticity and immutability."),
			bodyLine(fmt.Sprintf("   Attestation Round ID: %s", att.RoundId)),
			endOfSection(bodyLine(fmt.Sprintf("   Verification Link: %s", att.AttestationLink))),
		)
	}

	lines = append(lines,
		bodyLine("SELLER SIGNATURE:"),
		endOfSection(bodyLine(fmt.Sprintf("Address: %s", record.SellerAddress))),
		bodyLine("BUYER SIGNATURE:"),
		endOfSection(bodyLine(fmt.Sprintf("Address: %s", record.BuyerAddress))),
	)

	return lines
}

func parseRoyaltyPercentage(value string) int64 {
	if value == "" {
		return 0
	}
	royalty, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return royalty
}

func truncateHash(txHash string) string {
	if len(txHash) <= 40 {
		return txHash
	}
	return txHash[:40]
}

func buildFilename(itemName string, generationDate string) string {
	name := whitespacePattern.ReplaceAllString(itemName, "_")
	date := whitespacePattern.ReplaceAllString(generationDate, "_")
	return fmt.Sprintf("agreement_%s_%s.pdf", name, date)
}
