package agreement

import (
	"strings"
	"testing"
	"time"

	"github.com/nexagreement/agreementd/internal/logger"
	"github.com/nexagreement/agreementd/pkg/attestation"
	"github.com/nexagreement/agreementd/pkg/purchase"
	"github.com/stretchr/testify/assert"
)

func testRecord() *purchase.Record {
	return &purchase.Record{
		TransactionHash: "0x9d4a1f3b6c8e2d7f0a5b9c3e1d6f8a2b4c7e0d3f5a8b1c4e7d0f3a6b9c2e5d8f",
		ContractAddress: "0x4444444444444444444444444444444444444444",
		BuyerAddress:    "0x1111111111111111111111111111111111111111",
		SellerAddress:   "0x3333333333333333333333333333333333333333",
		Item: purchase.Item{
			Name:              "Aurora Print",
			Description:       "Limited edition digital print",
			Category:          "Digital Art",
			UnitPrice:         "0.5",
			RoyaltyPercentage: "10",
		},
		NFTReference: purchase.NFTReference{
			ContractAddress: "0x5555555555555555555555555555555555555555",
			TokenId:         "7",
		},
	}
}

func lineTexts(lines []line) []string {
	texts := make([]string, 0, len(lines))
	for _, l := range lines {
		texts = append(texts, l.text)
	}
	return texts
}

func containsLine(lines []line, text string) bool {
	for _, l := range lines {
		if l.text == text {
			return true
		}
	}
	return false
}

func containsLinePrefix(lines []line, prefix string) bool {
	for _, l := range lines {
		if strings.HasPrefix(l.text, prefix) {
			return true
		}
	}
	return false
}

func Test_BuildLines(t *testing.T) {
	generationDate := "March 15, 2025"

	t.Run("fixed sections appear in order", func(t *testing.T) {
		lines := buildLines(testRecord(), nil, generationDate)
		texts := lineTexts(lines)

		assert.Equal(t, "DIGITAL ASSET OWNERSHIP TRANSFER AGREEMENT", texts[0])
		assert.True(t, lines[0].bold)
		assert.Equal(t, 16.0, lines[0].size)
		assert.Equal(t, "Date: March 15, 2025", texts[1])

		headings := []string{
			"1. ASSET DETAILS",
			"2. TRANSACTION DETAILS",
			"3. OWNERSHIP TRANSFER",
			"4. REPRESENTATIONS AND WARRANTIES",
			"5. ROYALTY PROVISIONS",
			"6. BLOCKCHAIN VERIFICATION",
		}
		previous := -1
		for _, heading := range headings {
			index := -1
			for i, text := range texts {
				if text == heading {
					index = i
					break
				}
			}
			assert.Greater(t, index, previous, "section %q out of order", heading)
			previous = index
		}
	})

	t.Run("transaction details reference the record", func(t *testing.T) {
		record := testRecord()
		lines := buildLines(record, nil, generationDate)

		assert.True(t, containsLine(lines, "   Product Name: Aurora Print"))
		assert.True(t, containsLine(lines, "   Purchase Price: 0.5 ETH"))
		assert.True(t, containsLine(lines, "   NFT Token ID: 7"))
		assert.True(t, containsLine(lines, "   Transaction Hash: "+record.TransactionHash))
		assert.True(t, containsLine(lines, `0x3333333333333333333333333333333333333333 (the "Seller")`))
		assert.True(t, containsLine(lines, `0x1111111111111111111111111111111111111111 (the "Buyer")`))
	})

	t.Run("royalty section only for positive royalty", func(t *testing.T) {
		record := testRecord()
		lines := buildLines(record, nil, generationDate)
		assert.True(t, containsLine(lines, "5. ROYALTY PROVISIONS"))
		assert.True(t, containsLinePrefix(lines, "   The Buyer acknowledges that a royalty of 10%"))

		record.Item.RoyaltyPercentage = "0"
		assert.False(t, containsLine(buildLines(record, nil, generationDate), "5. ROYALTY PROVISIONS"))

		record.Item.RoyaltyPercentage = ""
		assert.False(t, containsLine(buildLines(record, nil, generationDate), "5. ROYALTY PROVISIONS"))

		record.Item.RoyaltyPercentage = "not-a-number"
		assert.False(t, containsLine(buildLines(record, nil, generationDate), "5. ROYALTY PROVISIONS"))
	})

	t.Run("attestation section only for successful attestation", func(t *testing.T) {
		record := testRecord()

		assert.False(t, containsLine(buildLines(record, nil, generationDate), "7. CROSS-CHAIN ATTESTATION"))

		failed := &attestation.Result{Success: false, Error: "failed to prepare attestation request"}
		assert.False(t, containsLine(buildLines(record, failed, generationDate), "7. CROSS-CHAIN ATTESTATION"))

		succeeded := &attestation.Result{
			Success:         true,
			RoundId:         "812345",
			AttestationLink: "https://fdc-explorer-testnet.flare.network/rounds/812345",
		}
		lines := buildLines(record, succeeded, generationDate)
		assert.True(t, containsLine(lines, "7. CROSS-CHAIN ATTESTATION"))
		assert.True(t, containsLine(lines, "   Attestation Round ID: 812345"))
		assert.True(t, containsLine(lines, "   Verification Link: https://fdc-explorer-testnet.flare.network/rounds/812345"))
	})

	t.Run("signature blocks close the document", func(t *testing.T) {
		lines := buildLines(testRecord(), nil, generationDate)
		texts := lineTexts(lines)

		assert.Equal(t, "BUYER SIGNATURE:", texts[len(texts)-2])
		assert.Equal(t, "Address: 0x1111111111111111111111111111111111111111", texts[len(texts)-1])
	})
}

func Test_Generator(t *testing.T) {
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	g := NewGenerator(l)
	now := time.Date(2025, time.March, 15, 10, 30, 0, 0, time.UTC)

	t.Run("renders a pdf document", func(t *testing.T) {
		document, err := g.Generate(testRecord(), nil, now)
		assert.Nil(t, err)
		assert.NotNil(t, document)

		assert.True(t, len(document.Content) > 0)
		assert.Equal(t, "%PDF", string(document.Content[:4]))
		assert.True(t, strings.HasPrefix(document.DataUri, "data:application/pdf;base64,"))
	})

	t.Run("filename is derived from the item and date", func(t *testing.T) {
		document, err := g.Generate(testRecord(), nil, now)
		assert.Nil(t, err)
		assert.Equal(t, "agreement_Aurora_Print_March_15,_2025.pdf", document.Filename)
	})

	t.Run("missing fields are rejected", func(t *testing.T) {
		_, err := g.Generate(nil, nil, now)
		assert.Equal(t, ErrMissingData, err)

		incomplete := testRecord()
		incomplete.BuyerAddress = ""
		_, err = g.Generate(incomplete, nil, now)
		assert.Equal(t, ErrMissingData, err)

		incomplete = testRecord()
		incomplete.TransactionHash = ""
		_, err = g.Generate(incomplete, nil, now)
		assert.Equal(t, ErrMissingData, err)
	})

	t.Run("attestation changes the rendered output", func(t *testing.T) {
		plain, err := g.Generate(testRecord(), nil, now)
		assert.Nil(t, err)

		attested, err := g.Generate(testRecord(), &attestation.Result{
			Success: true,
			RoundId: "812345",
		}, now)
		assert.Nil(t, err)

		assert.NotEqual(t, plain.Content, attested.Content)
	})
}
