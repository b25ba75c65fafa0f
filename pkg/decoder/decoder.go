// Package decoder turns a purchase transaction hash into a normalized
// purchase.Record. It validates the hash, fetches the transaction and its
// receipt, decodes the calldata against the Product ABI, reads the listing
// fields from the contract, and scans the receipt logs for the purchase
// event.
package decoder

import (
	"context"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/nexagreement/agreementd/pkg/clients/ethereum"
	"github.com/nexagreement/agreementd/pkg/contractCaller"
	"github.com/nexagreement/agreementd/pkg/purchase"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Decode failure modes, distinguishable by callers. "Not found" and "failed
// or pending" are deliberately separate so a caller can tell a hash that
// does not exist from one that reverted.
var (
	ErrInvalidTransactionHash = errors.New("invalid transaction hash format")
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrTransactionFailed      = errors.New("transaction failed or pending")
	ErrNotPurchase            = errors.New("transaction is not a product purchase")
)

var transactionHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

type Decoder struct {
	EthereumClient *ethereum.Client
	ProductCaller  contractCaller.IProductCaller
	Logger         *zap.Logger
}

func NewDecoder(ec *ethereum.Client, pc contractCaller.IProductCaller, l *zap.Logger) *Decoder {
	return &Decoder{
		EthereumClient: ec,
		ProductCaller:  pc,
		Logger:         l,
	}
}

// Decode fetches and decodes the purchase transaction with the given hash.
// Listing-field reads degrade to zero values; everything else is fatal.
func (d *Decoder) Decode(ctx context.Context, txHash string) (*purchase.Record, error) {
	if !transactionHashPattern.MatchString(txHash) {
		return nil, ErrInvalidTransactionHash
	}

	tx, err := d.EthereumClient.GetTransactionByHash(ctx, txHash)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch transaction")
	}
	if tx == nil {
		return nil, ErrTransactionNotFound
	}

	receipt, err := d.EthereumClient.GetTransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch transaction receipt")
	}
	if receipt == nil || !receipt.IsSuccessful() {
		return nil, ErrTransactionFailed
	}

	productAbi, err := contractCaller.GetProductAbi()
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse product abi")
	}

	if err := d.validatePurchaseCalldata(productAbi, tx.Input); err != nil {
		return nil, err
	}

	// The transaction target is the specific Product contract instance.
	details, err := d.ProductCaller.GetProductDetails(ctx, tx.To)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read product details")
	}

	// The purchase event is authoritative for the buyer when present; a
	// relayer may have been the transaction sender.
	buyer := common.HexToAddress(tx.From)
	if eventBuyer, found := d.findPurchaseEventBuyer(productAbi, receipt); found {
		buyer = eventBuyer
	} else {
		d.Logger.Sugar().Debugw("No purchase event found in receipt logs, defaulting buyer to sender",
			zap.String("transactionHash", txHash),
		)
	}

	record := &purchase.Record{
		TransactionHash: txHash,
		ContractAddress: common.HexToAddress(tx.To).String(),
		BuyerAddress:    buyer.String(),
		SellerAddress:   details.Seller.String(),
		Item: purchase.Item{
			Name:              details.Name,
			Description:       details.Description,
			Category:          details.Category,
			UnitPrice:         decimal.NewFromBigInt(details.Price, -18).String(),
			RoyaltyPercentage: details.RoyaltyPercentage.String(),
		},
		NFTReference: purchase.NFTReference{
			ContractAddress: details.ProductNFT.String(),
			TokenId:         details.TokenId.String(),
		},
	}

	d.Logger.Sugar().Infow("Decoded purchase transaction",
		zap.String("transactionHash", txHash),
		zap.String("contractAddress", record.ContractAddress),
		zap.String("buyer", record.BuyerAddress),
		zap.String("seller", record.SellerAddress),
	)

	return record, nil
}

func (d *Decoder) validatePurchaseCalldata(productAbi *abi.ABI, input string) error {
	inputBytes, err := hexutil.Decode(input)
	if err != nil || len(inputBytes) < 4 {
		return ErrNotPurchase
	}

	method, err := productAbi.MethodById(inputBytes[:4])
	if err != nil || method.Name != contractCaller.PurchaseMethodName {
		return ErrNotPurchase
	}
	return nil
}

func (d *Decoder) findPurchaseEventBuyer(productAbi *abi.ABI, receipt *ethereum.EthereumTransactionReceipt) (common.Address, bool) {
	event, exists := productAbi.Events[contractCaller.PurchaseEventName]
	if !exists {
		return common.Address{}, false
	}

	for _, lg := range receipt.Logs {
		if !strings.EqualFold(lg.Address, receipt.To) {
			continue
		}
		if len(lg.Topics) < 2 {
			continue
		}
		if common.HexToHash(lg.Topics[0]) != event.ID {
			continue
		}
		// buyer is the first indexed argument
		return common.HexToAddress(lg.Topics[1]), true
	}
	return common.Address{}, false
}
