package sequentialProductCaller

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/nexagreement/agreementd/pkg/clients/ethereum"
	"github.com/nexagreement/agreementd/pkg/contractCaller"
	"go.uber.org/zap"
)

// SequentialProductCaller reads Product contract fields one eth_call at a
// time. The listing fields are informational, so each read falls back to its
// zero value on failure instead of aborting.
type SequentialProductCaller struct {
	EthereumClient *ethereum.Client
	Logger         *zap.Logger
}

func NewSequentialProductCaller(ec *ethereum.Client, l *zap.Logger) *SequentialProductCaller {
	return &SequentialProductCaller{
		EthereumClient: ec,
		Logger:         l,
	}
}

// GetProductDetails reads all listing fields from the Product contract at
// the given address.
func (spc *SequentialProductCaller) GetProductDetails(ctx context.Context, address string) (*contractCaller.ProductDetails, error) {
	productAbi, err := contractCaller.GetProductAbi()
	if err != nil {
		return nil, err
	}

	details := &contractCaller.ProductDetails{
		Name:              spc.readString(ctx, productAbi, address, "name"),
		Description:       spc.readString(ctx, productAbi, address, "description"),
		Category:          spc.readString(ctx, productAbi, address, "category"),
		Price:             spc.readBigInt(ctx, productAbi, address, "price"),
		TokenId:           spc.readBigInt(ctx, productAbi, address, "tokenId"),
		RoyaltyPercentage: spc.readBigInt(ctx, productAbi, address, "royaltyPercentage"),
		Seller:            spc.readAddress(ctx, productAbi, address, "seller"),
		ProductNFT:        spc.readAddress(ctx, productAbi, address, "productNFT"),
	}
	return details, nil
}

func (spc *SequentialProductCaller) callView(ctx context.Context, productAbi *abi.ABI, address string, method string) ([]interface{}, error) {
	data, err := productAbi.Pack(method)
	if err != nil {
		return nil, err
	}

	returnData, err := spc.EthereumClient.Call(ctx, address, hexutil.Encode(data))
	if err != nil {
		return nil, err
	}

	rawBytes, err := hexutil.Decode(returnData)
	if err != nil {
		return nil, err
	}

	return productAbi.Unpack(method, rawBytes)
}

func (spc *SequentialProductCaller) readString(ctx context.Context, productAbi *abi.ABI, address string, method string) string {
	results, err := spc.callView(ctx, productAbi, address, method)
	if err != nil || len(results) == 0 {
		spc.Logger.Sugar().Warnw("Failed to read contract field, using empty value",
			zap.String("contractAddress", address),
			zap.String("method", method),
			zap.Error(err),
		)
		return ""
	}
	value, ok := results[0].(string)
	if !ok {
		spc.Logger.Sugar().Warnw("Unexpected return type for contract field",
			zap.String("contractAddress", address),
			zap.String("method", method),
		)
		return ""
	}
	return value
}

func (spc *SequentialProductCaller) readBigInt(ctx context.Context, productAbi *abi.ABI, address string, method string) *big.Int {
	results, err := spc.callView(ctx, productAbi, address, method)
	if err != nil || len(results) == 0 {
		spc.Logger.Sugar().Warnw("Failed to read contract field, using zero value",
			zap.String("contractAddress", address),
			zap.String("method", method),
			zap.Error(err),
		)
		return big.NewInt(0)
	}
	value, ok := results[0].(*big.Int)
	if !ok || value == nil {
		spc.Logger.Sugar().Warnw("Unexpected return type for contract field",
			zap.String("contractAddress", address),
			zap.String("method", method),
		)
		return big.NewInt(0)
	}
	return value
}

func (spc *SequentialProductCaller) readAddress(ctx context.Context, productAbi *abi.ABI, address string, method string) common.Address {
	results, err := spc.callView(ctx, productAbi, address, method)
	if err != nil || len(results) == 0 {
		spc.Logger.Sugar().Warnw("Failed to read contract field, using zero address",
			zap.String("contractAddress", address),
			zap.String("method", method),
			zap.Error(err),
		)
		return common.Address{}
	}
	value, ok := results[0].(common.Address)
	if !ok {
		spc.Logger.Sugar().Warnw("Unexpected return type for contract field",
			zap.String("contractAddress", address),
			zap.String("method", method),
		)
		return common.Address{}
	}
	return value
}
