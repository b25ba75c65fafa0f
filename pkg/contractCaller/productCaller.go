package contractCaller

import (
	"context"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ProductAbi is the interface of a single Product sale contract deployed by
// the marketplace factory: the payable purchase entry point, the read-only
// listing fields, and the purchase event.
const ProductAbi = `[
  {"type": "function", "name": "purchase", "stateMutability": "payable", "inputs": [], "outputs": []},
  {"type": "function", "name": "name", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "string"}]},
  {"type": "function", "name": "description", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "string"}]},
  {"type": "function", "name": "category", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "string"}]},
  {"type": "function", "name": "price", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "uint256"}]},
  {"type": "function", "name": "tokenId", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "uint256"}]},
  {"type": "function", "name": "royaltyPercentage", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "uint256"}]},
  {"type": "function", "name": "seller", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "address"}]},
  {"type": "function", "name": "productNFT", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "address"}]},
  {"type": "function", "name": "isSold", "stateMutability": "view", "inputs": [], "outputs": [{"name": "", "type": "bool"}]},
  {"type": "event", "name": "ProductPurchased", "anonymous": false, "inputs": [
    {"name": "buyer", "type": "address", "indexed": true},
    {"name": "seller", "type": "address", "indexed": true},
    {"name": "price", "type": "uint256", "indexed": false}
  ]}
]`

// PurchaseMethodName is the only calldata target the pipeline accepts.
const PurchaseMethodName = "purchase"

// PurchaseEventName is the receipt event carrying the authoritative buyer.
const PurchaseEventName = "ProductPurchased"

var (
	parsedProductAbi    abi.ABI
	parsedProductAbiErr error
	parseProductAbiOnce sync.Once
)

// GetProductAbi returns the parsed Product ABI. Parsing happens once per
// process.
func GetProductAbi() (*abi.ABI, error) {
	parseProductAbiOnce.Do(func() {
		parsedProductAbi, parsedProductAbiErr = abi.JSON(strings.NewReader(ProductAbi))
	})
	if parsedProductAbiErr != nil {
		return nil, parsedProductAbiErr
	}
	return &parsedProductAbi, nil
}

// ProductDetails is the result of reading a Product contract's listing
// fields. Fields that could not be read carry their zero value.
type ProductDetails struct {
	Name              string
	Description       string
	Category          string
	Price             *big.Int
	TokenId           *big.Int
	RoyaltyPercentage *big.Int
	Seller            common.Address
	ProductNFT        common.Address
}

// IProductCaller defines read operations against a Product sale contract.
type IProductCaller interface {
	// GetProductDetails reads the listing fields from the contract at the
	// given address. Individual read failures degrade to zero values rather
	// than failing the whole read.
	GetProductDetails(ctx context.Context, address string) (*ProductDetails, error)
}
