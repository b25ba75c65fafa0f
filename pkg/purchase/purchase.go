// Package purchase defines the normalized representation of a decoded
// on-chain product purchase. A Record is constructed once by the decoder and
// is immutable afterwards.
package purchase

// Item describes the listed product as read from the Product contract.
type Item struct {
	// Name is the product name
	Name string
	// Description is the product description
	Description string
	// Category is the marketplace category
	Category string
	// UnitPrice is the purchase price in ether units, as an exact decimal
	// string (no float rounding)
	UnitPrice string
	// RoyaltyPercentage is the creator royalty as an integer string; "0"
	// when the contract defines none
	RoyaltyPercentage string
}

// NFTReference identifies the tokenized asset transferred by the purchase.
type NFTReference struct {
	// ContractAddress is the NFT contract address
	ContractAddress string
	// TokenId is the token identifier within that contract
	TokenId string
}

// Record is the normalized result of decoding one purchase transaction.
type Record struct {
	// TransactionHash is the 32-byte transaction identifier, the unique key
	// for the whole pipeline run
	TransactionHash string
	// ContractAddress is the Product sale contract instance the transaction
	// called (not the factory)
	ContractAddress string
	// BuyerAddress is the purchasing account; sourced from the purchase
	// event when present, otherwise the transaction sender
	BuyerAddress string
	// SellerAddress is the selling account as recorded on the contract
	SellerAddress string
	// Item holds the listing fields
	Item Item
	// NFTReference identifies the transferred token
	NFTReference NFTReference
}
