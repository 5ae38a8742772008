package dex

import "math/big"

// TokenTransfer is the DEX abstract token-transfer record from spec.md
// §3, shaped after a Snowtrace/Etherscan "tokentx" row.
type TokenTransfer struct {
	Hash                string
	BlockNumber         int64
	TimestampUnix       int64
	From                string
	To                  string
	Value               *big.Int // integer in smallest unit
	TokenSymbol         string
	TokenDecimal        int32
	Gas                 int64
	GasPrice            int64
	GasUsed             int64
	CumulativeGasUsed   int64
}

// InternalTx is a synthesized value transfer from contract execution, per
// spec.md §3/§GLOSSARY.
type InternalTx struct {
	To    string
	Value *big.Int
}
