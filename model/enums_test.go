package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTradeSide(t *testing.T) {
	side, err := ParseTradeSide("BUY")
	require.NoError(t, err)
	require.Equal(t, TradeSideBuy, side)

	_, err = ParseTradeSide("SIDEWAYS")
	require.Error(t, err)
}

func TestParseExchange(t *testing.T) {
	ex, err := ParseExchange("DEX")
	require.NoError(t, err)
	require.Equal(t, ExchangeDEX, ex)

	_, err = ParseExchange("FTX")
	require.Error(t, err)
}

func TestOrderType_IsLimitType(t *testing.T) {
	require.True(t, OrderTypeLimit.IsLimitType())
	require.True(t, OrderTypeLimitMaker.IsLimitType())
	require.False(t, OrderTypeMarket.IsLimitType())
}
