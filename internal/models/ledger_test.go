package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestSignedAmount(t *testing.T) {
	credit := LedgerEntry{Amount: decimal.NewFromInt(50), Direction: DirectionCredit}
	require.True(t, credit.SignedAmount().Equal(decimal.NewFromInt(50)))

	debit := LedgerEntry{Amount: decimal.NewFromInt(50), Direction: DirectionDebit}
	require.True(t, debit.SignedAmount().Equal(decimal.NewFromInt(-50)))
}
