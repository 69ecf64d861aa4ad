package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/conversions/internal/errors"
)

func TestParseOutcomeType(t *testing.T) {
	t.Run("accepts-every-known-value", func(t *testing.T) {
		known := []OutcomeType{
			OutcomeLeadQualified,
			OutcomeLeadDisqualified,
			OutcomeDealWon,
			OutcomeDealLost,
			OutcomePurchase,
			OutcomeRefund,
			OutcomeRetentionD7,
			OutcomeRetentionD30,
			OutcomeLtvUpdate,
		}
		for _, value := range known {
			parsed, err := ParseOutcomeType(value.String())
			require.NoError(t, err)
			require.Equal(t, value, parsed)
		}
	})

	t.Run("rejects-unknown-values", func(t *testing.T) {
		for _, value := range []string{"", "purchase", "PAGE_VIEW", "LEAD"} {
			_, err := ParseOutcomeType(value)
			require.Error(t, err, "value %q should be rejected", value)
			assert.ErrorIs(t, err, ErrUnknownOutcomeType)
			assert.ErrorIs(t, err, errors.ErrInvalidInput)
		}
	})
}

func TestOutcomeTypeIsPositive(t *testing.T) {
	positive := []OutcomeType{
		OutcomeLeadQualified, OutcomeDealWon, OutcomePurchase,
		OutcomeRetentionD7, OutcomeRetentionD30, OutcomeLtvUpdate,
	}
	negative := []OutcomeType{OutcomeLeadDisqualified, OutcomeDealLost, OutcomeRefund}

	for _, value := range positive {
		assert.True(t, value.IsPositive(), "%s should be positive", value)
	}
	for _, value := range negative {
		assert.False(t, value.IsPositive(), "%s should be negative", value)
	}
}
