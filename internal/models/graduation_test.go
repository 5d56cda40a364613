package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierFor(t *testing.T) {
	tests := []struct {
		passRate float64
		want     CertificationTier
	}{
		{1.0, TierExpert},
		{0.95, TierExpert},
		{0.9499, TierProficient},
		{0.85, TierProficient},
		{0.8499, TierNovice},
		{0.0, TierNovice},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TierFor(tt.passRate), "pass rate %v", tt.passRate)
	}
}
