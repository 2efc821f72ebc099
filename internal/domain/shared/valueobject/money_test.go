package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney_CalculatePercentage(t *testing.T) {
	tests := []struct {
		name       string
		total      int64
		percentage string
		expected   string
	}{
		{"quarter of 100 million", 100_000_000, "25", "25000000"},
		{"half of 100 million", 100_000_000, "50", "50000000"},
		{"fractional percentage", 50_000_005, "33.33", "16666651.666665"},
		{"full amount", 75_000_000, "100", "75000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total := NewMoneyIDRFromInt(tt.total)
			pct, err := decimal.NewFromString(tt.percentage)
			require.NoError(t, err)

			result := total.CalculatePercentage(pct)

			expected, err := decimal.NewFromString(tt.expected)
			require.NoError(t, err)
			assert.True(t, result.Amount().Equal(expected),
				"expected %s, got %s", expected, result.Amount())
		})
	}
}

func TestMoney_CalculatePercentage_Rounded(t *testing.T) {
	total := NewMoneyIDRFromInt(50_000_005)
	pct := decimal.RequireFromString("33.33")

	result := total.CalculatePercentage(pct).Round(2)

	assert.True(t, result.Amount().Equal(decimal.RequireFromString("16666651.67")))
}

func TestMoney_Add(t *testing.T) {
	a := NewMoneyIDRFromInt(1000)
	b := NewMoneyIDRFromInt(500)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, sum.Amount().Equal(decimal.NewFromInt(1500)))
}

func TestMoney_Add_CurrencyMismatch(t *testing.T) {
	idr := NewMoneyIDRFromInt(1000)
	usd, err := NewMoney(decimal.NewFromInt(100), USD)
	require.NoError(t, err)

	_, err = idr.Add(usd)
	assert.Error(t, err)
}

func TestMoney_Divide_ByZero(t *testing.T) {
	m := NewMoneyIDRFromInt(1000)

	_, err := m.Divide(decimal.Zero)
	assert.Error(t, err)
}

func TestMoney_AllocateEqually(t *testing.T) {
	tests := []struct {
		name     string
		total    int64
		parts    int
		expected []int64
	}{
		{"even split", 900, 3, []int64{300, 300, 300}},
		{"remainder to first parts", 100, 3, []int64{34, 33, 33}},
		{"large rupiah amount", 50_000_000, 3, []int64{16_666_667, 16_666_667, 16_666_666}},
		{"single part", 777, 1, []int64{777}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMoneyIDRFromInt(tt.total)

			parts, err := m.AllocateEqually(tt.parts)
			require.NoError(t, err)
			require.Len(t, parts, len(tt.expected))

			sum := decimal.Zero
			for i, p := range parts {
				assert.True(t, p.Amount().Equal(decimal.NewFromInt(tt.expected[i])),
					"part %d: expected %d, got %s", i, tt.expected[i], p.Amount())
				sum = sum.Add(p.Amount())
			}
			assert.True(t, sum.Equal(m.Amount()), "parts must sum to the total")
		})
	}
}

func TestMoney_AllocateEqually_InvalidParts(t *testing.T) {
	m := NewMoneyIDRFromInt(100)

	_, err := m.AllocateEqually(0)
	assert.Error(t, err)
}

func TestMoney_Comparisons(t *testing.T) {
	small := NewMoneyIDRFromInt(100)
	big := NewMoneyIDRFromInt(200)

	less, err := small.LessThan(big)
	require.NoError(t, err)
	assert.True(t, less)

	greater, err := big.GreaterThan(small)
	require.NoError(t, err)
	assert.True(t, greater)

	assert.True(t, small.Equals(NewMoneyIDRFromInt(100)))
	assert.False(t, small.Equals(big))
}

func TestMoney_ScanAndValue(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan("12500.50"))
	assert.True(t, m.Amount().Equal(decimal.RequireFromString("12500.50")))
	assert.Equal(t, IDR, m.Currency())

	v, err := NewMoneyIDRFromInt(999).Value()
	require.NoError(t, err)
	assert.Equal(t, "999", v)
}
