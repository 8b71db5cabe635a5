package decimalx

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMean(t *testing.T) {
	testCases := []struct {
		name string
		ds   []decimal.Decimal
		want decimal.Decimal
	}{
		{name: "empty", ds: nil, want: decimal.Zero},
		{name: "single", ds: []decimal.Decimal{MustFromString("7.5")}, want: MustFromString("7.5")},
		{
			name: "many",
			ds:   []decimal.Decimal{decimal.NewFromInt(100), decimal.NewFromInt(200), decimal.NewFromInt(300)},
			want: decimal.NewFromInt(200),
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, tc.want.Equal(Mean(tc.ds)), "got %s", Mean(tc.ds))
		})
	}
}

func TestPctChange(t *testing.T) {
	pct, ok := PctChange(decimal.NewFromInt(100), decimal.NewFromInt(106))
	assert.True(t, ok)
	assert.True(t, pct.Equal(decimal.NewFromInt(6)))

	pct, ok = PctChange(decimal.NewFromInt(200), decimal.NewFromInt(150))
	assert.True(t, ok)
	assert.True(t, pct.Equal(decimal.NewFromInt(-25)))

	_, ok = PctChange(decimal.Zero, decimal.NewFromInt(1))
	assert.False(t, ok)
}

func TestParseAll(t *testing.T) {
	ds, err := ParseAll("1.5", "0", "-2")
	require.NoError(t, err)
	require.Len(t, ds, 3)
	assert.True(t, ds[0].Equal(decimal.NewFromFloat(1.5)))
	assert.True(t, ds[2].Equal(decimal.NewFromInt(-2)))

	_, err = ParseAll("1", "", "3")
	assert.ErrorContains(t, err, "#1")
}

func TestOrZero(t *testing.T) {
	assert.True(t, OrZero("0.10").Equal(decimal.New(1, -1)))
	assert.True(t, OrZero("").IsZero())
}

func TestMustFromString(t *testing.T) {
	assert.True(t, MustFromString("0.001").Equal(decimal.New(1, -3)))
	assert.Panics(t, func() { MustFromString("abc") })
}
