package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain", raw: "1000", want: "1000"},
		{name: "thousands separators", raw: "1,000", want: "1000"},
		{name: "large with separators", raw: "2,500,000", want: "2500000"},
		{name: "decimal point", raw: "1428.57", want: "1428.57"},
		{name: "surrounding whitespace", raw: " 42.5 ", want: "42.5"},
		{name: "won symbol", raw: "₩400,000", want: "400000"},
		{name: "dollar symbol", raw: "$1,234.56", want: "1234.56"},
		{name: "empty", raw: "", want: "0"},
		{name: "blank", raw: "   ", want: "0"},
		{name: "garbage", raw: "n/a", want: "0"},
		{name: "negative", raw: "-12.3", want: "-12.3"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseAmount(tc.raw)
			require.Equal(t, tc.want, got.String())
		})
	}
}
