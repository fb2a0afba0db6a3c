package erpcsv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	type testCase struct {
		name  string
		input string
		want  int64
	}

	tests := []testCase{
		{name: "Plain", input: "1234.56", want: 123456},
		{name: "PlainThousands", input: "1,234.56", want: 123456},
		{name: "European", input: "1.234,56", want: 123456},
		{name: "EuropeanNoThousands", input: "234,56", want: 23456},
		{name: "Integer", input: "1234", want: 123400},
		{name: "Whitespace", input: " 12.50 ", want: 1250},
		{name: "SingleDecimalPlace", input: "12.5", want: 1250},
		{name: "Zero", input: "0", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAmount(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("Garbage", func(t *testing.T) {
		_, err := parseAmount("n/a")
		assert.Error(t, err)
	})
}
