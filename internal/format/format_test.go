package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBRL_Currency(t *testing.T) {
	f := BRL()

	tests := []struct {
		amount float64
		want   string
	}{
		{0, "R$ 0,00"},
		{7.5, "R$ 7,50"},
		{1234.5, "R$ 1.234,50"},
		{1234567.89, "R$ 1.234.567,89"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, f.Currency(tt.amount))
	}
}

func TestNewFormatter(t *testing.T) {
	f, err := NewFormatter("USD", "en-US")
	require.NoError(t, err)
	assert.Contains(t, f.Currency(10), "10")

	_, err = NewFormatter("???", "en-US")
	assert.Error(t, err)

	_, err = NewFormatter("USD", "not a locale!")
	assert.Error(t, err)
}

func TestFormatter_Number(t *testing.T) {
	f, err := NewFormatter("USD", "en-US")
	require.NoError(t, err)

	assert.Equal(t, "12.35", f.Number(12.346, 2))
	assert.Equal(t, "7", f.Int(7))
}
