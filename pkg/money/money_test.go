package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Amount
		wantErr  bool
	}{
		{name: "whole amount", input: "1200", expected: 120000},
		{name: "two decimals", input: "1200.50", expected: 120050},
		{name: "one decimal", input: "5.5", expected: 550},
		{name: "zero", input: "0", expected: 0},
		{name: "three decimals rejected", input: "10.505", wantErr: true},
		{name: "not a number", input: "ten pesos", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "1200.50", Amount(120050).String())
	assert.Equal(t, "0.00", Amount(0).String())
	assert.Equal(t, "0.05", Amount(5).String())
	assert.Equal(t, "-38.00", Amount(-3800).String())
}
