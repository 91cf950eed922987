package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireText(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		max     int
		wantErr string
	}{
		{name: "ok", value: "buy milk", max: 10},
		{name: "empty", value: "", wantErr: "cannot be empty"},
		{name: "whitespace", value: " \t ", wantErr: "only whitespace"},
		{name: "at limit", value: strings.Repeat("a", 10), max: 10},
		{name: "over limit", value: strings.Repeat("a", 11), max: 10, wantErr: "limit is 10"},
		{name: "runes not bytes", value: strings.Repeat("é", 10), max: 10},
		{name: "no limit", value: strings.Repeat("a", 1000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireText("description", tt.value, tt.max)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrValidation)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestRequireOneOf(t *testing.T) {
	type color string
	allowed := []color{"red", "green"}

	assert.NoError(t, RequireOneOf("color", color("red"), allowed))
	err := RequireOneOf("color", color("blue"), allowed)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorContains(t, err, `"blue" is not one of red, green`)
}

func TestGlobFilter(t *testing.T) {
	text := func(s string) string { return s }

	f, err := GlobFilter("", text)
	require.NoError(t, err)
	assert.Nil(t, f)

	f, err = GlobFilter("*Coffee*", text)
	require.NoError(t, err)
	assert.True(t, f("morning coffee with Ana"))
	assert.False(t, f("tea"))

	f, err = GlobFilter("{lunch,dinner}*", text)
	require.NoError(t, err)
	assert.True(t, f("Dinner out"))
	assert.False(t, f("breakfast"))

	_, err = GlobFilter("[unclosed", text)
	assert.ErrorIs(t, err, ErrValidation)
}
