package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEveryEnumValueHasPresentation(t *testing.T) {
	for _, s := range TicketStatuses {
		assert.NotEqual(t, string(s), s.Label(), "status %s", s)
		assert.NotEqual(t, FallbackColor, s.Color(), "status %s", s)
	}
	for _, p := range TicketPriorities {
		assert.NotEqual(t, string(p), p.Label(), "priority %s", p)
		assert.NotEqual(t, FallbackColor, p.Color(), "priority %s", p)
	}
	for _, c := range TicketCategories {
		assert.NotEqual(t, string(c), c.Label(), "category %s", c)
	}
	for _, r := range Roles {
		assert.NotEqual(t, "Usuario", r.Label(), "role %s", r)
	}
}

func TestUnknownValuesFallBack(t *testing.T) {
	assert.Equal(t, FallbackColor, TicketStatus("cancelled").Color())
	assert.Equal(t, "Usuario", Role("").Label())
	assert.Equal(t, "help-circle", Role("").Icon())
	assert.False(t, Role("").Valid())
	assert.False(t, TicketCategory("equipment").Valid())
}

func TestIsColorLight(t *testing.T) {
	tests := []struct {
		color string
		want  bool
	}{
		{"#FFFFFF", true},
		{"#FF9800", true},
		{"#2196F3", false},
		{"#1B5E20", false},
		{"#000000", false},
		{"red", false},
		{"#FFF", false},
		{"#GGGGGG", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsColorLight(tt.color), tt.color)
	}
	assert.Equal(t, "#000000", TextColorOn("#FFFFFF"))
	assert.Equal(t, "#FFFFFF", TextColorOn(TicketStatusOpen.Color()))
}
