package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProductDecodesBackendShapes(t *testing.T) {
	raw := `{
		"id": 12,
		"name": "Rolled Oats",
		"price": "149.00",
		"category_name": "Breakfast",
		"weight": 500,
		"fat": "6.5",
		"sugars": 1,
		"sodium": null,
		"health_restrictions": "diabetes, heart",
		"image_url": "oats.png",
		"tags": "ignored"
	}`

	var p Product
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	require.Equal(t, int64(12), p.ID)
	require.Equal(t, 149.0, p.Price)
	require.Equal(t, "500", p.Weight)
	require.Equal(t, 6.5, p.Fat)
	require.Zero(t, p.Sodium)
	require.Equal(t, []string{"diabetes", "heart"}, p.RestrictionTags())
	require.True(t, p.RestrictedFor("heart"))
	require.False(t, p.RestrictedFor("obesity"))
	require.True(t, p.RestrictedFor("HEART"))
}

func TestProductRejectsGarbageNumbers(t *testing.T) {
	var p Product
	err := json.Unmarshal([]byte(`{"id":1,"price":"cheap"}`), &p)
	require.Error(t, err)
}

func TestProductWithoutRestrictions(t *testing.T) {
	var p Product
	require.NoError(t, json.Unmarshal([]byte(`{"id":3,"name":"Water"}`), &p))
	require.Nil(t, p.RestrictionTags())
	require.False(t, p.RestrictedFor("diabetes"))
}

func TestLineFromProduct(t *testing.T) {
	line := LineFromProduct(Product{ID: 4, Name: "Tea", Price: 80, ImageURL: "/tea.png"})
	require.Equal(t, CartLine{ProductID: 4, Name: "Tea", Price: 80, Quantity: 1, ImageURL: "/tea.png"}, line)
	line.Quantity = 3
	require.Equal(t, 240.0, line.Subtotal())
}
