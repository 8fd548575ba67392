package openfoodfacts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeProduct(t *testing.T) *Product {
	t.Helper()
	var envelope productResponse
	require.NoError(t, json.Unmarshal([]byte(nutellaResponse), &envelope))
	var product Product
	require.NoError(t, json.Unmarshal(envelope.Product, &product))
	return &product
}

func TestMapToFacts(t *testing.T) {
	facts := MapToFacts(decodeProduct(t), "3017620422003")

	assert.Equal(t, "3017620422003", facts.Barcode)
	assert.Equal(t, "Nutella", facts.Name)
	assert.Equal(t, "Ferrero", facts.Brand)
	assert.Equal(t, 4, facts.NovaGroup)
	assert.Equal(t, "100g", facts.NutritionDataPer)

	require.NotNil(t, facts.Nutrients.EnergyKcal)
	assert.Equal(t, 539.0, *facts.Nutrients.EnergyKcal)
	require.NotNil(t, facts.Nutrients.Salt)
	assert.Equal(t, 0.107, *facts.Nutrients.Salt, "numeric strings are accepted")
	assert.Nil(t, facts.Nutrients.Fiber)

	assert.Equal(t, []string{"E322"}, facts.AdditiveCodes)
	assert.Len(t, facts.Ingredients, 3, "additives are not counted as ingredients")
	assert.True(t, facts.ContainsPalmOil)
	assert.Equal(t, []string{"hazelnut", "milk", "nuts"}, facts.Allergens)
	require.NotNil(t, facts.ServingSizeGrams)
	assert.Equal(t, 15.0, *facts.ServingSizeGrams)
}

func TestMapToFacts_Defaults(t *testing.T) {
	facts := MapToFacts(&Product{}, "123")

	assert.Equal(t, "Unknown", facts.Name)
	assert.Equal(t, "Unknown", facts.Brand)
	assert.Zero(t, facts.NovaGroup)
	assert.Nil(t, facts.Completeness)
	assert.Nil(t, facts.ServingSizeGrams)
	assert.Empty(t, facts.Allergens)
	assert.False(t, facts.ContainsPalmOil)
}

func TestMapToFacts_AdditivesFromIngredients(t *testing.T) {
	facts := MapToFacts(&Product{
		Ingredients: []Ingredient{
			{ID: "en:flour", Text: "flour", Ingredients: []Ingredient{
				{ID: "en:e300", Text: "ascorbic acid"},
			}},
			{ID: "en:e330", Text: "citric acid"},
			{ID: "en:e330", Text: "citric acid"},
		},
	}, "123")

	assert.Equal(t, []string{"E300", "E330"}, facts.AdditiveCodes)
	assert.Len(t, facts.Ingredients, 1)
}

func TestMapToFacts_NonFiniteNutrientsAreMissing(t *testing.T) {
	facts := MapToFacts(&Product{
		Nutriments: map[string]any{
			"salt":          "nan",
			"fat":           "Infinity",
			"saturated-fat": "-inf",
			"sugars":        10.6,
		},
	}, "123")

	assert.Nil(t, facts.Nutrients.Salt)
	assert.Nil(t, facts.Nutrients.Fat)
	assert.Nil(t, facts.Nutrients.SaturatedFat)
	require.NotNil(t, facts.Nutrients.Sugars)
	assert.Equal(t, 10.6, *facts.Nutrients.Sugars)
}

func TestToFloat(t *testing.T) {
	testCases := []struct {
		in   any
		want float64
		ok   bool
	}{
		{12.5, 12.5, true},
		{3, 3, true},
		{" 0.25 ", 0.25, true},
		{"nan", 0, false},
		{"NaN", 0, false},
		{"inf", 0, false},
		{"+Infinity", 0, false},
		{"abc", 0, false},
		{nil, 0, false},
	}

	for _, tc := range testCases {
		got, ok := toFloat(tc.in)
		assert.Equal(t, tc.ok, ok, "toFloat(%v)", tc.in)
		assert.Equal(t, tc.want, got, "toFloat(%v)", tc.in)
	}
}

func TestIsJunk(t *testing.T) {
	testCases := []struct {
		ing  Ingredient
		want bool
	}{
		{Ingredient{Text: "Marketed by Foo Ltd"}, true},
		{Ingredient{Text: "12345"}, true},
		{Ingredient{Text: "open"}, true},
		{Ingredient{Text: "this is some very long OCR noise text from a label", IsInTaxonomy: 0.0, PercentEstimate: 0.0}, true},
		{Ingredient{Text: "this is some very long ingredient name that is real", IsInTaxonomy: 1.0, PercentEstimate: 0.0}, false},
		{Ingredient{Text: "sugar"}, false},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.want, isJunk(tc.ing), tc.ing.Text)
	}
}

func TestDetectAllergens(t *testing.T) {
	got := detectAllergens("Wheat flour, SESAME seeds", []string{"en:peanuts"}, []string{"en:gluten"})
	assert.Equal(t, []string{"gluten", "peanut", "sesame", "wheat"}, got)
}

func TestServingSizeGrams(t *testing.T) {
	assert.Equal(t, 25.5, *servingSizeGrams("2 biscuits (25.5g)"))
	assert.Equal(t, 30.0, *servingSizeGrams("30 G"))
	assert.Nil(t, servingSizeGrams("1 cup"))
	assert.Nil(t, servingSizeGrams(""))
}
