package openfoodfacts

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/unpackeat/backend/internal/domain"
)

// Product is the subset of an OpenFoodFacts product document we read
type Product struct {
	Code                   string         `json:"code"`
	ProductName            string         `json:"product_name"`
	Brands                 string         `json:"brands"`
	ImageURL               string         `json:"image_url"`
	Quantity               string         `json:"quantity"`
	CategoriesTags         []string       `json:"categories_tags"`
	Nutriments             map[string]any `json:"nutriments"`
	Ingredients            []Ingredient   `json:"ingredients"`
	IngredientsText        string         `json:"ingredients_text"`
	AdditivesTags          []string       `json:"additives_tags"`
	AllergensTags          []string       `json:"allergens_tags"`
	TracesTags             []string       `json:"traces_tags"`
	ServingSize            string         `json:"serving_size"`
	NutritionDataPer       string         `json:"nutrition_data_per"`
	NovaGroup              any            `json:"nova_group"`
	EcoscoreGrade          string         `json:"ecoscore_grade"`
	PackagingMaterialsTags []string       `json:"packaging_materials_tags"`
	LabelsTags             []string       `json:"labels_tags"`
	Completeness           any            `json:"completeness"`
}

// Ingredient is one node of the OpenFoodFacts ingredient tree
type Ingredient struct {
	ID              string       `json:"id"`
	Text            string       `json:"text"`
	PercentEstimate any          `json:"percent_estimate"`
	FromPalmOil     string       `json:"from_palm_oil"`
	IsInTaxonomy    any          `json:"is_in_taxonomy"`
	Ingredients     []Ingredient `json:"ingredients"`
}

var (
	junkPattern     = regexp.MustCompile(`(?i)do not buy|keep away|marketed by|survey no|anc no|allergen advice|^open$|^[0-9]+$|foundamaged|direct sunlight`)
	additivePattern = regexp.MustCompile(`^en:e\d+`)
	servingPattern  = regexp.MustCompile(`(\d+\.?\d*)\s*g`)
)

// Allergens looked for in ingredient text and trace tags
var commonAllergens = []string{
	"milk", "lactose",
	"soy", "soya",
	"egg",
	"wheat", "gluten",
	"almond", "cashew", "peanut", "groundnut",
	"sesame", "mustard", "hazelnut",
}

// MapToFacts converts an OpenFoodFacts product into normalized product facts
func MapToFacts(p *Product, barcode string) *domain.ProductFacts {
	flat := flattenIngredients(p.Ingredients)

	var ingredients []domain.Ingredient
	var fromIngredients []string
	for _, ing := range flat {
		if isJunk(ing) {
			continue
		}
		if isAdditive(ing) {
			fromIngredients = append(fromIngredients, ing.ID)
			continue
		}
		pct, _ := toFloat(ing.PercentEstimate)
		ingredients = append(ingredients, domain.Ingredient{
			Text:            strings.TrimSpace(ing.Text),
			PercentEstimate: pct,
		})
	}

	additiveTags := p.AdditivesTags
	if len(additiveTags) == 0 {
		additiveTags = fromIngredients
	}

	name := p.ProductName
	if name == "" {
		name = "Unknown"
	}
	brand := p.Brands
	if brand == "" {
		brand = "Unknown"
	}

	facts := &domain.ProductFacts{
		Barcode:          barcode,
		Name:             name,
		Brand:            brand,
		Quantity:         p.Quantity,
		ImageURL:         p.ImageURL,
		Categories:       p.CategoriesTags,
		Nutrients:        extractNutrients(p.Nutriments),
		IngredientsText:  p.IngredientsText,
		Ingredients:      ingredients,
		AdditiveCodes:    additiveCodes(additiveTags),
		ContainsPalmOil:  containsPalmOil(flat),
		Allergens:        detectAllergens(p.IngredientsText, p.TracesTags, p.AllergensTags),
		Labels:           p.LabelsTags,
		EcoscoreGrade:    p.EcoscoreGrade,
		Packaging:        p.PackagingMaterialsTags,
		ServingSize:      p.ServingSize,
		ServingSizeGrams: servingSizeGrams(p.ServingSize),
		NutritionDataPer: p.NutritionDataPer,
	}

	if nova, ok := toFloat(p.NovaGroup); ok {
		facts.NovaGroup = int(nova)
	}
	if completeness, ok := toFloat(p.Completeness); ok {
		facts.Completeness = &completeness
	}

	return facts
}

func extractNutrients(n map[string]any) domain.Nutrients {
	get := func(keys ...string) *float64 {
		for _, key := range keys {
			if v, ok := toFloat(n[key]); ok {
				return &v
			}
		}
		return nil
	}

	return domain.Nutrients{
		EnergyKcal:    get("energy-kcal", "energy-kcal_100g"),
		Fat:           get("fat"),
		SaturatedFat:  get("saturated-fat"),
		Carbohydrates: get("carbohydrates"),
		Sugars:        get("sugars"),
		Fiber:         get("fiber"),
		Protein:       get("proteins"),
		Salt:          get("salt"),
	}
}

func flattenIngredients(items []Ingredient) []Ingredient {
	var flat []Ingredient
	for _, ing := range items {
		flat = append(flat, ing)
		flat = append(flat, flattenIngredients(ing.Ingredients)...)
	}
	return flat
}

// isJunk reports ingredient entries that are packaging text or OCR noise
func isJunk(ing Ingredient) bool {
	text := strings.TrimSpace(ing.Text)
	if junkPattern.MatchString(text) {
		return true
	}

	inTaxonomy, ok := toFloat(ing.IsInTaxonomy)
	pct, hasPct := toFloat(ing.PercentEstimate)
	return ok && inTaxonomy == 0 && hasPct && pct == 0 && len(text) > 30
}

func isAdditive(ing Ingredient) bool {
	return additivePattern.MatchString(strings.ToLower(ing.ID))
}

func additiveCodes(tags []string) []string {
	var codes []string
	seen := make(map[string]bool)
	for _, tag := range tags {
		code := strings.ToUpper(strings.TrimPrefix(strings.ToLower(tag), "en:"))
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}
	return codes
}

func containsPalmOil(ingredients []Ingredient) bool {
	for _, ing := range ingredients {
		if ing.FromPalmOil == "yes" || ing.FromPalmOil == "maybe" ||
			strings.Contains(ing.ID, "palm") ||
			strings.Contains(strings.ToLower(ing.Text), "palm") {
			return true
		}
	}
	return false
}

func detectAllergens(text string, traces, tags []string) []string {
	text = strings.ToLower(text)
	detected := make(map[string]bool)

	for _, allergen := range commonAllergens {
		if strings.Contains(text, allergen) {
			detected[allergen] = true
			continue
		}
		for _, trace := range traces {
			if strings.Contains(trace, allergen) {
				detected[allergen] = true
				break
			}
		}
	}

	for _, tag := range tags {
		detected[strings.TrimPrefix(tag, "en:")] = true
	}

	allergens := make([]string, 0, len(detected))
	for allergen := range detected {
		allergens = append(allergens, allergen)
	}
	sort.Strings(allergens)

	return allergens
}

// servingSizeGrams extracts grams from strings like "15 g" or "2 biscuits (25.5g)"
func servingSizeGrams(serving string) *float64 {
	match := servingPattern.FindStringSubmatch(strings.ToLower(serving))
	if match == nil {
		return nil
	}
	grams, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return nil
	}
	return &grams
}

// toFloat accepts the numbers and numeric strings OpenFoodFacts mixes in its documents
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
