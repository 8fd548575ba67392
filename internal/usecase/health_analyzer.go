package usecase

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/unpackeat/backend/internal/domain"
)

//go:embed data/additives.json
var builtinAdditives []byte

// Score deduction per additive risk level
var additivePenalty = map[string]int{"high": 10, "moderate": 4, "low": 0, "unknown": 2}

const maxAdditivePenalty = 20

// Recommended daily amounts in grams (kcal for energy)
var dailyAmounts = map[string]float64{
	"salt":          5,
	"saturated_fat": 20,
	"sugars":        50,
	"fiber":         25,
	"protein":       50,
	"fat":           70,
	"energy_kcal":   2000,
	"carbohydrates": 260,
}

var positiveLabels = map[string]bool{
	"en:organic":                true,
	"en:eu-organic":             true,
	"en:fair-trade":             true,
	"en:rainforest-alliance":    true,
	"en:vegan":                  true,
	"en:vegetarian":             true,
	"en:no-artificial-flavours": true,
	"en:no-artificial-colours":  true,
	"en:no-preservatives":       true,
	"en:whole-grain":            true,
}

// AdditiveCatalog maps upper-case E-numbers to additive details
type AdditiveCatalog map[string]domain.Additive

// DefaultAdditiveCatalog returns the catalog bundled with the binary
func DefaultAdditiveCatalog() AdditiveCatalog {
	catalog, err := parseAdditiveCatalog(builtinAdditives)
	if err != nil {
		panic(fmt.Sprintf("bundled additive catalog: %v", err))
	}
	return catalog
}

// LoadAdditiveCatalog reads a catalog file and merges it over the bundled one
func LoadAdditiveCatalog(fs afero.Fs, path string) (AdditiveCatalog, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read additive catalog: %w", err)
	}

	extra, err := parseAdditiveCatalog(data)
	if err != nil {
		return nil, err
	}

	catalog := DefaultAdditiveCatalog()
	for code, additive := range extra {
		catalog[code] = additive
	}

	return catalog, nil
}

func parseAdditiveCatalog(data []byte) (AdditiveCatalog, error) {
	var raw map[string]domain.Additive
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse additive catalog: %w", err)
	}

	catalog := make(AdditiveCatalog, len(raw))
	for code, additive := range raw {
		code = strings.ToUpper(code)
		additive.Code = code
		if additive.Risk == "" {
			additive.Risk = "unknown"
		}
		catalog[code] = additive
	}

	return catalog, nil
}

// HealthAnalyzer scores products and builds the analysis payload
type HealthAnalyzer struct {
	additives AdditiveCatalog
}

// NewHealthAnalyzer creates an analyzer; a nil catalog uses the bundled one
func NewHealthAnalyzer(additives AdditiveCatalog) *HealthAnalyzer {
	if additives == nil {
		additives = DefaultAdditiveCatalog()
	}
	return &HealthAnalyzer{additives: additives}
}

type namedNutrient struct {
	name  string
	value *float64
}

// ordered the way nutrients are listed in the breakdown
func nutrientList(n domain.Nutrients) []namedNutrient {
	return []namedNutrient{
		{"energy_kcal", n.EnergyKcal},
		{"fat", n.Fat},
		{"saturated_fat", n.SaturatedFat},
		{"carbohydrates", n.Carbohydrates},
		{"sugars", n.Sugars},
		{"fiber", n.Fiber},
		{"protein", n.Protein},
		{"salt", n.Salt},
	}
}

// Analyze computes the health score, verdict and nutrient breakdown for a product
func (a *HealthAnalyzer) Analyze(facts *domain.ProductFacts) *domain.ProductAnalysis {
	n := facts.Nutrients
	score := 100
	likes := []string{}
	concerns := []string{}

	// Salt above 100g/100g is bad data
	salt := n.Salt
	if salt != nil && *salt > 100 {
		salt = nil
	}

	switch {
	case salt == nil:
		score -= 5
		concerns = append(concerns, "Salt content not reported")
	case *salt > 1.5:
		score -= 25
		concerns = append(concerns, "Very high salt")
	case *salt > 0.6:
		score -= 12
		concerns = append(concerns, "Moderate salt")
	default:
		likes = append(likes, "Low salt")
	}

	switch {
	case n.SaturatedFat == nil:
		score -= 5
		concerns = append(concerns, "Saturated fat not reported")
	case *n.SaturatedFat > 5:
		score -= 20
		concerns = append(concerns, "High saturated fat")
	case *n.SaturatedFat > 2.5:
		score -= 8
		concerns = append(concerns, "Moderate saturated fat")
	default:
		likes = append(likes, "Low saturated fat")
	}

	if n.Fat != nil {
		switch {
		case *n.Fat > 17.5:
			score -= 10
			concerns = append(concerns, "High total fat")
		case *n.Fat > 10:
			score -= 4
		}
	}

	switch {
	case n.Sugars == nil:
		score -= 3
		concerns = append(concerns, "Sugar content not reported")
	case *n.Sugars > 22.5:
		score -= 20
		concerns = append(concerns, "Very high sugar")
	case *n.Sugars > 12.5:
		score -= 10
		concerns = append(concerns, "High sugar")
	case *n.Sugars > 8:
		score -= 4
		concerns = append(concerns, "Moderate sugar")
	default:
		likes = append(likes, "Low sugar")
	}

	if n.Fiber != nil {
		switch {
		case *n.Fiber >= 5:
			score += 8
			likes = append(likes, "Excellent fiber content")
		case *n.Fiber >= 3:
			score += 4
			likes = append(likes, "Good fiber content")
		case *n.Fiber < 1:
			score -= 3
		}
	}

	if n.Protein != nil && *n.Protein >= 10 {
		score += 5
		likes = append(likes, "High protein")
	}

	if n.EnergyKcal != nil {
		switch {
		case *n.EnergyKcal > 450:
			score -= 10
			concerns = append(concerns, "Very high calorie density")
		case *n.EnergyKcal > 300:
			score -= 5
			concerns = append(concerns, "High calorie density")
		}
	}

	switch facts.NovaGroup {
	case 4:
		score -= 15
		concerns = append(concerns, "Ultra-processed food (NOVA 4)")
	case 3:
		score -= 5
		concerns = append(concerns, "Processed food (NOVA 3)")
	case 1, 2:
		likes = append(likes, "Minimally processed")
	}

	if facts.ContainsPalmOil {
		score -= 5
		concerns = append(concerns, "Contains palm oil")
	}

	additives, penalty, highRisk := a.decodeAdditives(facts.AdditiveCodes)
	score -= min(penalty, maxAdditivePenalty)
	if highRisk > 0 {
		concerns = append(concerns, fmt.Sprintf("%d high-risk additive(s) detected", highRisk))
	}

	if matched := matchPositiveLabels(facts.Labels); len(matched) > 0 {
		score += min(5, len(matched)*2)
		likes = append(likes, "Certified: "+strings.Join(matched, ", "))
	}

	switch {
	case facts.NutritionDataPer != "" && facts.NutritionDataPer != "100g":
		score -= 8
		concerns = append(concerns, "Nutrition values reported per serving, not per 100g; analysis may be inaccurate")
	case facts.Completeness != nil:
		if *facts.Completeness >= 0.8 {
			score += 3
		} else if *facts.Completeness < 0.35 {
			score -= 5
			concerns = append(concerns, "Very limited nutrition data available")
		}
	default:
		present := countKeyNutrients(n)
		if present == 4 {
			score += 3
		} else if present <= 1 {
			score -= 5
			concerns = append(concerns, "Very limited nutrition data available")
		}
	}

	score = max(0, min(100, score))

	return &domain.ProductAnalysis{
		Barcode: facts.Barcode,
		Product: *facts,
		Highlights: domain.Highlights{
			HealthScore: score,
			Verdict:     verdict(score),
			Likes:       likes,
			Concerns:    concerns,
			NovaGroup:   facts.NovaGroup,
		},
		Nutrients:           rateNutrients(n),
		NutrientRadar:       nutrientRadar(n),
		Additives:           additives,
		DominantIngredients: dominantIngredients(facts.Ingredients),
		Complexity:          complexity(len(facts.Ingredients)),
		PerServing:          perServing(n, facts.ServingSizeGrams),
	}
}

func (a *HealthAnalyzer) decodeAdditives(codes []string) (additives []domain.Additive, penalty int, highRisk int) {
	additives = []domain.Additive{}
	seen := make(map[string]bool, len(codes))

	for _, raw := range codes {
		code := strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(raw), "en:"))
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true

		additive, ok := a.additives[code]
		if !ok {
			additive = domain.Additive{
				Code:        code,
				Name:        code,
				Category:    "Unknown",
				Risk:        "unknown",
				Explanation: "No safety data available.",
			}
		}

		additives = append(additives, additive)
		if p, ok := additivePenalty[additive.Risk]; ok {
			penalty += p
		} else {
			penalty += additivePenalty["unknown"]
		}
		if additive.Risk == "high" {
			highRisk++
		}
	}

	return additives, penalty, highRisk
}

// RatingColor returns the traffic-light rating of a per-100g nutrient value
func RatingColor(name string, value float64) string {
	switch name {
	case "salt":
		return traffic(value, 1.5, 0.6)
	case "saturated_fat":
		return traffic(value, 5, 2.5)
	case "sugars":
		return traffic(value, 15, 8)
	case "fat":
		return traffic(value, 17.5, 10)
	case "energy_kcal":
		return traffic(value, 400, 250)
	case "fiber":
		switch {
		case value >= 3:
			return "green"
		case value > 1:
			return "orange"
		default:
			return "red"
		}
	case "protein":
		if value >= 10 {
			return "green"
		}
	}
	return "neutral"
}

func traffic(value, red, orange float64) string {
	switch {
	case value > red:
		return "red"
	case value > orange:
		return "orange"
	default:
		return "green"
	}
}

func verdict(score int) string {
	switch {
	case score >= 75:
		return "Healthy choice"
	case score >= 50:
		return "Moderate consumption recommended"
	case score >= 25:
		return "Best enjoyed occasionally"
	default:
		return "Limit consumption"
	}
}

func complexity(ingredientCount int) string {
	switch {
	case ingredientCount > 20:
		return "Highly complex"
	case ingredientCount > 10:
		return "Moderately complex"
	default:
		return "Simple formulation"
	}
}

func rateNutrients(n domain.Nutrients) []domain.NutrientRating {
	ratings := []domain.NutrientRating{}
	for _, nutrient := range nutrientList(n) {
		if nutrient.value == nil {
			continue
		}
		v := *nutrient.value

		unit := "g"
		if nutrient.name == "energy_kcal" {
			unit = "kcal"
		}

		ratings = append(ratings, domain.NutrientRating{
			Name:       nutrient.name,
			Amount100g: v,
			Unit:       unit,
			RDAPercent: round(v/dailyAmounts[nutrient.name]*100, 1),
			Rating:     RatingColor(nutrient.name, v),
		})
	}
	return ratings
}

// nutrientRadar scales nutrients to 0..1 for the radar chart
func nutrientRadar(n domain.Nutrients) map[string]float64 {
	scale := func(v *float64, full float64) float64 {
		if v == nil {
			return 0
		}
		return math.Min(1, *v/full)
	}

	return map[string]float64{
		"salt":          scale(n.Salt, 3),
		"saturated_fat": scale(n.SaturatedFat, 10),
		"sugars":        scale(n.Sugars, 25),
		"energy":        scale(n.EnergyKcal, 600),
		"fiber":         scale(n.Fiber, 10),
		"protein":       scale(n.Protein, 25),
	}
}

func perServing(n domain.Nutrients, grams *float64) map[string]float64 {
	if grams == nil || *grams <= 0 {
		return nil
	}

	values := make(map[string]float64)
	for _, nutrient := range nutrientList(n) {
		if nutrient.value != nil {
			values[nutrient.name] = round(*nutrient.value**grams/100, 2)
		}
	}
	return values
}

// dominantIngredients returns the four ingredients with the highest estimated share
func dominantIngredients(ingredients []domain.Ingredient) []domain.Ingredient {
	seen := make(map[string]bool)
	dominant := []domain.Ingredient{}

	for _, ing := range ingredients {
		text := strings.TrimSpace(ing.Text)
		if text == "" || seen[text] || ing.PercentEstimate <= 0 {
			continue
		}
		seen[text] = true
		dominant = append(dominant, domain.Ingredient{Text: text, PercentEstimate: round(ing.PercentEstimate, 1)})
	}

	sort.SliceStable(dominant, func(i, j int) bool {
		return dominant[i].PercentEstimate > dominant[j].PercentEstimate
	})

	if len(dominant) > 4 {
		dominant = dominant[:4]
	}
	return dominant
}

func matchPositiveLabels(labels []string) []string {
	var matched []string
	seen := make(map[string]bool)

	for _, label := range labels {
		if !positiveLabels[label] || seen[label] {
			continue
		}
		seen[label] = true
		matched = append(matched, label)
	}
	sort.Strings(matched)

	for i, label := range matched {
		words := strings.Fields(strings.ReplaceAll(strings.TrimPrefix(label, "en:"), "-", " "))
		for j, w := range words {
			words[j] = strings.ToUpper(w[:1]) + w[1:]
		}
		matched[i] = strings.Join(words, " ")
	}

	return matched
}

func countKeyNutrients(n domain.Nutrients) int {
	count := 0
	for _, v := range []*float64{n.Salt, n.SaturatedFat, n.Sugars, n.Fiber} {
		if v != nil {
			count++
		}
	}
	return count
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
