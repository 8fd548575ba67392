package domain

// Nutrients holds per-100g values. A nil field means the value was not reported.
type Nutrients struct {
	EnergyKcal    *float64 `json:"energy_kcal"`
	Fat           *float64 `json:"fat"`
	SaturatedFat  *float64 `json:"saturated_fat"`
	Carbohydrates *float64 `json:"carbohydrates"`
	Sugars        *float64 `json:"sugars"`
	Fiber         *float64 `json:"fiber"`
	Protein       *float64 `json:"protein"`
	Salt          *float64 `json:"salt"`
}

// Ingredient is a single normalized ingredient entry
type Ingredient struct {
	Text            string  `json:"text"`
	PercentEstimate float64 `json:"percentEstimate,omitempty"`
}

// ProductFacts is the normalized product data the health analyzer works on
type ProductFacts struct {
	Barcode          string       `json:"barcode"`
	Name             string       `json:"name"`
	Brand            string       `json:"brand"`
	Quantity         string       `json:"quantity,omitempty"`
	ImageURL         string       `json:"image,omitempty"`
	Categories       []string     `json:"categories,omitempty"`
	Nutrients        Nutrients    `json:"nutrients"`
	IngredientsText  string       `json:"ingredientsText"`
	Ingredients      []Ingredient `json:"ingredients"`
	AdditiveCodes    []string     `json:"additiveCodes"` // e.g. "E330"
	ContainsPalmOil  bool         `json:"containsPalmOil"`
	Allergens        []string     `json:"allergens"`
	Labels           []string     `json:"labels,omitempty"`
	NovaGroup        int          `json:"novaGroup,omitempty"` // 0 when unknown
	EcoscoreGrade    string       `json:"ecoscoreGrade,omitempty"`
	Packaging        []string     `json:"packaging,omitempty"`
	ServingSize      string       `json:"servingSize,omitempty"`
	ServingSizeGrams *float64     `json:"servingSizeGrams,omitempty"`
	NutritionDataPer string       `json:"nutritionDataPer,omitempty"` // "100g" or "serving"
	Completeness     *float64     `json:"completeness,omitempty"`
}

// Additive describes a decoded food additive
type Additive struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Risk        string `json:"risk"` // high, moderate, low or unknown
	Explanation string `json:"explanation"`
}

// NutrientRating is one row of the nutrient breakdown
type NutrientRating struct {
	Name       string  `json:"name"`
	Amount100g float64 `json:"amount_100g"`
	Unit       string  `json:"unit"`
	RDAPercent float64 `json:"rda_percent"`
	Rating     string  `json:"rating"` // green, orange, red or neutral
}

// Highlights is the summary shown at the top of an analysis
type Highlights struct {
	HealthScore int      `json:"health_score"`
	Verdict     string   `json:"verdict"`
	Likes       []string `json:"likes"`
	Concerns    []string `json:"concerns"`
	NovaGroup   int      `json:"nova_group,omitempty"`
}

// ProductAnalysis is the payload stored for a product: facts plus computed health analysis
type ProductAnalysis struct {
	Barcode             string             `json:"barcode"`
	Product             ProductFacts       `json:"product"`
	Highlights          Highlights         `json:"highlights"`
	Nutrients           []NutrientRating   `json:"nutrients"`
	NutrientRadar       map[string]float64 `json:"nutrient_radar"`
	Additives           []Additive         `json:"additives"`
	DominantIngredients []Ingredient       `json:"dominant_ingredients"`
	Complexity          string             `json:"complexity"`
	PerServing          map[string]float64 `json:"per_serving,omitempty"`
}
