package catalog

// Kind separates adoptable animals from shop merchandise.
type Kind string

const (
	KindPet     Kind = "pet"
	KindProduct Kind = "product"
)

// Item captures a storefront listing exposed to the frontend and the assistant.
type Item struct {
	ID          string   `json:"id"`
	Kind        Kind     `json:"kind"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Species     string   `json:"species,omitempty"`
	Breed       string   `json:"breed,omitempty"`
	AgeMonths   int      `json:"ageMonths,omitempty"`
	PriceCents  int64    `json:"priceCents"`
	Adoptable   bool     `json:"adoptable,omitempty"`
	InStock     bool     `json:"inStock"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Seed provides the demo inventory used when no backend catalog is configured.
func Seed() []Item {
	return []Item{
		{
			ID:          "pet-biscuit",
			Kind:        KindPet,
			Name:        "Biscuit",
			Category:    "dogs",
			Species:     "dog",
			Breed:       "Beagle mix",
			AgeMonths:   14,
			PriceCents:  15000,
			Adoptable:   true,
			InStock:     true,
			Description: "Curious beagle mix who loves long sniffy walks and gets along with kids.",
			Tags:        []string{"friendly", "kids", "walks"},
		},
		{
			ID:          "pet-miso",
			Kind:        KindPet,
			Name:        "Miso",
			Category:    "cats",
			Species:     "cat",
			Breed:       "Domestic shorthair",
			AgeMonths:   8,
			PriceCents:  9000,
			Adoptable:   true,
			InStock:     true,
			Description: "Playful orange kitten, litter trained, happiest in a sunny window.",
			Tags:        []string{"kitten", "playful", "indoor"},
		},
		{
			ID:          "pet-pepper",
			Kind:        KindPet,
			Name:        "Pepper",
			Category:    "small-pets",
			Species:     "rabbit",
			Breed:       "Holland Lop",
			AgeMonths:   10,
			PriceCents:  6000,
			Adoptable:   true,
			InStock:     true,
			Description: "Calm lop-eared rabbit, used to being handled, needs a roomy hutch.",
			Tags:        []string{"calm", "apartment"},
		},
		{
			ID:          "pet-atlas",
			Kind:        KindPet,
			Name:        "Atlas",
			Category:    "dogs",
			Species:     "dog",
			Breed:       "German Shepherd",
			AgeMonths:   36,
			PriceCents:  20000,
			Adoptable:   false,
			InStock:     true,
			Description: "Adoption pending. Loyal and energetic, best with an experienced owner.",
			Tags:        []string{"active", "guard"},
		},
		{
			ID:          "prod-kibble",
			Kind:        KindProduct,
			Name:        "Grain-free puppy kibble 5kg",
			Category:    "food",
			Species:     "dog",
			PriceCents:  4299,
			InStock:     true,
			Description: "High-protein grain-free dry food for puppies up to 12 months.",
			Tags:        []string{"puppy", "grain-free"},
		},
		{
			ID:          "prod-cat-tower",
			Kind:        KindProduct,
			Name:        "Three-level cat tower",
			Category:    "furniture",
			Species:     "cat",
			PriceCents:  8999,
			InStock:     true,
			Description: "Sisal-wrapped scratching posts with a hammock and hideaway.",
			Tags:        []string{"scratching", "climbing"},
		},
		{
			ID:          "prod-leash",
			Kind:        KindProduct,
			Name:        "Reflective nylon leash",
			Category:    "accessories",
			Species:     "dog",
			PriceCents:  1599,
			InStock:     true,
			Description: "1.8m leash with reflective stitching and padded handle.",
			Tags:        []string{"walks", "night"},
		},
		{
			ID:          "prod-hay",
			Kind:        KindProduct,
			Name:        "Timothy hay 1kg",
			Category:    "food",
			Species:     "rabbit",
			PriceCents:  1299,
			InStock:     false,
			Description: "Fresh second-cut timothy hay for rabbits and guinea pigs.",
			Tags:        []string{"fiber"},
		},
		{
			ID:          "prod-chew-toy",
			Kind:        KindProduct,
			Name:        "Rubber chew bone",
			Category:    "toys",
			Species:     "dog",
			PriceCents:  899,
			InStock:     true,
			Description: "Durable natural rubber chew toy, dishwasher safe.",
			Tags:        []string{"teething", "puppy"},
		},
	}
}
