package intent

import "strings"

// Topic labels the kind of question a shopper asked.
type Topic string

const (
	General  Topic = "general"
	Greeting Topic = "greeting"
	Adoption Topic = "adoption"
	Product  Topic = "product"
	Care     Topic = "care"
	Order    Topic = "order"
)

// Decision is the classifier output. Score is zero when nothing matched.
type Decision struct {
	Topic Topic
	Score int
}

var keywordBuckets = map[Topic][]string{
	Greeting: {
		"hello", "hi", "hey", "good morning", "good evening", "thanks", "thank you",
	},
	Adoption: {
		"adopt", "adoption", "adopting", "rescue", "foster", "available pets", "meet", "visit",
		"application", "rehome", "puppy for", "kitten for", "take home",
	},
	Product: {
		"buy", "sell", "price", "cost", "how much", "in stock", "stock", "food", "toy", "toys",
		"leash", "collar", "bed", "tower", "kibble", "treat", "treats", "hay", "cage", "hutch",
	},
	Care: {
		"feed", "feeding", "groom", "grooming", "vaccine", "vaccination", "vet", "sick", "train",
		"training", "litter", "exercise", "walk", "healthy", "diet", "teething", "bath",
	},
	Order: {
		"order", "delivery", "shipping", "ship", "refund", "return", "track", "cancel", "payment",
		"checkout", "pickup",
	},
}

// Analyze picks the best topic for a question.
func Analyze(question string) Decision {
	normalized := " " + strings.Join(strings.Fields(strings.ToLower(question)), " ") + " "
	normalized = strings.NewReplacer("?", " ", "!", " ", ",", " ", ".", " ").Replace(normalized)
	if strings.TrimSpace(normalized) == "" {
		return Decision{Topic: General}
	}

	scores := make(map[Topic]int)
	for topic, keywords := range keywordBuckets {
		for _, word := range keywords {
			if strings.Contains(normalized, " "+word+" ") {
				scores[topic] += 3
			}
		}
	}

	// A greeting followed by a real question is about the question.
	if scores[Greeting] > 0 {
		for topic, s := range scores {
			if topic != Greeting && s > 0 {
				scores[Greeting] = 0
				break
			}
		}
	}

	best := General
	bestScore := 0
	for _, topic := range []Topic{Adoption, Product, Care, Order, Greeting} {
		if scores[topic] > bestScore {
			best = topic
			bestScore = scores[topic]
		}
	}

	return Decision{Topic: best, Score: bestScore}
}
