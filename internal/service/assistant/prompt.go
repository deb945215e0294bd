package assistant

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/pawshop/internal/analysis/intent"
	"github.com/zhouzirui/pawshop/internal/model/catalog"
)

const basePrompt = `You are the Pawshop assistant, a friendly helper on a pet shop website.
You answer questions about pets available for adoption, shop products and general pet care.
Only recommend listings that appear in the catalog below. Never invent prices or availability.
If a listing is out of stock or not adoptable, say so. For order and payment problems, direct
the shopper to support@pawshop.example. Keep answers short: at most four sentences or a short list.`

var topicHints = map[intent.Topic]string{
	intent.Adoption: "The shopper is asking about adoption. Mention adoptable pets by name and explain that adoption starts from the pet's page.",
	intent.Product:  "The shopper is asking about products. Quote prices exactly as listed and mention stock status.",
	intent.Care:     "The shopper wants care advice. Give practical, safe guidance and suggest a vet for medical concerns.",
	intent.Order:    "The shopper has an order question. You cannot look up orders; point them to support.",
	intent.Greeting: "The shopper is greeting you. Greet back and offer what you can help with.",
}

// BuildSystemPrompt assembles the system prompt from the catalog and the classified topic.
// matches are listings that looked relevant to the question; they are listed first.
func BuildSystemPrompt(items catalog.Store, decision intent.Decision, matches []catalog.Item) string {
	var builder strings.Builder
	builder.WriteString(basePrompt)

	if hint, ok := topicHints[decision.Topic]; ok {
		builder.WriteString("\n\n")
		builder.WriteString(hint)
	}

	if len(matches) > 0 {
		builder.WriteString("\n\nMost relevant listings:\n")
		for _, item := range matches {
			builder.WriteString(describeItem(item))
		}
	}

	builder.WriteString("\nCategories:\n")
	for _, c := range items.CategoryCounts() {
		builder.WriteString(fmt.Sprintf("- %s (%s): %d\n", c.Category, c.Kind, c.Count))
	}

	builder.WriteString("\nFull catalog:\n")
	for _, item := range items.List(catalog.Filter{}) {
		builder.WriteString(describeItem(item))
	}

	return builder.String()
}

func describeItem(item catalog.Item) string {
	var status []string
	if item.Kind == catalog.KindPet {
		if item.Adoptable {
			status = append(status, "adoptable")
		} else {
			status = append(status, "adoption pending")
		}
	} else if item.InStock {
		status = append(status, "in stock")
	} else {
		status = append(status, "out of stock")
	}

	detail := item.Category
	if item.Breed != "" {
		detail = item.Breed
	}
	return fmt.Sprintf("- [%s] %s (%s, %s, %s): %s\n",
		item.ID, item.Name, detail, formatPrice(item.PriceCents), strings.Join(status, ", "), item.Description)
}

func formatPrice(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
