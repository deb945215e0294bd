package assistant

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/pawshop/internal/analysis/intent"
	"github.com/zhouzirui/pawshop/internal/model/catalog"
)

const (
	greetingReply = "Hi! I'm the Pawshop assistant. Ask me about pets looking for a home, supplies we stock, or caring for your pet."
	orderReply    = "I can't look up orders from here. Please email support@pawshop.example with your order number and we'll get back to you within one business day."
	unsureReply   = "I can help with adoptions, products and pet care. Could you tell me a little more about what you're looking for?"
)

var careTips = map[string]string{
	"dog":    "Dogs do best with two walks a day, measured meals and regular grooming. Puppies need their vaccination series before meeting other dogs.",
	"cat":    "Cats need fresh water, a clean litter box (one per cat plus one) and daily play. Yearly vet checkups catch problems early.",
	"rabbit": "Rabbits should have unlimited hay, a handful of leafy greens daily and plenty of room to hop. Avoid sudden diet changes.",
}

const genericCareTip = "Fresh water, a consistent feeding schedule and a yearly vet visit cover most pets. For anything that looks like illness, please see a vet."

// catalogAnswer builds a reply from the catalog alone.
func (s *Service) catalogAnswer(decision intent.Decision, matches []catalog.Item) Answer {
	ctx := Context{Topic: decision.Topic, Source: SourceCatalog}

	switch decision.Topic {
	case intent.Greeting:
		return Answer{Text: greetingReply, Context: ctx}

	case intent.Order:
		return Answer{Text: orderReply, Context: ctx}

	case intent.Adoption:
		pets := filterKind(matches, catalog.KindPet)
		if len(pets) == 0 {
			adoptable := true
			pets = s.items.List(catalog.Filter{Kind: catalog.KindPet, Adoptable: &adoptable})
		}
		ctx.Items = pets
		if len(pets) == 0 {
			return Answer{Text: "All of our pets have found homes for now. Check back soon, new friends arrive every week.", Context: ctx}
		}
		return Answer{Text: "These friends are looking for a home:\n" + listItems(pets) +
			"\nYou can start an adoption from a pet's page and we'll contact you to arrange a visit.", Context: ctx}

	case intent.Care:
		ctx.Items = matches
		if tip, ok := careTips[speciesOf(matches)]; ok {
			return Answer{Text: tip, Context: ctx}
		}
		return Answer{Text: genericCareTip, Context: ctx}
	}

	if len(matches) > 0 {
		ctx.Items = matches
		return Answer{Text: "Here's what I found:\n" + listItems(matches), Context: ctx}
	}

	if decision.Topic == intent.Product {
		var names []string
		for _, c := range s.items.CategoryCounts() {
			if c.Kind == catalog.KindProduct {
				names = append(names, c.Category)
			}
		}
		return Answer{Text: "I couldn't find that in our catalog. We carry: " + strings.Join(names, ", ") + ".", Context: ctx}
	}

	return Answer{Text: unsureReply, Context: ctx}
}

func listItems(items []catalog.Item) string {
	var builder strings.Builder
	for _, item := range items {
		builder.WriteString("- ")
		builder.WriteString(item.Name)
		switch {
		case item.Kind == catalog.KindPet && item.Adoptable:
			builder.WriteString(fmt.Sprintf(" (%s, %d months, adoption fee %s)", item.Breed, item.AgeMonths, formatPrice(item.PriceCents)))
		case item.Kind == catalog.KindPet:
			builder.WriteString(fmt.Sprintf(" (%s, adoption pending)", item.Breed))
		case item.InStock:
			builder.WriteString(fmt.Sprintf(" (%s, in stock)", formatPrice(item.PriceCents)))
		default:
			builder.WriteString(fmt.Sprintf(" (%s, out of stock)", formatPrice(item.PriceCents)))
		}
		builder.WriteString("\n")
	}
	return builder.String()
}

func filterKind(items []catalog.Item, kind catalog.Kind) []catalog.Item {
	var out []catalog.Item
	for _, item := range items {
		if item.Kind == kind {
			out = append(out, item)
		}
	}
	return out
}

func speciesOf(items []catalog.Item) string {
	for _, item := range items {
		if item.Species != "" {
			return item.Species
		}
	}
	return ""
}
