package constants

import "strings"

// Category classifies the business origin of a secondary document.
type Category string

const (
	CategorySales      Category = "sales"
	CategoryExpense    Category = "expense"
	CategoryDelivery   Category = "delivery"
	CategoryPOS        Category = "pos"
	CategoryAccounting Category = "accounting"
	CategoryGeneral    Category = "general"
)

var allCategories = []Category{
	CategorySales,
	CategoryExpense,
	CategoryDelivery,
	CategoryPOS,
	CategoryAccounting,
	CategoryGeneral,
}

// Categories returns every known category in declaration order.
func Categories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// ParseCategory canonicalizes user input; unknown values map to general.
func ParseCategory(input string) (Category, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	for _, c := range allCategories {
		if normalized == string(c) {
			return c, true
		}
	}
	return CategoryGeneral, false
}

// AIOnly reports whether extraction for this category must always go through
// the AI path. Delivery-platform statements, POS summaries, and sales reports
// are too irregular for column heuristics.
func (c Category) AIOnly() bool {
	switch c {
	case CategoryDelivery, CategoryPOS, CategorySales:
		return true
	}
	return false
}
