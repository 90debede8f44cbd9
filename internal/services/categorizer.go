package services

import (
	"context"
	"strings"

	"kopilka/internal/storage"
)

// Categorizer assigns a category to an item by its free-text name.
// Implementations must be safe for concurrent use.
type Categorizer interface {
	Categorize(ctx context.Context, name string) (categoryID *int64, subcategory string, err error)
}

// KeywordCategorizer matches item names against a keyword table and
// resolves the winning label to a stored category id once, at startup.
type KeywordCategorizer struct {
	byKeyword map[string]int64
}

// Keyword to root category name. Matching is substring based, longest
// keyword wins.
var categoryKeywords = map[string]string{
	"аренда":     "Жильё",
	"ипотека":    "Жильё",
	"квартира":   "Жильё",
	"квартплата": "Жильё",
	"молоко":     "Продукты",
	"хлеб":       "Продукты",
	"мясо":       "Продукты",
	"овощи":      "Продукты",
	"фрукты":     "Продукты",
	"продукты":   "Продукты",
	"магазин":    "Продукты",
	"бензин":     "Транспорт",
	"такси":      "Транспорт",
	"метро":      "Транспорт",
	"автобус":    "Транспорт",
	"кино":       "Развлечения",
	"ресторан":   "Развлечения",
	"кафе":       "Развлечения",
	"игрушк":     "Развлечения",
	"одежда":     "Одежда",
	"обувь":      "Одежда",
	"куртка":     "Одежда",
	"лекарств":   "Здоровье",
	"аптека":     "Здоровье",
	"врач":       "Здоровье",
	"интернет":   "Связь",
	"телефон":    "Связь",
	"связь":      "Связь",
	"курс":       "Образование",
	"книга":      "Образование",
	"школа":      "Образование",
	"продажа":    "Продажи",
	"закупка":    "Закупки",
	"товар":      "Закупки",
	"реклама":    "Операционные расходы",
	"налог":      "Операционные расходы",
}

// NewKeywordCategorizer resolves the keyword table against the seeded
// category rows so items carry ids, not labels.
func NewKeywordCategorizer(ctx context.Context, q *storage.Queries) (*KeywordCategorizer, error) {
	roots, err := q.ListRootCategories(ctx)
	if err != nil {
		return nil, err
	}
	idByName := make(map[string]int64, len(roots))
	for _, c := range roots {
		idByName[c.Name] = c.ID
	}

	byKeyword := make(map[string]int64, len(categoryKeywords))
	for kw, name := range categoryKeywords {
		if id, ok := idByName[name]; ok {
			byKeyword[kw] = id
		}
	}
	return &KeywordCategorizer{byKeyword: byKeyword}, nil
}

func (c *KeywordCategorizer) Categorize(ctx context.Context, name string) (*int64, string, error) {
	lowered := strings.ToLower(name)
	var (
		bestLen int
		bestID  int64
		found   bool
	)
	for kw, id := range c.byKeyword {
		if strings.Contains(lowered, kw) && len(kw) > bestLen {
			bestLen = len(kw)
			bestID = id
			found = true
		}
	}
	if !found {
		return nil, "", nil
	}
	id := bestID
	return &id, "", nil
}

var _ Categorizer = (*KeywordCategorizer)(nil)

// NoopCategorizer leaves every item uncategorized.
type NoopCategorizer struct{}

func (NoopCategorizer) Categorize(ctx context.Context, name string) (*int64, string, error) {
	return nil, "", nil
}
