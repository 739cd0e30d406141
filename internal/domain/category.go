package domain

// Category is one of the fixed business-sector tags.
type Category struct {
	Key  string
	Name string
}

// Categories are presented in this order.
var Categories = []Category{
	{Key: "1", Name: "Услуги"},
	{Key: "2", Name: "Пункты выдачи"},
	{Key: "3", Name: "Бьюти"},
	{Key: "4", Name: "Розница"},
	{Key: "5", Name: "Производство"},
	{Key: "6", Name: "Общепит"},
	{Key: "7", Name: "Опт"},
	{Key: "8", Name: "IT"},
}

// CategoryName resolves a key, returning false for unknown keys.
func CategoryName(key string) (string, bool) {
	for _, c := range Categories {
		if c.Key == key {
			return c.Name, true
		}
	}
	return "", false
}
