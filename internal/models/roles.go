package models

// roleTranslations maps the closed set of roster role labels to their Russian
// display form. Anything outside the map passes through unchanged.
var roleTranslations = map[string]string{
	"Analyst":  "Аналитик",
	"Tester":   "Тестировщик",
	"Manager":  "Менеджер",
	"Designer": "Дизайнер",
}

// LocalizeRole returns the localized display label for a roster role.
func LocalizeRole(role string) string {
	if localized, ok := roleTranslations[role]; ok {
		return localized
	}
	return role
}
