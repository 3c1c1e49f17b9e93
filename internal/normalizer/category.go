package normalizer

import (
	"strings"

	"vulnfeed/internal/models"
)

// Category is one entry of the weakness category table.
type Category struct {
	Name     string
	Keywords []string
}

// categoryTable is matched in declaration order; the first category with a
// keyword hit wins.
var categoryTable = []Category{
	{Name: "Software Development", Keywords: []string{"Design", "Implementation", "Operating System", "Configuration"}},
	{Name: "Security Features", Keywords: []string{"Authentication", "Authorization", "Cryptography", "Credentials Management"}},
	{Name: "Input Validation", Keywords: []string{"Buffer Errors", "Input Validation", "Numeric Errors", "Path Traversal"}},
	{Name: "Resource Management", Keywords: []string{"Memory Management", "Resource Management", "File Handling"}},
	{Name: "Code Quality", Keywords: []string{"Error Handling", "Information Leak", "Race Conditions"}},
	{Name: "Web Security", Keywords: []string{"XSS", "SQL Injection", "CSRF", "Session Management"}},
}

// lowered holds the lower-cased keywords, index-aligned with categoryTable.
var lowered = func() [][]string {
	out := make([][]string, len(categoryTable))

	for i, c := range categoryTable {
		out[i] = make([]string, len(c.Keywords))
		for j, k := range c.Keywords {
			out[i][j] = strings.ToLower(k)
		}
	}

	return out
}()

// CategoryNames returns the category names in match order followed by "Other".
func CategoryNames() []string {
	names := make([]string, 0, len(categoryTable)+1)
	for _, c := range categoryTable {
		names = append(names, c.Name)
	}

	return append(names, models.CategoryOther)
}

// Categorize assigns a category to a description by case-insensitive substring
// match. Matches inside longer words count.
func Categorize(description string) string {
	text := strings.ToLower(description)

	for i, keywords := range lowered {
		for _, k := range keywords {
			if strings.Contains(text, k) {
				return categoryTable[i].Name
			}
		}
	}

	return models.CategoryOther
}
