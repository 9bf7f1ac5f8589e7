package privacy

import (
	"regexp"
	"strings"
)

// Category labels a kind of personal identifier found in free text.
type Category string

const (
	CategoryEmail      Category = "email"
	CategoryPhone      Category = "phone"
	CategorySSN        Category = "ssn"
	CategoryCreditCard Category = "credit_card"
	CategoryIPAddress  Category = "ip_address"
)

// rule pairs a pattern with an optional secondary validator. The validator
// weeds out matches the regex alone cannot reject, such as nine-digit numbers
// that are not plausible SSNs.
type rule struct {
	category    Category
	pattern     *regexp.Regexp
	valid       func(string) bool
	replacement string
}

var rules = []rule{
	{
		category:    CategoryEmail,
		pattern:     regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`),
		replacement: "[EMAIL_REMOVED]",
	},
	{
		category:    CategoryPhone,
		pattern:     regexp.MustCompile(`(\+?1[-.\s]?)?\(?\b([0-9]{3})\)?[-.\s]?([0-9]{3})[-.\s]?([0-9]{4})\b`),
		replacement: "[PHONE_REMOVED]",
	},
	{
		category:    CategorySSN,
		pattern:     regexp.MustCompile(`\b[0-9]{3}-[0-9]{2}-[0-9]{4}\b`),
		replacement: "[SSN_REMOVED]",
	},
	{
		category:    CategorySSN,
		pattern:     regexp.MustCompile(`\b[0-9]{9}\b`),
		valid:       plausibleSSN,
		replacement: "[SSN_REMOVED]",
	},
	{
		category:    CategoryCreditCard,
		pattern:     regexp.MustCompile(`\b(?:4[0-9]{12}(?:[0-9]{3})?|5[1-5][0-9]{14}|3[47][0-9]{13}|6(?:011|5[0-9]{2})[0-9]{12})\b`),
		valid:       luhnValid,
		replacement: "[CARD_REMOVED]",
	},
	{
		category:    CategoryIPAddress,
		pattern:     regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`),
		replacement: "[IP_REMOVED]",
	},
}

// Scrub replaces personal identifiers in symptom text with placeholders so
// they never reach the model provider, the vector store or the history table.
// It returns the scrubbed text and the categories that were found.
func Scrub(text string) (string, []Category) {
	var found []Category
	seen := make(map[Category]bool)

	for _, r := range rules {
		text = r.pattern.ReplaceAllStringFunc(text, func(match string) string {
			if r.valid != nil && !r.valid(match) {
				return match
			}
			if !seen[r.category] {
				seen[r.category] = true
				found = append(found, r.category)
			}
			return r.replacement
		})
	}

	return text, found
}

// Contains reports whether text holds any recognized personal identifier.
func Contains(text string) bool {
	_, found := Scrub(text)
	return len(found) > 0
}

// plausibleSSN filters nine-digit numbers that cannot be SSNs: the area
// cannot be 000, 666 or 900-999, and no group may be all zeros.
func plausibleSSN(s string) bool {
	if len(s) != 9 {
		return false
	}
	if s[:3] == "000" || s[3:5] == "00" || s[5:] == "0000" {
		return false
	}
	if strings.HasPrefix(s, "666") || s[0] == '9' {
		return false
	}
	return true
}

// luhnValid checks a candidate card number with the Luhn algorithm
func luhnValid(number string) bool {
	if len(number) < 13 || len(number) > 19 {
		return false
	}

	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		digit := int(number[i] - '0')
		if digit < 0 || digit > 9 {
			return false
		}
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}

	return sum%10 == 0
}
