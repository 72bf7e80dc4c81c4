package transcript

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
)

var brandNames = canonicalNames(
	"Toyota", "Honda", "Nissan", "Ford", "Chevrolet", "Volkswagen", "Mazda", "Hyundai", "Kia",
	"BMW", "Mercedes", "Audi", "Jeep", "Dodge", "Ram", "Renault", "Seat", "Suzuki", "Mitsubishi",
	"Subaru", "Peugeot", "Fiat", "Chrysler", "GMC", "Buick", "Cadillac", "Lincoln", "Tesla",
	"Volvo", "MG", "BYD", "Chirey",
)

var modelNames = canonicalNames(
	"Corolla", "Camry", "Yaris", "Hilux", "RAV4", "Tacoma", "Prius", "Civic", "Accord", "CR-V",
	"HR-V", "Fit", "Sentra", "Versa", "Tsuru", "March", "Altima", "Frontier", "Kicks", "NP300",
	"Focus", "Fiesta", "Mustang", "Ranger", "Lobo", "Escape", "Explorer", "Aveo", "Spark",
	"Cruze", "Malibu", "Silverado", "Tahoe", "Onix", "Beat", "Jetta", "Vento", "Golf", "Polo",
	"Tiguan", "Passat", "Mazda3", "CX-5", "Elantra", "Tucson", "Accent", "Rio", "Forte",
	"Sportage", "Wrangler", "Cherokee", "Charger", "Durango", "Duster", "Ibiza", "Swift",
)

const triggerWords = `driving|drive|drives|have|own|owns|car|vehicle|automobile|auto|carro|coche|manejo|tengo`

const fillerWords = `(?:\s+(?:a|an|the|my|is|un|una|mi|es))*`

var (
	brandPattern = regexp.MustCompile(
		`(?i)\b(?:` + triggerWords + `)\b` + fillerWords + `\s+(` + alternation(brandNames) + `)\b`,
	)
	modelPattern = regexp.MustCompile(
		`(?i)\b(?:` + triggerWords + `|` + alternation(brandNames) + `)\b` + fillerWords +
			`\s+(` + alternation(modelNames) + `)\b`,
	)
	yearPattern = regexp.MustCompile(
		`(?i)\b(?:year|from|model|año|modelo|del)\s+(?:is\s+|of\s+|es\s+)?((?:19|20)\d{2})\b`,
	)
	// The trigger is case-insensitive, the two name words must be capitalized.
	namePattern = regexp.MustCompile(
		`\b(?i:name is|call me|i am|me llamo|mi nombre es)\s+` +
			`(\p{Lu}\p{Ll}+\s+\p{Lu}\p{Ll}+)`,
	)
	securityPattern = regexp.MustCompile(
		`(?i)\b(?:security experience|experience in security|experience as a security|` +
			`worked in security|work in security|working in security|worked as a security|` +
			`security guard|security officer|bodyguard|` +
			`experiencia en seguridad|trabaj[eé] en seguridad|guardia de seguridad|escolta)\b`,
	)
	sedenaPattern = regexp.MustCompile(
		`(?i)\b(?:sedena|cartilla militar|servicio militar|military id|military service)\b`,
	)
)

func canonicalNames(names ...string) map[string]string {
	canonical := make(map[string]string, len(names))
	for _, name := range names {
		canonical[strings.ToLower(name)] = name
	}

	return canonical
}

func alternation(canonical map[string]string) string {
	quoted := make([]string, 0, len(canonical))
	for lower := range canonical {
		quoted = append(quoted, regexp.QuoteMeta(lower))
	}

	// Longer names first so "cr-v" is not cut short by a shorter prefix.
	slices.SortFunc(quoted, func(a, b string) int {
		return cmp.Or(cmp.Compare(len(b), len(a)), cmp.Compare(a, b))
	})

	return strings.Join(quoted, "|")
}
