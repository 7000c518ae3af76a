package llm

import "regexp"

var (
	orderIDPattern = regexp.MustCompile(`\b(\d{10,20})\b`)
	phonePattern   = regexp.MustCompile(`\b(1[3-9]\d{9})\b`)
	amountPattern  = regexp.MustCompile(`(\d+(?:\.\d{1,2})?)\s*[元块]`)
)

// ExtractEntities pulls well-known entity types out of an utterance
// with regular expressions: order_id (10 to 20 digits), phone (Chinese
// mobile number), amount (number followed by a currency word). Only
// the requested types are extracted.
func ExtractEntities(utterance string, types []string) map[string]string {
	wanted := make(map[string]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}

	entities := map[string]string{}
	if wanted["order_id"] {
		if m := orderIDPattern.FindStringSubmatch(utterance); m != nil {
			entities["order_id"] = m[1]
		}
	}
	if wanted["phone"] {
		if m := phonePattern.FindStringSubmatch(utterance); m != nil {
			entities["phone"] = m[1]
		}
	}
	if wanted["amount"] {
		if m := amountPattern.FindStringSubmatch(utterance); m != nil {
			entities["amount"] = m[1]
		}
	}
	return entities
}
