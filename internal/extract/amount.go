package extract

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// normalizeAmount parses the monto field, which the model is asked to emit
// as a plain number but in practice also arrives as a Chilean-formatted
// string ("$ 15.990", "15.990,50"). The returned convention is always a
// period decimal separator. Unparseable input yields 0.
func normalizeAmount(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	return parseLocalizedAmount(s)
}

func parseLocalizedAmount(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0
	}

	switch {
	case strings.Contains(s, ","):
		// Chilean convention: period groups thousands, comma is the decimal
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		// Pure grouping, no decimal part
		s = strings.ReplaceAll(s, ".", "")
	case strings.Contains(s, "."):
		// A single period with exactly three trailing digits is grouping
		// ("15.990"), anything else is a decimal point ("15.5")
		if i := strings.LastIndex(s, "."); len(s)-i-1 == 3 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}
