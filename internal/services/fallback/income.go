package fallback

import (
	"regexp"
	"strconv"
	"strings"
)

// incomePatterns capture an amount expressed in thousands
var incomePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\brs\.?\s*(\d+(?:,\d+)*(?:\.\d+)?)\s*k\b`),
	regexp.MustCompile(`(?i)₹\s*(\d+(?:,\d+)*(?:\.\d+)?)\s*k\b`),
	regexp.MustCompile(`(?i)\binr\s*(\d+(?:,\d+)*(?:\.\d+)?)\s*k\b`),
	regexp.MustCompile(`(?i)\b(\d+(?:,\d+)*(?:\.\d+)?)\s*k\s*(?:per|a|/)\s*month\b`),
	regexp.MustCompile(`(?i)\b(\d+(?:,\d+)*(?:\.\d+)?)\s*thousand\b`),
}

// fullAmountPatterns capture an amount written out in rupees
var fullAmountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:\brs\.?|₹|\binr)\s*(\d{1,3}(?:,\d{2,3})+|\d{4,})\b`),
}

// ExtractIncome finds a monthly income mentioned in the message.
// It returns 0 when none is found.
func ExtractIncome(message string) float64 {
	for _, pattern := range incomePatterns {
		if m := pattern.FindStringSubmatch(message); len(m) == 2 {
			if v := parseAmount(m[1]); v > 0 {
				return v * 1000
			}
		}
	}
	for _, pattern := range fullAmountPatterns {
		if m := pattern.FindStringSubmatch(message); len(m) == 2 {
			if v := parseAmount(m[1]); v > 0 {
				return v
			}
		}
	}
	return 0
}

func parseAmount(s string) float64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}
