package tui

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// formatHours formats hours as "Xh Ym"
func formatHours(hours float64) string {
	h := int(hours)
	m := int((hours-float64(h))*60 + 0.5)
	if m == 60 {
		h++
		m = 0
	}
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

// formatMoney formats a decimal amount as "$X,XXX.XX" with comma separators
func formatMoney(amount decimal.Decimal) string {
	negative := amount.IsNegative()
	if negative {
		amount = amount.Neg()
	}

	s := amount.StringFixed(2)

	dotPos := len(s) - 3
	intPart := s[:dotPos]
	decPart := s[dotPos:]

	result := make([]byte, 0, len(intPart)+len(intPart)/3)
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}

	prefix := "$"
	if negative {
		prefix = "-$"
	}
	return prefix + string(result) + decPart
}

// formatRate formats an hourly rate like "$250.00/hr"
func formatRate(rate float64) string {
	return formatMoney(decimal.NewFromFloat(rate)) + "/hr"
}

// truncateStr truncates a string to the specified length with ellipsis
func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
