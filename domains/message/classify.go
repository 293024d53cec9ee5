package message

import "strings"

// Classification of an inbound group message against the fixed trigger set.
type Classification string

const (
	ClassValuationReply    Classification = "valuation_reply"
	ClassValuationRequest  Classification = "valuation_request"
	ClassRatePackageUpdate Classification = "rate_package_update"
	ClassBankRatesUpdate   Classification = "bank_rates_update"
	ClassInterestRate      Classification = "interest_rate"
	ClassIgnored           Classification = "ignored"
)

// Classify matches a message against the trigger set. First match wins,
// checked top-down: a quoted reply beats every body trigger, so a banker
// quoting our forward is never re-parsed as a fresh request.
func Classify(m Message) Classification {
	if m.HasQuote() {
		return ClassValuationReply
	}
	body := strings.ToLower(m.Body)
	switch {
	case strings.Contains(body, "valuation request:"):
		return ClassValuationRequest
	case strings.Contains(body, "rate package update:"):
		return ClassRatePackageUpdate
	case strings.Contains(body, "update bank rates"):
		return ClassBankRatesUpdate
	case strings.Contains(body, "keyquest mortgage team"):
		return ClassInterestRate
	}
	return ClassIgnored
}

// HandlerName maps a classification to its workflow handler. Empty string
// for Ignored.
func (c Classification) HandlerName() string {
	switch c {
	case ClassValuationReply:
		return "valuation_reply"
	case ClassValuationRequest:
		return "valuation_request"
	case ClassRatePackageUpdate:
		return "rate_package_update"
	case ClassBankRatesUpdate:
		return "bank_rates_update"
	case ClassInterestRate:
		return "interest_rate"
	}
	return ""
}
