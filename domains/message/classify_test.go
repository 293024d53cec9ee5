package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestClassifyTriggers(t *testing.T) {
	assert.Equal(t, ClassValuationRequest, Classify(Message{Body: "Valuation Request:\nAddress: Blk 1"}))
	assert.Equal(t, ClassRatePackageUpdate, Classify(Message{Body: "Rate Package Update: fixed 2.5%"}))
	assert.Equal(t, ClassBankRatesUpdate, Classify(Message{Body: "please update bank rates for OCBC"}))
	assert.Equal(t, ClassInterestRate, Classify(Message{Body: "From your KeyQuest Mortgage Team"}))
	assert.Equal(t, ClassIgnored, Classify(Message{Body: "lunch at 1?"}))
}

func TestClassifyIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, ClassValuationRequest, Classify(Message{Body: "VALUATION REQUEST: urgent"}))
	assert.Equal(t, ClassBankRatesUpdate, Classify(Message{Body: "Update Bank Rates now"}))
}

func TestClassifyQuoteBeatsBodyTriggers(t *testing.T) {
	// A banker quoting our forward must never be re-parsed as a new request,
	// even when the quoted body carries the request header.
	m := Message{
		Body:     "Valuation Request: Estimated $500k",
		QuotedID: "fwd-1",
	}
	assert.Equal(t, ClassValuationReply, Classify(m))
}

// Any message with a quote classifies as a reply, and any message without
// one classifies as the highest-precedence body trigger it contains.
func TestClassifyPrecedenceProperty(t *testing.T) {
	triggers := []struct {
		fragment string
		class    Classification
	}{
		{"valuation request:", ClassValuationRequest},
		{"rate package update:", ClassRatePackageUpdate},
		{"update bank rates", ClassBankRatesUpdate},
		{"keyquest mortgage team", ClassInterestRate},
	}

	rapid.Check(t, func(t *rapid.T) {
		picked := rapid.SliceOfNDistinct(rapid.IntRange(0, len(triggers)-1), 1, len(triggers), rapid.ID).Draw(t, "picked")
		prefix := rapid.StringMatching(`[a-z ]{0,12}`).Draw(t, "prefix")

		body := prefix
		best := len(triggers)
		for _, idx := range picked {
			body += " " + triggers[idx].fragment
			if idx < best {
				best = idx
			}
		}

		msg := Message{Body: body}
		assert.Equal(t, triggers[best].class, Classify(msg))

		msg.QuotedID = "q1"
		assert.Equal(t, ClassValuationReply, Classify(msg))
	})
}

func TestHandlerNameCoversEveryClass(t *testing.T) {
	assert.Equal(t, "valuation_request", ClassValuationRequest.HandlerName())
	assert.Equal(t, "valuation_reply", ClassValuationReply.HandlerName())
	assert.Equal(t, "rate_package_update", ClassRatePackageUpdate.HandlerName())
	assert.Equal(t, "bank_rates_update", ClassBankRatesUpdate.HandlerName())
	assert.Equal(t, "interest_rate", ClassInterestRate.HandlerName())
	assert.Equal(t, "", ClassIgnored.HandlerName())
}
