package codec

import (
	"fmt"

	"github.com/n1shan1/pms-trade-capture/internal/domain"
)

// Classify turns raw stream bytes into a decoded trade event or a quarantine
// reason. Pure function: no retries, no side effects, safe from any
// goroutine.
//
// The returned event is non-nil exactly when reason is empty. Both decode
// failures and constraint violations are permanent; the caller routes them
// to quarantine, never back to the stream.
func Classify(raw []byte) (*domain.TradeEvent, string) {
	ev, err := Decode(raw)
	if err != nil {
		return nil, fmt.Sprintf("invalid payload: %v", err)
	}
	if err := ev.Validate(); err != nil {
		return nil, fmt.Sprintf("constraint violation: %v", err)
	}
	return ev, ""
}
