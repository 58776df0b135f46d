package publisher

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/n1shan1/pms-trade-capture/internal/domain"
)

// errSerialization marks failures building the outgoing record before any
// network round trip. Producer-side by construction, so never retriable.
var errSerialization = errors.New("record serialization failed")

// ClassifyPublishError decides whether a publish failure condemns the
// record or the system. The poison set is closed: serialization failures
// plus the broker responses that reject this specific record. Everything
// else is a system failure, including timeouts, cancellation, transport
// errors, retriable broker codes and anything unrecognized. Retrying a
// good record is recoverable; quarantining one is not.
//
// The reason string is what lands in the dead-letter row for poison pills;
// for system failures it is a short label for the logs.
func ClassifyPublishError(err error) (domain.Classification, string) {
	switch {
	case errors.Is(err, errSerialization):
		return domain.ClassPoisonPill, fmt.Sprintf("serialization failed: %v", err)
	case errors.Is(err, kerr.MessageTooLarge), errors.Is(err, kerr.RecordListTooLarge):
		return domain.ClassPoisonPill, fmt.Sprintf("record too large for broker: %v", err)
	case errors.Is(err, kerr.InvalidRecord), errors.Is(err, kerr.CorruptMessage):
		return domain.ClassPoisonPill, fmt.Sprintf("broker rejected record: %v", err)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, kgo.ErrRecordTimeout):
		return domain.ClassSystemFailure, "publish timed out"
	case errors.Is(err, context.Canceled):
		return domain.ClassSystemFailure, "publish interrupted"
	case kerr.IsRetriable(err):
		return domain.ClassSystemFailure, "retriable broker error"
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.ClassSystemFailure, "transport error"
	}
	return domain.ClassSystemFailure, "unclassified publish error"
}
