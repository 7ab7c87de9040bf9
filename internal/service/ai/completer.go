package ai

import (
	"context"
	"net/http"

	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/bzik/backend/internal/service/credential"
)

// Outcome is how one upstream attempt ended.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	// OutcomeSoftFailure: the call returned 200 but no usable text.
	OutcomeSoftFailure
	OutcomeRateLimited
	OutcomeQuotaExhausted
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeSoftFailure:
		return "soft_failure"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeQuotaExhausted:
		return "quota_exhausted"
	default:
		return "failure"
	}
}

// failureKind maps an unsuccessful outcome onto pool bookkeeping.
func (o Outcome) failureKind() credential.FailureKind {
	switch o {
	case OutcomeRateLimited:
		return credential.FailureRateLimited
	case OutcomeQuotaExhausted:
		return credential.FailureQuotaExhausted
	default:
		return credential.FailureGeneric
	}
}

// Result is the classified answer of a single attempt.
type Result struct {
	Outcome Outcome
	Status  int
	Text    string
	Err     error
}

// Completer performs one upstream completion with one credential. Implementations
// never panic on bad upstream data; they classify it.
type Completer interface {
	Complete(ctx context.Context, cred credential.Credential, messages []*schema.Message) Result
}

// classifyStatus maps a non-200 HTTP status onto an outcome.
func classifyStatus(status int) Outcome {
	switch status {
	case http.StatusOK:
		return OutcomeSuccess
	case http.StatusTooManyRequests:
		return OutcomeRateLimited
	case http.StatusPaymentRequired:
		return OutcomeQuotaExhausted
	default:
		return OutcomeFailure
	}
}
