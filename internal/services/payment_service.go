package services

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"ticketing/internal/domain"
)

const (
	PaymentSucceeded = "succeeded"
	PaymentDeclined  = "declined"
	PaymentTimeout   = "timeout"
)

type PaymentRequest struct {
	Amount float64
	Method string
	UserID string
}

type PaymentResult struct {
	Outcome       string    `json:"outcome"`
	TransactionID string    `json:"transaction_id"`
	Method        string    `json:"method"`
	ProcessedAt   time.Time `json:"processed_at"`
}

// PaymentGateway is the seam for the real gateway client. Outcomes are
// explicit; a declined charge is a result, not an error.
type PaymentGateway interface {
	Charge(ctx context.Context, req PaymentRequest) (PaymentResult, error)
}

// SimulatedGateway approves roughly 95% of charges. It stands in for the
// gateway in development and in tests via a seeded Rand.
type SimulatedGateway struct {
	DeclineRate float64
	Rand        *rand.Rand
}

func (g SimulatedGateway) Charge(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	select {
	case <-ctx.Done():
		return PaymentResult{Outcome: PaymentTimeout}, domain.UpstreamError{System: "payment gateway", Msg: "charge timed out", Err: ctx.Err()}
	default:
	}

	if req.Amount < 0 {
		return PaymentResult{}, domain.ValidationError{Field: "amount", Msg: "must not be negative"}
	}

	rate := g.DeclineRate
	if rate <= 0 {
		rate = 0.05
	}
	roll := g.Rand
	if roll == nil {
		roll = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if roll.Float64() < rate {
		return PaymentResult{Outcome: PaymentDeclined, Method: req.Method, ProcessedAt: time.Now().UTC()}, nil
	}

	return PaymentResult{
		Outcome:       PaymentSucceeded,
		TransactionID: "TXN-" + uuid.NewString(),
		Method:        req.Method,
		ProcessedAt:   time.Now().UTC(),
	}, nil
}
