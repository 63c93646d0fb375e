package sms

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"shakti-shield/pkg/logger"
)

// SimulatedProvider logs messages instead of sending them. It is only wired
// outside production when no real provider is configured.
type SimulatedProvider struct {
	logger *logger.Logger
	seq    atomic.Int64
}

func NewSimulatedProvider(log *logger.Logger) *SimulatedProvider {
	if log == nil {
		log = logger.NewNop()
	}
	return &SimulatedProvider{logger: log}
}

func (s *SimulatedProvider) Name() string { return "simulated" }

func (s *SimulatedProvider) SendSMS(ctx context.Context, request *SMSRequest) (*SMSResponse, error) {
	if request.To == "" {
		return &SMSResponse{Status: "failed", Error: ErrEmptyRecipient.Error()}, ErrEmptyRecipient
	}
	if err := ctx.Err(); err != nil {
		return &SMSResponse{Status: "failed", Error: err.Error()}, err
	}

	s.logger.WithFields(map[string]interface{}{
		"to":     request.To,
		"length": len(request.Message),
	}).Warn("SMS provider not configured, message simulated")

	return &SMSResponse{
		MessageID: fmt.Sprintf("sms_sim_%d_%d", time.Now().UnixNano(), s.seq.Add(1)),
		Status:    "simulated",
		Simulated: true,
	}, nil
}
