package billing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CheckQuota derives the user's current limits. Users without a subscription get
// the free limits and are reported as not having an active subscription.
func (s *SQLService) CheckQuota(ctx context.Context, userID uuid.UUID) (result *QuotaSnapshot, err error) {
	ctx, span := billingTracer.Start(ctx, "CheckQuota",
		trace.WithAttributes(attribute.String("user_id", userID.String())))
	defer func() { finishSpan(span, err) }()

	sub, err := s.getSubscription(ctx, s.db, userID)
	if errors.Is(err, ErrNotFound) {
		info := PlanFree.Info()
		return &QuotaSnapshot{
			UserID:             userID,
			Plan:               PlanFree,
			SubscriptionActive: false,
			Source:             SourceVirtualDefault,
			Quotas:             Quotas{MaxProjects: info.MaxProjects, MaxTasks: info.MaxTasks},
		}, nil
	}
	if err != nil {
		return nil, err
	}

	return &QuotaSnapshot{
		UserID:             userID,
		Plan:               sub.Plan,
		SubscriptionActive: sub.Status == SubscriptionStatusActive,
		Source:             SourceStored,
		Quotas:             Quotas{MaxProjects: sub.MaxProjects, MaxTasks: sub.MaxTasks},
	}, nil
}
