package forum

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/emilythestrangee/stackit/backend/internal/monitoring"
)

// Reconciler recomputes stored aggregates from live rows and repairs drift left by
// crashes or writes that bypassed the core.
type Reconciler struct {
	store  Store
	policy AcceptedDeletePolicy
	log    *zap.Logger
}

func NewReconciler(store Store, policy AcceptedDeletePolicy, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{store: store, policy: policy, log: log}
}

func (r *Reconciler) RunOnce(ctx context.Context) (ReconcileReport, error) {
	ctx, span := tracer.Start(ctx, "forum.Reconciler.RunOnce")
	defer span.End()

	report, err := r.store.Reconcile(ctx, r.policy)
	if err != nil {
		r.log.Error("reconcile failed", zap.Error(err))
		return ReconcileReport{}, err
	}
	monitoring.ReconcileRepairs.WithLabelValues("answer_votes").Add(float64(report.AnswerVotesRepaired))
	monitoring.ReconcileRepairs.WithLabelValues("question_votes").Add(float64(report.QuestionVotesRepaired))
	monitoring.ReconcileRepairs.WithLabelValues("answers_count").Add(float64(report.AnswerCountsRepaired))
	monitoring.ReconcileRepairs.WithLabelValues("acceptance").Add(float64(report.AcceptanceRepaired))

	if report.Total() > 0 {
		r.log.Warn("reconcile repaired drift",
			zap.Int64("answer_votes", report.AnswerVotesRepaired),
			zap.Int64("question_votes", report.QuestionVotesRepaired),
			zap.Int64("answers_count", report.AnswerCountsRepaired),
			zap.Int64("acceptance", report.AcceptanceRepaired),
		)
	} else {
		r.log.Debug("reconcile found no drift")
	}
	return report, nil
}

// Run reconciles every interval until ctx is done. A non-positive interval disables it.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = r.RunOnce(ctx)
		}
	}
}
