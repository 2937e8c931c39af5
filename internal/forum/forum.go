// Package forum is the Q&A core: the vote ledger, the acceptance state machine, the
// answer count synchronizer and the services built on them. Storage is reached only
// through Store.
package forum

import (
	"go.uber.org/zap"
)

type Options struct {
	Policy      AcceptedDeletePolicy
	Hasher      PasswordHasher
	Tokens      TokenIssuer
	Notifier    Notifier
	AdminEmails []string
	Logger      *zap.Logger
}

// Services wires every core component over one Store.
type Services struct {
	Ledger        *Ledger
	Acceptance    *Acceptance
	Sync          *Synchronizer
	Reconciler    *Reconciler
	Users         *UserService
	Questions     *QuestionService
	Answers       *AnswerService
	Notifications *NotificationService
	Admin         *AdminService
}

func New(store Store, opts Options) *Services {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Policy == "" {
		opts.Policy = KeepAnswered
	}

	s := &Services{
		Ledger:        NewLedger(store, log.Named("ledger")),
		Acceptance:    NewAcceptance(store, log.Named("acceptance")),
		Sync:          NewSynchronizer(opts.Policy, log.Named("counts")),
		Reconciler:    NewReconciler(store, opts.Policy, log.Named("reconcile")),
		Notifications: NewNotificationService(store, log.Named("notifications")),
	}
	s.Users = NewUserService(store, opts.Hasher, opts.Tokens, opts.AdminEmails, log.Named("users"))
	s.Questions = NewQuestionService(store, s.Ledger, s.Sync, log.Named("questions"))
	s.Answers = NewAnswerService(store, s.Ledger, s.Acceptance, s.Sync, opts.Notifier, log.Named("answers"))
	s.Admin = NewAdminService(store, s.Questions, s.Answers, s.Reconciler, log.Named("admin"))
	return s
}
