package worker

import (
	"context"
	"errors"
	"log"

	"filevault/models"
	"filevault/queue"
	"filevault/repository"

	"github.com/google/uuid"
)

// UserGetter is the slice of the user store the mailer needs.
type UserGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Mailer consumes welcome jobs enqueued at registration. There is no real
// mail transport; the send is a log line, same queue contract as the
// thumbnail stream.
type Mailer struct {
	users UserGetter
}

// NewMailer creates a welcome-email worker.
func NewMailer(users UserGetter) *Mailer {
	return &Mailer{users: users}
}

// Run consumes messages until the channel is closed or ctx is canceled.
func (m *Mailer) Run(ctx context.Context, msgs <-chan queue.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var job models.WelcomeJob
			if err := msg.Decode(&job); err != nil {
				log.Printf("worker: dropping undecodable welcome job: %v", err)
				continue
			}
			if err := m.process(ctx, job); err != nil {
				log.Printf("worker: welcome job for user %s failed: %v", job.UserID, err)
			}
		}
	}
}

func (m *Mailer) process(ctx context.Context, job models.WelcomeJob) error {
	if job.UserID == uuid.Nil {
		return &JobError{Kind: FailureMissingField, Err: errors.New("missing userId")}
	}

	user, err := m.users.GetByID(ctx, job.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return &JobError{Kind: FailureNotFound, Err: errors.New("user not found")}
	}
	if err != nil {
		return &JobError{Kind: FailureProcessing, Err: err}
	}

	log.Printf("Welcome %s!", user.Email)
	return nil
}
