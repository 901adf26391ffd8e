package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/iliyamo/freelance-marketplace/internal/model"
	"github.com/iliyamo/freelance-marketplace/internal/repository"
)

// notice is one notification to be written to the outbox.
type notice struct {
	to  uint64
	typ model.NotificationType
	msg string
}

func applicationReceived(clientID uint64, title string) notice {
	return notice{clientID, model.NotificationApplicationReceived, "New application received for project: " + title}
}

func applicationAccepted(freelancerID uint64, title string) notice {
	return notice{freelancerID, model.NotificationApplicationAccepted,
		fmt.Sprintf("Your application for project '%s' has been accepted!", title)}
}

func applicationRejected(freelancerID uint64, title string) notice {
	return notice{freelancerID, model.NotificationApplicationRejected,
		fmt.Sprintf("Your application for project '%s' has been rejected", title)}
}

func projectCompleted(clientID uint64, title string) notice {
	return notice{clientID, model.NotificationProjectCompleted,
		fmt.Sprintf("Project '%s' has been marked as completed", title)}
}

func reportStatusChanged(reporterID uint64, title string, status model.ReportStatus) notice {
	return notice{reporterID, model.NotificationReportStatusChanged,
		fmt.Sprintf("Your report for project '%s' status has been updated to: %s", title, status)}
}

func newMessage(recipientID uint64, sender, title string) notice {
	return notice{recipientID, model.NotificationNewMessage,
		fmt.Sprintf("New message from %s regarding project '%s'", sender, title)}
}

// enqueue writes notices to the outbox of tx.  Each row gets a fresh event
// id that the sink uses to drop redeliveries.
func enqueue(ctx context.Context, tx repository.Store, notices ...notice) error {
	for _, n := range notices {
		m := &model.OutboxMessage{
			EventID:     uuid.NewString(),
			RecipientID: n.to,
			Message:     n.msg,
			Type:        n.typ,
		}
		if err := tx.Outbox().Enqueue(ctx, m); err != nil {
			return fmt.Errorf("enqueue %s: %w", n.typ, err)
		}
	}
	return nil
}
