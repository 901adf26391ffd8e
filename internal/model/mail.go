package model

import "time"

// MailType classifies outgoing mail in the audit log.
type MailType string

const MailVerification MailType = "VERIFICATION"

// MailRecord is one row of the `mails` audit table.  Every attempted send
// is recorded, failed ones included; Sent tells the two apart.
type MailRecord struct {
	ID        uint64    `json:"id"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Content   string    `json:"content"`
	Type      MailType  `json:"mailType"`
	Sent      bool      `json:"sent"`
	SentAt    time.Time `json:"sentAt"`
}
