package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
  id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
  username      VARCHAR(64)  NOT NULL,
  email         VARCHAR(255) NOT NULL,
  password_hash VARCHAR(255) NOT NULL,
  role          ENUM('CLIENT','FREELANCER','ADMIN') NOT NULL,
  verified      BOOLEAN      NOT NULL DEFAULT FALSE,
  created_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE KEY uq_users_username (username),
  UNIQUE KEY uq_users_email (email)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS projects (
  id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
  title         VARCHAR(255)  NOT NULL,
  description   TEXT          NOT NULL,
  budget        DECIMAL(12,2) NOT NULL,
  deadline      DATE          NOT NULL,
  client_id     BIGINT UNSIGNED NOT NULL,
  freelancer_id BIGINT UNSIGNED NULL,
  status        ENUM('PENDING','APPROVED','DENIED','IN_PROGRESS','COMPLETED') NOT NULL DEFAULT 'PENDING',
  created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  KEY idx_projects_status (status),
  CONSTRAINT fk_projects_client FOREIGN KEY (client_id) REFERENCES users(id) ON DELETE CASCADE,
  CONSTRAINT fk_projects_freelancer FOREIGN KEY (freelancer_id) REFERENCES users(id) ON DELETE SET NULL
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS applications (
  id             BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
  project_id     BIGINT UNSIGNED NOT NULL,
  freelancer_id  BIGINT UNSIGNED NOT NULL,
  cover_letter   TEXT NOT NULL,
  attachment_key VARCHAR(512) NULL,
  status         ENUM('WAITING','APPROVED','REJECTED') NOT NULL DEFAULT 'WAITING',
  created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE KEY uq_app_project_freelancer (project_id, freelancer_id),
  KEY idx_app_project_status (project_id, status),
  CONSTRAINT fk_app_project FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
  CONSTRAINT fk_app_freelancer FOREIGN KEY (freelancer_id) REFERENCES users(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS notifications (
  id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
  event_id   CHAR(36) NULL,
  user_id    BIGINT UNSIGNED NOT NULL,
  message    VARCHAR(1024) NOT NULL,
  type       VARCHAR(32) NOT NULL,
  is_read    BOOLEAN NOT NULL DEFAULT FALSE,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE KEY uq_notifications_event (event_id),
  KEY idx_notifications_user (user_id, is_read),
  CONSTRAINT fk_notifications_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS notification_outbox (
  id           BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
  event_id     CHAR(36) NOT NULL,
  recipient_id BIGINT UNSIGNED NOT NULL,
  message      VARCHAR(1024) NOT NULL,
  type         VARCHAR(32) NOT NULL,
  attempts     INT NOT NULL DEFAULT 0,
  created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  published_at DATETIME NULL,
  failed_at    DATETIME NULL,
  UNIQUE KEY uq_outbox_event (event_id),
  KEY idx_outbox_pending (published_at, failed_at, id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS reports (
  id             BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
  project_id     BIGINT UNSIGNED NOT NULL,
  reporter_id    BIGINT UNSIGNED NOT NULL,
  description    TEXT NOT NULL,
  status         ENUM('PENDING','IN_REVIEW','RESOLVED','REJECTED') NOT NULL DEFAULT 'PENDING',
  admin_response TEXT NULL,
  created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  CONSTRAINT fk_reports_project FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
  CONSTRAINT fk_reports_reporter FOREIGN KEY (reporter_id) REFERENCES users(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS messages (
  id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
  project_id BIGINT UNSIGNED NOT NULL,
  sender_id  BIGINT UNSIGNED NOT NULL,
  content    TEXT NOT NULL,
  is_read    BOOLEAN NOT NULL DEFAULT FALSE,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  KEY idx_messages_project (project_id, created_at),
  CONSTRAINT fk_messages_project FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
  CONSTRAINT fk_messages_sender FOREIGN KEY (sender_id) REFERENCES users(id) ON DELETE CASCADE
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS mails (
  id        BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
  recipient VARCHAR(255)  NOT NULL,
  subject   VARCHAR(255)  NOT NULL,
  content   VARCHAR(2000) NOT NULL,
  mail_type VARCHAR(32)   NOT NULL,
  sent      BOOLEAN       NOT NULL DEFAULT FALSE,
  sent_at   DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP,
  KEY idx_mails_recipient (recipient, sent_at),
  KEY idx_mails_sent (sent, sent_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Apply creates any missing table.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
