package services

import (
	"context"
	"time"

	"github.com/otcheredev/lab-report-portal/internal/models"
	"github.com/otcheredev/lab-report-portal/internal/repository"
	"github.com/rs/zerolog/log"
)

// ClientInfo identifies the caller of an audited operation
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

type auditor struct {
	store repository.AuditStore
}

// record writes an audit entry. Failures are logged and never fail the caller.
func (a auditor) record(ctx context.Context, entry models.AuditLog, client ClientInfo, started time.Time, err error) {
	if a.store == nil {
		return
	}
	entry.IPAddress = client.IPAddress
	entry.UserAgent = client.UserAgent
	entry.Duration = time.Since(started).Milliseconds()
	entry.Status = models.AuditStatusSuccess
	if err != nil {
		entry.Status = models.AuditStatusFailure
		entry.ErrorMessage = err.Error()
	}

	if err := a.store.Create(ctx, &entry); err != nil {
		log.Error().Err(err).Str("action", entry.Action).Str("username", entry.Username).Msg("Failed to write audit log")
	}
}
