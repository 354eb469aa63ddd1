package tokenguard

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventTokenIssued        = "token_issued"
	auditEventTokenIssueFailure  = "token_issue_failure"
	auditEventTokenRejected      = "token_rejected"
	auditEventTokenFailOpen      = "token_admitted_fail_open"
	auditEventTokenRevoked       = "token_revoked"
	auditEventLogoutRejected     = "logout_rejected"
	auditEventLogoutStoreFailure = "logout_store_failure"
	auditEventLoginFailure       = "login_failure"
)

// AuditErrorCode is the stable error label written to audit records.
type AuditErrorCode string

const (
	auditErrMissingToken       AuditErrorCode = "missing_token"
	auditErrMalformed          AuditErrorCode = "malformed"
	auditErrExpired            AuditErrorCode = "expired"
	auditErrMissingTokenID     AuditErrorCode = "missing_token_id"
	auditErrRevoked            AuditErrorCode = "revoked"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrInvalidSubject     AuditErrorCode = "invalid_subject"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subject string,
	tokenID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Subject:   subject,
		TokenID:   tokenID,
		IP:        clientIPFromContext(ctx),
		RequestID: RequestIDFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrMissingToken):
		return auditErrMissingToken
	case errors.Is(err, ErrTokenExpired):
		return auditErrExpired
	case errors.Is(err, ErrTokenMissingID):
		return auditErrMissingTokenID
	case errors.Is(err, ErrTokenRevoked):
		return auditErrRevoked
	case errors.Is(err, ErrRevocationUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrTokenMalformed):
		return auditErrMalformed
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrInvalidSubject):
		return auditErrInvalidSubject
	default:
		return auditErrInternal
	}
}
