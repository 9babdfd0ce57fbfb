package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kubikportal/portal-service/internal/domain"
)

// AttachmentRepository manages attachment metadata rows.
type AttachmentRepository interface {
	Create(ctx context.Context, att *domain.AttachmentReference) error
	ListByMessage(ctx context.Context, messageID string) ([]domain.AttachmentReference, error)
	GetByID(ctx context.Context, id string) (*domain.AttachmentReference, error)
}

type attachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository builds repository.
func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

func (r *attachmentRepository) Create(ctx context.Context, att *domain.AttachmentReference) error {
	const query = `
        INSERT INTO ticket_attachments (ticket_message_id, storage_key, file_name, mime_type, size_bytes)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		att.TicketMessageID,
		att.StorageKey,
		att.FileName,
		att.MimeType,
		att.SizeBytes,
	).Scan(&att.ID, &att.CreatedAt)
}

func (r *attachmentRepository) ListByMessage(ctx context.Context, messageID string) ([]domain.AttachmentReference, error) {
	const query = `
        SELECT id, ticket_message_id, storage_key, file_name, mime_type, size_bytes, created_at
        FROM ticket_attachments WHERE ticket_message_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AttachmentReference
	for rows.Next() {
		var att domain.AttachmentReference
		if err := rows.Scan(
			&att.ID,
			&att.TicketMessageID,
			&att.StorageKey,
			&att.FileName,
			&att.MimeType,
			&att.SizeBytes,
			&att.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, att)
	}
	return result, rows.Err()
}

func (r *attachmentRepository) GetByID(ctx context.Context, id string) (*domain.AttachmentReference, error) {
	const query = `
        SELECT id, ticket_message_id, storage_key, file_name, mime_type, size_bytes, created_at
        FROM ticket_attachments WHERE id=$1`
	var att domain.AttachmentReference
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&att.ID,
		&att.TicketMessageID,
		&att.StorageKey,
		&att.FileName,
		&att.MimeType,
		&att.SizeBytes,
		&att.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &att, nil
}
