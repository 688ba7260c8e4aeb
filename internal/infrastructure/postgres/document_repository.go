package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rovinlr/FE-CR/internal/domain/entity"
	"github.com/rovinlr/FE-CR/internal/domain/repository"
)

var _ repository.ElectronicDocumentRepository = (*DocumentRepo)(nil)

// DocumentRepo implementación de ElectronicDocumentRepository (usable con pool o tx).
type DocumentRepo struct {
	q Querier
}

// NewDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentRepository(q Querier) *DocumentRepo {
	return &DocumentRepo{q: q}
}

// Create persiste un documento nuevo. La clave tiene constraint único.
func (r *DocumentRepo) Create(doc *entity.ElectronicDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	query := `
		INSERT INTO electronic_documents (id, clave, consecutivo, source_record_id, status, xml_signed, response_payload, error_detail, submitted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(context.Background(), query,
		doc.ID, doc.Clave, doc.Consecutivo, nullIfEmpty(doc.SourceRecordID),
		doc.Status, nullIfEmpty(doc.XMLSigned), nullIfEmpty(doc.ResponsePayload),
		nullIfEmpty(doc.ErrorDetail), doc.SubmittedAt, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("la clave ya existe: %w", err)
		}
		return fmt.Errorf("insert documento: %w", err)
	}
	return nil
}

// Update actualiza estado, XML firmado, respuesta y detalle de error.
func (r *DocumentRepo) Update(doc *entity.ElectronicDocument) error {
	doc.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE electronic_documents
		SET status           = $2,
		    xml_signed       = COALESCE($3, xml_signed),
		    response_payload = COALESCE($4, response_payload),
		    error_detail     = $5,
		    submitted_at     = COALESCE($6, submitted_at),
		    updated_at       = $7
		WHERE id = $1`
	_, err := r.q.Exec(context.Background(), query,
		doc.ID, doc.Status, nullIfEmpty(doc.XMLSigned), nullIfEmpty(doc.ResponsePayload),
		nullIfEmpty(doc.ErrorDetail), doc.SubmittedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update documento: %w", err)
	}
	return nil
}

// GetByClave obtiene un documento por clave. Devuelve (nil, nil) si no existe.
func (r *DocumentRepo) GetByClave(clave string) (*entity.ElectronicDocument, error) {
	query := `
		SELECT id, clave, consecutivo, source_record_id, status,
		       xml_signed, response_payload, error_detail,
		       submitted_at, created_at, updated_at
		FROM electronic_documents WHERE clave = $1`
	doc, err := r.scanOne(r.q.QueryRow(context.Background(), query, clave))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get documento: %w", err)
	}
	return doc, nil
}

// ListByStatus lista documentos en un estado dado, más antiguos primero.
func (r *DocumentRepo) ListByStatus(status string, limit int) ([]*entity.ElectronicDocument, error) {
	query := `
		SELECT id, clave, consecutivo, source_record_id, status,
		       xml_signed, response_payload, error_detail,
		       submitted_at, created_at, updated_at
		FROM electronic_documents
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2`
	rows, err := r.q.Query(context.Background(), query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("listar documentos: %w", err)
	}
	defer rows.Close()

	var docs []*entity.ElectronicDocument
	for rows.Next() {
		doc, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("scan documento: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listar documentos: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepo) scanOne(row pgx.Row) (*entity.ElectronicDocument, error) {
	var doc entity.ElectronicDocument
	var sourceRecordID, xmlSigned, responsePayload, errorDetail *string
	err := row.Scan(
		&doc.ID, &doc.Clave, &doc.Consecutivo, &sourceRecordID, &doc.Status,
		&xmlSigned, &responsePayload, &errorDetail,
		&doc.SubmittedAt, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	deref := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}
	doc.SourceRecordID = deref(sourceRecordID)
	doc.XMLSigned = deref(xmlSigned)
	doc.ResponsePayload = deref(responsePayload)
	doc.ErrorDetail = deref(errorDetail)
	return &doc, nil
}
