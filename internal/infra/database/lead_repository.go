package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/xavierca1/gestion-leads/internal/entity"
)

const leadColumns = `
	id, created_at, origen, form_type, tipo, nombre, telefono, email, mensaje,
	ubicacion, superficie, habitaciones, renta_deseada, disponibilidad,
	acepta_privacidad, acepta_comunicaciones,
	utm_source, utm_medium, utm_campaign, utm_term, utm_content,
	url_origen, referrer, user_agent, estado`

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

func (r *LeadRepository) Create(ctx context.Context, l *entity.Lead) error {
	query := `INSERT INTO leads (` + leadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		        $17, $18, $19, $20, $21, $22, $23, $24, $25)`

	_, err := r.DB.ExecContext(ctx, query,
		l.ID,
		l.CreatedAt,
		l.Origin,
		l.FormType,
		nullString(string(l.Persona)),
		nullString(l.Name),
		nullString(l.Phone),
		nullString(l.Email),
		nullString(l.Message),
		nullString(l.Location),
		l.AreaM2,
		l.Rooms,
		l.DesiredRent,
		nullTime(l.AvailableFrom),
		l.PrivacyAccepted,
		l.MarketingAccepted,
		nullString(l.UTMSource),
		nullString(l.UTMMedium),
		nullString(l.UTMCampaign),
		nullString(l.UTMTerm),
		nullString(l.UTMContent),
		nullString(l.PageURL),
		nullString(l.Referrer),
		nullString(l.UserAgent),
		string(l.Status),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return entity.ErrDuplicateLead
		}
		return fmt.Errorf("erro ao inserir lead: %w", err)
	}
	return nil
}

func (r *LeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`

	lead, err := scanLead(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entity.ErrLeadNotFound
		}
		return nil, fmt.Errorf("erro ao buscar lead: %w", err)
	}
	return lead, nil
}

func (r *LeadRepository) FindAll(ctx context.Context) ([]*entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar leads: %w", err)
	}
	defer rows.Close()

	var leads []*entity.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("erro ao escanear lead: %w", err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("erro ao listar leads: %w", err)
	}
	return leads, nil
}

func (r *LeadRepository) UpdateStatus(ctx context.Context, id string, status entity.LeadStatus) error {
	query := `UPDATE leads SET estado = $1 WHERE id = $2`

	res, err := r.DB.ExecContext(ctx, query, string(status), id)
	if err != nil {
		return fmt.Errorf("erro ao atualizar estado do lead: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("erro ao atualizar estado do lead: %w", err)
	}
	if n == 0 {
		return entity.ErrLeadNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*entity.Lead, error) {
	var (
		l                                              entity.Lead
		persona, name, phone, email, message, location sql.NullString
		utmSource, utmMedium, utmCampaign              sql.NullString
		utmTerm, utmContent                            sql.NullString
		pageURL, referrer, userAgent                   sql.NullString
		area, rent                                     sql.NullFloat64
		rooms                                          sql.NullInt64
		available                                      sql.NullTime
		status                                         string
	)

	err := row.Scan(
		&l.ID, &l.CreatedAt, &l.Origin, &l.FormType, &persona, &name, &phone, &email, &message,
		&location, &area, &rooms, &rent, &available,
		&l.PrivacyAccepted, &l.MarketingAccepted,
		&utmSource, &utmMedium, &utmCampaign, &utmTerm, &utmContent,
		&pageURL, &referrer, &userAgent, &status,
	)
	if err != nil {
		return nil, err
	}

	l.Persona = entity.Persona(persona.String)
	l.Name = name.String
	l.Phone = phone.String
	l.Email = email.String
	l.Message = message.String
	l.Location = location.String
	l.UTMSource = utmSource.String
	l.UTMMedium = utmMedium.String
	l.UTMCampaign = utmCampaign.String
	l.UTMTerm = utmTerm.String
	l.UTMContent = utmContent.String
	l.PageURL = pageURL.String
	l.Referrer = referrer.String
	l.UserAgent = userAgent.String
	l.Status = entity.LeadStatus(status)

	if area.Valid {
		v := area.Float64
		l.AreaM2 = &v
	}
	if rooms.Valid {
		v := int(rooms.Int64)
		l.Rooms = &v
	}
	if rent.Valid {
		v := rent.Float64
		l.DesiredRent = &v
	}
	if available.Valid {
		v := available.Time
		l.AvailableFrom = &v
	}
	return &l, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullTime só existe para deixar explícito o NULL no driver.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
