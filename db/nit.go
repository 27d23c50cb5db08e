package db

import (
	"context"

	"panchayat/models"
)

// NIT (извещение о тендере)

func (s *Storage) CreateNit(ctx context.Context, n *models.NitDetails) error {
	query := `
        INSERT INTO nit_details
            (memo_number, memo_date, publishing_date, bid_submission_closing_date, bid_opening_date, validity_days, is_supply)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at`
	err := s.db.QueryRowContext(ctx, query,
		n.MemoNumber, n.MemoDate, n.PublishingDate, n.BidSubmissionClosingDate, n.BidOpeningDate, n.ValidityDays, n.IsSupply).
		Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
	return translate(err)
}

func (s *Storage) GetNit(ctx context.Context, id int) (*models.NitDetails, error) {
	n := &models.NitDetails{}
	query := `SELECT * FROM nit_details WHERE id=$1`
	if err := s.db.GetContext(ctx, n, query, id); err != nil {
		return nil, translate(err)
	}
	return n, nil
}

func (s *Storage) UpdateNit(ctx context.Context, n *models.NitDetails) error {
	query := `
        UPDATE nit_details
        SET memo_number=$1, memo_date=$2, publishing_date=$3, bid_submission_closing_date=$4,
            bid_opening_date=$5, validity_days=$6, is_supply=$7, updated_at=NOW()
        WHERE id=$8
        RETURNING updated_at`
	err := s.db.QueryRowContext(ctx, query,
		n.MemoNumber, n.MemoDate, n.PublishingDate, n.BidSubmissionClosingDate,
		n.BidOpeningDate, n.ValidityDays, n.IsSupply, n.ID).
		Scan(&n.UpdatedAt)
	return translate(err)
}

func (s *Storage) ListNits(ctx context.Context, limit, offset int) ([]models.NitDetails, error) {
	query := `
        SELECT * FROM nit_details
        ORDER BY memo_date DESC, id DESC
        LIMIT $1 OFFSET $2`
	nits := []models.NitDetails{}
	if err := s.db.SelectContext(ctx, &nits, query, limit, offset); err != nil {
		return nil, err
	}
	return nits, nil
}
