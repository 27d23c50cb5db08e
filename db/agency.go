package db

import (
	"context"

	"panchayat/models"
)

// AgencyDetails (Агентство)

func (s *Storage) CreateAgency(ctx context.Context, a *models.AgencyDetails) error {
	query := `
        INSERT INTO agency_details (name, contact_number, email, gstin, pan)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at`
	err := s.db.QueryRowContext(ctx, query, a.Name, a.ContactNumber, a.Email, a.Gstin, a.Pan).
		Scan(&a.ID, &a.CreatedAt)
	return translate(err)
}

func (s *Storage) GetAgency(ctx context.Context, id int) (*models.AgencyDetails, error) {
	a := &models.AgencyDetails{}
	query := `SELECT * FROM agency_details WHERE id=$1`
	if err := s.db.GetContext(ctx, a, query, id); err != nil {
		return nil, translate(err)
	}
	return a, nil
}

// Bidagency (Предложение)

func (s *Storage) CreateBid(ctx context.Context, b *models.Bidagency) error {
	query := `
        INSERT INTO bid_agency (works_detail_id, agency_id, bidding_amount)
        VALUES ($1, $2, $3)
        RETURNING id, created_at`
	err := s.db.QueryRowContext(ctx, query, b.WorksDetailID, b.AgencyID, b.BiddingAmount).
		Scan(&b.ID, &b.CreatedAt)
	return translate(err)
}

func (s *Storage) GetBid(ctx context.Context, id int) (*models.Bidagency, error) {
	b := &models.Bidagency{}
	query := `SELECT * FROM bid_agency WHERE id=$1`
	if err := s.db.GetContext(ctx, b, query, id); err != nil {
		return nil, translate(err)
	}
	return b, nil
}

// ListBidsForWork - сначала наименьшее предложение
func (s *Storage) ListBidsForWork(ctx context.Context, worksDetailID int) ([]models.Bidagency, error) {
	query := `
        SELECT * FROM bid_agency
        WHERE works_detail_id = $1
        ORDER BY bidding_amount ASC, created_at ASC`
	bids := []models.Bidagency{}
	if err := s.db.SelectContext(ctx, &bids, query, worksDetailID); err != nil {
		return nil, err
	}
	return bids, nil
}

// GetBidContact возвращает предложение вместе с именем и почтой агентства
func (s *Storage) GetBidContact(ctx context.Context, bidID int) (*models.BidContact, error) {
	c := &models.BidContact{}
	query := `
        SELECT b.id AS bid_id, b.works_detail_id, b.agency_id, b.bidding_amount,
               a.name AS agency_name, a.email AS agency_email
        FROM bid_agency b
        JOIN agency_details a ON a.id = b.agency_id
        WHERE b.id = $1`
	if err := s.db.GetContext(ctx, c, query, bidID); err != nil {
		return nil, translate(err)
	}
	return c, nil
}
