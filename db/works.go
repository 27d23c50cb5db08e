package db

import (
	"context"

	"panchayat/models"
)

// WorksDetail (Работа)

func (s *Storage) CreateWorksDetail(ctx context.Context, w *models.WorksDetail) error {
	query := `
        INSERT INTO works_detail
            (serial_number, name, estimate_amount, earnest_money_fee, work_status, tender_status, nit_details_id, approved_action_plan_id)
        VALUES
            ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at, updated_at`
	err := s.db.QueryRowContext(ctx, query,
		w.SerialNumber, w.Name, w.EstimateAmount, w.EarnestMoneyFee, w.WorkStatus, w.TenderStatus,
		w.NitDetailsID, w.ApprovedActionPlanID).
		Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	return translate(err)
}

func (s *Storage) GetWorksDetail(ctx context.Context, id int) (*models.WorksDetail, error) {
	w := &models.WorksDetail{}
	query := `SELECT * FROM works_detail WHERE id=$1`
	if err := s.db.GetContext(ctx, w, query, id); err != nil {
		return nil, translate(err)
	}
	return w, nil
}

// ListWorks возвращает работы; nitID == 0 означает все NIT
func (s *Storage) ListWorks(ctx context.Context, nitID, limit, offset int) ([]models.WorksDetail, error) {
	query := `
        SELECT * FROM works_detail
        WHERE ($1 = 0 OR nit_details_id = $1)
        ORDER BY nit_details_id DESC, serial_number ASC
        LIMIT $2 OFFSET $3`
	works := []models.WorksDetail{}
	if err := s.db.SelectContext(ctx, &works, query, nitID, limit, offset); err != nil {
		return nil, err
	}
	return works, nil
}
