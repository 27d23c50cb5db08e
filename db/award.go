package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"panchayat/models"
)

// AwardParams - входные данные для фиксации AOC по работе
type AwardParams struct {
	WorksDetailID int
	BidAgencyID   int
	MemoNumber    string
	MemoDate      time.Time
}

// AwardRecord - всё, что записано одной транзакцией при присуждении
type AwardRecord struct {
	AOC       models.AwardOfContract
	WorkOrder models.WorkOrderDetails
	Works     models.WorksDetail
}

// FinalizeAward создаёт AOC, наряд и переводит работу в статус AOC одной транзакцией.
// Обновление работы условное: если тендер уже не open, возвращается ErrAlreadyAwarded.
func (s *Storage) FinalizeAward(ctx context.Context, p AwardParams) (*AwardRecord, error) {
	rec := &AwardRecord{}
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		rec.AOC = models.AwardOfContract{
			WorksDetailID:       p.WorksDetailID,
			WorkOrderMemoNumber: p.MemoNumber,
			WorkOrderMemoDate:   p.MemoDate,
		}
		err := tx.QueryRowContext(ctx, `
            INSERT INTO award_of_contract (works_detail_id, work_order_memo_number, work_order_memo_date)
            VALUES ($1, $2, $3)
            RETURNING id, created_at`,
			p.WorksDetailID, p.MemoNumber, p.MemoDate).
			Scan(&rec.AOC.ID, &rec.AOC.CreatedAt)
		if err != nil {
			// уникальность works_detail_id: AOC по работе уже есть
			if isUniqueViolation(err) {
				return ErrAlreadyAwarded
			}
			return fmt.Errorf("create aoc: %w", err)
		}

		rec.WorkOrder = models.WorkOrderDetails{AocID: rec.AOC.ID, BidAgencyID: p.BidAgencyID}
		err = tx.QueryRowContext(ctx, `
            INSERT INTO work_order_details (aoc_id, bid_agency_id)
            VALUES ($1, $2)
            RETURNING id, created_at`,
			rec.AOC.ID, p.BidAgencyID).
			Scan(&rec.WorkOrder.ID, &rec.WorkOrder.CreatedAt)
		if err != nil {
			return fmt.Errorf("create work order: %w", err)
		}

		err = tx.GetContext(ctx, &rec.Works, `
            UPDATE works_detail
            SET work_status=$1, tender_status=$2, aoc_id=$3, updated_at=NOW()
            WHERE id=$4 AND tender_status=$5 AND work_status IN ($6, $7, $8)
            RETURNING *`,
			models.WorkOrder, models.TenderAOC, rec.AOC.ID, p.WorksDetailID,
			models.TenderOpen, models.WorkYetToStart, models.WorkInProgress, models.WorkCompleted)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAlreadyAwarded
		}
		if err != nil {
			return fmt.Errorf("update works detail: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetAwardByWorks возвращает AOC и наряд по уже присуждённой работе
func (s *Storage) GetAwardByWorks(ctx context.Context, worksDetailID int) (*AwardRecord, error) {
	works, err := s.GetWorksDetail(ctx, worksDetailID)
	if err != nil {
		return nil, err
	}
	if works.AocID == nil {
		return nil, ErrNotFound
	}

	rec := &AwardRecord{Works: *works}
	if err := s.db.GetContext(ctx, &rec.AOC, `SELECT * FROM award_of_contract WHERE id=$1`, *works.AocID); err != nil {
		return nil, translate(err)
	}
	if err := s.db.GetContext(ctx, &rec.WorkOrder, `SELECT * FROM work_order_details WHERE aoc_id=$1`, rec.AOC.ID); err != nil {
		return nil, translate(err)
	}
	return rec, nil
}

// Agreement (Договор)

func (s *Storage) CreateAgreement(ctx context.Context, a *models.Agreement) error {
	query := `
        INSERT INTO agreement (agreement_number, agreement_date, approved_action_plan_id, bid_agency_id)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at`
	err := s.db.QueryRowContext(ctx, query, a.AgreementNumber, a.AgreementDate, a.ApprovedActionPlanID, a.BidAgencyID).
		Scan(&a.ID, &a.CreatedAt)
	return translate(err)
}

func (s *Storage) GetAgreementByNumber(ctx context.Context, number string) (*models.Agreement, error) {
	a := &models.Agreement{}
	query := `SELECT * FROM agreement WHERE agreement_number=$1`
	if err := s.db.GetContext(ctx, a, query, number); err != nil {
		return nil, translate(err)
	}
	return a, nil
}

// RegisterEarnestMoney фиксирует задаток за агентством
func (s *Storage) RegisterEarnestMoney(ctx context.Context, agencyID int, amount decimal.Decimal) error {
	query := `INSERT INTO earnest_money (agency_id, amount) VALUES ($1, $2)`
	_, err := s.db.ExecContext(ctx, query, agencyID, amount)
	return err
}

// ListWorkOrderRegister - реестр выданных нарядов для выгрузки
func (s *Storage) ListWorkOrderRegister(ctx context.Context) ([]models.WorkOrderRegisterRow, error) {
	query := `
        SELECT w.id AS works_detail_id, w.serial_number, w.name AS work_name,
               n.memo_number AS nit_memo_number,
               aoc.work_order_memo_number, aoc.work_order_memo_date,
               ag.name AS agency_name, b.bidding_amount,
               agr.agreement_number
        FROM works_detail w
        JOIN nit_details n ON n.id = w.nit_details_id
        JOIN award_of_contract aoc ON aoc.id = w.aoc_id
        JOIN work_order_details wo ON wo.aoc_id = aoc.id
        JOIN bid_agency b ON b.id = wo.bid_agency_id
        JOIN agency_details ag ON ag.id = b.agency_id
        LEFT JOIN agreement agr ON agr.bid_agency_id = b.id
        ORDER BY aoc.work_order_memo_date ASC, w.serial_number ASC`
	rows := []models.WorkOrderRegisterRow{}
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	return rows, nil
}
