package award

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"panchayat/db"
	"panchayat/models"
)

const memoNumberWidth = 4

// AgreementNumber: AGR-<год AOC>-<номер мемо AOC, дополненный нулями до 4 знаков>/<серийный номер работы>
func AgreementNumber(aocMemoDate time.Time, aocMemoNumber string, workSerialNumber int) string {
	return fmt.Sprintf("AGR-%d-%s/%d", aocMemoDate.Year(), padMemoNumber(aocMemoNumber), workSerialNumber)
}

func padMemoNumber(memo string) string {
	memo = strings.TrimSpace(memo)
	if len(memo) >= memoNumberWidth {
		return memo
	}
	return strings.Repeat("0", memoNumberWidth-len(memo)) + memo
}

func newAgreement(rec *db.AwardRecord) *models.Agreement {
	return &models.Agreement{
		AgreementNumber:      AgreementNumber(rec.AOC.WorkOrderMemoDate, rec.AOC.WorkOrderMemoNumber, rec.Works.SerialNumber),
		AgreementDate:        rec.AOC.WorkOrderMemoDate,
		ApprovedActionPlanID: rec.Works.ApprovedActionPlanID,
		BidAgencyID:          rec.WorkOrder.BidAgencyID,
	}
}

// ErrAgreementConflict: номер договора уже занят договором другой работы
var ErrAgreementConflict = errors.New("agreement number belongs to another work")

// sameAward сообщает, оформлен ли договор a на то же присуждение, что и want
func sameAward(a, want *models.Agreement) bool {
	return a.BidAgencyID == want.BidAgencyID && a.ApprovedActionPlanID == want.ApprovedActionPlanID
}

// claimAgreement создаёт договор; если номер уже занят, возвращает существующий,
// только когда он оформлен на то же предложение
func (w *Workflow) claimAgreement(ctx context.Context, agr *models.Agreement) (*models.Agreement, error) {
	err := w.agreements.CreateAgreement(ctx, agr)
	if err == nil {
		return agr, nil
	}
	if !errors.Is(err, db.ErrDuplicate) {
		return nil, fmt.Errorf("create agreement: %w", err)
	}

	// параллельный вызов успел создать договор с этим номером
	existing, err := w.agreements.GetAgreementByNumber(ctx, agr.AgreementNumber)
	if err != nil {
		return nil, fmt.Errorf("find agreement: %w", err)
	}
	if !sameAward(existing, agr) {
		return nil, fmt.Errorf("%w: %s", ErrAgreementConflict, agr.AgreementNumber)
	}
	return existing, nil
}

// EnsureAgreement создаёт договор для уже присуждённой работы, если его ещё нет.
// Повторный вызов возвращает существующий договор.
func (w *Workflow) EnsureAgreement(ctx context.Context, worksDetailID int) (*models.Agreement, error) {
	rec, err := w.store.GetAwardByWorks(ctx, worksDetailID)
	if err != nil {
		return nil, fmt.Errorf("load award: %w", err)
	}

	agr := newAgreement(rec)
	existing, err := w.agreements.GetAgreementByNumber(ctx, agr.AgreementNumber)
	switch {
	case err == nil:
		if !sameAward(existing, agr) {
			return nil, fmt.Errorf("%w: %s", ErrAgreementConflict, agr.AgreementNumber)
		}
		return existing, nil
	case !errors.Is(err, db.ErrNotFound):
		return nil, fmt.Errorf("find agreement: %w", err)
	}

	created, err := w.claimAgreement(ctx, agr)
	if err != nil {
		return nil, err
	}
	w.log.Info("agreement created",
		zap.Int("works_detail_id", worksDetailID),
		zap.String("agreement_number", created.AgreementNumber))
	return created, nil
}
