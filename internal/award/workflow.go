// Package award оформляет присуждение работы: AOC, наряд, договор,
// регистрация задатка и уведомление победителя.
package award

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"panchayat/db"
	"panchayat/internal/document"
	"panchayat/internal/lock"
	"panchayat/models"
)

var (
	errWorkNotFound = errors.New("works detail not found")
	errBidNotFound  = errors.New("bid not found")
)

// Store - операции хранилища, нужные для присуждения
type Store interface {
	GetWorksDetail(ctx context.Context, id int) (*models.WorksDetail, error)
	GetBid(ctx context.Context, id int) (*models.Bidagency, error)
	FinalizeAward(ctx context.Context, p db.AwardParams) (*db.AwardRecord, error)
	GetAwardByWorks(ctx context.Context, worksDetailID int) (*db.AwardRecord, error)
	GetNit(ctx context.Context, id int) (*models.NitDetails, error)
	GetBidContact(ctx context.Context, bidID int) (*models.BidContact, error)
}

type AgreementCreator interface {
	CreateAgreement(ctx context.Context, a *models.Agreement) error
	GetAgreementByNumber(ctx context.Context, number string) (*models.Agreement, error)
}

type EarnestMoneyRegistrar interface {
	RegisterEarnestMoney(ctx context.Context, agencyID int, amount decimal.Decimal) error
}

type Notifier interface {
	SendAwardedNotification(ctx context.Context, email, nitMemoNumber string, nitMemoDate time.Time, workSerialNumber int, agencyName string) error
}

type DocumentPublisher interface {
	PublishWorkOrder(ctx context.Context, wo document.WorkOrder) (string, error)
}

type Locker interface {
	Lock(ctx context.Context, key string) (func(context.Context) error, error)
}

// Deps: Notifier, Documents и Locker необязательны
type Deps struct {
	Store        Store
	Agreements   AgreementCreator
	EarnestMoney EarnestMoneyRegistrar
	Notifier     Notifier
	Documents    DocumentPublisher
	Locker       Locker
	Logger       *zap.Logger
}

type Workflow struct {
	store      Store
	agreements AgreementCreator
	earnest    EarnestMoneyRegistrar
	notifier   Notifier
	documents  DocumentPublisher
	locker     Locker
	log        *zap.Logger
}

func New(d Deps) *Workflow {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Workflow{
		store:      d.Store,
		agreements: d.Agreements,
		earnest:    d.EarnestMoney,
		notifier:   d.Notifier,
		documents:  d.Documents,
		locker:     d.Locker,
		log:        log.Named("award"),
	}
}

// Request - входные данные присуждения; все поля обязательны
type Request struct {
	WorkOrderMemoNumber string
	WorkOrderMemoDate   time.Time
	WorksDetailID       int
	AcceptedBidID       int
}

func (r Request) missingFields() []string {
	var missing []string
	if strings.TrimSpace(r.WorkOrderMemoNumber) == "" {
		missing = append(missing, "workOrderMemoNumber")
	}
	if r.WorkOrderMemoDate.IsZero() {
		missing = append(missing, "workOrderMemoDate")
	}
	if r.WorksDetailID <= 0 {
		missing = append(missing, "worksDetailId")
	}
	if r.AcceptedBidID <= 0 {
		missing = append(missing, "acceptedBidId")
	}
	return missing
}

// Finalize превращает принятое предложение в наряд и договор.
// Никогда не возвращает сырую ошибку: результат всегда {success} или {error}.
func (w *Workflow) Finalize(ctx context.Context, req Request) Result {
	if missing := req.missingFields(); len(missing) > 0 {
		return failure(KindValidation, "Missing required field(s): "+strings.Join(missing, ", "))
	}
	log := w.log.With(zap.Int("works_detail_id", req.WorksDetailID), zap.Int("bid_id", req.AcceptedBidID))

	if w.locker != nil {
		unlock, err := w.locker.Lock(ctx, fmt.Sprintf("award:works:%d", req.WorksDetailID))
		switch {
		case errors.Is(err, lock.ErrLocked):
			return failure(KindConflict, MsgInProgress)
		case err != nil:
			// без блокировки остаётся условное обновление в базе
			log.Warn("award lock unavailable", zap.Error(err))
		default:
			defer func() {
				if err := unlock(context.WithoutCancel(ctx)); err != nil {
					log.Warn("release award lock", zap.Error(err))
				}
			}()
		}
	}

	works, bid, res, ok := w.loadTargets(ctx, req, log)
	if !ok {
		return res
	}

	memo := strings.TrimSpace(req.WorkOrderMemoNumber)
	number := AgreementNumber(req.WorkOrderMemoDate, memo, works.SerialNumber)
	switch _, err := w.agreements.GetAgreementByNumber(ctx, number); {
	case err == nil:
		log.Info("award rejected: agreement number taken", zap.String("agreement_number", number))
		return failure(KindConflict, MsgAgreementTaken)
	case !errors.Is(err, db.ErrNotFound):
		log.Error("check agreement number", zap.Error(err))
		return failure(KindInternal, MsgFailed)
	}

	rec, err := w.store.FinalizeAward(ctx, db.AwardParams{
		WorksDetailID: works.ID,
		BidAgencyID:   bid.ID,
		MemoNumber:    memo,
		MemoDate:      req.WorkOrderMemoDate,
	})
	if errors.Is(err, db.ErrAlreadyAwarded) {
		log.Info("award rejected: work already awarded")
		return failure(KindConflict, MsgAlreadyAwarded)
	}
	if err != nil {
		log.Error("finalize award", zap.Error(err))
		return failure(KindInternal, MsgFailed)
	}
	log = log.With(zap.Int("aoc_id", rec.AOC.ID), zap.Int("work_order_id", rec.WorkOrder.ID))
	log.Info("work awarded")

	// дальше присуждение уже зафиксировано и не откатывается; отмена запроса шаги не прерывает
	ctx = context.WithoutCancel(ctx)
	agr, err := w.claimAgreement(ctx, newAgreement(rec))
	if errors.Is(err, ErrAgreementConflict) {
		log.Error("agreement number taken by another work after award", zap.String("agreement_number", number))
		return failure(KindConflict, MsgAgreementTaken)
	}
	if err != nil {
		log.Error("create agreement after award; re-run agreement step for this work",
			zap.String("agreement_number", number), zap.Error(err))
		return failure(KindInternal, MsgFailed)
	}

	nit, err := w.store.GetNit(ctx, rec.Works.NitDetailsID)
	switch {
	case errors.Is(err, db.ErrNotFound):
		log.Warn("nit details not found", zap.Int("nit_details_id", rec.Works.NitDetailsID))
		nit = nil
	case err != nil:
		log.Error("load nit details", zap.Error(err))
		return failure(KindInternal, MsgFailed)
	}

	if err := w.earnest.RegisterEarnestMoney(ctx, bid.AgencyID, rec.Works.EarnestMoneyFee); err != nil {
		log.Error("register earnest money", zap.Int("agency_id", bid.AgencyID),
			zap.String("amount", rec.Works.EarnestMoneyFee.String()), zap.Error(err))
	}

	contact, err := w.store.GetBidContact(ctx, bid.ID)
	if err != nil {
		log.Error("resolve winning bidder", zap.Error(err))
		return failure(KindPartial, MsgBidderNotFound)
	}

	w.publishWorkOrder(ctx, log, rec, agr, nit, contact)
	w.notify(ctx, log, rec, nit, contact)

	return success(MsgFinalized)
}

// loadTargets параллельно читает работу и предложение и проверяет, что их можно связать
func (w *Workflow) loadTargets(ctx context.Context, req Request, log *zap.Logger) (*models.WorksDetail, *models.Bidagency, Result, bool) {
	var (
		works *models.WorksDetail
		bid   *models.Bidagency
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		works, err = w.store.GetWorksDetail(gctx, req.WorksDetailID)
		if errors.Is(err, db.ErrNotFound) {
			return errWorkNotFound
		}
		return err
	})
	g.Go(func() error {
		var err error
		bid, err = w.store.GetBid(gctx, req.AcceptedBidID)
		if errors.Is(err, db.ErrNotFound) {
			return errBidNotFound
		}
		return err
	})

	switch err := g.Wait(); {
	case errors.Is(err, errWorkNotFound):
		return nil, nil, failure(KindNotFound, "Work not found"), false
	case errors.Is(err, errBidNotFound):
		return nil, nil, failure(KindNotFound, "Bid not found"), false
	case err != nil:
		log.Error("load award targets", zap.Error(err))
		return nil, nil, failure(KindInternal, MsgFailed), false
	}

	if bid.WorksDetailID != works.ID {
		return nil, nil, failure(KindValidation, "Bid does not belong to this work"), false
	}
	if works.TenderStatus == models.TenderAOC || works.AocID != nil {
		return nil, nil, failure(KindConflict, MsgAlreadyAwarded), false
	}
	if works.TenderStatus != models.TenderOpen || !works.WorkStatus.Awardable() {
		return nil, nil, failure(KindConflict,
			fmt.Sprintf("Work is not open for award (tender status %q, work status %q)", works.TenderStatus, works.WorkStatus)), false
	}
	return works, bid, Result{}, true
}

func (w *Workflow) publishWorkOrder(ctx context.Context, log *zap.Logger, rec *db.AwardRecord, agr *models.Agreement, nit *models.NitDetails, contact *models.BidContact) {
	if w.documents == nil {
		return
	}
	wo := WorkOrderDocument(rec, agr.AgreementNumber, nit, contact)
	name, err := w.documents.PublishWorkOrder(ctx, wo)
	if err != nil {
		log.Error("publish work order document", zap.Error(err))
		return
	}
	log.Info("work order document stored", zap.String("object", name))
}

func (w *Workflow) notify(ctx context.Context, log *zap.Logger, rec *db.AwardRecord, nit *models.NitDetails, contact *models.BidContact) {
	if w.notifier == nil || contact.AgencyEmail == "" {
		return
	}
	if nit == nil {
		log.Warn("skip awarded notification: no nit details")
		return
	}
	err := w.notifier.SendAwardedNotification(ctx, contact.AgencyEmail, nit.MemoNumber, nit.MemoDate,
		rec.Works.SerialNumber, contact.AgencyName)
	if err != nil {
		log.Error("send awarded notification", zap.String("email", contact.AgencyEmail), zap.Error(err))
		return
	}
	log.Info("awarded notification sent", zap.String("email", contact.AgencyEmail))
}

// WorkOrderDocument собирает поля письма о наряде; nit может быть nil
func WorkOrderDocument(rec *db.AwardRecord, agreementNumber string, nit *models.NitDetails, contact *models.BidContact) document.WorkOrder {
	wo := document.WorkOrder{
		WorksDetailID:    rec.Works.ID,
		WorkSerialNumber: rec.Works.SerialNumber,
		WorkName:         rec.Works.Name,
		MemoNumber:       rec.AOC.WorkOrderMemoNumber,
		MemoDate:         rec.AOC.WorkOrderMemoDate,
		EstimateAmount:   rec.Works.EstimateAmount,
		AgencyName:       contact.AgencyName,
		BiddingAmount:    contact.BiddingAmount,
		AgreementNumber:  agreementNumber,
	}
	if nit != nil {
		wo.NitMemoNumber = nit.MemoNumber
	}
	return wo
}
