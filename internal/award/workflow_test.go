package award_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"panchayat/db"
	"panchayat/internal/award"
	"panchayat/internal/document"
	"panchayat/internal/lock"
	"panchayat/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// memStore - хранилище в памяти с тем же условным обновлением, что и в Postgres
type memStore struct {
	mu         sync.Mutex
	nextID     int
	works      map[int]*models.WorksDetail
	bids       map[int]*models.Bidagency
	nits       map[int]*models.NitDetails
	contacts   map[int]*models.BidContact
	aocs       []models.AwardOfContract
	workOrders []models.WorkOrderDetails
	agreements map[string]*models.Agreement
	earnest    []models.EarnestMoney

	finalizeErr  error
	agreementErr error
	earnestErr   error

	// afterFinalize вызывается сразу после фиксации присуждения
	afterFinalize func()
	// missedLookups: столько первых поисков договора вернут ErrNotFound
	missedLookups int
}

func newMemStore() *memStore {
	s := &memStore{
		nextID:     100,
		works:      map[int]*models.WorksDetail{},
		bids:       map[int]*models.Bidagency{},
		nits:       map[int]*models.NitDetails{},
		contacts:   map[int]*models.BidContact{},
		agreements: map[string]*models.Agreement{},
	}
	s.nits[1] = &models.NitDetails{ID: 1, MemoNumber: "118/GP/2024", MemoDate: time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)}
	s.works[3] = &models.WorksDetail{
		ID:                   3,
		SerialNumber:         12,
		Name:                 "Drain at Ward 4",
		EstimateAmount:       decimal.RequireFromString("250000"),
		EarnestMoneyFee:      decimal.RequireFromString("5000"),
		WorkStatus:           models.WorkYetToStart,
		TenderStatus:         models.TenderOpen,
		NitDetailsID:         1,
		ApprovedActionPlanID: 9,
	}
	s.bids[42] = &models.Bidagency{ID: 42, WorksDetailID: 3, AgencyID: 5, BiddingAmount: decimal.RequireFromString("231500")}
	s.nits[2] = &models.NitDetails{ID: 2, MemoNumber: "121/GP/2024", MemoDate: time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)}
	s.works[4] = &models.WorksDetail{
		ID:                   4,
		SerialNumber:         12,
		Name:                 "Tube well at Ward 7",
		EstimateAmount:       decimal.RequireFromString("120000"),
		EarnestMoneyFee:      decimal.RequireFromString("2400"),
		WorkStatus:           models.WorkYetToStart,
		TenderStatus:         models.TenderOpen,
		NitDetailsID:         2,
		ApprovedActionPlanID: 10,
	}
	s.bids[43] = &models.Bidagency{ID: 43, WorksDetailID: 4, AgencyID: 6, BiddingAmount: decimal.RequireFromString("100")}
	s.contacts[43] = &models.BidContact{BidID: 43, WorksDetailID: 4, AgencyID: 6, AgencyName: "Das Builders",
		AgencyEmail: "das@example.org", BiddingAmount: decimal.RequireFromString("100")}
	s.contacts[42] = &models.BidContact{BidID: 42, WorksDetailID: 3, AgencyID: 5, AgencyName: "Sen Construction",
		AgencyEmail: "sen@example.org", BiddingAmount: decimal.RequireFromString("231500")}
	return s
}

func (s *memStore) id() int {
	s.nextID++
	return s.nextID
}

func (s *memStore) GetWorksDetail(ctx context.Context, id int) (*models.WorksDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.works[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (s *memStore) GetBid(ctx context.Context, id int) (*models.Bidagency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bids[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *memStore) FinalizeAward(ctx context.Context, p db.AwardParams) (*db.AwardRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalizeErr != nil {
		return nil, s.finalizeErr
	}
	w := s.works[p.WorksDetailID]
	if w.TenderStatus != models.TenderOpen {
		return nil, db.ErrAlreadyAwarded
	}
	aoc := models.AwardOfContract{ID: s.id(), WorksDetailID: p.WorksDetailID, WorkOrderMemoNumber: p.MemoNumber, WorkOrderMemoDate: p.MemoDate}
	wo := models.WorkOrderDetails{ID: s.id(), AocID: aoc.ID, BidAgencyID: p.BidAgencyID}
	s.aocs = append(s.aocs, aoc)
	s.workOrders = append(s.workOrders, wo)

	w.TenderStatus = models.TenderAOC
	w.WorkStatus = models.WorkOrder
	aocID := aoc.ID
	w.AocID = &aocID
	if s.afterFinalize != nil {
		s.afterFinalize()
	}
	return &db.AwardRecord{AOC: aoc, WorkOrder: wo, Works: *w}, nil
}

func (s *memStore) GetAwardByWorks(ctx context.Context, worksDetailID int) (*db.AwardRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.works[worksDetailID]
	if !ok || w.AocID == nil {
		return nil, db.ErrNotFound
	}
	rec := &db.AwardRecord{Works: *w}
	for _, a := range s.aocs {
		if a.ID == *w.AocID {
			rec.AOC = a
		}
	}
	for _, wo := range s.workOrders {
		if wo.AocID == *w.AocID {
			rec.WorkOrder = wo
		}
	}
	return rec, nil
}

func (s *memStore) GetNit(ctx context.Context, id int) (*models.NitDetails, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nits[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return n, nil
}

func (s *memStore) GetBidContact(ctx context.Context, bidID int) (*models.BidContact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[bidID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return c, nil
}

func (s *memStore) CreateAgreement(ctx context.Context, a *models.Agreement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.agreementErr != nil {
		return s.agreementErr
	}
	if _, ok := s.agreements[a.AgreementNumber]; ok {
		return db.ErrDuplicate
	}
	a.ID = s.id()
	cp := *a
	s.agreements[a.AgreementNumber] = &cp
	return nil
}

func (s *memStore) GetAgreementByNumber(ctx context.Context, number string) (*models.Agreement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.missedLookups > 0 {
		s.missedLookups--
		return nil, db.ErrNotFound
	}
	a, ok := s.agreements[number]
	if !ok {
		return nil, db.ErrNotFound
	}
	return a, nil
}

func (s *memStore) RegisterEarnestMoney(ctx context.Context, agencyID int, amount decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.earnestErr != nil {
		return s.earnestErr
	}
	s.earnest = append(s.earnest, models.EarnestMoney{ID: s.id(), AgencyID: agencyID, Amount: amount})
	return nil
}

type notification struct {
	email, nitMemo string
	nitDate        time.Time
	serial         int
	agency         string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification
	err  error
}

func (n *fakeNotifier) SendAwardedNotification(ctx context.Context, email, nitMemoNumber string, nitMemoDate time.Time, workSerialNumber int, agencyName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, notification{email, nitMemoNumber, nitMemoDate, workSerialNumber, agencyName})
	return nil
}

type fakeDocuments struct {
	published []document.WorkOrder
	err       error
}

func (d *fakeDocuments) PublishWorkOrder(ctx context.Context, wo document.WorkOrder) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if d.err != nil {
		return "", d.err
	}
	d.published = append(d.published, wo)
	return "workorders/3/test.pdf", nil
}

type busyLocker struct{}

func (busyLocker) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	return nil, lock.ErrLocked
}

func newWorkflow(s *memStore, n *fakeNotifier, d *fakeDocuments) *award.Workflow {
	deps := award.Deps{Store: s, Agreements: s, EarnestMoney: s}
	if n != nil {
		deps.Notifier = n
	}
	if d != nil {
		deps.Documents = d
	}
	return award.New(deps)
}

var memoDate = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

func validRequest() award.Request {
	return award.Request{
		WorkOrderMemoNumber: "7",
		WorkOrderMemoDate:   memoDate,
		WorksDetailID:       3,
		AcceptedBidID:       42,
	}
}

func TestFinalizeAwardsWork(t *testing.T) {
	s := newMemStore()
	n := &fakeNotifier{}
	d := &fakeDocuments{}
	wf := newWorkflow(s, n, d)

	res := wf.Finalize(context.Background(), validRequest())
	require.True(t, res.OK())
	require.Equal(t, award.MsgFinalized, res.Success)
	require.Empty(t, res.Error)

	require.Len(t, s.aocs, 1)
	require.Equal(t, "7", s.aocs[0].WorkOrderMemoNumber)
	require.Len(t, s.workOrders, 1)
	require.Equal(t, s.aocs[0].ID, s.workOrders[0].AocID)
	require.Equal(t, 42, s.workOrders[0].BidAgencyID)

	w := s.works[3]
	require.Equal(t, models.TenderAOC, w.TenderStatus)
	require.Equal(t, models.WorkOrder, w.WorkStatus)
	require.Equal(t, s.aocs[0].ID, *w.AocID)

	agr, ok := s.agreements["AGR-2024-0007/12"]
	require.True(t, ok)
	require.Equal(t, memoDate, agr.AgreementDate)
	require.Equal(t, 9, agr.ApprovedActionPlanID)
	require.Equal(t, 42, agr.BidAgencyID)

	require.Len(t, s.earnest, 1)
	require.Equal(t, 5, s.earnest[0].AgencyID)
	require.True(t, decimal.RequireFromString("5000").Equal(s.earnest[0].Amount))

	require.Len(t, n.sent, 1)
	require.Equal(t, notification{
		email:   "sen@example.org",
		nitMemo: "118/GP/2024",
		nitDate: time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		serial:  12,
		agency:  "Sen Construction",
	}, n.sent[0])

	require.Len(t, d.published, 1)
	require.Equal(t, "AGR-2024-0007/12", d.published[0].AgreementNumber)
	require.Equal(t, "118/GP/2024", d.published[0].NitMemoNumber)
}

func TestFinalizeValidatesBeforeWriting(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(r *award.Request)
		missing string
	}{
		{"no works detail", func(r *award.Request) { r.WorksDetailID = 0 }, "worksDetailId"},
		{"no memo number", func(r *award.Request) { r.WorkOrderMemoNumber = "  " }, "workOrderMemoNumber"},
		{"no memo date", func(r *award.Request) { r.WorkOrderMemoDate = time.Time{} }, "workOrderMemoDate"},
		{"no bid", func(r *award.Request) { r.AcceptedBidID = 0 }, "acceptedBidId"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newMemStore()
			req := validRequest()
			tc.mutate(&req)

			res := newWorkflow(s, nil, nil).Finalize(context.Background(), req)
			require.False(t, res.OK())
			require.Equal(t, award.KindValidation, res.Kind)
			require.Contains(t, res.Error, tc.missing)
			require.Empty(t, s.aocs)
			require.Empty(t, s.workOrders)
			require.Empty(t, s.agreements)
		})
	}
}

func TestFinalizeRejectsBidOfAnotherWork(t *testing.T) {
	s := newMemStore()
	req := validRequest()
	req.AcceptedBidID = 43

	res := newWorkflow(s, nil, nil).Finalize(context.Background(), req)
	require.Equal(t, award.KindValidation, res.Kind)
	require.Empty(t, s.aocs)
}

func TestFinalizeUnknownWorkAndBid(t *testing.T) {
	s := newMemStore()

	req := validRequest()
	req.WorksDetailID = 77
	res := newWorkflow(s, nil, nil).Finalize(context.Background(), req)
	require.Equal(t, award.KindNotFound, res.Kind)
	require.Equal(t, "Work not found", res.Error)

	req = validRequest()
	req.AcceptedBidID = 77
	res = newWorkflow(s, nil, nil).Finalize(context.Background(), req)
	require.Equal(t, award.KindNotFound, res.Kind)
	require.Equal(t, "Bid not found", res.Error)
	require.Empty(t, s.aocs)
}

func TestFinalizeRejectsNonAwardableWork(t *testing.T) {
	cases := []struct {
		name   string
		tender models.TenderStatus
		work   models.WorkStatus
	}{
		{"retender", models.TenderRetender, models.WorkYetToStart},
		{"cancelled", models.TenderCancelled, models.WorkInProgress},
		{"bill paid", models.TenderOpen, models.WorkBillPaid},
		{"work order issued", models.TenderOpen, models.WorkOrder},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newMemStore()
			s.works[3].TenderStatus = tc.tender
			s.works[3].WorkStatus = tc.work

			res := newWorkflow(s, nil, nil).Finalize(context.Background(), validRequest())
			require.Equal(t, award.KindConflict, res.Kind)
			require.Contains(t, res.Error, "not open for award")
			require.Empty(t, s.aocs)
			require.Empty(t, s.workOrders)
			require.Equal(t, tc.tender, s.works[3].TenderStatus)
		})
	}
}

func TestFinalizeBidderNotFoundKeepsAward(t *testing.T) {
	s := newMemStore()
	delete(s.contacts, 42)
	n := &fakeNotifier{}

	res := newWorkflow(s, n, nil).Finalize(context.Background(), validRequest())
	require.False(t, res.OK())
	require.Equal(t, award.KindPartial, res.Kind)
	require.Equal(t, award.MsgBidderNotFound, res.Error)

	require.Equal(t, models.TenderAOC, s.works[3].TenderStatus)
	require.Len(t, s.aocs, 1)
	require.Empty(t, n.sent)
}

func TestFinalizeSideEffectFailuresDoNotChangeOutcome(t *testing.T) {
	s := newMemStore()
	s.earnestErr = errors.New("registration service down")
	n := &fakeNotifier{err: errors.New("smtp: connection refused")}
	d := &fakeDocuments{err: errors.New("bucket unavailable")}

	res := newWorkflow(s, n, d).Finalize(context.Background(), validRequest())
	require.True(t, res.OK())
	require.Equal(t, award.MsgFinalized, res.Success)
	require.Len(t, s.aocs, 1)
}

func TestFinalizeSkipsNotificationWithoutEmail(t *testing.T) {
	s := newMemStore()
	s.contacts[42].AgencyEmail = ""
	n := &fakeNotifier{}

	res := newWorkflow(s, n, nil).Finalize(context.Background(), validRequest())
	require.True(t, res.OK())
	require.Empty(t, n.sent)
}

func TestFinalizeStoreFailureIsGeneric(t *testing.T) {
	s := newMemStore()
	s.finalizeErr = errors.New("pq: connection reset by peer")

	res := newWorkflow(s, nil, nil).Finalize(context.Background(), validRequest())
	require.Equal(t, award.KindInternal, res.Kind)
	require.Equal(t, award.MsgFailed, res.Error)
	require.NotContains(t, res.Error, "pq")
	require.Equal(t, models.TenderOpen, s.works[3].TenderStatus)
}

func TestFinalizeAlreadyAwarded(t *testing.T) {
	s := newMemStore()
	wf := newWorkflow(s, nil, nil)

	require.True(t, wf.Finalize(context.Background(), validRequest()).OK())

	res := wf.Finalize(context.Background(), validRequest())
	require.Equal(t, award.KindConflict, res.Kind)
	require.Equal(t, award.MsgAlreadyAwarded, res.Error)
	require.Len(t, s.aocs, 1)
}

func TestFinalizeConcurrentCallsHaveSingleWinner(t *testing.T) {
	s := newMemStore()
	wf := newWorkflow(s, &fakeNotifier{}, nil)

	const callers = 16
	results := make([]award.Result, callers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i] = wf.Finalize(context.Background(), validRequest())
		}(i)
	}
	close(start)
	wg.Wait()

	winners := 0
	for _, r := range results {
		if r.OK() {
			winners++
			continue
		}
		require.Equal(t, award.KindConflict, r.Kind)
	}
	require.Equal(t, 1, winners)
	require.Len(t, s.aocs, 1)
	require.Len(t, s.workOrders, 1)
	require.Len(t, s.agreements, 1)
}

func TestFinalizeLockHeldElsewhere(t *testing.T) {
	s := newMemStore()
	wf := award.New(award.Deps{Store: s, Agreements: s, EarnestMoney: s, Locker: busyLocker{}})

	res := wf.Finalize(context.Background(), validRequest())
	require.Equal(t, award.KindConflict, res.Kind)
	require.Equal(t, award.MsgInProgress, res.Error)
	require.Empty(t, s.aocs)
}

func TestAgreementFailureCanBeRerun(t *testing.T) {
	s := newMemStore()
	s.agreementErr = errors.New("agreement table locked")
	wf := newWorkflow(s, nil, nil)

	res := wf.Finalize(context.Background(), validRequest())
	require.Equal(t, award.MsgFailed, res.Error)
	// присуждение уже зафиксировано
	require.Equal(t, models.TenderAOC, s.works[3].TenderStatus)
	require.Empty(t, s.agreements)

	s.agreementErr = nil
	agr, err := wf.EnsureAgreement(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, "AGR-2024-0007/12", agr.AgreementNumber)

	again, err := wf.EnsureAgreement(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, agr.ID, again.ID)
	require.Len(t, s.agreements, 1)
}

func TestFinalizeRejectsAgreementNumberOfAnotherWork(t *testing.T) {
	s := newMemStore()
	wf := newWorkflow(s, nil, nil)
	require.True(t, wf.Finalize(context.Background(), validRequest()).OK())

	// работа 4 из другого NIT с тем же серийным номером и тем же мемо
	req := validRequest()
	req.WorksDetailID = 4
	req.AcceptedBidID = 43
	res := wf.Finalize(context.Background(), req)

	require.Equal(t, award.KindConflict, res.Kind)
	require.Equal(t, award.MsgAgreementTaken, res.Error)
	require.Equal(t, models.TenderOpen, s.works[4].TenderStatus)
	require.Len(t, s.aocs, 1)
}

func TestAgreementNumberTakenDuringAward(t *testing.T) {
	s := newMemStore()
	wf := newWorkflow(s, &fakeNotifier{}, nil)
	require.True(t, wf.Finalize(context.Background(), validRequest()).OK())

	s.missedLookups = 1
	req := validRequest()
	req.WorksDetailID = 4
	req.AcceptedBidID = 43
	res := wf.Finalize(context.Background(), req)

	require.Equal(t, award.KindConflict, res.Kind)
	require.Equal(t, award.MsgAgreementTaken, res.Error)
	require.Equal(t, models.TenderAOC, s.works[4].TenderStatus)
	require.Len(t, s.agreements, 1)
	require.Equal(t, 42, s.agreements["AGR-2024-0007/12"].BidAgencyID)

	agr, err := wf.EnsureAgreement(context.Background(), 4)
	require.ErrorIs(t, err, award.ErrAgreementConflict)
	require.Nil(t, agr)

	own, err := wf.EnsureAgreement(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, 42, own.BidAgencyID)
	require.Equal(t, 9, own.ApprovedActionPlanID)
}

func TestFinalizeCompletesAfterRequestCancelled(t *testing.T) {
	s := newMemStore()
	n := &fakeNotifier{}
	d := &fakeDocuments{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.afterFinalize = cancel

	res := newWorkflow(s, n, d).Finalize(ctx, validRequest())
	require.True(t, res.OK())
	require.Error(t, ctx.Err())
	require.Len(t, s.agreements, 1)
	require.Len(t, s.earnest, 1)
	require.Len(t, n.sent, 1)
	require.Len(t, d.published, 1)
}

func TestEnsureAgreementForUnawardedWork(t *testing.T) {
	s := newMemStore()
	_, err := newWorkflow(s, nil, nil).EnsureAgreement(context.Background(), 3)
	require.ErrorIs(t, err, db.ErrNotFound)
}

func TestAgreementNumber(t *testing.T) {
	cases := []struct {
		year   int
		memo   string
		serial int
		want   string
	}{
		{2024, "7", 12, "AGR-2024-0007/12"},
		{2023, "123", 1, "AGR-2023-0123/1"},
		{2025, "4567", 30, "AGR-2025-4567/30"},
		{2025, "12345", 2, "AGR-2025-12345/2"},
		{2024, " 42 ", 5, "AGR-2024-0042/5"},
	}
	for _, tc := range cases {
		date := time.Date(tc.year, 6, 1, 0, 0, 0, 0, time.UTC)
		require.Equal(t, tc.want, award.AgreementNumber(date, tc.memo, tc.serial))
	}
}
