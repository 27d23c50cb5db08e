package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Статус работы
type WorkStatus string

const (
	WorkYetToStart WorkStatus = "yet-to-start"
	WorkInProgress WorkStatus = "in-progress"
	WorkCompleted  WorkStatus = "completed"
	WorkOrder      WorkStatus = "work-order"
	WorkBillPaid   WorkStatus = "bill-paid"
)

func ValidWorkStatus(s WorkStatus) bool {
	switch s {
	case WorkYetToStart, WorkInProgress, WorkCompleted, WorkOrder, WorkBillPaid:
		return true
	default:
		return false
	}
}

// Awardable сообщает, можно ли выдать наряд на работу в этом статусе
func (s WorkStatus) Awardable() bool {
	switch s {
	case WorkYetToStart, WorkInProgress, WorkCompleted:
		return true
	default:
		return false
	}
}

// Статус тендера по работе
type TenderStatus string

const (
	TenderOpen      TenderStatus = "open"
	TenderAOC       TenderStatus = "AOC"
	TenderRetender  TenderStatus = "retender"
	TenderCancelled TenderStatus = "cancelled"
)

func ValidTenderStatus(s TenderStatus) bool {
	switch s {
	case TenderOpen, TenderAOC, TenderRetender, TenderCancelled:
		return true
	default:
		return false
	}
}

// Сущность NIT (извещение о тендере)
type NitDetails struct {
	ID                       int       `db:"id" json:"id"`
	MemoNumber               string    `db:"memo_number" json:"memoNumber"`
	MemoDate                 time.Time `db:"memo_date" json:"memoDate"`
	PublishingDate           time.Time `db:"publishing_date" json:"publishingDate"`
	BidSubmissionClosingDate time.Time `db:"bid_submission_closing_date" json:"bidSubmissionClosingDate"`
	BidOpeningDate           time.Time `db:"bid_opening_date" json:"bidOpeningDate"`
	ValidityDays             int       `db:"validity_days" json:"validityDays"`
	IsSupply                 bool      `db:"is_supply" json:"isSupply"`
	CreatedAt                time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt                time.Time `db:"updated_at" json:"-"`
}

// Сущность Работы
type WorksDetail struct {
	ID                   int             `db:"id" json:"id"`
	SerialNumber         int             `db:"serial_number" json:"serialNumber"`
	Name                 string          `db:"name" json:"name"`
	EstimateAmount       decimal.Decimal `db:"estimate_amount" json:"estimateAmount"`
	EarnestMoneyFee      decimal.Decimal `db:"earnest_money_fee" json:"earnestMoneyFee"`
	WorkStatus           WorkStatus      `db:"work_status" json:"workStatus"`
	TenderStatus         TenderStatus    `db:"tender_status" json:"tenderStatus"`
	NitDetailsID         int             `db:"nit_details_id" json:"nitDetailsId"`
	ApprovedActionPlanID int             `db:"approved_action_plan_id" json:"approvedActionPlanId"`
	AocID                *int            `db:"aoc_id" json:"aocId,omitempty"`
	CreatedAt            time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt            time.Time       `db:"updated_at" json:"-"`
}

// Сущность Агентства (подрядчика)
type AgencyDetails struct {
	ID            int       `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	ContactNumber string    `db:"contact_number" json:"contactNumber"`
	Email         string    `db:"email" json:"email"`
	Gstin         string    `db:"gstin" json:"gstin"`
	Pan           string    `db:"pan" json:"pan"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// Сущность Предложения агентства по работе
type Bidagency struct {
	ID            int             `db:"id" json:"id"`
	WorksDetailID int             `db:"works_detail_id" json:"worksDetailId"`
	AgencyID      int             `db:"agency_id" json:"agencyId"`
	BiddingAmount decimal.Decimal `db:"bidding_amount" json:"biddingAmount"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
}

// BidContact - предложение вместе с контактами агентства (для уведомлений)
type BidContact struct {
	BidID         int             `db:"bid_id" json:"bidId"`
	WorksDetailID int             `db:"works_detail_id" json:"worksDetailId"`
	AgencyID      int             `db:"agency_id" json:"agencyId"`
	AgencyName    string          `db:"agency_name" json:"agencyName"`
	AgencyEmail   string          `db:"agency_email" json:"agencyEmail"`
	BiddingAmount decimal.Decimal `db:"bidding_amount" json:"biddingAmount"`
}

// Сущность AOC (решение о присуждении контракта)
type AwardOfContract struct {
	ID                  int       `db:"id" json:"id"`
	WorksDetailID       int       `db:"works_detail_id" json:"worksDetailId"`
	WorkOrderMemoNumber string    `db:"work_order_memo_number" json:"workOrderMemoNumber"`
	WorkOrderMemoDate   time.Time `db:"work_order_memo_date" json:"workOrderMemoDate"`
	CreatedAt           time.Time `db:"created_at" json:"createdAt"`
}

// Сущность Наряда на работу
type WorkOrderDetails struct {
	ID          int       `db:"id" json:"id"`
	AocID       int       `db:"aoc_id" json:"aocId"`
	BidAgencyID int       `db:"bid_agency_id" json:"bidAgencyId"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// Сущность Договора
type Agreement struct {
	ID                   int       `db:"id" json:"id"`
	AgreementNumber      string    `db:"agreement_number" json:"agreementNumber"`
	AgreementDate        time.Time `db:"agreement_date" json:"agreementDate"`
	ApprovedActionPlanID int       `db:"approved_action_plan_id" json:"approvedActionPlanId"`
	BidAgencyID          int       `db:"bid_agency_id" json:"bidAgencyId"`
	CreatedAt            time.Time `db:"created_at" json:"createdAt"`
}

// Регистрация задатка (EMD) за агентством
type EarnestMoney struct {
	ID        int             `db:"id" json:"id"`
	AgencyID  int             `db:"agency_id" json:"agencyId"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
}

// Строка реестра выданных нарядов
type WorkOrderRegisterRow struct {
	WorksDetailID       int             `db:"works_detail_id" json:"worksDetailId"`
	SerialNumber        int             `db:"serial_number" json:"serialNumber"`
	WorkName            string          `db:"work_name" json:"workName"`
	NitMemoNumber       string          `db:"nit_memo_number" json:"nitMemoNumber"`
	WorkOrderMemoNumber string          `db:"work_order_memo_number" json:"workOrderMemoNumber"`
	WorkOrderMemoDate   time.Time       `db:"work_order_memo_date" json:"workOrderMemoDate"`
	AgencyName          string          `db:"agency_name" json:"agencyName"`
	BiddingAmount       decimal.Decimal `db:"bidding_amount" json:"biddingAmount"`
	AgreementNumber     *string         `db:"agreement_number" json:"agreementNumber,omitempty"`
}
