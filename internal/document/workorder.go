package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

const contentTypePDF = "application/pdf"

// WorkOrder - поля, подставляемые в шаблон письма о наряде
type WorkOrder struct {
	WorksDetailID    int
	WorkSerialNumber int
	WorkName         string
	NitMemoNumber    string
	MemoNumber       string
	MemoDate         time.Time
	EstimateAmount   decimal.Decimal
	AgencyName       string
	BiddingAmount    decimal.Decimal
	AgreementNumber  string
}

// Render заполняет фиксированный шаблон наряда и пишет PDF в w
func Render(wo WorkOrder, w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Work order %s", wo.MemoNumber), false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "WORK ORDER", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Memo No. %s    Dated %s", wo.MemoNumber, wo.MemoDate.Format("02/01/2006")), "", 1, "R", false, 0, "")
	pdf.Ln(4)

	rows := [][2]string{
		{"NIT memo number", wo.NitMemoNumber},
		{"Work serial number", fmt.Sprintf("%d", wo.WorkSerialNumber)},
		{"Name of work", wo.WorkName},
		{"Estimated amount (Rs.)", wo.EstimateAmount.StringFixed(2)},
		{"Agency", wo.AgencyName},
		{"Accepted bid amount (Rs.)", wo.BiddingAmount.StringFixed(2)},
		{"Agreement number", wo.AgreementNumber},
	}
	for _, r := range rows {
		pdf.CellFormat(65, 8, r[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(0, 8, r[1], "1", 1, "L", false, 0, "")
	}

	pdf.Ln(6)
	pdf.MultiCell(0, 6, fmt.Sprintf(
		"Your bid for the above work has been accepted. You are requested to execute the agreement %s "+
			"and commence the work as per the terms and conditions of the NIT.", wo.AgreementNumber),
		"", "L", false)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render work order: %w", err)
	}
	return pdf.Output(w)
}

// ObjectStore - хранилище бинарных документов
type ObjectStore interface {
	Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
}

// Publisher рендерит наряд и кладёт его в объектное хранилище
type Publisher struct {
	store ObjectStore
}

func NewPublisher(store ObjectStore) *Publisher {
	return &Publisher{store: store}
}

// PublishWorkOrder возвращает имя сохранённого объекта
func (p *Publisher) PublishWorkOrder(ctx context.Context, wo WorkOrder) (string, error) {
	var buf bytes.Buffer
	if err := Render(wo, &buf); err != nil {
		return "", err
	}

	name := fmt.Sprintf("workorders/%d/%s.pdf", wo.WorksDetailID, uuid.NewString())
	if err := p.store.Put(ctx, name, &buf, int64(buf.Len()), contentTypePDF); err != nil {
		return "", fmt.Errorf("upload work order: %w", err)
	}
	return name, nil
}
