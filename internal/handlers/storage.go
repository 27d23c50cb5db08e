package handlers

import (
	"context"

	"panchayat/db"
	"panchayat/models"
)

type StorageInterface interface {
	CreateNit(ctx context.Context, n *models.NitDetails) error
	GetNit(ctx context.Context, id int) (*models.NitDetails, error)
	UpdateNit(ctx context.Context, n *models.NitDetails) error
	ListNits(ctx context.Context, limit, offset int) ([]models.NitDetails, error)

	CreateWorksDetail(ctx context.Context, w *models.WorksDetail) error
	GetWorksDetail(ctx context.Context, id int) (*models.WorksDetail, error)
	ListWorks(ctx context.Context, nitID, limit, offset int) ([]models.WorksDetail, error)

	CreateAgency(ctx context.Context, a *models.AgencyDetails) error
	GetAgency(ctx context.Context, id int) (*models.AgencyDetails, error)
	CreateBid(ctx context.Context, b *models.Bidagency) error
	ListBidsForWork(ctx context.Context, worksDetailID int) ([]models.Bidagency, error)
	GetBidContact(ctx context.Context, bidID int) (*models.BidContact, error)

	GetAwardByWorks(ctx context.Context, worksDetailID int) (*db.AwardRecord, error)
	ListWorkOrderRegister(ctx context.Context) ([]models.WorkOrderRegisterRow, error)
}
