package minio

import (
	"bytes"
	"context"
	"fmt"

	"github.com/DRSN-tech/shop-backend/internal/cfg"
	"github.com/DRSN-tech/shop-backend/internal/usecase"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/jimlawless/whereami"
	"github.com/minio/minio-go/v7"
)

const contentTypeJSON = "application/json"

// PaymentArchiveRepo складывает сырые уведомления платёжного провайдера в MinIO.
type PaymentArchiveRepo struct {
	mc  *minio.Client
	cfg *cfg.MinIOCfg
}

func NewPaymentArchiveRepo(mc *minio.Client, cfg *cfg.MinIOCfg) *PaymentArchiveRepo {
	return &PaymentArchiveRepo{
		mc:  mc,
		cfg: cfg,
	}
}

// Put сохраняет уведомление и возвращает ключ объекта.
func (p *PaymentArchiveRepo) Put(ctx context.Context, req *usecase.ArchivePaymentReq) (string, error) {
	reader := bytes.NewReader(req.Payload)

	info, err := p.mc.PutObject(ctx, p.cfg.PaymentsBucket, objectKey(req), reader, int64(len(req.Payload)), minio.PutObjectOptions{
		ContentType: contentTypeJSON,
		UserMetadata: map[string]string{
			"invoice-id": req.InvoiceID,
			"status":     req.Status,
		},
	})
	if err != nil {
		return "", e.Wrap(whereami.WhereAmI(), err)
	}

	return info.Key, nil
}

// objectKey: payments/<invoice>/<unix nano>.json
func objectKey(req *usecase.ArchivePaymentReq) string {
	return fmt.Sprintf("payments/%s/%d.json", req.InvoiceID, req.ReceivedAt.UnixNano())
}
