package redis

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/DRSN-tech/shop-backend/internal/cfg"
	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/internal/repository/redis/converter"
	"github.com/DRSN-tech/shop-backend/pkg/clients"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/jimlawless/whereami"
	goredis "github.com/redis/go-redis/v9"
)

// RatesRepo хранит последний снимок курсов валют одним ключом без TTL.
type RatesRepo struct {
	client *clients.RedisClient
	conv   converter.RatesConverter
	cfg    *cfg.RedisCfg
}

func NewRatesRepo(client *clients.RedisClient, conv converter.RatesConverter, cfg *cfg.RedisCfg) *RatesRepo {
	return &RatesRepo{
		client: client,
		conv:   conv,
		cfg:    cfg,
	}
}

func (r *RatesRepo) Get(ctx context.Context) (*domain.RateState, error) {
	data, err := r.client.Client.Get(ctx, r.cfg.RatesKey).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	var model converter.RatesRedisModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	rates, err := r.conv.ToEntity(&model)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return rates, nil
}

func (r *RatesRepo) Set(ctx context.Context, rates *domain.RateState) error {
	data, err := json.Marshal(r.conv.ToRedisModel(rates))
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := r.client.Client.Set(ctx, r.cfg.RatesKey, data, 0).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
