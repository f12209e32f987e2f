package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/comandaqr/ticket-gateway/internal/model"
)

type StationsRepository interface {
	GetByAPIKey(ctx context.Context, apiKey string) (*model.Station, error)
}

type StationsRepositoryImpl struct {
	db *sqlx.DB
}

func NewStationsRepository(db *sqlx.DB) *StationsRepositoryImpl {
	return &StationsRepositoryImpl{db: db}
}

var _ StationsRepository = (*StationsRepositoryImpl)(nil)

func (r *StationsRepositoryImpl) GetByAPIKey(ctx context.Context, apiKey string) (*model.Station, error) {
	var s model.Station
	err := r.db.GetContext(ctx, &s, `
		SELECT id, name, api_key, status, rate_limit_rps, created_at, updated_at
		  FROM stations
		 WHERE api_key = ? LIMIT 1
	`, apiKey)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
