package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/comandaqr/ticket-gateway/internal/config"
	"github.com/comandaqr/ticket-gateway/internal/db"
	"github.com/comandaqr/ticket-gateway/internal/model"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo stations and orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1) load config
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// 2) connect MySQL
		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		log.Println(">> Seeding demo stations and orders...")

		if err := seedStations(sqlDB); err != nil {
			return err
		}
		if err := seedOrders(sqlDB); err != nil {
			return err
		}

		log.Println(">> Seed completed ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

// seedStations inserts deterministic demo stations (idempotent).
func seedStations(dbx *sqlx.DB) error {
	stations := []model.Station{
		{
			Name:         "Balcão Principal",
			APIKey:       "11111111111111111111111111111111",
			Status:       "active",
			RateLimitRPS: intptr(10),
		},
		{
			Name:         "Cozinha",
			APIKey:       "22222222222222222222222222222222",
			Status:       "active",
			RateLimitRPS: intptr(20),
		},
		{
			Name:         "Tablet Reserva",
			APIKey:       "33333333333333333333333333333333",
			Status:       "suspended",
			RateLimitRPS: nil,
		},
	}

	// idempotent upsert based on api_key (UNIQUE)
	const q = `
INSERT INTO stations
    (name, api_key, status, rate_limit_rps, created_at, updated_at)
VALUES
    (?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    name           = VALUES(name),
    status         = VALUES(status),
    rate_limit_rps = VALUES(rate_limit_rps),
    updated_at     = VALUES(updated_at)
`
	tx, err := dbx.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	for _, s := range stations {
		if _, err := tx.Exec(q, s.Name, s.APIKey, s.Status, s.RateLimitRPS, now, now); err != nil {
			return fmt.Errorf("insert station %q: %w", s.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit stations: %w", err)
	}
	return nil
}

// seedOrders inserts pending demo orders with known ticket codes
// (idempotent).
func seedOrders(dbx *sqlx.DB) error {
	type order struct {
		ticketCode    string
		dishName      string
		customerName  string
		customerPhone string
	}
	orders := []order{
		{"TICKET-ABC123", "Feijoada Completa", "Maria Souza", "+55 11 91234-5678"},
		{"TICKET-DEF456", "Moqueca de Peixe", "João Lima", "+55 21 99876-5432"},
		{"TICKET-GHI789", "Escondidinho", "Ana Costa", "+55 31 98765-4321"},
	}

	const q = `
INSERT INTO orders
    (ticket_code, dish_name, customer_name, customer_phone, status, created_at, updated_at)
VALUES
    (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    dish_name      = VALUES(dish_name),
    customer_name  = VALUES(customer_name),
    customer_phone = VALUES(customer_phone),
    updated_at     = VALUES(updated_at)
`
	tx, err := dbx.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	for _, o := range orders {
		if _, err := tx.Exec(q, o.ticketCode, o.dishName, o.customerName, o.customerPhone, model.OrderStatusPending, now, now); err != nil {
			return fmt.Errorf("insert order %q: %w", o.ticketCode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit orders: %w", err)
	}
	return nil
}

func intptr(v int) *int { return &v }
