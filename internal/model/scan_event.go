package model

import "time"

type ScanOutcome string

const (
	OutcomeDecoded     ScanOutcome = "decoded"
	OutcomeNoSymbol    ScanOutcome = "no_symbol"
	OutcomeDecodeError ScanOutcome = "decode_error"
	OutcomeUnknownCode ScanOutcome = "unknown_code"
	OutcomeDuplicate   ScanOutcome = "duplicate"
)

func (o ScanOutcome) String() string {
	return string(o)
}

func (o ScanOutcome) Valid() bool {
	switch o {
	case OutcomeDecoded, OutcomeNoSymbol, OutcomeDecodeError, OutcomeUnknownCode, OutcomeDuplicate:
		return true
	}
	return false
}

// ScanEvent is the audit row persisted in ClickHouse for every decode
// attempt that reached the server (still submissions and live reports).
type ScanEvent struct {
	ID         string      `db:"id"` // ULID
	StationID  int64       `db:"station_id"`
	SessionID  string      `db:"session_id"`
	Path       ScanPath    `db:"path"` // live|still
	Outcome    ScanOutcome `db:"outcome"`
	TicketCode string      `db:"ticket_code"` // empty unless decoded
	CreatedAt  time.Time   `db:"created_at"`
}
