package model

import "strings"

// Operator-facing decode failure messages. The still path is already a
// deliberate fallback, so the operator must see why it failed too.
const (
	ReasonNoSymbol   = "QR Code não detectado"
	ReasonProcessing = "Erro ao processar imagem"
)

type ScanPath string

const (
	PathLive  ScanPath = "live"
	PathStill ScanPath = "still"
)

func (p ScanPath) String() string { return string(p) }

// ParseScanPath normalizes input; empty => live.
// Returns (value, true) if valid; otherwise (live, false).
func ParseScanPath(s string) (ScanPath, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "live":
		return PathLive, true
	case "still":
		return PathStill, true
	default:
		return PathLive, false
	}
}

func (p ScanPath) Valid() bool {
	return p == PathLive || p == PathStill
}

// DecodeResult is the tagged outcome of one decode attempt. A missing
// symbol or unreadable image is a negative result, not an error: the
// decode layer is total over its input.
type DecodeResult struct {
	Success bool   `json:"success"`
	Text    string `json:"text,omitempty"`
	Error   string `json:"error,omitempty"`
}

func DecodedSymbol(text string) DecodeResult {
	return DecodeResult{Success: true, Text: text}
}

func NoSymbol() DecodeResult {
	return DecodeResult{Success: false, Error: ReasonNoSymbol}
}

func ProcessingError() DecodeResult {
	return DecodeResult{Success: false, Error: ReasonProcessing}
}
