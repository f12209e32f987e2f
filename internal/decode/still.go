package decode

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"go.uber.org/zap"

	"github.com/comandaqr/ticket-gateway/internal/model"
)

// qrHints restricts detection to QR symbols and asks the detector to
// try harder, which pays off on low-end phone photos with glare.
var qrHints = map[gozxing.DecodeHintType]interface{}{
	gozxing.DecodeHintType_POSSIBLE_FORMATS: []gozxing.BarcodeFormat{
		gozxing.BarcodeFormat_QR_CODE,
	},
	gozxing.DecodeHintType_TRY_HARDER: true,
}

// StillDecoder extracts a QR symbol from one captured photo. It is the
// server-side fallback for clients whose live camera path failed.
type StillDecoder struct {
	log *zap.Logger
}

func NewStillDecoder(log *zap.Logger) *StillDecoder {
	if log == nil {
		log = zap.NewNop()
	}
	return &StillDecoder{log: log}
}

// Decode is total over its input: unreadable bytes and missing symbols
// come back as negative results, never as errors. A missing symbol is
// the common case (bad photo, glare, no code in frame) and must stay
// distinguishable from a corrupt image.
func (d *StillDecoder) Decode(data []byte) model.DecodeResult {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		d.log.Warn("still decode: unreadable image", zap.Error(err))
		return model.ProcessingError()
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		d.log.Warn("still decode: bitmap conversion failed", zap.Error(err))
		return model.ProcessingError()
	}

	// The reader keeps internal decode state; one per call keeps the
	// decoder safe under concurrent submissions.
	res, err := qrcode.NewQRCodeReader().Decode(bmp, qrHints)
	if err != nil || res == nil {
		d.log.Info("still decode: no symbol",
			zap.String("format", format),
			zap.Int("bytes", len(data)),
		)
		return model.NoSymbol()
	}

	d.log.Info("still decode: symbol found",
		zap.String("format", format),
		zap.Int("text_len", len(res.GetText())),
	)
	return model.DecodedSymbol(res.GetText())
}

// DecodePayload runs the full fallback path: transport-header strip,
// base64 decode, then symbol detection. Malformed base64 surfaces here
// as a processing failure.
func (d *StillDecoder) DecodePayload(payload string) model.DecodeResult {
	data, err := Normalize(payload)
	if err != nil {
		d.log.Warn("still decode: bad base64 payload", zap.Error(err))
		return model.ProcessingError()
	}
	return d.Decode(data)
}
