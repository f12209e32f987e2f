package decode

import (
	"context"
	"image"
	"image/draw"
	"sync"
	"time"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"go.uber.org/zap"

	"github.com/comandaqr/ticket-gateway/internal/util"
)

// FrameSource abstracts the camera feed. Implementations own the
// device handle; Close releases it and must tolerate being the only
// release call the session ever makes.
type FrameSource interface {
	NextFrame(ctx context.Context) (image.Image, error)
	Close() error
}

type ScanConfig struct {
	FPS            int     // frames scanned per second, default 10
	RegionFraction float64 // square detection sub-region, fraction of min(w,h), default 0.6
	FixedAspect    bool
	DisableFlip    bool // true = frames are fed as-is, no mirror correction
	Verbose        bool
}

// Callbacks deliver detections to the caller. OnSuccess fires on each
// distinct detection; scanning continues so one session can read
// several tickets. OnError is per-frame noise, not a session failure.
type Callbacks struct {
	OnSuccess func(text string, raw *gozxing.Result)
	OnError   func(msg string)
}

// successCooldown suppresses re-firing for the same symbol while it is
// still in front of the camera.
const successCooldown = 1500 * time.Millisecond

// ScanSession drives the live detection loop over one exclusively
// owned frame source. Lifecycle: create, Run until a terminal source
// error or Stop, Stop on every exit path. Stop is idempotent, so
// cancel paths and teardown paths may both call it.
type ScanSession struct {
	id  string
	src FrameSource
	cfg ScanConfig
	cb  Callbacks
	log *zap.Logger

	stopOnce sync.Once
	stopped  chan struct{}

	lastText string
	lastAt   time.Time
}

func NewScanSession(src FrameSource, cfg ScanConfig, cb Callbacks, log *zap.Logger) *ScanSession {
	if cfg.FPS <= 0 {
		cfg.FPS = 10
	}
	if cfg.RegionFraction <= 0 || cfg.RegionFraction > 1 {
		cfg.RegionFraction = 0.6
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ScanSession{
		id:      util.NewID(),
		src:     src,
		cfg:     cfg,
		cb:      cb,
		log:     log,
		stopped: make(chan struct{}),
	}
}

func (s *ScanSession) ID() string { return s.id }

// Run blocks until the context is cancelled, Stop is called, or the
// frame source fails terminally (camera permission denied, device
// busy). The source is released on every exit path.
func (s *ScanSession) Run(ctx context.Context) error {
	defer s.Stop()

	interval := time.Second / time.Duration(s.cfg.FPS)
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopped:
			return nil
		case <-tick.C:
			frame, err := s.src.NextFrame(ctx)
			if err != nil {
				// Terminal: the device is gone, not per-frame noise.
				s.log.Warn("scan: frame source failed", zap.String("session", s.id), zap.Error(err))
				if s.cb.OnError != nil {
					s.cb.OnError("camera unavailable: " + err.Error())
				}
				return err
			}
			s.scanFrame(frame)
		}
	}
}

func (s *ScanSession) scanFrame(frame image.Image) {
	region := cropCenterSquare(frame, s.cfg.RegionFraction)
	if !s.cfg.DisableFlip {
		region = flipHorizontal(region)
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(region)
	if err != nil {
		if s.cb.OnError != nil {
			s.cb.OnError(err.Error())
		}
		return
	}

	res, err := qrcode.NewQRCodeReader().Decode(bmp, qrHints)
	if err != nil || res == nil {
		// Empty frames are the normal state between tickets.
		if s.cfg.Verbose {
			s.log.Debug("scan: no symbol in frame", zap.String("session", s.id))
		}
		return
	}

	text := res.GetText()
	now := time.Now()
	if text == s.lastText && now.Sub(s.lastAt) < successCooldown {
		return
	}
	s.lastText = text
	s.lastAt = now

	s.log.Info("scan: symbol detected", zap.String("session", s.id), zap.Int("text_len", len(text)))
	if s.cb.OnSuccess != nil {
		s.cb.OnSuccess(text, res)
	}
}

// Stop releases the frame source exactly once. Safe to call from any
// goroutine any number of times; release failures are logged, never
// returned, so teardown can't block navigation away from the scanner.
func (s *ScanSession) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopped)
		if err := s.src.Close(); err != nil {
			s.log.Warn("scan: source release failed", zap.String("session", s.id), zap.Error(err))
		}
	})
}

// cropCenterSquare extracts the centered square detection region.
// fraction is relative to the smaller frame dimension.
func cropCenterSquare(img image.Image, fraction float64) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	side := int(fraction * float64(min(w, h)))
	if side <= 0 || side >= min(w, h) {
		return img
	}
	x0 := b.Min.X + (w-side)/2
	y0 := b.Min.Y + (h-side)/2

	out := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(out, out.Bounds(), img, image.Pt(x0, y0), draw.Src)
	return out
}

// flipHorizontal un-mirrors frames from selfie-style camera feeds.
func flipHorizontal(img image.Image) image.Image {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Set(b.Dx()-1-x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}
