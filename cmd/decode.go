package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/comandaqr/ticket-gateway/internal/decode"
	"github.com/comandaqr/ticket-gateway/internal/model"
)

var decodeAsPayload bool

// decodeCmd runs the still-image decoder against a local file, the
// same path a photo submission takes on the server. Handy for checking
// a ticket image without standing up the whole service.
var decodeCmd = &cobra.Command{
	Use:   "decode <image-file>",
	Short: "Decode a QR symbol from a still image file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}

		still := decode.NewStillDecoder(zap.NewNop())

		var res model.DecodeResult
		if decodeAsPayload {
			// File holds a transport-encoded payload (data URI or bare
			// base64) instead of raw image bytes.
			res = still.DecodePayload(strings.TrimSpace(string(raw)))
		} else {
			res = still.Decode(raw)
		}

		if !res.Success {
			fmt.Println("no ticket:", res.Error)
			return nil
		}

		fmt.Println(res.Text)
		return nil
	},
}

func init() {
	decodeCmd.Flags().BoolVar(&decodeAsPayload, "payload", false, "treat the file as a base64/data-URI payload")
}
