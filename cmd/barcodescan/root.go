package main

import (
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ericlevine/zxscan"
	"github.com/ericlevine/zxscan/binarizer"
	"github.com/ericlevine/zxscan/internal/config"
	"github.com/ericlevine/zxscan/scanner"
)

// app carries what every subcommand shares: the filesystem, the loaded
// configuration and the logger.
type app struct {
	fs      afero.Fs
	loader  *config.Loader
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
}

func newRootCmd(fs afero.Fs) *cobra.Command {
	a := &app{
		fs:     fs,
		loader: config.NewLoaderWithFs(fs),
		logger: slog.New(slog.DiscardHandler),
	}

	root := &cobra.Command{
		Use:   "barcodescan",
		Short: "Detect and decode barcodes in images",
		Long: `barcodescan reads QR codes and 1-D barcodes (EAN-13, EAN-8, UPC-A, ITF,
Code 39) from images.

Examples:
  barcodescan scan photo.jpg
  barcodescan scan --recursive --output json ./receipts
  barcodescan parse "geo:48.8583,2.2945"
  barcodescan serve --port 8080`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is barcodescan.yaml in ., $HOME/.config/barcodescan, /etc/barcodescan)")
	pf.BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "text", "log format (text, json)")

	pf.Bool("try-harder", false, "spend more time looking for barcodes, including rotated ones")
	pf.Bool("pure", false, "hint that the image is a clean barcode render with minimal border")
	pf.StringSlice("formats", nil, "formats to look for, e.g. QR_CODE,EAN_13 (default all)")
	pf.String("charset", "", "character set for byte-mode text, by IANA name")
	pf.IntSlice("allowed-lengths", nil, "payload lengths accepted for ITF")
	pf.Bool("also-inverted", false, "also try the inverted image (light bars on dark)")
	pf.Bool("code39-check-digit", false, "verify and strip the Code 39 check character")
	pf.Bool("code39-extended", false, "decode Code 39 full-ASCII pairs")
	pf.String("binarizer", "hybrid", "binarizer (hybrid, histogram)")
	pf.Int("max-dimension", 0, "downscale images larger than this many pixels on a side (0 disables)")

	a.bind(root, true, map[string]string{
		"verbose":            "verbose",
		"log-level":          "log_level",
		"log-format":         "log_format",
		"try-harder":         "decode.try_harder",
		"pure":               "decode.pure_barcode",
		"formats":            "decode.formats",
		"charset":            "decode.character_set",
		"allowed-lengths":    "decode.allowed_lengths",
		"also-inverted":      "decode.also_inverted",
		"code39-check-digit": "decode.code39_check_digit",
		"code39-extended":    "decode.code39_extended",
		"binarizer":          "decode.binarizer",
		"max-dimension":      "decode.max_dimension",
	})

	root.AddCommand(a.scanCmd(), a.parseCmd(), a.serveCmd())
	return root
}

// bind ties flags to config keys so an explicit flag beats the config
// file and the environment.
func (a *app) bind(cmd *cobra.Command, persistent bool, keys map[string]string) {
	flags := cmd.Flags()
	if persistent {
		flags = cmd.PersistentFlags()
	}
	for flag, key := range keys {
		_ = a.loader.Viper().BindPFlag(key, flags.Lookup(flag))
	}
}

// init loads the configuration and sets up logging.
func (a *app) init(stderr io.Writer) error {
	cfg, err := a.loader.Load(a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler
	if strings.EqualFold(cfg.LogFormat, "json") {
		handler = slog.NewJSONHandler(stderr, opts)
	} else {
		handler = slog.NewTextHandler(stderr, opts)
	}
	a.logger = slog.New(handler)
	slog.SetDefault(a.logger)

	if used := a.loader.ConfigFileUsed(); used != "" {
		a.logger.Debug("loaded config file", "path", used)
	}
	return nil
}

// decodeSettings resolves the decode options and binarizer from config.
func (a *app) decodeSettings() (*zxscan.DecodeOptions, binarizer.Factory, error) {
	opts, err := a.cfg.Decode.Options()
	if err != nil {
		return nil, nil, err
	}
	factory, err := a.cfg.Decode.BinarizerFactory()
	if err != nil {
		return nil, nil, err
	}
	return opts, factory, nil
}

func (a *app) newReader(opts *zxscan.DecodeOptions, factory binarizer.Factory) *scanner.BarcodeReader {
	reader := scanner.NewBarcodeReader(opts)
	reader.SetBinarizer(factory)
	reader.SetLogger(a.logger)
	return reader
}
