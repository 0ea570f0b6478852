package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"croptool/internal/crop"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Send()
	}
}

func run() error {
	var args cliArgs
	cliCtx := kong.Parse(
		&args,
		kong.Name("croptool"),
		kong.Description("Pick crop regions for a directory of images."),
		kong.UsageOnError(),
	)
	if err := cliCtx.Run(); err != nil {
		return err
	}

	return nil
}

type logFlags struct {
	Verbose bool   `help:"Enable verbose logging" default:"false" env:"CROPTOOL_VERBOSE"`
	LogFile string `help:"Also write JSON logs to this file, rotated" type:"path" env:"CROPTOOL_LOG_FILE"`
}

func (f logFlags) setup() {
	level := zerolog.InfoLevel
	if f.Verbose {
		level = zerolog.DebugLevel
	}

	var out io.Writer = zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
	})
	if f.LogFile != "" {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   f.LogFile,
			MaxSize:    10, // MB
			MaxBackups: 2,
			MaxAge:     28, // days
			Compress:   true,
		})
	}
	log.Logger = log.Output(out).Level(level)
	zerolog.DefaultContextLogger = &log.Logger
}

// cropFlags are the crop defaults shared by every command.
type cropFlags struct {
	MinWidth  int    `help:"Minimum crop width in original pixels" default:"250" env:"CROPTOOL_MIN_WIDTH"`
	MinHeight int    `help:"Minimum crop height in original pixels" default:"250" env:"CROPTOOL_MIN_HEIGHT"`
	Ratio     string `help:"Aspect ratio of the crop, e.g. 16:9, 4/3 or 1.5; empty for none" env:"CROPTOOL_RATIO"`
}

func (f cropFlags) defaults() (CropDefaults, error) {
	ratio, err := crop.ParseRatio(f.Ratio)
	if err != nil {
		return CropDefaults{}, err
	}
	return CropDefaults{MinWidth: f.MinWidth, MinHeight: f.MinHeight, Ratio: ratio}, nil
}

type serveCmd struct {
	logFlags
	cropFlags

	RootDir string `arg:"" help:"Root directory to serve files from" type:"existingdir"`
	Open    bool   `help:"Open the browser automatically when the server starts" default:"true"`
	JSON    bool   `help:"Output operations in JSON format without executing"`
	Once    bool   `help:"Run the server once and exit after save" default:"true"`
}

func (cmd *serveCmd) Run() error {
	cmd.setup()

	defaults, err := cmd.defaults()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	ctx = log.Logger.WithContext(ctx)

	executor := &OperationExecutor{
		BaseDir:   cmd.RootDir,
		OutputDir: filepath.Join(cmd.RootDir, "output"),
		Cropper:   NewImagingCropper(),
	}

	app := NewWebApp(Config{
		RootDir:      cmd.RootDir,
		CropDefaults: defaults,
		OnBeforeShutdown: func() {
			log.Ctx(ctx).Info().Msg("Shutting down web application...")
		},
		OnReady: func(addr string) {
			log.Ctx(ctx).Info().Msgf("Server started at %s", addr)
			if cmd.Open {
				if err := openBrowser(addr); err != nil {
					log.Error().Err(err).Msg("Failed to open browser")
				}
			}
		},
		OnSave: func(ops Operations) {
			if cmd.JSON {
				printJSONL(os.Stdout, ops)
			} else {
				if err := executor.Exec(ctx, ops); err != nil {
					log.Ctx(ctx).Error().Err(err).Msg("Failed to execute operations")
				}
			}

			if cmd.Once {
				cancel()
			}
		},
	})

	if err := app.Run(ctx); err != nil {
		return err
	}

	return nil
}

type replayCmd struct {
	logFlags
	cropFlags

	Events         *os.File `arg:"" optional:"" help:"JSONL file of pointer events; stdin when omitted"`
	OriginalWidth  int      `help:"Original image width" required:""`
	OriginalHeight int      `help:"Original image height" required:""`
	RenderedWidth  float64  `help:"Rendered image width" required:""`
	RenderedHeight float64  `help:"Rendered image height" required:""`
	Initial        string   `help:"Initial coordinates as JSON, e.g. {\"left\":0,\"top\":0,\"width\":500,\"height\":500}"`
}

func (cmd *replayCmd) Run() error {
	cmd.setup()

	defaults, err := cmd.defaults()
	if err != nil {
		return err
	}

	var initial *crop.Coords
	if cmd.Initial != "" {
		initial = &crop.Coords{}
		if err := json.Unmarshal([]byte(cmd.Initial), initial); err != nil {
			return err
		}
	}

	in := io.Reader(os.Stdin)
	if cmd.Events != nil {
		defer cmd.Events.Close()
		in = cmd.Events
	}

	return Replay(log.Logger.WithContext(context.Background()), in, os.Stdout, ReplayConfig{
		Image:              "replay",
		OriginalWidth:      cmd.OriginalWidth,
		OriginalHeight:     cmd.OriginalHeight,
		RenderedWidth:      cmd.RenderedWidth,
		RenderedHeight:     cmd.RenderedHeight,
		Defaults:           defaults,
		InitialCoordinates: initial,
	})
}

type suggestCmd struct {
	logFlags
	cropFlags

	Image string `arg:"" help:"Image to analyze" type:"existingfile"`
}

func (cmd *suggestCmd) Run() error {
	cmd.setup()

	defaults, err := cmd.defaults()
	if err != nil {
		return err
	}

	ctx := log.Logger.WithContext(context.Background())
	coords, err := SuggestCropFile(ctx, cmd.Image, defaults)
	if err != nil {
		return err
	}
	printJSONL(os.Stdout, []crop.Coords{coords})
	return nil
}

type cliArgs struct {
	Serve   serveCmd   `cmd:"" default:"withargs" help:"Serve the crop picker for a directory"`
	Replay  replayCmd  `cmd:"" help:"Run pointer events through the crop engine and print notifications"`
	Suggest suggestCmd `cmd:"" help:"Suggest a crop for an image"`
}

func printJSONL[T any](w io.Writer, data []T) {
	enc := json.NewEncoder(w)
	for _, item := range data {
		if err := enc.Encode(item); err != nil {
			log.Error().Err(err).Msg("Failed to encode item to JSON")
			continue
		}
	}
}
