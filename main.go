package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/rkvision/fpganode/cmd"
	"github.com/rkvision/fpganode/internal/api"
	"github.com/rkvision/fpganode/internal/config"
	"github.com/rkvision/fpganode/internal/display"
	"github.com/rkvision/fpganode/internal/events"
	"github.com/rkvision/fpganode/internal/fpga"
	"github.com/rkvision/fpganode/internal/infer"
	"github.com/rkvision/fpganode/internal/led"
	"github.com/rkvision/fpganode/internal/logging"
	"github.com/rkvision/fpganode/internal/metrics"
	"github.com/rkvision/fpganode/internal/metrics/collectors"
	"github.com/rkvision/fpganode/internal/metrics/exporters"
	"github.com/rkvision/fpganode/internal/pipeline"
	"github.com/rkvision/fpganode/internal/pool"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Address to listen on" short:"p" default:":8080" toml:"server.port" env:"SERVER_PORT"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Device settings
	DeviceSim         bool   `help:"Use the simulated device instead of hardware" default:"true" toml:"device.sim" env:"DEVICE_SIM"`
	DeviceWidth       int    `help:"Frame width in pixels" default:"1920" toml:"device.width" env:"DEVICE_WIDTH"`
	DeviceHeight      int    `help:"Frame height in pixels" default:"1080" toml:"device.height" env:"DEVICE_HEIGHT"`
	DevicePixelFormat string `help:"Frame pixel format (bgr565, bgrx8888)" default:"bgr565" toml:"device.pixel_format" env:"DEVICE_PIXEL_FORMAT"`
	DeviceSwap16      bool   `help:"Byte-swap 16-bit pixels from the bus" default:"false" toml:"device.swap16" env:"DEVICE_SWAP16"`
	DeviceBar0        string `help:"BAR0 sysfs resource path" default:"" toml:"device.bar0" env:"DEVICE_BAR0"`
	DeviceBar1        string `help:"BAR1 sysfs resource path" default:"" toml:"device.bar1" env:"DEVICE_BAR1"`
	DeviceBuffer      string `help:"DMA buffer device path" default:"" toml:"device.buffer" env:"DEVICE_BUFFER"`
	DeviceBusAddr     string `help:"DMA buffer bus address (hex)" default:"0x40000000" toml:"device.bus_addr" env:"DEVICE_BUS_ADDR"`

	// Transfer polling settings
	PollInitialUs  int `help:"Initial completion poll sleep in microseconds (0 = busy spin)" default:"5" toml:"poll.initial_us" env:"POLL_INITIAL_US"`
	PollMaxUs      int `help:"Poll sleep ceiling in microseconds" default:"80" toml:"poll.max_us" env:"POLL_MAX_US"`
	PollBackoff    int `help:"Polls between sleep doublings" default:"8" toml:"poll.backoff_every" env:"POLL_BACKOFF_EVERY"`
	ChunkTimeoutMs int `help:"Per-chunk completion deadline in milliseconds" default:"5000" toml:"poll.chunk_timeout_ms" env:"CHUNK_TIMEOUT_MS"`

	// Capture settings
	CaptureFPS       int  `help:"Target capture rate (0 = free running)" default:"30" toml:"capture.fps" env:"CAPTURE_FPS"`
	PoolSlots        int  `help:"Frame pool capacity" default:"3" toml:"capture.pool_slots" env:"POOL_SLOTS"`
	AcquireTimeoutMs int  `help:"Slot acquire deadline in milliseconds" default:"500" toml:"capture.acquire_timeout_ms" env:"ACQUIRE_TIMEOUT_MS"`
	QueueDepth       int  `help:"Display queue depth" default:"4" toml:"capture.queue_depth" env:"QUEUE_DEPTH"`
	ZeroCopy         bool `help:"Hand the DMA buffer to the renderer without copying" default:"false" toml:"capture.zero_copy" env:"ZERO_COPY"`

	// Display settings
	Renderer     string `help:"Display renderer (mjpeg, rtp, null)" default:"mjpeg" toml:"display.renderer" env:"RENDERER"`
	MJPEGQuality int    `help:"JPEG quality for the MJPEG renderer" default:"80" toml:"display.mjpeg_quality" env:"MJPEG_QUALITY"`
	RTPTarget    string `help:"RTP receiver address (host:port)" default:"127.0.0.1:5004" toml:"display.rtp_target" env:"RTP_TARGET"`
	RTPMtu       int    `help:"RTP packet MTU" default:"1400" toml:"display.rtp_mtu" env:"RTP_MTU"`

	// Inference settings
	InferDelayMs int `help:"Simulated inference latency in milliseconds" default:"0" toml:"infer.delay_ms" env:"INFER_DELAY_MS"`

	// Runtime settings file (hot-reloaded)
	SettingsFile string `help:"Runtime settings file" default:"settings.toml" toml:"settings.file" env:"SETTINGS_FILE"`

	// Stats settings
	StatsIntervalSec int `help:"Stats snapshot interval in seconds" default:"10" toml:"stats.interval_sec" env:"STATS_INTERVAL_SEC"`

	// Logging settings
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingFPGA     string `help:"Transfer engine logging level" default:"info" toml:"logging.fpga" env:"LOGGING_FPGA"`
	LoggingPipeline string `help:"Pipeline logging level" default:"info" toml:"logging.pipeline" env:"LOGGING_PIPELINE"`
	LoggingInfer    string `help:"Inference logging level" default:"info" toml:"logging.infer" env:"LOGGING_INFER"`
	LoggingDisplay  string `help:"Display logging level" default:"info" toml:"logging.display" env:"LOGGING_DISPLAY"`
	LoggingAPI      string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

// buildEngine opens the configured transfer engine and validates the
// geometry it reports against the expected one.
func buildEngine(opts *Options, want fpga.Info, poll fpga.PollConfig) (fpga.Engine, fpga.Info, error) {
	var eng fpga.Engine
	if opts.DeviceSim {
		eng = fpga.NewSimEngine(fpga.SimConfig{Info: want, Poll: poll})
	} else {
		busAddr, err := strconv.ParseUint(opts.DeviceBusAddr, 0, 64)
		if err != nil {
			return nil, fpga.Info{}, fmt.Errorf("parse bus address %q: %w", opts.DeviceBusAddr, err)
		}
		eng, err = fpga.NewMMIOEngine(fpga.MMIOConfig{
			Info:          want,
			Poll:          poll,
			BAR0Path:      opts.DeviceBar0,
			BAR1Path:      opts.DeviceBar1,
			BufferPath:    opts.DeviceBuffer,
			BufferBusAddr: busAddr,
			BufferSize:    want.FrameBytes(),
		})
		if err != nil {
			return nil, fpga.Info{}, err
		}
	}

	info, err := eng.Info()
	if err != nil {
		eng.Close()
		return nil, fpga.Info{}, err
	}
	if err := info.Validate(want); err != nil {
		eng.Close()
		return nil, fpga.Info{}, err
	}
	return eng, info, nil
}

// buildRenderer picks the display backend. The MJPEG renderer is returned
// separately so the API server can mount its HTTP endpoints.
func buildRenderer(opts *Options, info fpga.Info, logger *slog.Logger) (display.Renderer, *display.MJPEGRenderer, error) {
	switch opts.Renderer {
	case "mjpeg":
		r := display.NewMJPEGRenderer(info, opts.MJPEGQuality, logger)
		return r, r, nil
	case "rtp":
		r, err := display.NewRTPRenderer(display.RTPConfig{
			Target: opts.RTPTarget,
			MTU:    opts.RTPMtu,
		})
		return r, nil, err
	case "null":
		return display.NullRenderer{}, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown renderer %q", opts.Renderer)
	}
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Flags are parsed by the time this runs, so explicitly set ones
		// keep precedence over the TOML file and environment.
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"fpga":     opts.LoggingFPGA,
				"pipeline": opts.LoggingPipeline,
				"infer":    opts.LoggingInfer,
				"display":  opts.LoggingDisplay,
				"api":      opts.LoggingAPI,
			},
		})
		logger := logging.GetLogger("main")

		format, err := fpga.ParsePixelFormat(opts.DevicePixelFormat)
		if err != nil {
			logger.Error("Invalid pixel format", "error", err)
			os.Exit(1)
		}
		want := fpga.Info{
			FrameWidth:  opts.DeviceWidth,
			FrameHeight: opts.DeviceHeight,
			PixelFormat: format,
		}
		poll := fpga.PollConfig{
			InitialSleep: time.Duration(opts.PollInitialUs) * time.Microsecond,
			MaxSleep:     time.Duration(opts.PollMaxUs) * time.Microsecond,
			BackoffEvery: opts.PollBackoff,
			ChunkTimeout: time.Duration(opts.ChunkTimeoutMs) * time.Millisecond,
		}

		eng, info, err := buildEngine(opts, want, poll)
		if err != nil {
			logger.Error("Failed to open transfer engine", "error", err)
			os.Exit(1)
		}
		logger.Info("Transfer engine ready",
			"sim", opts.DeviceSim,
			"geometry", fmt.Sprintf("%dx%d", info.FrameWidth, info.FrameHeight),
			"pixel_format", info.PixelFormat.String(),
			"frame_bytes", info.FrameBytes())
		metrics.SetDeviceInfo(info.VendorID, info.DeviceID, info.PixelFormat.String(), info.LinkWidth, info.LinkSpeed)

		// Event bus, with log records mirrored for the SSE log stream.
		eventBus := events.New()
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(events.LogEntryEvent{
				Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		settings, err := config.LoadSettings(opts.SettingsFile)
		if err != nil {
			logger.Warn("Failed to load runtime settings, using defaults", "error", err)
			settings = config.DefaultSettings()
		}

		renderer, mjpegRenderer, err := buildRenderer(opts, info, logging.GetLogger("display"))
		if err != nil {
			logger.Error("Failed to create renderer", "error", err)
			eng.Close()
			os.Exit(1)
		}
		sink := display.NewSink(renderer, opts.QueueDepth, logging.GetLogger("display"))

		poolSlots := opts.PoolSlots
		if opts.ZeroCopy {
			// The ticket guards the single DMA buffer in this mode.
			poolSlots = 1
		}
		framePool := pool.New(poolSlots, info.FrameBytes())
		mailbox := pipeline.NewMailbox(info.FrameBytes())

		stats := pipeline.NewStats(sink.Pushed, sink.Dropped, mailbox.Drops,
			framePool.TimeoutCount, framePool.StaleReleaseCount)

		backend := &infer.SimBackend{
			Format:        info.PixelFormat,
			Delay:         time.Duration(opts.InferDelayMs) * time.Millisecond,
			LumaThreshold: settings.Infer.LumaThreshold,
		}
		worker := pipeline.NewWorker(mailbox, backend, stats, eventBus, logging.GetLogger("infer"),
			info.FrameWidth, info.FrameHeight, info.FrameBytes())

		loop, err := pipeline.NewLoop(pipeline.LoopConfig{
			FPS:            opts.CaptureFPS,
			AcquireTimeout: time.Duration(opts.AcquireTimeoutMs) * time.Millisecond,
			Overlay:        settings.Capture.Overlay,
			ZeroCopy:       opts.ZeroCopy,
		}, eng, info, framePool, sink, mailbox, worker.Results(),
			pipeline.Converter{Swap16: opts.DeviceSwap16},
			stats, eventBus, logging.GetLogger("pipeline"))
		if err != nil {
			logger.Error("Failed to build capture loop", "error", err)
			eng.Close()
			os.Exit(1)
		}

		pipe := pipeline.NewPipeline(loop, worker, mailbox, framePool, sink, eng, stats, logging.GetLogger("pipeline"))
		aggregator := pipeline.NewAggregator(stats, eventBus, logging.GetLogger("pipeline"),
			time.Duration(opts.StatsIntervalSec)*time.Second)

		busExporter := exporters.NewBusExporter(eventBus)
		poolCollector := collectors.NewPoolCollector(framePool)
		ledManager := led.NewManager(led.New(logging.GetLogger("led")), eventBus, logging.GetLogger("led"))

		// Hot reload of the runtime settings file.
		var watcher *config.Watcher[config.Settings]
		if _, statErr := os.Stat(opts.SettingsFile); statErr == nil {
			watcher = config.NewConfigWatcher(opts.SettingsFile, config.LoadSettings, logging.GetLogger("config"))
			watcher.OnReload(func(s config.Settings) {
				loop.SetOverlay(s.Capture.Overlay)
				eventBus.Publish(events.ConfigReloadedEvent{
					Path:      opts.SettingsFile,
					Timestamp: time.Now().UTC().Format(time.RFC3339),
				})
			})
		}

		server := api.NewServer(&api.Options{
			AuthUsername: opts.AuthUsername,
			AuthPassword: opts.AuthPassword,
			Info:         info,
			Stats:        stats,
			Loop:         loop,
			Results:      worker.Results(),
			EventBus:     eventBus,
			SettingsPath: opts.SettingsFile,
			ApplySettings: func(overlay bool, _ int) {
				loop.SetOverlay(overlay)
			},
			Stream:            mjpegRenderer,
			PrometheusHandler: exporters.HTTPHandler(),
		})

		runCtx, cancelRun := context.WithCancel(context.Background())
		pipeDone := make(chan error, 1)

		hooks.OnStart(func() {
			ledManager.Start()
			go aggregator.Run(runCtx)
			if startErr := poolCollector.Start(runCtx); startErr != nil {
				logger.Warn("Failed to start pool collector", "error", startErr)
			}
			if watcher != nil {
				if startErr := watcher.Start(); startErr != nil {
					logger.Warn("Failed to watch settings file", "error", startErr)
				}
			}

			go func() {
				pipeDone <- pipe.Run(runCtx)
			}()

			if _, notifyErr := daemon.SdNotify(false, daemon.SdNotifyReady); notifyErr != nil {
				logger.Debug("systemd notify", "error", notifyErr)
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			if _, notifyErr := daemon.SdNotify(false, daemon.SdNotifyStopping); notifyErr != nil {
				logger.Debug("systemd notify", "error", notifyErr)
			}

			// Stop producing before tearing anything else down; the pipeline
			// joins the worker and closes sink, pool, and engine itself.
			cancelRun()
			if runErr := <-pipeDone; runErr != nil {
				logger.Error("Pipeline exited with error", "error", runErr)
			}

			if watcher != nil {
				if stopErr := watcher.Stop(); stopErr != nil {
					logger.Warn("Error stopping settings watcher", "error", stopErr)
				}
			}
			if stopErr := poolCollector.Stop(); stopErr != nil {
				logger.Warn("Error stopping pool collector", "error", stopErr)
			}
			busExporter.Stop()
			ledManager.Stop()

			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
		})
	})

	cli.Root().Use = "fpganode"
	cli.Root().AddCommand(cmd.CreateInfoCmd())
	cli.Root().AddCommand(cmd.CreateCaptureCmd())
	cli.Root().AddCommand(cmd.CreateBenchCmd())

	cli.Run()
}
