// Command alsasink plays a file, or silence, through an ALSA sink until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/gen2brain/alsasink"
	"github.com/gen2brain/alsasink/alsa"
)

var (
	configPath string
	audioPath  string
	verbose    bool
	list       bool
)

func init() {
	flag.StringVar(&configPath, "config", "", "path to the configuration file (default ./alsasink.yaml)")
	flag.StringVar(&audioPath, "file", "", "WAV or MP3 file to play, silence when empty")
	flag.BoolVar(&verbose, "verbose", false, "show verbose logs")
	flag.BoolVar(&verbose, "v", false, "shorthand for --verbose")
	flag.BoolVar(&list, "list", false, "list playback devices and exit")
}

func main() {
	flag.Parse()

	if list {
		if err := listDevices(); err != nil {
			fmt.Fprintf(os.Stderr, "Error listing devices: %v\n", err)
			os.Exit(1)
		}

		return
	}

	logger, err := newLogger(verbose)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer func() { _ = logger.Sync() }()

	named := logger.Named("main")
	named.Debug("Created logger")

	if err := run(logger); err != nil {
		named.Errorw("Exiting", "error", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(logger *zap.SugaredLogger) error {
	named := logger.Named("main")

	cc := newConfigManager(logger, configPath)
	if err := cc.load(); err != nil {
		return err
	}

	cfg := cc.config()

	var dec audioDecoder
	if audioPath != "" {
		d, closer, err := openDecoder(audioPath)
		if err != nil {
			return err
		}
		defer closer.Close()

		dec = d
		if cfg.Module.Rate == 0 {
			cfg.Module.Rate = dec.SampleRate()
		}
		if cfg.Module.Channels == 0 && cfg.Module.ChannelMap == "" {
			cfg.Module.Channels = uint8(min(dec.NumChans(), alsasink.MaxChannels))
		}
	}

	core, err := alsasink.NewCore(alsa.Opener, logger)
	if err != nil {
		return err
	}
	defer core.Close()

	m, err := core.Load(cfg.Module)
	if err != nil {
		return fmt.Errorf("load module: %w", err)
	}

	sink := m.Sink()
	named.Infow("Sink ready",
		"name", sink.Name(),
		"spec", sink.Spec(),
		"channelMap", sink.ChannelMap(),
		"description", sink.Property(alsasink.PropDeviceDescription))

	if dec != nil {
		if dec.SampleRate() != sink.Spec().Rate {
			named.Warnw("Sample rate differs from the file, playback speed will be off",
				"file", dec.SampleRate(), "sink", sink.Spec().Rate)
		}

		r, err := alsasink.NewDecoderRenderer(dec, dec.BitDepth(), dec.NumChans(), sink.Spec(), logger)
		if err != nil {
			return err
		}

		if err := sink.SetRenderer(r); err != nil {
			return fmt.Errorf("set renderer: %w", err)
		}
	}

	setVolume := func(percent float64) {
		cv := alsasink.NewChannelVolumes(int(sink.Spec().Channels), alsasink.VolumeFromPercent(percent))
		if err := sink.SetVolume(cv); err != nil {
			named.Warnw("Failed to set volume", "error", err)
			return
		}

		named.Infow("Volume set", "volume", cv.Max())
	}

	if cfg.Volume >= 0 {
		setVolume(cfg.Volume)
	}
	cc.watch(setVolume)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	unloaded := make(chan struct{})
	go func() {
		select {
		case <-m.Closed():
			close(unloaded)
			stop()
		case <-ctx.Done():
		}
	}()

	if err := core.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	select {
	case <-unloaded:
		return errors.New("module unloaded after a device failure")
	default:
	}

	named.Info("Shut down")

	return nil
}

func listDevices() error {
	cards, err := alsa.EnumerateCards()
	if err != nil {
		return err
	}

	for _, c := range cards {
		fmt.Print(c)

		for _, d := range c.Devices {
			caps, err := alsa.PcmParamsRefined(uint(d.Card), uint(d.ID))
			if err != nil {
				fmt.Printf("    (busy: %v)\n", err)
				continue
			}

			for _, line := range strings.Split(strings.TrimRight(caps.String(), "\n"), "\n") {
				fmt.Printf("    %s\n", line)
			}
		}
	}

	return nil
}
