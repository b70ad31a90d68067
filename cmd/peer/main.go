// duocall peer: one participant of a two-party call.
//
// The peer joins a room on the relay and negotiates audio/video with
// whoever else is in it. Media comes from IVF/Ogg files (or silent tracks)
// and the remote side's media can be recorded to disk.
//
// It can be launched interactively (no -url) or non-interactively via CLI
// flags (-url, -room, -auto, ...).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/pterm/pterm"

	"github.com/1ureka/duocall/internal/call"
	"github.com/1ureka/duocall/internal/config"
	"github.com/1ureka/duocall/internal/media"
	"github.com/1ureka/duocall/internal/signaling"
	"github.com/1ureka/duocall/internal/transport"
	"github.com/1ureka/duocall/internal/util"
)

var version = "dev"

const (
	optStart = "Start call"
	optHang  = "Hang up"
	optMute  = "Toggle preview mute"
	optQuit  = "Quit"
)

func main() {
	// Root context, cancelled on Ctrl+C. While a pterm prompt holds the
	// terminal, the prompt's interrupt handler calls stop instead.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	def := config.DefaultICE()

	relayFlag := flag.String("url", "", "Relay address, e.g. ws://localhost:3000")
	roomFlag := flag.String("room", "", "Room to join (empty joins the default room)")
	stunFlag := flag.String("stun", strings.Join(def.URLs, ","), "Comma-separated STUN/TURN URLs")
	poolFlag := flag.Uint("pool", uint(def.CandidatePoolSize), "ICE candidate pool size")
	videoFlag := flag.String("video", "", "IVF (VP8) file used as the camera")
	audioFlag := flag.String("audio", "", "Ogg (Opus) file used as the microphone")
	recordFlag := flag.String("record", "", "Directory to record the remote media into")
	autoFlag := flag.Bool("auto", false, "Start the call immediately, without the menu")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debugMode {
		util.EnableDebug()
	}

	pterm.Info.Println(fmt.Sprintf("duocall peer v%s", version))
	pterm.Println()

	base := *relayFlag
	if base == "" {
		var ok bool
		if base, ok = askRelay(ctx, stop); !ok {
			return
		}
	}
	relayURL, err := config.RelayURL(base, *roomFlag)
	if err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}

	if *poolFlag > 255 {
		util.LogError("invalid -pool: must be 0 ~ 255")
		os.Exit(1)
	}

	cfg := config.Peer{
		RelayURL: relayURL,
		ICE: config.ICE{
			URLs:              config.SplitList(*stunFlag),
			CandidatePoolSize: uint8(*poolFlag),
		},
		VideoFile: *videoFlag,
		AudioFile: *audioFlag,
		RecordDir: *recordFlag,
		AutoStart: *autoFlag,
		Debug:     *debugMode,
	}
	if err := cfg.Validate(); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}

	if err := run(ctx, stop, cfg); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
	util.LogInfo("bye")
}

// run connects to the relay and drives one engine until ctx ends or the user
// quits.
func run(ctx context.Context, stop context.CancelFunc, cfg config.Peer) error {
	api, err := transport.NewAPI()
	if err != nil {
		return fmt.Errorf("webrtc setup: %w", err)
	}

	client, err := signaling.Dial(ctx, cfg.RelayURL)
	if err != nil {
		return err
	}
	defer client.Close()
	util.LogSuccess("connected to %s", cfg.RelayURL)

	recorder := media.NewRecorder(cfg.RecordDir)
	engine := call.New(call.Config{
		Devices: media.FileDevices{VideoFile: cfg.VideoFile, AudioFile: cfg.AudioFile},
		Surface: recorder,
		Signal:  client,
		NewPeer: transport.Factory(api, cfg.ICE),
		OnStateChange: func(s call.State) {
			util.LogInfo("call %s", s)
		},
	})

	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		_ = engine.Run(ctx)
	}()

	// The relay connection outlives the engine so the closing bye still
	// goes out.
	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	go func() {
		err := client.Watch(watchCtx, engine.Deliver)
		if watchCtx.Err() == nil {
			if err != nil {
				util.LogError("relay connection lost: %v", err)
			} else {
				util.LogError("relay closed the connection")
			}
			if !cfg.AutoStart {
				util.LogWarning("press any key to leave the menu")
			}
		}
		stop()
	}()

	if cfg.AutoStart {
		engine.Start()
		<-ctx.Done()
	} else {
		runMenu(ctx, stop, engine)
	}

	stop()
	<-engineDone
	stopWatch()
	recorder.Wait()
	return nil
}

// runMenu reads user actions until Quit is chosen or ctx ends. The menu holds
// the terminal in raw mode, so Ctrl+C reaches it as a key press and is turned
// into stop. A lost relay connection also calls stop, but the open menu only
// notices on the next key press.
func runMenu(ctx context.Context, stop context.CancelFunc, engine *call.Engine) {
	for ctx.Err() == nil {
		choice, err := menuPrompt(engine.State(), stop).Show()
		if err != nil || ctx.Err() != nil {
			return
		}

		switch choice {
		case optStart:
			engine.Start()
		case optHang:
			engine.Hangup()
		case optMute:
			engine.ToggleMute()
		case optQuit:
			return
		}
	}
}

// menuPrompt builds the call menu. interrupt runs on Ctrl+C in place of
// pterm's default os.Exit, which would skip the closing bye.
func menuPrompt(state call.State, interrupt func()) *pterm.InteractiveSelectPrinter {
	return pterm.DefaultInteractiveSelect.
		WithOptions([]string{optStart, optHang, optMute, optQuit}).
		WithDefaultText(fmt.Sprintf("Call is %s", state)).
		WithOnInterruptFunc(interrupt)
}

// askRelay prompts for the relay address until a usable one is entered. It
// reports false when the user interrupts with Ctrl+C.
func askRelay(ctx context.Context, stop context.CancelFunc) (string, bool) {
	for {
		raw, _ := relayPrompt(stop).Show()
		if ctx.Err() != nil {
			return "", false
		}

		if _, err := config.RelayURL(raw, ""); err == nil && strings.TrimSpace(raw) != "" {
			pterm.Println()
			return raw, true
		}

		pterm.Println()
		util.LogWarning("invalid input: please enter a host or URL")
	}
}

func relayPrompt(interrupt func()) *pterm.InteractiveTextInputPrinter {
	return pterm.DefaultInteractiveTextInput.
		WithDefaultText("Relay address (e.g. ws://localhost:3000)").
		WithOnInterruptFunc(interrupt)
}
