// Copyright (c) 2023-2025 RapidaAI
// VoiceVault - personal voice-recording manager: capture, browse, play back,
// transcribe offline and discuss recordings with a chat model.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	internal_audio "github.com/rapidaai/voicevault/internal/audio"
	internal_device "github.com/rapidaai/voicevault/internal/audio/device"
	internal_chat "github.com/rapidaai/voicevault/internal/chat"
	"github.com/rapidaai/voicevault/internal/config"
	internal_player "github.com/rapidaai/voicevault/internal/player"
	internal_recorder "github.com/rapidaai/voicevault/internal/recorder"
	internal_storage "github.com/rapidaai/voicevault/internal/storage"
	internal_store "github.com/rapidaai/voicevault/internal/store"
	internal_transcription "github.com/rapidaai/voicevault/internal/transcription"
	internal_vault "github.com/rapidaai/voicevault/internal/vault"
	"github.com/rapidaai/voicevault/pkg/commons"
)

type app struct {
	cfg     *config.AppConfig
	logger  commons.Logger
	store   internal_store.Store
	paths   *internal_storage.Paths
	service *internal_vault.Service
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	v, err := config.InitConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg, err := config.GetApplicationConfig(v)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := commons.NewApplicationLogger(
		commons.Name(cfg.Name),
		commons.Path(cfg.LogPath),
		commons.Level(cfg.LogLevel),
	)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("data dir: %v", err)
	}
	db, err := internal_store.Open(cfg.DatabasePath())
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		store:  internal_store.NewStore(db, logger),
		paths:  internal_storage.NewPaths(logger, cfg.DataDir, cfg.RemovableDir),
	}
	a.service = internal_vault.NewService(logger, a.store, a.paths)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	switch os.Args[1] {
	case "record":
		err = a.record(ctx, os.Args[2:])
	case "list":
		err = a.list(ctx)
	case "play":
		err = a.play(ctx, os.Args[2:])
	case "transcribe":
		err = a.transcribe(ctx, os.Args[2:])
	case "chat":
		err = a.chat(ctx, os.Args[2:])
	case "sweep":
		err = a.sweep(ctx)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Errorf("%s: %v", os.Args[1], err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: voicevault <command> [flags]

commands:
  record      capture a recording (-seconds, -name)
  list        list saved recordings
  play        play a recording (-id, -speed, -repeat)
  transcribe  transcribe a recording offline (-id, -lang)
  chat        discuss a transcript with the chat model (-id, -prompt)
  sweep       purge recycle-bin entries past retention`)
}

func (a *app) record(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("record", flag.ExitOnError)
	seconds := fs.Int("seconds", 5, "capture length")
	name := fs.String("name", "", "display name")
	fs.Parse(args)

	profile := internal_audio.QualityByName(a.cfg.RecordingQuality)
	target, err := a.paths.NewRecordingTarget(internal_storage.Location(a.cfg.StorageLocation))
	if err != nil {
		return err
	}

	// no microphone hardware is wired into the CLI; capture a test tone
	source := internal_device.NewToneSource(440, profile.SampleRate)
	session := internal_recorder.NewSession(a.logger, source)
	if err := session.Start(target, profile); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		session.Cancel()
		return ctx.Err()
	case <-time.After(time.Duration(*seconds) * time.Second):
	}

	result, err := session.Stop()
	if err != nil {
		a.logger.Warnf("finalize reported: %v (keeping flushed audio)", err)
	}
	id, err := a.service.SaveRecording(ctx, result, *name)
	if err != nil {
		return err
	}
	fmt.Printf("saved recording %d: %s (%s)\n", id, result.Path, result.Duration.Round(time.Millisecond))
	return nil
}

func (a *app) list(ctx context.Context) error {
	recs, err := a.store.ListRecordings(ctx)
	if err != nil {
		return err
	}
	for _, r := range recs {
		marker := " "
		if r.IsFavorite {
			marker = "*"
		}
		transcribed := ""
		if r.Transcript != "" {
			transcribed = " [transcribed]"
		}
		fmt.Printf("%s %4d  %-24s %8s  %s%s\n",
			marker, r.Id, r.FileName, r.Duration().Round(time.Millisecond),
			r.CreatedDate.Format("2006-01-02 15:04"), transcribed)
	}
	return nil
}

func (a *app) play(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	id := fs.Uint64("id", 0, "recording id")
	speed := fs.Float64("speed", 1.0, "playback rate")
	repeat := fs.Bool("repeat", false, "loop at end of media")
	fs.Parse(args)

	rec, err := a.store.GetRecording(ctx, *id)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	session := internal_player.NewSession(a.logger,
		internal_player.WithBookmarks(internal_store.PlayerBookmarks{Store: a.store}),
		internal_player.WithObserver(func(p internal_player.Progress) {
			fmt.Printf("\r%8s / %s", p.Position.Round(time.Second), p.Duration.Round(time.Second))
			if !p.Playing {
				close(done)
			}
		}),
	)
	if err := session.Load(ctx, rec.FilePath, internal_device.RouteSpeaker, rec.Id); err != nil {
		return err
	}
	defer session.Release()

	if *speed != 1.0 {
		if err := session.SetSpeed(*speed); err != nil {
			return err
		}
	}
	session.SetRepeat(*repeat)
	session.Play()

	select {
	case <-ctx.Done():
	case <-done:
	}
	fmt.Println()
	return nil
}

func (a *app) transcribe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("transcribe", flag.ExitOnError)
	id := fs.Uint64("id", 0, "recording id")
	lang := fs.String("lang", a.cfg.TranscriptionLanguage, "model language")
	fs.Parse(args)

	modelsDir, err := a.paths.ModelsDir()
	if err != nil {
		return err
	}
	provisioner := internal_transcription.NewProvisioner(
		a.logger, os.DirFS(a.cfg.DataDir), modelsDir)
	pipeline := internal_transcription.NewPipeline(
		a.logger, provisioner, internal_transcription.NewVoskRecognizer)
	manager := internal_transcription.NewManager(
		a.logger, pipeline, internal_store.TranscriptAccess{Store: a.store})

	text, err := manager.TranscribeRecording(ctx, *id, *lang)
	if err != nil {
		return err
	}
	if text == "" {
		fmt.Println("(no speech recognized)")
		return nil
	}
	fmt.Println(text)
	return nil
}

func (a *app) chat(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	id := fs.Uint64("id", 0, "recording id")
	prompt := fs.String("prompt", "", "question about the recording")
	fs.Parse(args)

	rec, err := a.store.GetRecording(ctx, *id)
	if err != nil {
		return err
	}
	if rec.Transcript == "" {
		return fmt.Errorf("recording %d has no transcript yet, run transcribe first", *id)
	}

	provider, err := internal_chat.NewProvider(ctx, a.cfg.ChatProvider, a.cfg.ChatModel, a.cfg.ChatAPIKey)
	if err != nil {
		return err
	}
	answer, err := internal_chat.Discuss(ctx, provider, rec.Transcript,
		[]internal_chat.Message{{Role: internal_chat.RoleUser, Content: *prompt}})
	if err != nil {
		return err
	}
	fmt.Println(answer)
	return nil
}

func (a *app) sweep(ctx context.Context) error {
	retention := time.Duration(a.cfg.RecycleBinDays) * 24 * time.Hour
	n, err := a.service.SweepRecycleBin(ctx, retention)
	if err != nil {
		return err
	}
	fmt.Printf("purged %d recordings\n", n)
	return nil
}
