package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"slave/internal/bot"
	"slave/internal/config"
	"slave/internal/session"
	"slave/internal/transport"
)

func main() {
	var (
		hostRoom   = flag.String("host", "", "Host a room with this code")
		joinRoom   = flag.String("join", "", "Join a room with this code")
		hostIP     = flag.String("host-ip", "127.0.0.1", "IP address of the room host (join only)")
		name       = flag.String("name", "Player", "Display name")
		avatar     = flag.Int("avatar", 0, "Avatar index")
		fillBots   = flag.Bool("bots", false, "Fill empty seats with bots and start (host only)")
		configPath = flag.String("config", "slave.json", "Path to the game config file")
		logLevel   = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("could not load .env")
	}

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("invalid log level: %s", *logLevel)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if err := config.Load(*configPath); err != nil {
		logrus.WithError(err).Fatal("bad game config")
	}
	cfg := config.Get()

	switch {
	case *hostRoom != "":
		runHost(cfg, *hostRoom, *name, *avatar, *fillBots)
	case *joinRoom != "":
		runClient(cfg, *hostIP, *joinRoom, *name, *avatar)
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func runHost(cfg *config.GameConfig, roomCode, name string, avatar int, fillBots bool) {
	s := session.NewHostSession(cfg, roomCode, name, avatar)

	listener, err := transport.NewListener(roomCode, s.Accept, s.RoomInfo)
	if err != nil {
		logrus.WithError(err).Fatal("could not host room")
	}
	go s.Run()
	go func() {
		if err := listener.Serve(); err != nil {
			logrus.WithError(err).Error("room listener stopped")
		}
	}()
	go printEvents(s.Events())

	logrus.WithFields(logrus.Fields{
		"room": roomCode,
		"port": transport.PortForRoom(roomCode),
	}).Info("hosting room")

	if fillBots {
		difficulty, err := bot.ParseDifficulty(cfg.BotDifficulty)
		if err != nil {
			logrus.WithError(err).Fatal("bad bot difficulty")
		}
		if err := s.FillWithBots(difficulty); err != nil {
			logrus.WithError(err).Fatal("could not seat bots")
		}
		if err := s.SetReady(true); err != nil {
			logrus.WithError(err).Fatal("could not ready up")
		}
		if err := s.StartGame(); err != nil {
			logrus.WithError(err).Error("could not start game")
		}
	}

	waitForSignal()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := listener.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("listener shutdown")
	}
	s.Shutdown()
	logrus.Info("room closed")
}

func runClient(cfg *config.GameConfig, hostIP, roomCode, name string, avatar int) {
	s, err := session.Join(cfg, hostIP, roomCode, name, avatar)
	if err != nil {
		logrus.WithError(err).Fatal("could not join room")
	}
	go s.Run()
	go printEvents(s.Events())

	if err := s.SetReady(true); err != nil {
		logrus.WithError(err).Warn("could not ready up")
	}
	logrus.WithField("room", roomCode).Info("joined room")

	waitForSignal()
	s.Leave()
	logrus.Info("left room")
}

// printEvents is the stand-in for a real UI: it narrates the match on the
// console.
func printEvents(events <-chan session.Event) {
	for ev := range events {
		entry := logrus.WithField("player", ev.PlayerID)
		switch ev.Kind {
		case session.EventChat:
			logrus.Infof("[chat] %s: %s", ev.Name, ev.Text)
		case session.EventPlay, session.EventAutoAction:
			entry.WithField("cards", ev.Cards).Info(ev.Kind)
		case session.EventError:
			logrus.Warnf("rejected: %s", ev.Text)
		default:
			entry.Info(ev.Kind)
		}
	}
}

func waitForSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}
