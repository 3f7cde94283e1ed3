package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyberinferno/dglab-ws/dispatch"
	"github.com/cyberinferno/dglab-ws/logger"
	"github.com/cyberinferno/dglab-ws/notify"
	"github.com/cyberinferno/dglab-ws/preset"
	"github.com/cyberinferno/dglab-ws/protocol"
	"github.com/cyberinferno/dglab-ws/session"
	"github.com/cyberinferno/dglab-ws/wsclient"
	"github.com/fatih/color"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	runTick           time.Duration
	runRedisAddr      string
	runDiscordWebhook string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect over WebSocket and read commands from stdin",
	Long: `Connect to the relay over WebSocket, print state changes and device
feedback, and apply commands typed on stdin (type "help" for the list).

Feedback is also published to Redis when --redis-addr is set and posted to
a Discord channel when --discord-webhook is set.`,
	Args: cobra.NoArgs,
	RunE: runSession,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().DurationVar(&runTick, "tick", 16*time.Millisecond, "Interval between event drains")
	runCmd.Flags().StringVar(&runRedisAddr, "redis-addr", "", "Publish feedback to this Redis server")
	runCmd.Flags().StringVar(&runDiscordWebhook, "discord-webhook", "", "Post feedback to this Discord webhook URL")
}

func runSession(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("tick") {
		cfg.Tick = runTick
	}
	if cmd.Flags().Changed("redis-addr") {
		cfg.RedisAddr = runRedisAddr
	}
	if cmd.Flags().Changed("discord-webhook") {
		cfg.DiscordWebhook = runDiscordWebhook
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, quit := context.WithCancel(ctx)
	defer quit()

	out := cmd.OutOrStdout()
	queue := dispatch.NewQueue(log)
	transport := wsclient.New(cfg.Transport(), queue, log)
	manager := session.NewManager(cfg.Session(), transport, queue, preset.Default(), log)

	manager.OnStateChange(func(s session.State) { printState(out, s) })
	manager.OnFeedback(func(f protocol.Feedback) { printFeedback(out, f) })

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		publisher := notify.NewRedisPublisher(rdb, cfg.RedisChannel, log, 64)
		defer publisher.Close()
		manager.OnFeedback(publisher.PublishFeedback)
	}

	if cfg.DiscordWebhook != "" {
		publisher := notify.NewDiscordPublisher(cfg.DiscordWebhook, &http.Client{Timeout: cfg.HTTPTimeout}, log, 16)
		defer publisher.Close()
		manager.OnFeedback(publisher.PublishFeedback)
	}

	con := &console{manager: manager, host: cfg.Host, out: out}
	lines := readLines(cmd.InOrStdin(), log)

	manager.Connect(cfg.Host)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		queue.Run(gctx, cfg.Tick)
		return nil
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					log.Debug("stdin closed")
					lines = nil
					continue
				}
				queue.Enqueue(func() {
					done, err := con.exec(line)
					if err != nil {
						fmt.Fprintln(out, color.RedString("error: %v", err))
					}
					if done {
						quit()
					}
				})
			}
		}
	})

	err = g.Wait()

	// the tick goroutine has exited; this goroutine owns the manager now
	manager.Close()
	transport.Wait()
	manager.Update()

	log.Info("stopped")
	return err
}

// readLines scans r on its own goroutine. The goroutine is not stopped on
// shutdown since a blocked read on stdin cannot be interrupted.
func readLines(r io.Reader, log logger.Logger) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			log.Warn("read stdin", logger.Err(err))
		}
	}()

	return lines
}
