package main

import (
	"context"
	"errors"
	"fmt"
	"github.com/aliaksandrluz19921520/whatsapp/internal/adapters/file"
	"github.com/aliaksandrluz19921520/whatsapp/internal/adapters/handler"
	"github.com/aliaksandrluz19921520/whatsapp/internal/adapters/sender"
	"github.com/aliaksandrluz19921520/whatsapp/internal/config"
	"github.com/aliaksandrluz19921520/whatsapp/internal/core/domain"
	"github.com/aliaksandrluz19921520/whatsapp/internal/core/service"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var configDir string

func main() {
	root := &cobra.Command{
		Use:           "whatsapp",
		Short:         "Answers questions sent over WhatsApp or Telegram with an LLM",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configDir, "config-dir", "c", "", "directory containing config.toml")

	root.AddCommand(serveCmd())
	root.AddCommand(askCmd())
	root.AddCommand(doctorCmd())

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, err
	}

	cfg.SetupLogging()

	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server and the Telegram poller",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log.Info().Msg("starting answer relay...")

	c, err := newCore(ctx, cfg)
	if err != nil {
		return err
	}

	if !cfg.Twilio.Enabled && cfg.Telegram.BotToken == "" {
		return errors.New("no transport enabled: enable twilio or set telegram.bot_token")
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Twilio.Enabled {
		pipeline, err := c.pipeline("whatsapp",
			file.NewBasicAuthFetcher(cfg.Media.Timeout, cfg.Twilio.AccountSID, cfg.Twilio.AuthToken),
			sender.NewTwilio(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.WhatsAppNumber))
		if err != nil {
			return err
		}

		server := &http.Server{
			Addr:    cfg.Server.Address,
			Handler: handler.NewRouter(handler.NewWebhook(pipeline, cfg.Server.WebhookPath)),
		}

		g.Go(func() error {
			log.Info().Str("address", server.Addr).Str("path", cfg.Server.WebhookPath).Msg("webhook listening")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("webhook server: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gctx.Done()
			log.Info().Msg("shutting down webhook server")

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
			defer cancel()

			return server.Shutdown(shutdownCtx)
		})
	}

	if cfg.Telegram.BotToken != "" {
		var updates *handler.Telegram

		b, err := bot.New(cfg.Telegram.BotToken, bot.WithDefaultHandler(
			func(ctx context.Context, b *bot.Bot, update *models.Update) {
				updates.Handle(ctx, b, update)
			}))
		if err != nil {
			return fmt.Errorf("failed initializing telegram bot: %w", err)
		}

		pipeline, err := c.pipeline("telegram", file.NewFetcher(cfg.Media.Timeout), sender.NewTelegram(b))
		if err != nil {
			return err
		}

		updates = handler.NewTelegram(pipeline, b, cfg.HandlerTimeout)

		g.Go(func() error {
			log.Info().Msg("telegram bot listening")
			b.Start(gctx)
			return nil
		})
	}

	return g.Wait()
}

func askCmd() *cobra.Command {
	var imageURL string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a single question and print the reply",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 && imageURL == "" {
				return errors.New("a question or --image is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			// replies go to stdout
			cfg.Twilio.Enabled = false
			cfg.Auth.AllowedSenders = nil
			if err := cfg.Validate(); err != nil {
				return err
			}

			c, err := newCore(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			fetcher := file.NewFetcher(cfg.Media.Timeout)
			if cfg.Twilio.AccountSID != "" {
				fetcher = file.NewBasicAuthFetcher(cfg.Media.Timeout, cfg.Twilio.AccountSID, cfg.Twilio.AuthToken)
			}

			pipeline, err := c.pipeline("console", fetcher, sender.NewConsole(cmd.OutOrStdout()))
			if err != nil {
				return err
			}

			_, err = pipeline.Handle(cmd.Context(), &domain.InboundMessage{
				ID:        "cli",
				Sender:    "console",
				Body:      strings.Join(args, " "),
				MediaURL:  imageURL,
				Transport: domain.Console,
			})

			return err
		},
	}

	cmd.Flags().StringVar(&imageURL, "image", "", "URL of a screenshot containing the question")

	return cmd
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, templates and the reference document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			failed := 0

			check := func(name string, err error, detail string) {
				if err != nil {
					fmt.Fprintf(out, "  FAIL  %s: %v\n", name, err)
					failed++
					return
				}
				fmt.Fprintf(out, "  PASS  %s: %s\n", name, detail)
			}

			cfg, err := loadConfig()
			check("config", err, "loaded")
			if err != nil {
				return errors.New("doctor found problems")
			}

			check("validation", cfg.Validate(), "all required keys present")

			_, err = service.LoadTemplates(cfg.PromptsDir)
			check("templates", err, templateSource(cfg.PromptsDir))

			_, err = service.NewLineFilter(cfg.OCRDenylist)
			check("ocr denylist", err, fmt.Sprintf("%d extra patterns", len(cfg.OCRDenylist)))

			if cfg.ReferenceDocument != "" {
				doc, err := file.NewFetcher(cfg.Media.Timeout).LoadDocument(cmd.Context(), cfg.ReferenceDocument)
				detail := ""
				if err == nil {
					detail = fmt.Sprintf("%s, %d bytes", doc.Name, len(doc.Content))
				}
				check("reference document", err, detail)
			}

			fmt.Fprintf(out, "\n%d failed\n", failed)
			if failed > 0 {
				return errors.New("doctor found problems")
			}

			return nil
		},
	}
}

func templateSource(dir string) string {
	if dir == "" {
		return "built-in"
	}

	return dir
}
