package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/panyu/myblog/adapters/accounts"
	"github.com/panyu/myblog/adapters/captcha"
	"github.com/panyu/myblog/adapters/events"
	"github.com/panyu/myblog/adapters/mail"
	"github.com/panyu/myblog/adapters/store"
	"github.com/panyu/myblog/adapters/tokenizer"
	"github.com/panyu/myblog/internal/config"
	"github.com/panyu/myblog/service"
	transport "github.com/panyu/myblog/transport/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the mail consumer",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "Listen address")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("failed to parse redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	db, err := accounts.Open(cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	accountRepo := accounts.NewBunRepository(db)
	if err := accountRepo.CreateSchema(ctx); err != nil {
		return err
	}

	wmLogger := events.NewZerologAdapter(log.Logger)
	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{Client: redisClient}, wmLogger)
	if err != nil {
		return fmt.Errorf("failed to create redis publisher: %w", err)
	}
	defer publisher.Close()

	subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client:        redisClient,
		ConsumerGroup: cfg.Mail.ConsumerGroup,
	}, wmLogger)
	if err != nil {
		return fmt.Errorf("failed to create redis subscriber: %w", err)
	}
	defer subscriber.Close()

	mailer, err := mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	})
	if err != nil {
		return err
	}

	tokens, err := tokenizer.NewJWTTokenizer([]byte(cfg.JWT.Secret), cfg.JWT.TTL)
	if err != nil {
		return err
	}

	kv := store.NewRedisStore(redisClient)
	bus := events.NewWatermillPublisher(publisher, cfg.Events.LogoutTopic, cfg.Mail.Topic)
	issuer := service.NewCaptchaIssuer(kv, captcha.NewRenderer(), service.CaptchaSettings{
		ImageTTL:        cfg.Captcha.ImageTTL,
		ImageLockoutTTL: cfg.Captcha.ImageLockoutTTL,
		EmailLockoutTTL: cfg.Captcha.EmailLockoutTTL,
	})
	governor := service.NewAttemptGovernor(kv, cfg.Captcha.MaxAttempts)
	verifier := service.NewVerificationService(issuer, governor)

	authService := service.NewAuthService(service.AuthDeps{
		Accounts:  accountRepo,
		Tokenizer: tokens,
		Ledger:    service.NewRevocationLedger(kv, tokens),
		Issuer:    issuer,
		Verifier:  verifier,
		Mail:      bus,
		Events:    bus,
		Hasher:    service.NewPasswordHasher(bcrypt.DefaultCost),
		Codes: service.CodeSettings{
			LoginTTL:    cfg.Captcha.LoginCodeTTL,
			RecoveryTTL: cfg.Captcha.RecoveryCodeTTL,
		},
	})

	consumerErr := make(chan error, 1)
	go func() {
		consumerErr <- mail.NewConsumer(subscriber, mailer, cfg.Mail.Topic).Run(ctx)
	}()

	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           transport.SetupRouter(authService),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", cfg.Server.Addr).
			Dur("token_ttl", tokens.TTL()).
			Int("max_attempts", governor.Limit()).
			Msg("server.listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case err := <-consumerErr:
		if err != nil {
			return err
		}
	}

	log.Info().Msg("server.shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
