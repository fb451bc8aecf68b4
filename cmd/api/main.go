package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/sync/errgroup"

	_ "github.com/willjrcristo/veoverse-checkout/docs" // Importa a pasta docs gerada
	"github.com/willjrcristo/veoverse-checkout/internal/config"
	"github.com/willjrcristo/veoverse-checkout/internal/gateway"
	httphandler "github.com/willjrcristo/veoverse-checkout/internal/handler/http"
	"github.com/willjrcristo/veoverse-checkout/internal/repository"
	"github.com/willjrcristo/veoverse-checkout/internal/service"
)

// @title           VEO VERSE Checkout API
// @version         1.0
// @description     Checkout do VEO VERSE: cobrança do coaching, assinatura mensal e webhook da Stripe.
// @termsOfService  http://swagger.io/terms/
//
// @contact.name   Will Cristo
// @contact.url    https://linkedin.com/in/willjrcristo
// @contact.email  willjrcristo@gmail.com
//
// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html
//
// @host      localhost:8080
// @BasePath  /
func main() {
	if err := run(); err != nil {
		slog.Error("Erro fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// --- 1. CONFIGURAÇÃO ---
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	slog.Info("🚀 Iniciando a API de checkout...")

	// --- 2. BANCO DE DADOS ---
	db, err := repository.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("💾 Banco de dados pronto", "path", cfg.DatabasePath)

	// --- 3. INJEÇÃO DE DEPENDÊNCIAS (WIRING) ---
	// DB -> Repository -> Service -> Handler
	store := repository.NewSQLiteRepository(db)
	stripeGateway := gateway.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.APIURL)
	checkoutService := service.NewCheckoutService(store, stripeGateway, service.Opcoes{
		PrecoBasico:   cfg.Planos.PrecoBasico,
		PrecoCoaching: cfg.Planos.PrecoCoaching,
		Moeda:         cfg.Planos.Moeda,
		WebhookSecret: cfg.Stripe.WebhookSecret,
	})
	if cfg.Stripe.WebhookSecret == "" {
		slog.Warn("STRIPE_WEBHOOK_SECRET não definido; o webhook vai recusar todos os eventos")
	}

	checkoutHandler := httphandler.NewCheckoutHandler(checkoutService)
	webhookHandler := httphandler.NewStripeWebhookHandler(checkoutService)
	usuarioHandler := httphandler.NewUsuarioHandler(checkoutService)

	// --- 4. ROTEADOR E ROTAS ---
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(enderecoCliente(cfg.TrustProxy))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(prometheusMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("API de checkout está no ar! 🚀"))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("database unhealthy"))
			return
		}
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	limitador := newLimitadorPorIP(cfg.RateLimitRPS, cfg.RateLimitBurst)
	// O webhook fica fora do rate limit: a Stripe reenvia em rajada depois de uma queda.
	r.Post("/api/webhook/stripe", webhookHandler.HandleStripeWebhook)
	r.With(limitador.Middleware).Mount("/api", checkoutHandler.Routes())
	r.Mount("/usuarios", usuarioHandler.Routes())

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Stripe-Signature"},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           corsHandler.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// --- 5. SERVIDOR HTTP E DESLIGAMENTO ---
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("✅ Servidor pronto para receber requisições", "addr", srv.Addr)
		slog.Info("📖 Documentação Swagger disponível em /swagger/index.html")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Desligando o servidor...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
