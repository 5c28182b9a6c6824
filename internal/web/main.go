package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ctr49/matrix-authentication-service/internal/auth"
	"github.com/ctr49/matrix-authentication-service/internal/config"
	fiberadapter "github.com/ctr49/matrix-authentication-service/internal/logger/adapter/fiber"
	"github.com/ctr49/matrix-authentication-service/internal/web/handler/login"
	"github.com/ctr49/matrix-authentication-service/internal/web/handler/logout"
	oidchandler "github.com/ctr49/matrix-authentication-service/internal/web/handler/oidc"
	"github.com/ctr49/matrix-authentication-service/internal/web/handler/profile"
	"github.com/ctr49/matrix-authentication-service/internal/web/handler/security"
	"github.com/ctr49/matrix-authentication-service/internal/web/handler/sessions"
	"github.com/ctr49/matrix-authentication-service/internal/web/navigation"
)

// CheckAlivePath is the liveness endpoint used by load balancers.
const CheckAlivePath = "/checkalive"

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	db           *gorm.DB
	oidcProvider *auth.OIDCProvider
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	s.alive.Store(true)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for graceful shutdown of the web service.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: set status to fail, so checkalive returns fail.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// NewNavigationBar builds the account console navigation bar. The entry
// order is the declaration order used for focus traversal and tie-breaks.
func NewNavigationBar(cfg *config.Config) (*navigation.Bar, error) {
	var opts []navigation.Option
	if cfg.Nav.WrapFocus {
		opts = append(opts, navigation.WithWrapFocus())
	}

	return navigation.NewBar([]navigation.Entry{
		{Path: profile.Path, Label: "Profile"},
		{Path: sessions.Path, Label: "Sessions"},
		{Path: security.Path, Label: "Security"},
	}, opts...)
}

// New creates a new web service with the given configuration.
func New(cfg *config.Config, db *gorm.DB, oidcProvider *auth.OIDCProvider) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if db == nil {
		return nil, errors.New("db cannot be nil")
	}

	httpFS := http.FS(templateEmbedFS{embeddedTemplates})
	templateEngine := html.NewFileSystem(httpFS, ".gohtml")

	// in dev mode, use local filesystem for templates
	if cfg.DevMode {
		templateEngine = html.New("./internal/web/templates", ".gohtml")
		templateEngine.ShouldReload = true

		log.Warn().Msg("dev mode enabled: using local filesystem for templates")
	}

	templateEngine.AddFunc("add", func(a, b int) int {
		return a + b
	})

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
			Views:          templateEngine,
		},
	)

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New())
	}

	// access log
	app.Use(fiberadapter.New(fiberadapter.Config{
		Config:        cfg.Log,
		CheckAliveURI: CheckAlivePath,
	}))

	// serve embedded static files
	app.Use("/static",
		filesystem.New(
			filesystem.Config{
				Root:       http.FS(embeddedStaticFiles),
				PathPrefix: "static",
				Browse:     cfg.Webserver.BrowseStatic,
			},
		),
	)

	service := &Service{
		cfg:          cfg,
		App:          app,
		db:           db,
		oidcProvider: oidcProvider,
	}

	app.Get(CheckAlivePath, func(c *fiber.Ctx) error {
		if !service.alive.Load() {
			return c.SendStatus(fiber.StatusServiceUnavailable)
		}

		return c.SendString("OK")
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Use(AuthMiddleware(db))

	bar, err := NewNavigationBar(cfg)
	if err != nil {
		return nil, err
	}

	// init handlers (they register their own routes)
	if err := login.Handler.Init(app, cfg, db); err != nil {
		return nil, err
	}

	if err := logout.Handler.Init(app, cfg, db, oidcProvider); err != nil {
		return nil, err
	}

	if err := oidchandler.Handler.Init(app, cfg, db, oidcProvider); err != nil {
		return nil, err
	}

	if err := profile.Handler.Init(app, cfg, db, bar); err != nil {
		return nil, err
	}

	if err := sessions.Handler.Init(app, cfg, db, bar); err != nil {
		return nil, err
	}

	if err := security.Handler.Init(app, cfg, db, bar); err != nil {
		return nil, err
	}

	return service, nil
}
