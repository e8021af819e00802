package router

import (
	"database/sql"
	"net/http"
	"time"

	mem "eeg-data-sharing/internal/adapters/storage/memory"
	pg "eeg-data-sharing/internal/adapters/storage/postgres"
	_ "eeg-data-sharing/internal/docs"
	"eeg-data-sharing/internal/domain/access"
	"eeg-data-sharing/internal/domain/records"
	"eeg-data-sharing/internal/domain/sharing"
	"eeg-data-sharing/internal/domain/users"
	"eeg-data-sharing/internal/middleware"
	"eeg-data-sharing/internal/platform/logger"
	"eeg-data-sharing/internal/platform/metrics"
	"eeg-data-sharing/internal/ports/auth"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/unrolled/secure"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	// Repos explícitos (tests / seeds). Tienen prioridad sobre DB.
	Users   users.Repository
	Records records.Repository
	Sharing sharing.Repository

	Logger   logger.Logger
	Registry *prometheus.Registry
	Clock    func() time.Time

	CreateRateLimit int
	Production      bool
}

// Services agrupa los servicios de dominio ya cableados. main los reutiliza
// para el scheduler del reaper.
type Services struct {
	Users    *users.Service
	Records  *records.Service
	Sharing  *sharing.Service
	Reaper   *sharing.Reaper
	Resolver *access.Resolver
}

// WithDefaults completa logger y registry. Llamarlo una vez y reutilizar el resultado.
func (o Options) WithDefaults() Options {
	if o.Logger == nil {
		o.Logger = logger.NewNop()
	}
	if o.Registry == nil {
		o.Registry = prometheus.NewRegistry()
	}
	return o
}

func NewServices(opts Options) *Services {
	var (
		userRepo    users.Repository
		recordRepo  records.Repository
		sharingRepo sharing.Repository
	)

	if opts.DB != nil {
		userRepo = pg.NewUsersRepo(opts.DB)
		recordRepo = pg.NewRecordsRepo(opts.DB)
		sharingRepo = pg.NewSharingRepo(opts.DB)
	} else {
		userRepo = mem.NewUserRepo()
		recordRepo = mem.NewRecordRepo()
		sharingRepo = mem.NewSharingRepo()
	}
	if opts.Users != nil {
		userRepo = opts.Users
	}
	if opts.Records != nil {
		recordRepo = opts.Records
	}
	if opts.Sharing != nil {
		sharingRepo = opts.Sharing
	}

	m := metrics.New(opts.Registry)

	usersSvc := users.NewService(userRepo)
	recordsSvc := records.NewService(recordRepo)
	sharingSvc := sharing.NewService(sharingRepo, recordsSvc, usersSvc,
		sharing.WithClock(opts.Clock),
		sharing.WithLogger(opts.Logger.With(map[string]any{"module": "sharing"})),
		sharing.WithMetrics(m),
	)

	return &Services{
		Users:    usersSvc,
		Records:  recordsSvc,
		Sharing:  sharingSvc,
		Reaper:   sharing.NewReaper(sharingSvc),
		Resolver: access.NewResolver(recordsSvc, usersSvc, sharingSvc, access.WithMetrics(m)),
	}
}

func NewRouter(opts Options) http.Handler {
	opts = opts.WithDefaults()
	return Mount(opts, NewServices(opts))
}

// Mount arma el router HTTP sobre servicios ya construidos.
func Mount(opts Options, svcs *Services) http.Handler {
	opts = opts.WithDefaults()
	r := chi.NewRouter()

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        opts.Production,
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:      !opts.Production,
	})

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recover(opts.Logger))
	r.Use(secureMiddleware.Handler)

	// RequestLog después de AuthContext para poder loguear el user_id.
	r.Use(middleware.AuthContext(opts.AuthVerifier))
	r.Use(middleware.RequestLog(opts.Logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// Rutas por módulo
	sharing.RegisterRoutes(r, svcs.Sharing, sharing.RouteOptions{
		Directory:       svcs.Users,
		Records:         svcs.Records,
		CreateRateLimit: opts.CreateRateLimit,
	})
	sharing.RegisterAdminRoutes(r, svcs.Reaper)
	access.RegisterRoutes(r, svcs.Resolver, svcs.Records)

	return r
}
