package router

import (
	"context"
	"database/sql"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"suppletrack/internal/adapters/notify/logging"
	mem "suppletrack/internal/adapters/storage/memory"
	pg "suppletrack/internal/adapters/storage/postgres"
	"suppletrack/internal/adapters/wakeup/timer"
	"suppletrack/internal/domain/adherence"
	"suppletrack/internal/domain/doses"
	"suppletrack/internal/domain/settings"
	"suppletrack/internal/middleware"
	"suppletrack/internal/platform/logger"
	"suppletrack/internal/ports/auth"
	"suppletrack/internal/ports/notify"
	"suppletrack/internal/ports/wakeup"
	"suppletrack/internal/reminder"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	// Opcionales: backends de alarma y notificación. Si vienen nil se
	// usan el timer en proceso y el notifier de logging.
	Wakeup   wakeup.Scheduler
	Notifier notify.Notifier

	Log logger.Logger

	CORSAllowedOrigins []string
}

// App junta el handler HTTP con el scheduler, para que main pueda
// correr el pase inicial y colgar el job de resync.
type App struct {
	Handler   http.Handler
	Scheduler *reminder.Scheduler
}

// NewRouter arma todo y devuelve solo el handler. Suficiente para los
// tests E2E.
func NewRouter(opts Options) http.Handler {
	return New(opts).Handler
}

func New(opts Options) *App {
	log := opts.Log
	if log == nil {
		log = logger.Nop{}
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(opts.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	var (
		doseRepo     doses.Repository
		entryRepo    adherence.Repository
		settingsRepo settings.Repository
	)

	// Si no te pasan DB explícita, intenta por env (para dev/handoff)
	db := opts.DB
	if db == nil {
		if dsn := os.Getenv("DB_DSN"); dsn != "" {
			opened, err := pg.Open(dsn)
			if err == nil {
				db = opened
			}
		}
	}

	if db != nil {
		doseRepo = pg.NewDosesRepo(db)
		entryRepo = pg.NewEntriesRepo(db)
		settingsRepo = pg.NewSettingsRepo(db)
	} else {
		doseRepo = mem.NewDoseRepo()
		entryRepo = mem.NewEntryRepo()
		settingsRepo = mem.NewSettingsRepo()
	}

	// Services por módulo
	dosesSvc := doses.NewService(doseRepo)
	ledger := adherence.NewService(entryRepo)
	settingsSvc := settings.NewService(settingsRepo)

	wk := opts.Wakeup
	var inproc *timer.Scheduler
	if wk == nil {
		inproc = timer.New(log)
		wk = inproc
	}
	nt := opts.Notifier
	if nt == nil {
		nt = logging.New(log)
	}

	sched := reminder.New(dosesSvc, ledger, settingsSvc, wk, nt, log)
	if inproc != nil {
		inproc.OnFire(func(ctx context.Context, payload []byte) {
			if err := sched.HandleWakeup(ctx, payload); err != nil {
				log.Error("wakeup handling failed", map[string]any{"err": err.Error()})
			}
		})
	}

	reschedule := func() {
		if _, err := sched.Reschedule(context.Background()); err != nil {
			log.Error("reschedule failed", map[string]any{"err": err.Error()})
		}
	}

	// Cada mutación relevante re-deriva el conjunto de wake-ups.
	dosesSvc.OnChange(func(c doses.Change) {
		if c.Deleted {
			_ = sched.CancelDose(context.Background(), c.DoseID)
		}
		reschedule()
	})
	ledger.OnChange(func(adherence.Change) { reschedule() })
	settingsSvc.OnChange(func(settings.Settings) { reschedule() })

	// Rutas por módulo
	doses.RegisterRoutes(r, dosesSvc)
	adherence.RegisterRoutes(r, ledger, dosesSvc)
	settings.RegisterRoutes(r, settingsSvc)
	reminder.RegisterRoutes(r, sched, dosesSvc)

	return &App{Handler: r, Scheduler: sched}
}
