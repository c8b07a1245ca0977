package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/closetbyera/giftledger/internal/authz"
	"github.com/closetbyera/giftledger/internal/config"
	"github.com/closetbyera/giftledger/internal/db"
	"github.com/closetbyera/giftledger/internal/giftcard"
	"github.com/closetbyera/giftledger/internal/http/api/admin"
	"github.com/closetbyera/giftledger/internal/http/api/front"
	"github.com/closetbyera/giftledger/internal/logging"
	"github.com/closetbyera/giftledger/internal/mfa"
	"github.com/closetbyera/giftledger/internal/models"
	"github.com/closetbyera/giftledger/internal/security"
	"github.com/closetbyera/giftledger/internal/settings"
	"github.com/closetbyera/giftledger/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

// CreateAdminParams holds inputs for bootstrapping a back-office account.
type CreateAdminParams struct {
	Email      string
	Name       string
	Password   string
	SuperAdmin bool
}

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	fileCfg, err := config.Load(config.ResolveConfigPath(cfg.ConfigPath))
	if err != nil {
		return err
	}
	conn, err := openDatabase(fileCfg)
	if err != nil {
		return err
	}
	defer closeDatabase(conn)
	return db.Migrate(conn.WithContext(ctx))
}

// CreateAdmin promotes or creates the account with the given email as staff.
func CreateAdmin(ctx context.Context, cfg config.AppConfig, params CreateAdminParams) error {
	email := strings.ToLower(strings.TrimSpace(params.Email))
	password := strings.TrimSpace(params.Password)
	if email == "" || password == "" {
		return errors.New("app: email and password are required")
	}

	fileCfg, err := config.Load(config.ResolveConfigPath(cfg.ConfigPath))
	if err != nil {
		return err
	}
	conn, err := openDatabase(fileCfg)
	if err != nil {
		return err
	}
	defer closeDatabase(conn)
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		return fmt.Errorf("app: hash password: %w", errHash)
	}
	role := models.RoleAdmin
	if params.SuperAdmin {
		role = models.RoleSuperAdmin
	}

	now := time.Now().UTC()
	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Customer
		errFind := tx.Where("email = ?", email).First(&existing).Error
		switch {
		case errFind == nil:
			if errUpdate := tx.Model(&models.Customer{}).Where("id = ?", existing.ID).Updates(map[string]any{
				"role":       role,
				"password":   hash,
				"disabled":   false,
				"updated_at": now,
			}).Error; errUpdate != nil {
				return fmt.Errorf("app: promote %s: %w", email, errUpdate)
			}
			log.WithFields(log.Fields{"email": email, "role": role}).Info("existing account promoted")
			return nil
		case errors.Is(errFind, gorm.ErrRecordNotFound):
			row := models.Customer{
				Email:     email,
				Name:      strings.TrimSpace(params.Name),
				Password:  hash,
				Role:      role,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if errCreate := tx.Create(&row).Error; errCreate != nil {
				return fmt.Errorf("app: create %s: %w", email, errCreate)
			}
			log.WithFields(log.Fields{"email": email, "role": role}).Info("admin account created")
			return nil
		default:
			return fmt.Errorf("app: lookup %s: %w", email, errFind)
		}
	})
}

// RunServer boots the ledger HTTP server and blocks until ctx is cancelled or the server fails.
func RunServer(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	fileCfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if errLog := logging.Setup(fileCfg.Log); errLog != nil {
		return errLog
	}
	jwtCfg, err := fileCfg.JWTConfig()
	if err != nil {
		return err
	}

	conn, err := openDatabase(fileCfg)
	if err != nil {
		return err
	}
	defer closeDatabase(conn)
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errRefresh := settings.RefreshDBConfigSnapshot(ctx, conn); errRefresh != nil {
		return fmt.Errorf("app: load settings: %w", errRefresh)
	}

	challengeStore, closeStore, err := newChallengeStore(ctx, fileCfg.Redis)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	ledger, err := newLedger(conn, reg, fileCfg.Ledger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fileCfg.Server.Addr,
		Handler:           newRouter(conn, jwtCfg, ledger, mfa.NewChallenges(challengeStore), reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("gift ledger listening on %s (config=%s, dialect=%s)", server.Addr, configPath, db.DialectName(conn))
		if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			return fmt.Errorf("app: serve: %w", errServe)
		}
		return nil
	})
	g.Go(func() error {
		return settings.NewPoller(conn, 0).Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down gift ledger")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newLedger wires the gift card service with its store, guard and metrics.
func newLedger(conn *gorm.DB, reg prometheus.Registerer, cfg config.LedgerConfig) (*giftcard.Service, error) {
	metrics, err := giftcard.NewMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("app: register metrics: %w", err)
	}
	return giftcard.NewService(
		store.NewGormStore(conn),
		authz.NewGuard(conn),
		giftcard.WithMetrics(metrics),
		giftcard.WithConflictRetries(cfg.ConflictRetries),
	), nil
}

// newRouter builds the gin engine with both API surfaces and the metrics endpoint.
func newRouter(conn *gorm.DB, jwtCfg config.JWTConfig, ledger *giftcard.Service, challenges *mfa.Challenges, gatherer prometheus.Gatherer) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), logging.RequestLogger())

	admin.RegisterAdminRoutes(engine, conn, jwtCfg, ledger, challenges)
	front.RegisterFrontRoutes(engine, conn, jwtCfg, ledger)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return engine
}

// newChallengeStore returns the Redis MFA store when configured, otherwise an in-process one.
func newChallengeStore(ctx context.Context, cfg config.RedisConfig) (mfa.Store, func(), error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		log.Warn("redis not configured; MFA challenges are kept in memory and not shared between replicas")
		return mfa.NewMemoryStore(), func() {}, nil
	}
	client, err := mfa.NewRedisClient(ctx, addr, cfg.Password, cfg.DB)
	if err != nil {
		return nil, nil, err
	}
	return mfa.NewRedisStore(client, ""), func() {
		if errClose := client.Close(); errClose != nil {
			log.WithError(errClose).Warn("close redis client")
		}
	}, nil
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	if cfg.Database.DSN == "" {
		return nil, config.ErrMissingDSN
	}
	return db.Open(cfg.Database.DSN)
}

func closeDatabase(conn *gorm.DB) {
	sqlDB, err := conn.DB()
	if err != nil {
		return
	}
	if errClose := sqlDB.Close(); errClose != nil {
		log.WithError(errClose).Warn("close database")
	}
}
