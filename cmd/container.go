// cmd/container.go
//
// Root composition root. Owns infrastructure (DB, Redis, FS, email) and
// composes the module containers. This is the only place that knows about
// ALL modules.
package main

import (
	"context"

	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/garagelink/drivescan/pkg/billing"
	"github.com/garagelink/drivescan/pkg/billing/billingapi"
	"github.com/garagelink/drivescan/pkg/billing/billinginfra"
	"github.com/garagelink/drivescan/pkg/billing/billingsrv"
	"github.com/garagelink/drivescan/pkg/config"
	"github.com/garagelink/drivescan/pkg/diagnostic"
	"github.com/garagelink/drivescan/pkg/diagnostic/diagnosticapi"
	"github.com/garagelink/drivescan/pkg/diagnostic/diagnosticinfra"
	"github.com/garagelink/drivescan/pkg/diagnostic/diagnosticsrv"
	"github.com/garagelink/drivescan/pkg/fsx"
	"github.com/garagelink/drivescan/pkg/fsx/fsxlocal"
	"github.com/garagelink/drivescan/pkg/fsx/fsxs3"
	"github.com/garagelink/drivescan/pkg/iam/iamcontainer"
	"github.com/garagelink/drivescan/pkg/logx"
	"github.com/garagelink/drivescan/pkg/mailer"
	"github.com/garagelink/drivescan/pkg/notifx"
	"github.com/garagelink/drivescan/pkg/notifx/notifxconsole"
	"github.com/garagelink/drivescan/pkg/notifx/notifxses"
	"github.com/garagelink/drivescan/pkg/quotation"
	"github.com/garagelink/drivescan/pkg/quotation/quotationapi"
	"github.com/garagelink/drivescan/pkg/quotation/quotationinfra"
	"github.com/garagelink/drivescan/pkg/quotation/quotationsrv"
)

// Container holds shared infrastructure and composed module containers.
type Container struct {
	Config *config.Config

	// Infrastructure (shared across all modules)
	DB         *sqlx.DB
	Redis      *redis.Client
	FileSystem fsx.FileSystem
	Mailer     *mailer.Mailer

	// Bounded-context containers
	IAM *iamcontainer.Container

	BillingService     *billingsrv.BillingService
	BillingHandlers    *billingapi.BillingHandlers
	QuotationHandlers  *quotationapi.QuotationHandlers
	DiagnosticHandlers *diagnosticapi.DiagnosticHandlers
}

func NewContainer(cfg *config.Config) *Container {
	logx.Info("🔧 Initializing application container...")

	c := &Container{Config: cfg}

	c.initInfrastructure()
	c.initModules()

	logx.Info("✅ Application container initialized")
	return c
}

// ---------------------------------------------------------------------------
// Infrastructure — DB, Redis, file storage, email
// ---------------------------------------------------------------------------

func (c *Container) initInfrastructure() {
	logx.Info("🏗️ Initializing infrastructure...")

	// 1. Database
	db, err := sqlx.Connect("postgres", c.Config.Database.DSN())
	if err != nil {
		logx.Fatalf("Failed to connect to database: %v", err)
	}
	db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)
	db.SetMaxIdleConns(c.Config.Database.MaxIdleConns)
	db.SetConnMaxLifetime(c.Config.Database.ConnMaxLifetime)
	c.DB = db
	logx.Info("  ✅ Database connected")

	// 2. Redis (quota counters + login throttle; required)
	c.Redis = redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Address(),
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})
	if _, err := c.Redis.Ping(context.Background()).Result(); err != nil {
		logx.Fatalf("Failed to connect to Redis: %v (Redis is required)", err)
	}
	logx.Info("  ✅ Redis connected")

	// 3. File storage
	c.initFileStorage()

	// 4. Email
	c.initMailer()

	logx.Info("✅ Infrastructure initialized")
}

func (c *Container) initFileStorage() {
	switch c.Config.Storage.Mode {
	case "s3":
		awsCfg, err := awsConfig.LoadDefaultConfig(context.TODO(),
			awsConfig.WithRegion(c.Config.Storage.S3Region))
		if err != nil {
			logx.Fatalf("Unable to load AWS SDK config: %v", err)
		}
		client := s3.NewFromConfig(awsCfg)
		c.FileSystem = fsxs3.NewS3FileSystem(client, c.Config.Storage.S3Bucket, c.Config.Storage.KeyPrefix)
		logx.Infof("  ✅ S3 file system configured (bucket: %s, region: %s)",
			c.Config.Storage.S3Bucket, c.Config.Storage.S3Region)

	case "local":
		localFS, err := fsxlocal.NewLocalFileSystem(c.Config.Storage.LocalDir)
		if err != nil {
			logx.Fatalf("Failed to initialize local file system: %v", err)
		}
		c.FileSystem = localFS
		logx.Infof("  ✅ Local file system configured (path: %s)", c.Config.Storage.LocalDir)

	default:
		logx.Fatalf("Unknown STORAGE_MODE: %s (use 'local' or 's3')", c.Config.Storage.Mode)
	}
}

func (c *Container) initMailer() {
	var provider notifx.EmailSender

	switch c.Config.Email.Provider {
	case "ses":
		awsCfg, err := awsConfig.LoadDefaultConfig(context.TODO(),
			awsConfig.WithRegion(c.Config.Email.AWSRegion))
		if err != nil {
			logx.Fatalf("Unable to load AWS SDK config for SES: %v", err)
		}
		provider = notifxses.NewSESProvider(ses.NewFromConfig(awsCfg), c.Config.Email.FromAddress)
		logx.Infof("  ✅ SES email provider configured (region: %s)", c.Config.Email.AWSRegion)

	case "console":
		provider = notifxconsole.NewConsoleProvider()
		logx.Info("  ✅ Console email provider configured")

	default:
		logx.Fatalf("Unknown EMAIL_PROVIDER: %s (use 'console' or 'ses')", c.Config.Email.Provider)
	}

	m, err := mailer.New(notifx.NewClient(provider), c.Config.Email)
	if err != nil {
		logx.Fatalf("Failed to initialize mailer: %v", err)
	}
	c.Mailer = m
}

// ---------------------------------------------------------------------------
// Module composition — each bounded context wires itself
// ---------------------------------------------------------------------------

func (c *Container) initModules() {
	logx.Info("📦 Initializing modules...")

	// Billing first: identity grants signup credits, diagnostics spends them.
	var credits billing.CreditRepository = billinginfra.NewPostgresCreditRepository(c.DB)
	var quota billing.QuotaCounter = billinginfra.NewRedisQuotaCounter(c.Redis)
	c.BillingService = billingsrv.NewBillingService(credits, quota, c.Mailer, c.Config.Billing)
	c.BillingHandlers = billingapi.NewBillingHandlers(c.BillingService)
	logx.Info("  ✅ Billing module initialized")

	// IAM
	c.IAM = iamcontainer.New(iamcontainer.Deps{
		DB:       c.DB,
		Redis:    c.Redis,
		Cfg:      c.Config,
		Credits:  c.BillingService,
		Notifier: c.Mailer,
	})
	logx.Info("  ✅ IAM module initialized")

	// Quotations
	var quotes quotation.Repository = quotationinfra.NewPostgresQuotationRepository(c.DB)
	quotationService := quotationsrv.NewQuotationService(quotes, c.IAM.Orgs)
	c.QuotationHandlers = quotationapi.NewQuotationHandlers(quotationService)
	logx.Info("  ✅ Quotation module initialized")

	// Diagnostics
	var scans diagnostic.Repository = diagnosticinfra.NewPostgresDiagnosticRepository(c.DB)
	provider := diagnosticinfra.NewRemoteAnalysisProvider(c.Config.Analysis)
	diagnosticService := diagnosticsrv.NewDiagnosticService(scans, c.FileSystem, provider, c.BillingService)
	c.DiagnosticHandlers = diagnosticapi.NewDiagnosticHandlers(diagnosticService)
	logx.Info("  ✅ Diagnostic module initialized")
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func (c *Container) Cleanup() {
	logx.Info("🧹 Cleaning up resources...")

	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			logx.Errorf("Error closing database: %v", err)
		} else {
			logx.Info("  ✅ Database connection closed")
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logx.Errorf("Error closing Redis: %v", err)
		} else {
			logx.Info("  ✅ Redis connection closed")
		}
	}

	logx.Info("✅ Cleanup complete")
}
