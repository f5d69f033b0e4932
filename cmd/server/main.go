package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/agroview/focal-api/internal/config"
	"github.com/agroview/focal-api/internal/cookie"
	"github.com/agroview/focal-api/internal/credential"
	"github.com/agroview/focal-api/internal/database"
	"github.com/agroview/focal-api/internal/handler"
	"github.com/agroview/focal-api/internal/middleware"
	"github.com/agroview/focal-api/internal/obs"
	"github.com/agroview/focal-api/internal/permission"
	"github.com/agroview/focal-api/internal/queue"
	"github.com/agroview/focal-api/internal/repository"
	"github.com/agroview/focal-api/internal/router"
	"github.com/agroview/focal-api/internal/service"
	"github.com/agroview/focal-api/internal/token"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	obs.Init()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	creds := credential.NewStore(users, cfg.BcryptCost)
	tokens := token.New(cfg.ATSecret, cfg.RTSecret, cfg.AccessTTLMin, cfg.RefreshTTLDays)
	perms := permission.New(permission.Defaults())

	authSvc := service.NewAuthService(users, creds, tokens)
	cookies := cookie.Adapter{Secure: cfg.Prod()}
	guard := middleware.NewGuard(tokens, perms)

	authHandler := handler.NewAuthHandler(authSvc, cookies)
	userHandler := handler.NewUserHandler(users, creds, perms)

	// Redis is optional: a nil client disables rate limiting.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Print("redis unavailable, rate limiting disabled")
	}

	// The consumer appends published security events to logs/auth.log.
	go func() {
		if err := queue.StartAuthEventConsumer(); err != nil {
			log.Printf("auth event consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	router.Register(e, guard, authHandler, userHandler, config.LoadRateLimitConfig(), rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
