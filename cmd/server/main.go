package main // API server entry point

import (
    "log"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"

    "github.com/venuebook/venue-booking-api/internal/booking"
    "github.com/venuebook/venue-booking-api/internal/clock"
    "github.com/venuebook/venue-booking-api/internal/config"
    "github.com/venuebook/venue-booking-api/internal/database"
    "github.com/venuebook/venue-booking-api/internal/handler"
    "github.com/venuebook/venue-booking-api/internal/mailer"
    "github.com/venuebook/venue-booking-api/internal/middleware"
    "github.com/venuebook/venue-booking-api/internal/queue"
    "github.com/venuebook/venue-booking-api/internal/repository"
    "github.com/venuebook/venue-booking-api/internal/router"
    queue_publisher "github.com/venuebook/venue-booking-api/internal/service"
    "github.com/venuebook/venue-booking-api/internal/validation"
)

func main() {
    // .env is optional; real deployments set the environment directly.
    _ = godotenv.Load()
    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()

    // Redis is optional: without it the rate limiter and catalog cache
    // disable themselves.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Printf("redis unavailable; rate limiting and response cache disabled")
    }

    users := repository.NewUserRepo(db)
    tokens := repository.NewTokenRepo(db)
    roles := repository.NewRoleRepo(db)
    bookings := repository.NewBookingRepo(db)

    validator := validation.New(validation.Limits{
        SportsMaxDurationHours: cfg.SportsMaxDurationHours,
        EventMaxTickets:        cfg.EventMaxTickets,
    })
    clk := clock.NewSystem()
    mail := mailer.New(cfg.EmailAPIEndpoint, cfg.EmailAPIKey, cfg.EmailFrom)

    svc := booking.NewService(bookings, roles, validator, clk, queue_publisher.PublishBookingCreated, mail)

    authH := handler.NewAuthHandler(cfg, users, tokens, roles)
    bookingH := handler.NewBookingHandler(svc, clk)
    supportH := handler.NewSupportHandler(svc, clk)
    cleanupH := handler.NewCleanupHandler(svc, cfg.CronSecret)

    e := echo.New()
    e.HideBanner = true
    e.Use(echomw.Recover())
    e.Use(echomw.Logger())
    e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

    router.RegisterRoutes(e)
    router.RegisterAuth(e, authH, cfg.JWTSecret)
    router.RegisterCatalog(e, rdb)
    router.RegisterBookings(e, bookingH, supportH, roles, cfg.JWTSecret)
    router.RegisterInternal(e, cleanupH)

    // Confirmation emails are consumed off the broker in the background;
    // the consumer reconnects on its own if RabbitMQ drops.
    go queue.StartBookingCreatedConsumer(mail)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)
    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
