package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"motorpass/internal/auth"
	"motorpass/internal/config"
	"motorpass/internal/httpmiddleware"
	"motorpass/internal/monitor"
	"motorpass/internal/queue"
	"motorpass/internal/report"
	"motorpass/internal/roster"
	"motorpass/internal/source"
	"motorpass/internal/store"
	"motorpass/internal/track"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

// backends bundles whichever stores the configured snapshot backend
// needs, so healthz can report on exactly what is in use.
type backends struct {
	redis *store.Redis
	mongo *store.Mongo
	db    *store.DB
	src   source.Source
}

func openBackends(ctx context.Context, cfg config.App) (*backends, error) {
	b := &backends{}

	// The alert queue rides on redis even when snapshots come from
	// elsewhere, so the client is shared.
	if cfg.SnapshotBackend == "redis" || cfg.QueueBackend != "memory" {
		b.redis = store.NewRedis(cfg.RedisAddr)
	}

	switch cfg.SnapshotBackend {
	case "redis":
		b.src = source.NewRedisSource(b.redis.Client)
	case "mongo":
		m, err := store.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("mongo: %w", err)
		}
		b.mongo = m
		b.src = source.NewMongoSource(m.Database(), cfg.PollInterval)
	case "postgres":
		db, err := store.NewDB(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		b.db = db
		b.src = source.NewPostgresSource(db.Client, cfg.PollInterval)
	case "static":
		// Dev mode: start empty and stay empty.
		b.src = &source.Static{}
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.SnapshotBackend)
	}
	return b, nil
}

func (b *backends) close(ctx context.Context) {
	if b.db != nil {
		_ = b.db.Close()
	}
	if b.mongo != nil {
		_ = b.mongo.Close(ctx)
	}
}

func (b *backends) healthy(ctx context.Context) (bool, gin.H) {
	h := gin.H{}
	ok := true
	if b.redis != nil {
		r := b.redis.Healthy(ctx)
		h["redis"] = r
		ok = ok && r
	}
	if b.mongo != nil {
		m := b.mongo.Healthy(ctx)
		h["mongo"] = m
		ok = ok && m
	}
	if b.db != nil {
		p := b.db.Client.PingContext(ctx) == nil
		h["postgres"] = p
		ok = ok && p
	}
	return ok, h
}

func run(cfg config.App) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close(context.Background())

	var alerts queue.Queue
	if cfg.QueueBackend == "memory" {
		alerts = queue.NewInMemory(64)
	} else {
		alerts = queue.NewRedisQueue(b.redis.Client, "motorpass:overtime-alerts")
	}

	policy := track.Policy{
		StartHour:         cfg.OvertimeStartHour,
		EndHourExclusive:  cfg.OvertimeEndHour,
		DurationThreshold: time.Duration(cfg.OvertimeDurationHrs) * time.Hour,
	}

	metrics := monitor.NewMetrics(prometheus.DefaultRegisterer)
	pipeline := monitor.New(b.src, policy, alerts, metrics)
	go func() {
		if err := pipeline.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("pipeline stopped: %v", err)
		}
	}()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewIPLimiter(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		ok, detail := b.healthy(c.Request.Context())
		fresh := pipeline.Fresh(cfg.SnapshotFreshness)
		detail["fresh"] = fresh
		detail["derived_at"] = pipeline.State().DerivedAt
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		detail["status"] = map[bool]string{true: "ok", false: "degraded"}[ok]
		c.JSON(status, detail)
	})

	r.POST("/v1/viewers/login", func(c *gin.Context) {
		var req struct {
			Name      string `json:"name" binding:"required"`
			AccessKey string `json:"access_key" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.AccessKey != cfg.ViewerKey {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "bad access key"})
			return
		}
		tokens, err := auth.Issue(req.Name, auth.RoleViewer, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	v1 := r.Group("/v1", auth.ViewerAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	v1.GET("/dashboard", func(c *gin.Context) {
		st := pipeline.State()
		c.JSON(http.StatusOK, gin.H{
			"stats":      st.Stats,
			"derived_at": st.DerivedAt,
			"fresh":      pipeline.Fresh(cfg.SnapshotFreshness),
		})
	})

	v1.GET("/presence", func(c *gin.Context) {
		st := pipeline.State()
		records := filterPresence(st.Presence,
			track.UserType(strings.ToUpper(c.Query("type"))),
			track.Action(strings.ToUpper(c.Query("status"))),
			c.Query("q"))
		c.JSON(http.StatusOK, gin.H{"records": report.PresenceRows(records)})
	})

	v1.GET("/sessions", func(c *gin.Context) {
		st := pipeline.State()
		f := track.Filter{
			From:     c.Query("from"),
			To:       c.Query("to"),
			UserType: track.UserType(strings.ToUpper(c.Query("type"))),
			Search:   c.Query("q"),
		}
		sessions := track.Reconstruct(st.Events, f)
		sortBy := c.DefaultQuery("sort", track.SortTimeIn)
		track.SortSessions(sessions, sortBy, c.Query("dir") == "desc")
		c.JSON(http.StatusOK, gin.H{"sessions": report.SessionRows(sessions)})
	})

	v1.GET("/overtime", func(c *gin.Context) {
		st := pipeline.State()
		if c.Query("closed") == "1" {
			c.JSON(http.StatusOK, gin.H{"flagged": report.OvertimeSessionRows(policy, st.FlaggedSessions)})
			return
		}
		c.JSON(http.StatusOK, gin.H{"flagged": report.OvertimePresenceRows(policy, st.FlaggedPresence, time.Now())})
	})

	v1.GET("/vip", func(c *gin.Context) {
		st := pipeline.State()
		rows := make([]gin.H, 0, len(st.VIP))
		for _, v := range st.VIP {
			rows = append(rows, gin.H{
				"plate_number": v.PlateNumber,
				"purpose":      v.Purpose,
				"time_in":      report.FormatInstant(v.TimeIn),
				"time_out":     report.FormatInstant(v.TimeOut),
				"duration":     track.DurationLabel(v.TimeIn, v.TimeOut),
				"status":       v.Status,
			})
		}
		c.JSON(http.StatusOK, gin.H{"records": rows})
	})

	v1.GET("/users", func(c *gin.Context) {
		st := pipeline.State()
		f := roster.DirectoryFilter{
			UserType: track.UserType(strings.ToUpper(c.Query("type"))),
			Search:   c.Query("q"),
			SortBy:   c.Query("sort"),
			Desc:     c.Query("dir") == "desc",
		}
		entries := roster.BuildDirectory(st.Students, st.Staff, st.Guests, st.Events, st.Presence, f)
		c.JSON(http.StatusOK, gin.H{"users": entries})
	})

	v1.GET("/reports/daily.csv", func(c *gin.Context) {
		st := pipeline.State()
		date := c.DefaultQuery("date", time.Now().Format("2006-01-02"))
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=daily-report-%s.csv", date))
		if err := report.WriteDailyCSV(c.Writer, date, st.Events, st.Presence); err != nil {
			log.Printf("daily csv: %v", err)
		}
	})

	v1.GET("/reports/time.csv", func(c *gin.Context) {
		st := pipeline.State()
		f := track.Filter{
			From:     c.Query("from"),
			To:       c.Query("to"),
			UserType: track.UserType(strings.ToUpper(c.Query("type"))),
			Action:   track.Action(strings.ToUpper(c.Query("action"))),
			Search:   c.Query("q"),
		}
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", "attachment; filename=time-report.csv")
		if err := report.WriteTimeCSV(c.Writer, f, st.Events); err != nil {
			log.Printf("time csv: %v", err)
		}
	})

	v1.GET("/reports/users.xlsx", func(c *gin.Context) {
		st := pipeline.State()
		f := roster.DirectoryFilter{
			UserType: track.UserType(strings.ToUpper(c.Query("type"))),
			Search:   c.Query("q"),
		}
		entries := roster.BuildDirectory(st.Students, st.Staff, st.Guests, st.Events, st.Presence, f)
		book, err := report.BuildUserReportXLSX(entries, time.Now())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "report build failed"})
			return
		}
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=user-report.xlsx")
		if err := book.Write(c.Writer); err != nil {
			log.Printf("user xlsx: %v", err)
		}
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("starting server on :%s (snapshots: %s)", cfg.HTTPPort, cfg.SnapshotBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced shutdown: %v", err)
	}

	log.Println("server exited")
	return nil
}

func filterPresence(records []track.PresenceRecord, t track.UserType, status track.Action, q string) []track.PresenceRecord {
	search := strings.ToLower(q)
	out := make([]track.PresenceRecord, 0, len(records))
	for _, rec := range records {
		if t != "" && rec.UserType != t {
			continue
		}
		if status != "" && rec.Status != status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(rec.Name), search) &&
			!strings.Contains(strings.ToLower(rec.UserID), search) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
