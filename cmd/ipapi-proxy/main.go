// 代理服务入口：读取配置、初始化可选的 PostgreSQL 与 Redis，并挂载查询路由
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"ipapi-client/internal/api"
	"ipapi-client/internal/logger"
	"ipapi-client/internal/metrics"
	"ipapi-client/internal/middleware"
	"ipapi-client/internal/migrate"
	"ipapi-client/internal/store"
	"ipapi-client/internal/utils"
)

func main() {
	utils.LoadEnv()
	l := logger.Setup()
	l.Debug("log_init_ok")
	apiBase := utils.Getenv("API_BASE", "/api")
	l.Debug("config_api_base", "base", apiBase)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := utils.NewServiceFromEnv()

	var st *store.Store
	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	if db == nil {
		l.Info("db_disabled")
	} else {
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			l.Error("db_ping_error", "err", err)
			os.Exit(1)
		}
		if err := migrate.EnsureSchema(ctx, db); err != nil {
			l.Error("schema_error", "err", err)
			os.Exit(1)
		}
		st = store.AttachDB(db)
		l.Info("db_ready")
	}

	rc := utils.OpenRedisFromEnv()
	if rc == nil {
		l.Info("redis_disabled")
	} else if err := rc.Ping(ctx).Err(); err != nil {
		l.Error("redis_ping_error", "err", err)
	} else {
		l.Info("redis_ping_ok")
	}

	mux := http.NewServeMux()
	mux.Handle(apiBase+"/", http.StripPrefix(apiBase, api.BuildRoutes(svc, st, rc)))
	mux.Handle(apiBase+"/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	addr := utils.Getenv("ADDR", ":8080")
	var handler http.Handler = mux
	if al := middleware.AllowlistFromEnv(); al != nil {
		handler = al.Wrap(handler)
	}
	handler = logger.AccessMiddleware(l)(handler)
	handler = middleware.Wrap(handler)
	s := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(sctx)
	}()

	if utils.GetenvBool("TLS_ENABLE", false) {
		certPath := utils.Getenv("TLS_CERT_PATH", filepath.Join("data", "certs", "server.crt"))
		keyPath := utils.Getenv("TLS_KEY_PATH", filepath.Join("data", "certs", "server.key"))
		if err := utils.EnsureSelfSignedCert(certPath, keyPath, "ipapi.local"); err != nil {
			l.Error("tls_cert_error", "err", err)
			os.Exit(1)
		}
		l.Info("proxy_listening_tls", "addr", addr, "cert", certPath, "plan", svc.Plan().String())
		err = s.ListenAndServeTLS(certPath, keyPath)
	} else {
		l.Info("proxy_listening", "addr", addr, "plan", svc.Plan().String())
		err = s.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("proxy_serve_error", "err", err)
		os.Exit(1)
	}
	l.Info("proxy_stopped")
}
