package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"commentbox/internal/config"
	"commentbox/internal/db"
	"commentbox/internal/render"
	"commentbox/internal/router"
	"commentbox/internal/sessionstore"
	"commentbox/internal/sitecache"

	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	gin.SetMode(conf.Server.Mode)

	// Initialize Database
	conn := db.Init(conf.Database)

	// Site lookups are shared through Redis when configured
	var cache sitecache.Cache
	if conf.Redis.URL != "" {
		rc, err := sitecache.NewRedis(conf.Redis.URL)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer rc.Close()
		cache = rc
		log.Println("Using redis site cache")
	} else {
		cache = sitecache.NewLRU(1024)
	}

	store, err := sessionstore.New(conf.Session, conf.Redis.URL)
	if err != nil {
		log.Fatalf("Failed to create session store: %v", err)
	}

	r := gin.Default()
	router.RegisterRoutes(r, router.Deps{
		DB:       conn,
		Config:   conf,
		Sites:    sitecache.NewResolver(conn, cache, conf.Redis.CacheTTL),
		Renderer: render.NewHTMLRenderer(conf.Widget),
		Sessions: store,
	})

	srv := &http.Server{
		Addr:         conf.Server.Addr(),
		Handler:      r,
		ReadTimeout:  conf.Server.ReadTimeout,
		WriteTimeout: conf.Server.WriteTimeout,
	}

	go func() {
		log.Printf("commentbox server starting on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
}
