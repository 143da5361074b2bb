package app

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/imrulkayessifat/photo-optima-backend/cmd/migrate"
	"github.com/imrulkayessifat/photo-optima-backend/internal/blobstore"
	"github.com/imrulkayessifat/photo-optima-backend/internal/cache"
	"github.com/imrulkayessifat/photo-optima-backend/internal/config"
	"github.com/imrulkayessifat/photo-optima-backend/internal/pipeline"
	"github.com/imrulkayessifat/photo-optima-backend/internal/queue"
	"github.com/imrulkayessifat/photo-optima-backend/internal/quota"
	"github.com/imrulkayessifat/photo-optima-backend/internal/redisholder"
	"github.com/imrulkayessifat/photo-optima-backend/internal/repository/storage"
	"github.com/imrulkayessifat/photo-optima-backend/internal/shopify"
	"github.com/imrulkayessifat/photo-optima-backend/internal/tracking"
	"github.com/imrulkayessifat/photo-optima-backend/internal/transport/handler"
	"github.com/imrulkayessifat/photo-optima-backend/internal/transport/router"
)

type App struct {
	HttpServer *http.Server
	Dispatcher *queue.Dispatcher
}

func New(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	err := migrate.Migrate(cfg.Database.DSN, migrate.Migrations)
	if err != nil {
		return nil, err
	}

	repo, err := storage.New(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	holder, err := redisholder.Build(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tokenCache := cache.NewCache("optima:tokens", holder)
	hosted := shopify.NewClient(&cfg.Shopify, tokenCache)
	blob := blobstore.NewStore(&cfg.Blob)
	track := tracking.NewClient(cfg.Tracking.BaseURL)
	fetcher := pipeline.NewHTTPFetcher()

	producer := queue.NewProducer(holder, cfg.Queue.MaxLen)
	tracker := quota.NewTracker(repo, hosted)

	compressor := pipeline.NewCompressor(repo, fetcher, tracker, track, producer)
	publisher := pipeline.NewPublisher(repo, fetcher, hosted, blob, track, producer)
	restorer := pipeline.NewRestorer(repo, hosted, blob, track, producer)
	renamer := pipeline.NewRenamer(repo, track)
	thumbnailer := pipeline.NewThumbnailer(repo, fetcher, track, producer)

	dispatcher := queue.NewDispatcher(holder, cfg.Queue)
	dispatcher.Register(queue.StreamCompress, compressor.Handle)
	dispatcher.Register(queue.StreamAutoCompress, compressor.HandleAuto)
	dispatcher.Register(queue.StreamPublish, publisher.Handle)
	dispatcher.Register(queue.StreamRestore, restorer.HandleForward)
	dispatcher.Register(queue.StreamAutoRestore, restorer.HandleAutoForward)
	dispatcher.Register(queue.StreamRestoreUpload, restorer.HandleRestore)
	dispatcher.Register(queue.StreamPeriodicUpdate, thumbnailer.Handle)
	dispatcher.Register(queue.StreamFileRename, renamer.HandleFileRename)
	dispatcher.Register(queue.StreamAltRename, renamer.HandleAltRename)

	h := handler.New(repo, producer, blob, cfg)
	r := router.NewRouter(h)

	s := &http.Server{
		Handler:      r,
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &App{
		HttpServer: s,
		Dispatcher: dispatcher,
	}, nil
}

func (a *App) Run() error {
	go func() {
		if err := a.Dispatcher.Start(context.Background()); err != nil {
			log.Printf("[app] dispatcher stopped: %v", err)
		}
	}()

	log.Printf("starting server")
	return a.HttpServer.ListenAndServe()
}
