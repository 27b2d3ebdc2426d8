// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/jotter/internal/api"
	"github.com/starford/jotter/internal/content"
	"github.com/starford/jotter/internal/events"
	"github.com/starford/jotter/internal/index"
	"github.com/starford/jotter/internal/mcpserver"
	"github.com/starford/jotter/internal/models"
	"github.com/starford/jotter/internal/noteservice"
	"github.com/starford/jotter/internal/tld"
	"github.com/starford/jotter/internal/vault"
)

// services holds the components shared by every command.
type services struct {
	cfg    *Config
	logger *slog.Logger
	db     *index.DB
	tlds   *tld.Cache
	svc    *noteservice.Service
}

func (rt *services) Close() error {
	return rt.db.Close()
}

// bootstrap opens the note database and wires the TLD cache, the render
// context and the note service. Logs go to logOut.
func bootstrap(ctx context.Context, app *application, logOut io.Writer, svcOpts ...noteservice.Option) (*services, error) {
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("tld_store", cfg.TLD.Store),
		slog.String("link_validation", cfg.Render.LinkValidation),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize SQLite index.
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	cache, err := newTLDCache(ctx, cfg.TLD, db, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init tld cache: %w", err)
	}

	rc := content.NewRenderContext(cache,
		content.WithLogger(logger),
		content.WithLinkTimeout(cfg.Render.LinkTimeout),
	)
	svcOpts = append([]noteservice.Option{
		noteservice.WithLogger(logger),
		noteservice.WithRenderOptions(content.Options{
			ValidateLinksStrictly: cfg.Render.Strict(),
			ShowLinkHost:          cfg.Render.ShowLinkHost,
		}),
	}, svcOpts...)
	svc := noteservice.NewService(db, rc, svcOpts...)

	return &services{cfg: cfg, logger: logger, db: db, tlds: cache, svc: svc}, nil
}

func newTLDCache(ctx context.Context, cfg TLDConfig, db *index.DB, logger *slog.Logger) (*tld.Cache, error) {
	opts := []tld.Option{
		tld.WithSource(cfg.SourceURL),
		tld.WithTTL(cfg.TTL),
		tld.WithHTTPClient(&http.Client{Timeout: cfg.FetchTimeout}),
		tld.WithFetchTimeout(cfg.FetchTimeout),
		tld.WithLogger(logger),
	}

	switch cfg.Store {
	case TLDStoreFile:
		opts = append(opts, tld.WithStore(tld.NewFileStore(cfg.CachePath, logger)))
	case TLDStoreSQLite:
		store, err := tld.NewSQLiteStore(ctx, db.SQL())
		if err != nil {
			return nil, err
		}
		opts = append(opts, tld.WithStore(store))
	}

	return tld.New(opts...), nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	broker := events.NewBroker(2*time.Second, 30*time.Second)
	defer broker.Close()

	rt, err := bootstrap(ctx, app, os.Stdout, noteservice.WithPublisher(broker))
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg := rt.cfg
	logger := rt.logger

	apiRouter := api.NewRouter(rt.svc, rt.tlds, broker, cfg.Auth.AuthEnabled(), cfg.Auth.Token)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := rt.db.SQL().PingContext(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Load or fetch the TLD list before the first render needs it.
	g.Go(func() error {
		rt.tlds.Prime(gCtx)
		return nil
	})

	// Reload the TLD list when a sibling process refreshes the shared copy.
	if cfg.TLD.Watch {
		g.Go(func() error {
			if err := rt.tlds.Watch(gCtx); err != nil {
				logger.Warn("tld watch stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Close event streams first so Shutdown does not wait on them.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools over stdio. Logs go to stderr so they do not
// corrupt the protocol stream.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	rt, err := bootstrap(ctx, app, os.Stderr)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.logger.Info("MCP server starting on stdio")
	return mcpserver.New(rt.svc, rt.tlds).ServeStdio()
}

// RenderContent reads content from the configured input and writes the
// rendered result as JSON to the configured output.
func RenderContent(ctx context.Context, scrub bool, opts ...Option) error {
	app := newApplication(opts)
	rt, err := bootstrap(ctx, app, os.Stderr)
	if err != nil {
		return err
	}
	defer rt.Close()

	raw, err := io.ReadAll(app.in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	out, err := rt.svc.Render(ctx, string(raw), scrub, content.Options{
		ValidateLinksStrictly: rt.cfg.Render.Strict(),
		ShowLinkHost:          rt.cfg.Render.ShowLinkHost,
	})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(app.out)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// ScrubContent converts editor markup from the configured input to
// canonical content on the configured output. It needs no configuration.
func ScrubContent(opts ...Option) error {
	app := newApplication(opts)
	raw, err := io.ReadAll(app.in)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	_, err = io.WriteString(app.out, content.Scrub(string(raw))+"\n")
	return err
}

// RefreshTLDs fetches the TLD list now and saves it to the configured store.
func RefreshTLDs(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	rt, err := bootstrap(ctx, app, os.Stderr)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.tlds.Refresh(ctx); err != nil {
		return err
	}
	_, err = fmt.Fprintf(app.out, "%d domains, fetched %s\n",
		len(rt.tlds.Domains()), rt.tlds.FetchedAt().Format(time.RFC3339))
	return err
}

// CheckTLD reports whether domain ends in a known TLD, refreshing a stale list first.
func CheckTLD(ctx context.Context, domain string, opts ...Option) (bool, error) {
	app := newApplication(opts)
	rt, err := bootstrap(ctx, app, os.Stderr)
	if err != nil {
		return false, err
	}
	defer rt.Close()

	valid := rt.tlds.IsValidTLD(ctx, domain)
	_, err = fmt.Fprintf(app.out, "%s\t%t\n", domain, valid)
	return valid, err
}

// ImportVault loads every Markdown file under dir into the note database.
// Files without a guid in their frontmatter get the assigned one written back,
// so importing the same directory again updates rather than duplicates.
func ImportVault(ctx context.Context, dir string, opts ...Option) error {
	app := newApplication(opts)
	rt, err := bootstrap(ctx, app, os.Stderr)
	if err != nil {
		return err
	}
	defer rt.Close()

	v, err := vault.OpenDir(dir, false)
	if err != nil {
		return err
	}
	files, err := v.List()
	if err != nil {
		return err
	}

	counts := map[noteservice.ImportResult]int{}
	for _, name := range files {
		data, err := v.Read(name)
		if err != nil {
			return err
		}
		doc := vault.Parse(data)
		guid, result, err := rt.svc.ImportNote(ctx, doc.GUID, noteservice.NoteInput{
			Title:     doc.Title,
			Type:      doc.Type,
			Content:   doc.Body,
			Tags:      strings.Join(doc.Tags, ","),
			SortOrder: doc.SortOrder,
		})
		if err != nil {
			rt.logger.Warn("import skipped", slog.String("file", name), slog.String("error", err.Error()))
			counts["skipped"]++
			continue
		}
		counts[result]++

		if doc.GUID == "" {
			doc.GUID = guid
			out, err := vault.Marshal(doc)
			if err != nil {
				return err
			}
			if err := v.Write(name, out); err != nil {
				return err
			}
		}
	}

	_, err = fmt.Fprintf(app.out, "%d created, %d updated, %d unchanged, %d skipped\n",
		counts[noteservice.ImportCreated], counts[noteservice.ImportUpdated],
		counts[noteservice.ImportUnchanged], counts["skipped"])
	return err
}

// ExportVault writes every note to dir as a Markdown file with frontmatter.
func ExportVault(ctx context.Context, dir string, opts ...Option) error {
	app := newApplication(opts)
	rt, err := bootstrap(ctx, app, os.Stderr)
	if err != nil {
		return err
	}
	defer rt.Close()

	v, err := vault.OpenDir(dir, true)
	if err != nil {
		return err
	}

	written := 0
	err = rt.svc.ExportNotes(ctx, func(n models.Note) error {
		order := n.SortOrder
		out, err := vault.Marshal(vault.Document{
			GUID:      n.GUID,
			Title:     n.Title,
			Type:      n.Type,
			Tags:      n.Tags,
			SortOrder: &order,
			Body:      n.Content,
		})
		if err != nil {
			return err
		}
		if err := v.Write(vault.FileName(n.Title, n.GUID), out); err != nil {
			return err
		}
		written++
		return nil
	})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(app.out, "%d notes exported to %s\n", written, v.Root())
	return err
}
