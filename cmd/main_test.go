package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/scorekeep/internal/adapters/catalog"
	"github.com/okian/scorekeep/internal/adapters/repository"
	app "github.com/okian/scorekeep/internal/app"
	"github.com/okian/scorekeep/internal/config"
	"github.com/okian/scorekeep/internal/domain/model"
	"github.com/okian/scorekeep/internal/identity"
	"github.com/okian/scorekeep/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func testConfig() *config.Config {
	cfg := config.New()
	cfg.AuthSecret = "s3cret"
	return cfg
}

func TestOpenStore(t *testing.T) {
	convey.Convey("Given the store selector", t, func() {
		ctx := context.Background()
		cfg := testConfig()
		l := logger.Get()

		convey.Convey("When the memory store is selected", func() {
			s, err := openStore(ctx, cfg, l)
			convey.So(err, convey.ShouldBeNil)
			_, ok := s.(*repository.MemoryStore)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(s.Close(), convey.ShouldBeNil)
		})

		convey.Convey("When the sqlite store is selected", func() {
			cfg.Store = config.StoreSQLite
			cfg.SQLitePath = filepath.Join(t.TempDir(), "scores.db")

			s, err := openStore(ctx, cfg, l)
			convey.So(err, convey.ShouldBeNil)
			_, ok := s.(*repository.SQLiteStore)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(s.Close(), convey.ShouldBeNil)
		})

		convey.Convey("When the store kind is unknown", func() {
			cfg.Store = "mongo"
			_, err := openStore(ctx, cfg, l)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func TestNewMux(t *testing.T) {
	convey.Convey("Given a started service behind the full mux", t, func() {
		ctx := context.Background()
		cfg := testConfig()

		svc := app.New(repository.NewMemoryStore(), catalog.StaticSource{
			{ID: "1", Title: "Celeste"},
		})
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		mux, err := newMux(ctx, cfg, svc)
		convey.So(err, convey.ShouldBeNil)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		convey.Convey("Then docs, health and catalog are public", func() {
			for _, path := range []string{"/healthz", "/openapi.yaml", "/api-docs", "/catalog", "/metrics"} {
				resp, err := http.Get(srv.URL + path)
				convey.So(err, convey.ShouldBeNil)
				_ = resp.Body.Close()
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("Then a token signed with the configured secret reaches /scores", func() {
			iss, err := identity.NewIssuer(cfg.AuthSecret, identity.WithIssuerName(cfg.AuthIssuer))
			convey.So(err, convey.ShouldBeNil)
			tok, err := iss.Issue(identity.New("owner-1"), time.Minute)
			convey.So(err, convey.ShouldBeNil)

			req, _ := http.NewRequest(http.MethodPost, srv.URL+"/scores", strings.NewReader(`{"game_id":"1","score":"42"}`))
			req.Header.Set("Authorization", "Bearer "+tok)
			req.Header.Set("Content-Type", "application/json")
			resp, err := http.DefaultClient.Do(req)
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusCreated)

			req, _ = http.NewRequest(http.MethodGet, srv.URL+"/scores", http.NoBody)
			req.Header.Set("Authorization", "Bearer "+tok)
			resp, err = http.DefaultClient.Do(req)
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()

			var body struct {
				Statistics model.Statistics `json:"statistics"`
			}
			convey.So(json.NewDecoder(resp.Body).Decode(&body), convey.ShouldBeNil)
			convey.So(body.Statistics.TotalGames, convey.ShouldEqual, 1)
			convey.So(body.Statistics.HighestScore, convey.ShouldEqual, 42)
		})

		convey.Convey("Then requests without a token are rejected", func() {
			resp, err := http.Get(srv.URL + "/scores")
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()
			convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusUnauthorized)
		})
	})
}

func TestWarmCatalog(t *testing.T) {
	convey.Convey("Given catalog sources", t, func() {
		convey.Convey("When the catalog is reachable it is cached for later callers", func() {
			var hits atomic.Int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				hits.Add(1)
				_, _ = w.Write([]byte(`{"videojuegos":[{"id":1,"titulo":"Celeste"}]}`))
			}))
			defer ts.Close()

			src := catalog.NewHTTPSource(ts.URL)
			warmCatalog(context.Background(), src, logger.Get())
			convey.So(src.Len(), convey.ShouldEqual, 1)

			_, err := src.Fetch(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(hits.Load(), convey.ShouldEqual, int32(1))
		})

		convey.Convey("When the catalog is down warmup does not panic", func() {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			}))
			defer ts.Close()

			src := catalog.NewHTTPSource(ts.URL)
			convey.So(func() { warmCatalog(context.Background(), src, logger.Get()) }, convey.ShouldNotPanic)
			convey.So(src.Len(), convey.ShouldEqual, 0)
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a config listening on an ephemeral port", t, func() {
		cfg := testConfig()
		cfg.Addr = "127.0.0.1:0"
		cfg.CatalogURL = "http://127.0.0.1:1/unreachable.json"
		cfg.CatalogTimeoutMS = 100

		convey.Convey("When the context is cancelled run returns cleanly", func() {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- run(ctx, cfg, logger.Get()) }()

			time.Sleep(50 * time.Millisecond)
			cancel()

			select {
			case err := <-done:
				convey.So(err, convey.ShouldBeNil)
			case <-time.After(5 * time.Second):
				t.Fatal("run did not return after cancel")
			}
		})
	})
}
