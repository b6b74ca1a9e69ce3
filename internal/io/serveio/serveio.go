package serveio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gnames/csdoptimade/internal/ent/serve"
	"github.com/gnames/csdoptimade/pkg/config"
	"github.com/gnames/csdoptimade/pkg/ent/optimade"
	"github.com/gnames/gnfmt"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 500
	shutdownTimeout  = 5 * time.Second
)

type serveio struct {
	cfg     config.Config
	info    optimade.Info
	entries map[string]*entries
	metrics *metrics
	engine  *gin.Engine
}

// New loads a merged OPTIMADE file and creates a Server for it.
func New(cfg config.Config, path string) (serve.Server, error) {
	info, es, err := load(path, gnfmt.GNjson{})
	if err != nil {
		slog.Error("Cannot load OPTIMADE file", "error", err, "path", path)
		return nil, err
	}

	res := serveio{
		cfg:     cfg,
		info:    info,
		entries: es,
		metrics: newMetrics(),
	}
	for t, e := range es {
		res.metrics.entries.WithLabelValues(t).Set(float64(len(e.lines)))
		slog.Info("Loaded entries", "type", t, "entries", len(e.lines))
	}
	res.engine = res.router()
	return &res, nil
}

// Handler returns the gin engine.
func (s *serveio) Handler() http.Handler {
	return s.engine
}

// Run starts HTTP server and shuts it down when the context is canceled.
func (s *serveio) Run(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.engine,
	}

	chErr := make(chan error, 1)
	go func() {
		slog.Info("Starting OPTIMADE API", "port", port)
		chErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-chErr:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down OPTIMADE API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *serveio) router() *gin.Engine {
	if gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.metrics.middleware())
	// identifiers can be DOIs with escaped slashes
	r.UseRawPath = true
	r.UnescapePathValues = true

	r.GET("/metrics", gin.WrapH(s.metrics.handler()))

	for _, prefix := range []string{"", "/v" + optimade.MajorVersion(s.cfg.APIVersion)} {
		rg := r.Group(prefix)
		rg.GET("/info", s.infoHandler)
		rg.GET("/info/:type", s.entryInfoHandler)
		rg.GET("/links", s.linksHandler)
		for _, t := range optimade.EntryTypes {
			rg.GET("/"+t, s.listHandler(t))
			rg.GET("/"+t+"/:id", s.entryHandler(t))
		}
	}
	return r
}

type meta struct {
	Query             query             `json:"query"`
	APIVersion        string            `json:"api_version"`
	MoreDataAvailable bool              `json:"more_data_available"`
	DataReturned      int               `json:"data_returned"`
	DataAvailable     int               `json:"data_available,omitempty"`
	TimeStamp         string            `json:"time_stamp"`
	Provider          optimade.Provider `json:"provider"`
}

type query struct {
	Representation string `json:"representation"`
}

type errorObject struct {
	Status string `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

type links struct {
	Next *string `json:"next"`
}

func (s *serveio) meta(c *gin.Context, returned, available int) meta {
	return meta{
		Query:             query{Representation: c.Request.URL.RequestURI()},
		APIVersion:        s.cfg.APIVersion,
		MoreDataAvailable: returned < available,
		DataReturned:      returned,
		DataAvailable:     available,
		TimeStamp:         time.Now().UTC().Format(time.RFC3339),
		Provider:          s.cfg.Provider,
	}
}

func (s *serveio) fail(c *gin.Context, status int, detail string) {
	c.JSON(status, gin.H{
		"errors": []errorObject{{
			Status: strconv.Itoa(status),
			Title:  http.StatusText(status),
			Detail: detail,
		}},
		"meta": s.meta(c, 0, 0),
	})
}

func (s *serveio) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.info, "meta": s.meta(c, 1, 1)})
}

func (s *serveio) entryInfoHandler(c *gin.Context) {
	t := c.Param("type")
	es, ok := s.entries[t]
	if !ok {
		s.fail(c, http.StatusNotFound, "unknown entry type "+t)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": es.info, "meta": s.meta(c, 1, 1)})
}

func (s *serveio) linksHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": []any{}, "meta": s.meta(c, 0, 0)})
}

func (s *serveio) listHandler(t string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Query("filter") != "" {
			s.fail(c, http.StatusNotImplemented, "filtering is not supported")
			return
		}
		limit, err := intQuery(c, "page_limit", defaultPageLimit)
		if err != nil || limit < 1 {
			s.fail(c, http.StatusBadRequest, "page_limit must be a positive integer")
			return
		}
		if limit > maxPageLimit {
			s.fail(c, http.StatusForbidden,
				fmt.Sprintf("page_limit must not exceed %d", maxPageLimit))
			return
		}
		offset, err := intQuery(c, "page_offset", 0)
		if err != nil || offset < 0 {
			s.fail(c, http.StatusBadRequest, "page_offset must be a non-negative integer")
			return
		}

		es := s.entries[t]
		total := len(es.lines)
		start := min(offset, total)
		end := min(start+limit, total)

		data := make([]json.RawMessage, 0, end-start)
		for _, l := range es.lines[start:end] {
			data = append(data, l)
		}

		m := s.meta(c, len(data), total)
		m.MoreDataAvailable = end < total
		var next links
		if m.MoreDataAvailable {
			u := *c.Request.URL
			q := u.Query()
			q.Set("page_offset", strconv.Itoa(end))
			q.Set("page_limit", strconv.Itoa(limit))
			u.RawQuery = q.Encode()
			n := u.RequestURI()
			next.Next = &n
		}
		c.JSON(http.StatusOK, gin.H{"data": data, "meta": m, "links": next})
	}
}

func (s *serveio) entryHandler(t string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		es := s.entries[t]
		idx, ok := es.byID[id]
		if !ok {
			s.fail(c, http.StatusNotFound, fmt.Sprintf("%s %q not found", t, id))
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"data": json.RawMessage(es.lines[idx]),
			"meta": s.meta(c, 1, 1),
		})
	}
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	s := c.Query(key)
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}
