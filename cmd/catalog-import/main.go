// Command catalog-import loads supplier product feeds into the catalog.
//
// Feeds are gzip-compressed JSONL files, one product per line. Feeds are
// parsed concurrently; a single writer upserts into PostgreSQL. When two
// feeds carry the same slug, the feed that delivers it first owns it and
// later occurrences from other feeds are skipped.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/ecalcano/estore/internal/domain/product"
	"github.com/ecalcano/estore/internal/repository"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	progressEvery = 10_000
)

type feedProduct struct {
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Category    string          `json:"category"`
	Brand       string          `json:"brand"`
	Description string          `json:"description"`
	Stock       int             `json:"stock"`
	Price       decimal.Decimal `json:"price"`
	Images      []string        `json:"images"`
	IsFeatured  bool            `json:"isFeatured"`
	Banner      string          `json:"banner"`
}

// feedLine carries one parsed product together with the index of the feed it
// came from, so the writer can resolve slug collisions in feed order.
type feedLine struct {
	feed    int
	product feedProduct
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.jsonl.gz product feeds")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog import completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	feeds, err := filepath.Glob(filepath.Join(dataDir, "*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob feeds")
	}
	if len(feeds) == 0 {
		return errors.Errorf("no *.jsonl.gz feeds found in %s", dataDir)
	}
	sort.Strings(feeds)

	slog.Info("importing feeds", slog.Int("count", len(feeds)))

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	return importFeeds(ctx, feeds, repository.NewProductRepository(pool))
}

func importFeeds(ctx context.Context, feeds []string, repo *repository.ProductRepository) error {
	lines := make(chan feedLine, 256)

	g, ctx := errgroup.WithContext(ctx)

	readers, ctx := errgroup.WithContext(ctx)
	for i, path := range feeds {
		readers.Go(parseFeed(ctx, i, path, lines))
	}
	g.Go(func() error {
		defer close(lines)
		return readers.Wait()
	})

	var written, skipped int
	g.Go(func() error {
		var err error
		written, skipped, err = writeProducts(ctx, repo, lines)
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("import finished", slog.Int("written", written), slog.Int("skipped", skipped))
	return nil
}

// parseFeed streams one gzipped feed and sends each valid line downstream.
func parseFeed(ctx context.Context, idx int, path string, out chan<- feedLine) func() error {
	return func() error {
		slog.Info("reading feed", slog.Int("feed", idx+1), slog.String("path", path))

		var count, malformed uint64
		err := streamGzFile(ctx, path, func(line []byte) error {
			var p feedProduct
			if err := json.Unmarshal(line, &p); err != nil {
				malformed++
				return nil
			}
			if err := validateFeedProduct(p); err != nil {
				slog.Warn("skipping invalid product",
					slog.Int("feed", idx+1),
					slog.String("slug", p.Slug),
					slog.String("reason", err.Error()),
				)
				return nil
			}

			count++
			if count%progressEvery == 0 {
				slog.Info("feed progress", slog.Int("feed", idx+1), slog.Uint64("products", count))
			}

			select {
			case out <- feedLine{feed: idx, product: p}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			return errors.Wrapf(err, "parse feed %s", path)
		}

		slog.Info("feed complete",
			slog.Int("feed", idx+1),
			slog.Uint64("products", count),
			slog.Uint64("malformed", malformed),
		)
		return nil
	}
}

// writeProducts upserts parsed products; the first feed to deliver a slug
// owns it. A bloom filter screens out the common case of a never-seen slug,
// so only probable duplicates pay for the exact map lookup.
func writeProducts(ctx context.Context, repo *repository.ProductRepository, lines <-chan feedLine) (written, skipped int, err error) {
	seen := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	owner := make(map[string]int)

	for line := range lines {
		slug := line.product.Slug

		if seen.TestString(slug) {
			if feed, ok := owner[slug]; ok && feed != line.feed {
				skipped++
				continue
			}
		}
		seen.AddString(slug)
		owner[slug] = line.feed

		p := line.product
		if err := repo.Upsert(ctx, &product.Product{
			Name:        p.Name,
			Slug:        p.Slug,
			Category:    p.Category,
			Brand:       p.Brand,
			Description: p.Description,
			Stock:       p.Stock,
			Price:       p.Price.Round(2),
			Images:      p.Images,
			IsFeatured:  p.IsFeatured,
			Banner:      p.Banner,
		}); err != nil {
			return written, skipped, errors.Wrapf(err, "upsert product %s", slug)
		}
		written++
	}

	return written, skipped, nil
}

func validateFeedProduct(p feedProduct) error {
	switch {
	case p.Slug == "":
		return errors.New("missing slug")
	case p.Name == "":
		return errors.New("missing name")
	case !p.Price.IsPositive():
		return errors.New("price must be positive")
	case p.Stock < 0:
		return errors.New("negative stock")
	}
	return nil
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(scanner.Bytes()) == 0 {
			continue
		}
		if err := fn(scanner.Bytes()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}
