// Package seed fills an empty product collection with generated sample data.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/tuanvumaihuynh/product-tracker/internal/config"
	"github.com/tuanvumaihuynh/product-tracker/internal/model"
	"github.com/tuanvumaihuynh/product-tracker/internal/service"
)

//go:embed repos.csv
var reposCSV []byte

var (
	scrumMasters = []string{
		"John Smith",
		"Jane Doe",
		"Bob Johnson",
		"Sarah Lee",
		"Mike Brown",
	}

	developerNames = []string{
		"Alice Smith",
		"Bob Johnson",
		"Charlie Brown",
		"David Lee",
		"Emily Chen",
		"Frank Kim",
		"Grace Lee",
		"Henry Park",
		"Isabella Wong",
		"Jack Lee",
	}

	firstNames = []string{"Olivia", "Liam", "Emma", "Noah", "Ava", "Lucas", "Mia", "Ethan", "Chloe", "Mason"}
	lastNames  = []string{"Martin", "Nguyen", "Tremblay", "Singh", "Wilson", "Roy", "Campbell", "Taylor", "Anderson", "Clark"}

	adjectives = []string{"Small", "Ergonomic", "Rustic", "Intelligent", "Gorgeous", "Sleek", "Practical", "Refined", "Handcrafted", "Licensed"}
	materials  = []string{"Steel", "Wooden", "Concrete", "Plastic", "Cotton", "Granite", "Rubber", "Metal", "Frozen", "Bronze"}
	goods      = []string{"Chair", "Car", "Computer", "Keyboard", "Mouse", "Bike", "Ball", "Gloves", "Table", "Shirt"}
)

// Repo is one entry of the bundled repository list.
type Repo struct {
	Name    string `csv:"name"`
	HTMLURL string `csv:"html_url"`
}

// LoadRepos parses the bundled repository list.
func LoadRepos() ([]Repo, error) {
	var repos []Repo
	if err := gocsv.UnmarshalBytes(reposCSV, &repos); err != nil {
		return nil, fmt.Errorf("unmarshal repos csv: %w", err)
	}
	if len(repos) == 0 {
		return nil, errors.New("repos csv is empty")
	}

	return repos, nil
}

type Seeder struct {
	cfg        config.Seed
	logger     *slog.Logger
	productSvc service.ProductService
	repos      []Repo
	rnd        *rand.Rand
	now        func() time.Time
}

func NewSeeder(cfg config.Seed, logger *slog.Logger, productSvc service.ProductService) (*Seeder, error) {
	repos, err := LoadRepos()
	if err != nil {
		return nil, err
	}

	seed := cfg.RandSeed
	if seed == 0 {
		//nolint:gosec
		seed = uint64(time.Now().UnixNano())
	}

	return &Seeder{
		cfg:        cfg,
		logger:     logger.With(slog.String("service", "seed")),
		productSvc: productSvc,
		repos:      repos,
		//nolint:gosec
		rnd: rand.New(rand.NewPCG(seed, seed>>1)),
		now: time.Now,
	}, nil
}

// Run creates cfg.Count products when the collection is empty and returns how
// many were created. IDs come from the regular create path.
func (s *Seeder) Run(ctx context.Context) (int, error) {
	count, err := s.productSvc.CountProducts(ctx)
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	if count > 0 {
		s.logger.DebugContext(ctx, "products exist, skipping seed", slog.Int64("count", count))
		return 0, nil
	}

	for i := range s.cfg.Count {
		if _, err := s.productSvc.CreateProduct(ctx, s.randomProduct()); err != nil {
			return i, fmt.Errorf("create product: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "seeded products", slog.Int("count", s.cfg.Count))
	return s.cfg.Count, nil
}

func (s *Seeder) randomProduct() service.CreateProductParams {
	developers := make([]string, 1+s.rnd.IntN(5))
	for i := range developers {
		developers[i] = pick(s.rnd, developerNames)
	}

	return service.CreateProductParams{
		Name:            strings.Join([]string{pick(s.rnd, adjectives), pick(s.rnd, materials), pick(s.rnd, goods)}, " "),
		OwnerName:       pick(s.rnd, firstNames) + " " + pick(s.rnd, lastNames),
		Developers:      developers,
		ScrumMasterName: pick(s.rnd, scrumMasters),
		StartDate:       s.pastDate(),
		Methodology:     pick(s.rnd, model.Methodologies),
		Location:        pick(s.rnd, s.repos).HTMLURL,
	}
}

// pastDate returns a day within the last year.
func (s *Seeder) pastDate() time.Time {
	today := s.now().UTC().Truncate(24 * time.Hour)
	return today.AddDate(0, 0, -(1 + s.rnd.IntN(365)))
}

func pick[T any](rnd *rand.Rand, items []T) T {
	return items[rnd.IntN(len(items))]
}
