// Package services – AnimalService
//
// This file implements the animal catalog: cached listing and detail reads,
// admin CRUD, filtered search, and the adopted-animals report. List and
// detail reads go through the Redis cache with short TTLs; every mutation
// invalidates the affected entries after the write commits and announces the
// change on the bus so peer instances drop their copies too.
package services

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/barinakhq/shelter-backend/internal/cache"
	"github.com/barinakhq/shelter-backend/internal/domain"
	"github.com/barinakhq/shelter-backend/internal/repo"
)

// QueryCache is the read-through cache surface used by the catalog.
// Satisfied by *cache.Store.
type QueryCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) (int, error)
}

// SearchPage is one page of search results with its pagination envelope.
type SearchPage struct {
	Animals  []domain.Animal `json:"animals"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// AnimalService implements catalog reads and admin mutations. Cache and Bus
// are optional; a nil value disables the corresponding behavior.
type AnimalService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Cache serves list and detail reads; nil means every read hits the DB.
	Cache QueryCache
	// Bus announces catalog changes to peer instances.
	Bus EventPublisher
	// ListTTL bounds staleness of the full-list entry.
	ListTTL time.Duration
	// SearchTTL bounds staleness of per-query search entries.
	SearchTTL time.Duration
}

// NewAnimalService constructs an AnimalService with the given cache TTLs.
func NewAnimalService(db *gorm.DB, c QueryCache, bus EventPublisher, listTTL, searchTTL time.Duration) *AnimalService {
	return &AnimalService{DB: db, Cache: c, Bus: bus, ListTTL: listTTL, SearchTTL: searchTTL}
}

// List returns all animals, served from cache when a fresh entry exists.
func (s *AnimalService) List(ctx context.Context) ([]domain.Animal, error) {
	if s.Cache != nil {
		if b, ok := s.Cache.Get(ctx, cache.KeyAnimalList); ok {
			var out []domain.Animal
			if err := json.Unmarshal(b, &out); err == nil {
				return out, nil
			}
			// Corrupt entry; fall through to the DB and overwrite it.
		}
	}

	out, err := repo.ListAnimals(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, cache.KeyAnimalList, out, s.ListTTL)
	return out, nil
}

// Get returns one animal by id, served from its detail cache entry when
// present.
func (s *AnimalService) Get(ctx context.Context, id uint) (*domain.Animal, error) {
	key := cache.AnimalKey(id)
	if s.Cache != nil {
		if b, ok := s.Cache.Get(ctx, key); ok {
			var a domain.Animal
			if err := json.Unmarshal(b, &a); err == nil {
				return &a, nil
			}
		}
	}

	a, err := repo.GetAnimal(ctx, s.DB, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAnimalNotFound
		}
		return nil, err
	}
	s.cacheSet(ctx, key, a, s.ListTTL)
	return a, nil
}

// Search returns a filtered, paginated page of animals. Results are cached
// under a key derived from the filter and pagination so repeated identical
// queries within the TTL skip the DB.
func (s *AnimalService) Search(ctx context.Context, f repo.AnimalFilter, page, pageSize int) (*SearchPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	key := searchKey(f, page, pageSize)
	if s.Cache != nil {
		if b, ok := s.Cache.Get(ctx, key); ok {
			var out SearchPage
			if err := json.Unmarshal(b, &out); err == nil {
				return &out, nil
			}
		}
	}

	total, err := repo.CountAnimals(ctx, s.DB, f)
	if err != nil {
		return nil, err
	}
	animals, err := repo.SearchAnimals(ctx, s.DB, f, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}

	out := &SearchPage{Animals: animals, Total: total, Page: page, PageSize: pageSize}
	s.cacheSet(ctx, key, out, s.SearchTTL)
	return out, nil
}

// Create inserts a new animal and invalidates the list caches.
func (s *AnimalService) Create(ctx context.Context, a *domain.Animal) (*domain.Animal, error) {
	created, err := repo.CreateAnimal(ctx, s.DB, a)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, created.ID)
	s.announce(ctx, created.ID)
	return created, nil
}

// Update overwrites an animal's mutable fields, invalidates its cache
// entries, and announces the change on the bus.
func (s *AnimalService) Update(ctx context.Context, id uint, a *domain.Animal) (*domain.Animal, error) {
	updated, err := repo.UpdateAnimal(ctx, s.DB, id, a)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrAnimalNotFound
		}
		return nil, err
	}
	s.invalidate(ctx, id)
	s.announce(ctx, id)
	return updated, nil
}

// Delete removes an animal. Adoption requests referencing it are removed by
// the cascading foreign key; their owners keep any notifications already
// delivered.
func (s *AnimalService) Delete(ctx context.Context, id uint) error {
	if err := repo.DeleteAnimal(ctx, s.DB, id); err != nil {
		if isNotFound(err) {
			return ErrAnimalNotFound
		}
		return err
	}
	s.invalidate(ctx, id)
	s.announce(ctx, id)
	return nil
}

// ListAdopted returns adopted animals joined with their adopters.
func (s *AnimalService) ListAdopted(ctx context.Context) ([]repo.AdoptedAnimal, error) {
	return repo.ListAdoptedWithUser(ctx, s.DB)
}

// WarmListCache repopulates the full-list cache entry from the DB. Exposed
// on the ops surface so a fresh instance can pre-fill before taking traffic.
func (s *AnimalService) WarmListCache(ctx context.Context) (int, error) {
	out, err := repo.ListAnimals(ctx, s.DB)
	if err != nil {
		return 0, err
	}
	s.cacheSet(ctx, cache.KeyAnimalList, out, s.ListTTL)
	return len(out), nil
}

// cacheSet serializes v and stores it; marshal or write failures only cost
// us the cache entry.
func (s *AnimalService) cacheSet(ctx context.Context, key string, v any, ttl time.Duration) {
	if s.Cache == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.Cache.SetWithTTL(ctx, key, b, ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// invalidate drops the list caches and the animal's detail entry after a
// mutation commits.
func (s *AnimalService) invalidate(ctx context.Context, id uint) {
	if s.Cache == nil {
		return
	}
	if _, err := s.Cache.Invalidate(ctx, cache.PatternAnimalLists); err != nil {
		log.Error().Err(err).Msg("cache invalidation failed after animal mutation")
	}
	if _, err := s.Cache.Invalidate(ctx, cache.AnimalKey(id)); err != nil {
		log.Error().Err(err).Uint("animal_id", id).Msg("cache invalidation failed after animal mutation")
	}
}

// announce publishes the catalog change so peers invalidate too.
func (s *AnimalService) announce(ctx context.Context, id uint) {
	if s.Bus == nil {
		return
	}
	s.Bus.AnimalUpdated(ctx, id)
}

// searchKey derives a deterministic cache key from the filter and pagination.
// Filter parts are sorted so equivalent queries share an entry.
func searchKey(f repo.AnimalFilter, page, pageSize int) string {
	parts := make([]string, 0, 3)
	if q := strings.TrimSpace(f.Query); q != "" {
		parts = append(parts, "q="+strings.ToLower(q))
	}
	if sp := strings.TrimSpace(f.Species); sp != "" {
		parts = append(parts, "species="+strings.ToLower(sp))
	}
	if f.Adopted != nil {
		if *f.Adopted {
			parts = append(parts, "adopted=true")
		} else {
			parts = append(parts, "adopted=false")
		}
	}
	sort.Strings(parts)

	var b strings.Builder
	b.WriteString("animals:search:")
	for i, p := range parts {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p)
	}
	b.WriteString("|p=")
	b.WriteString(itoa(page))
	b.WriteString(",s=")
	b.WriteString(itoa(pageSize))
	return b.String()
}

// itoa formats a small positive int.
func itoa(v int) string {
	if v <= 0 {
		return "0"
	}
	var buf [12]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
