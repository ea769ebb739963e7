package service

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vanshika/sectarget/internal/association"
	"github.com/vanshika/sectarget/internal/domain"
	"github.com/vanshika/sectarget/internal/resolver"
)

// Loaders build the reference tables a Registry caches. Targets is optional;
// when set its map supplies target symbols instead of the gene map.
type Loaders struct {
	Genes        func() (*resolver.Map, error)
	Diseases     func() (*resolver.Map, error)
	Associations func() (*association.Store, error)
	Targets      func() (*resolver.Map, error)
}

// Sources locates the reference files read by FileLoaders.
type Sources struct {
	GeneFile     string
	DiseaseFile  string
	Associations association.Source
	TargetDir    string
}

// FileLoaders returns Loaders reading the files named by src.
func FileLoaders(src Sources) Loaders {
	l := Loaders{
		Genes:        func() (*resolver.Map, error) { return resolver.LoadGeneFile(src.GeneFile) },
		Diseases:     func() (*resolver.Map, error) { return resolver.LoadDiseaseFile(src.DiseaseFile) },
		Associations: func() (*association.Store, error) { return association.Load(src.Associations) },
	}
	if src.TargetDir != "" {
		l.Targets = func() (*resolver.Map, error) { return resolver.LoadTargetPartitions(src.TargetDir) }
	}
	return l
}

// Registry lazily builds and caches the resolver maps and association store.
// Each table is built at most once; a failed build is not cached and is
// retried by the next caller.
type Registry struct {
	loaders Loaders
	logger  *slog.Logger

	mu       sync.Mutex
	genes    *resolver.Map
	diseases *resolver.Map
	targets  *resolver.Map
	assoc    *association.Store
}

// NewRegistry returns an empty registry.
func NewRegistry(loaders Loaders, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{loaders: loaders, logger: logger}
}

// Genes returns the gene symbol map.
func (r *Registry) Genes() (*resolver.Map, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.genesLocked()
}

func (r *Registry) genesLocked() (*resolver.Map, error) {
	if r.genes != nil {
		return r.genes, nil
	}
	m, err := buildMap("gene map", r.loaders.Genes)
	if err != nil {
		return nil, err
	}
	r.logger.Info("gene map loaded", "names", m.Len(), "ids", m.IDCount(), "dropped", m.Dropped())
	r.genes = m
	return m, nil
}

// Diseases returns the disease name map.
func (r *Registry) Diseases() (*resolver.Map, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.diseasesLocked()
}

func (r *Registry) diseasesLocked() (*resolver.Map, error) {
	if r.diseases != nil {
		return r.diseases, nil
	}
	m, err := buildMap("disease map", r.loaders.Diseases)
	if err != nil {
		return nil, err
	}
	r.logger.Info("disease map loaded", "names", m.Len(), "dropped", m.Dropped())
	r.diseases = m
	return m, nil
}

// Symbols returns the map used to turn target IDs into symbols: the target
// partitions when configured, otherwise the gene map.
func (r *Registry) Symbols() (*resolver.Map, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaders.Targets == nil {
		return r.genesLocked()
	}
	if r.targets != nil {
		return r.targets, nil
	}
	m, err := buildMap("target map", r.loaders.Targets)
	if err != nil {
		return nil, err
	}
	r.logger.Info("target map loaded", "ids", m.IDCount())
	r.targets = m
	return m, nil
}

// Associations returns the association store.
func (r *Registry) Associations() (*association.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.assoc != nil {
		return r.assoc, nil
	}
	if r.loaders.Associations == nil {
		return nil, fmt.Errorf("association store: %w", domain.ErrMissingData)
	}
	s, err := r.loaders.Associations()
	if err != nil {
		return nil, err
	}
	r.logger.Info("associations loaded", "records", s.Len(), "sources", len(s.Sources()), "datatype", s.HasDatatype())
	r.assoc = s
	return s, nil
}

// Validate resolves a primary target symbol and a disease name to their IDs.
func (r *Registry) Validate(gene, disease string) (geneID, diseaseID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	genes, err := r.genesLocked()
	if err != nil {
		return "", "", err
	}
	diseases, err := r.diseasesLocked()
	if err != nil {
		return "", "", err
	}

	geneID, ok := genes.ID(resolver.GeneNames(gene))
	if !ok {
		return "", "", fmt.Errorf("gene name %q not found in gene map: %w", gene, domain.ErrUnknownGene)
	}
	diseaseID, ok = diseases.ID(resolver.DiseaseNames(disease))
	if !ok {
		return "", "", fmt.Errorf("disease name %q not found in disease map: %w", disease, domain.ErrUnknownDisease)
	}
	return geneID, diseaseID, nil
}

// DiseaseID resolves a disease name to its ID.
func (r *Registry) DiseaseID(disease string) (string, error) {
	diseases, err := r.Diseases()
	if err != nil {
		return "", err
	}
	id, ok := diseases.ID(resolver.DiseaseNames(disease))
	if !ok {
		return "", fmt.Errorf("unknown disease name %q: %w", disease, domain.ErrUnknownDisease)
	}
	return id, nil
}

func buildMap(what string, load func() (*resolver.Map, error)) (*resolver.Map, error) {
	if load == nil {
		return nil, fmt.Errorf("%s: %w", what, domain.ErrMissingData)
	}
	m, err := load()
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.New(what + " loader returned no map")
	}
	return m, nil
}
