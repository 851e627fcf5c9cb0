package algorithms

import (
	"sort"
	"sync"

	"github.com/wonny/breadthcore/internal/contracts"
	"github.com/wonny/breadthcore/pkg/logger"
)

// Registry holds the available scoring algorithms keyed by type.
// Safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	algorithms map[contracts.AlgorithmType]Algorithm
}

// NewRegistry creates a registry with all built-in algorithms registered.
func NewRegistry(log *logger.Logger) *Registry {
	r := &Registry{
		algorithms: make(map[contracts.AlgorithmType]Algorithm),
	}
	r.Register(NewSixFactorAlgorithm(log))
	r.Register(NewNormalizedAlgorithm(log))
	r.Register(NewSectorWeightedAlgorithm(log))
	r.Register(NewCustomAlgorithm(log))
	return r
}

// Register adds or replaces an algorithm.
func (r *Registry) Register(alg Algorithm) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.algorithms[alg.Type()] = alg
}

// Get returns the algorithm for a type, or UnknownAlgorithmError.
func (r *Registry) Get(t contracts.AlgorithmType) (Algorithm, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	alg, ok := r.algorithms[t]
	if !ok {
		return nil, UnknownAlgorithmError{Algorithm: t}
	}
	return alg, nil
}

// List returns all registered algorithms sorted by type.
func (r *Registry) List() []Algorithm {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Algorithm, 0, len(r.algorithms))
	for _, alg := range r.algorithms {
		out = append(out, alg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type() < out[j].Type() })
	return out
}

// Types returns the registered algorithm types sorted.
func (r *Registry) Types() []contracts.AlgorithmType {
	algs := r.List()
	out := make([]contracts.AlgorithmType, len(algs))
	for i, alg := range algs {
		out[i] = alg.Type()
	}
	return out
}
