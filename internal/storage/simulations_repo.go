package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/illenko/blacklight/internal/analyzer"
)

const simulationKeyPrefix = "simulation:"

type SavedSimulation struct {
	Name      string                      `json:"name"`
	Actions   []analyzer.SimulationAction `json:"actions"`
	UpdatedAt time.Time                   `json:"updated_at"`
}

// SimulationsRepository stores named what-if plans. Actions keep the order
// they were saved in; InsertionOrder is assigned here.
type SimulationsRepository struct {
	kv *KVStore
}

func NewSimulationsRepository(kv *KVStore) *SimulationsRepository {
	return &SimulationsRepository{kv: kv}
}

func simulationKey(name string) string {
	return simulationKeyPrefix + name
}

func (r *SimulationsRepository) Save(ctx context.Context, name string, actions []analyzer.SimulationAction) (*SavedSimulation, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("simulation name is required")
	}

	sim := &SavedSimulation{
		Name:      name,
		Actions:   make([]analyzer.SimulationAction, len(actions)),
		UpdatedAt: time.Now().UTC(),
	}
	for i, a := range actions {
		a.InsertionOrder = i
		sim.Actions[i] = a
	}

	if err := r.kv.setJSON(ctx, simulationKey(name), sim); err != nil {
		return nil, err
	}
	return sim, nil
}

// Append adds one action to the end of a plan, creating it if needed.
func (r *SimulationsRepository) Append(ctx context.Context, name string, action analyzer.SimulationAction) (*SavedSimulation, error) {
	sim, err := r.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	var actions []analyzer.SimulationAction
	if sim != nil {
		actions = sim.Actions
	}
	return r.Save(ctx, name, append(actions, action))
}

// Get returns the plan, or nil if none is saved under that name.
func (r *SimulationsRepository) Get(ctx context.Context, name string) (*SavedSimulation, error) {
	var sim SavedSimulation
	ok, err := r.kv.getJSON(ctx, simulationKey(name), &sim)
	if err != nil || !ok {
		return nil, err
	}
	return &sim, nil
}

func (r *SimulationsRepository) List(ctx context.Context) ([]string, error) {
	keys, err := r.kv.Keys(ctx, simulationKeyPrefix)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, strings.TrimPrefix(k, simulationKeyPrefix))
	}
	return names, nil
}

func (r *SimulationsRepository) Delete(ctx context.Context, name string) error {
	return r.kv.Remove(ctx, simulationKey(name))
}
