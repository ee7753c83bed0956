package game

import (
	"context"
	"errors"
	"log"
	"sort"
)

// Controller is one running game loop.
type Controller interface {
	GetType() GameType
	Start(ctx context.Context) error
	Stop() error
	GetState() interface{}
}

// Registry holds the controllers of a process.
type Registry struct {
	controllers map[GameType]Controller
}

func NewRegistry() *Registry {
	return &Registry{
		controllers: make(map[GameType]Controller),
	}
}

func (r *Registry) Register(c Controller) {
	r.controllers[c.GetType()] = c
}

func (r *Registry) Get(gameType GameType) (Controller, bool) {
	c, exists := r.controllers[gameType]
	return c, exists
}

// Types lists the registered game types in name order.
func (r *Registry) Types() []GameType {
	out := make([]GameType, 0, len(r.controllers))
	for t := range r.controllers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// States returns the current snapshot of every controller.
func (r *Registry) States() map[GameType]interface{} {
	out := make(map[GameType]interface{}, len(r.controllers))
	for t, c := range r.controllers {
		out[t] = c.GetState()
	}
	return out
}

func (r *Registry) StartAll(ctx context.Context) error {
	for _, t := range r.Types() {
		if err := r.controllers[t].Start(ctx); err != nil {
			return err
		}
		log.Printf("[REGISTRY] Started %s controller", t)
	}
	return nil
}

// StopAll stops every controller and returns the joined errors.
func (r *Registry) StopAll() error {
	var errs []error
	for _, t := range r.Types() {
		if err := r.controllers[t].Stop(); err != nil {
			errs = append(errs, err)
			continue
		}
		log.Printf("[REGISTRY] Stopped %s controller", t)
	}
	return errors.Join(errs...)
}
