package payment

import (
	"errors"
	"fmt"

	"keyshop_backend/internal/config"
)

var ErrUnknownProvider = errors.New("unknown payment provider")

// Registry хранит адаптеры по имени. Сервисный слой выбирает адаптер
// по имени из заказа или маршрута и не ветвится по провайдерам сам.
type Registry struct {
	providers map[string]Provider
	def       string
}

func NewRegistry(cfg *config.Config) (*Registry, error) {
	r := &Registry{
		providers: make(map[string]Provider),
		def:       cfg.Payments.DefaultProvider,
	}
	r.Register(NewAnypayProvider(cfg))
	r.Register(NewNicepayProvider(cfg))

	if _, ok := r.providers[r.def]; !ok {
		return nil, fmt.Errorf("default payment provider %q is not registered", r.def)
	}
	return r, nil
}

func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

func (r *Registry) Default() Provider {
	return r.providers[r.def]
}
