package service

import (
	"github.com/okian/animpath/internal/adapters/repository"
	"github.com/okian/animpath/internal/config"
	"github.com/okian/animpath/internal/driver"
	"github.com/okian/animpath/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the configuration. Defaults to config.New().
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithStore overrides the store selected by the configuration.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithTarget sets the transform receiving poses.
func WithTarget(t driver.Target) Option {
	return func(s *Service) {
		s.target = t
	}
}

// WithCrossingHandler adds a node crossing handler next to the script.
func WithCrossingHandler(h driver.CrossingHandler) Option {
	return func(s *Service) {
		if h != nil {
			s.handlers = append(s.handlers, h)
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
