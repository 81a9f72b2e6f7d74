package export

import (
	"context"
	"fmt"

	"github.com/livetemplate/blockdraft"
	"github.com/livetemplate/blockdraft/internal/config"
)

// Sink is a delivery destination for exported templates.
type Sink interface {
	// Name returns the sink type identifier (e.g., "file", "webhook").
	Name() string

	// Send renders the template and delivers it. A failed delivery
	// leaves the template untouched; callers may simply retry.
	Send(ctx context.Context, tpl blockdraft.Template) error

	// Close releases any resources held by the sink.
	Close() error
}

// Registry manages the sinks configured for a workspace.
type Registry struct {
	sinks map[string]Sink
}

// NewRegistry creates an empty sink registry.
func NewRegistry() *Registry {
	return &Registry{sinks: make(map[string]Sink)}
}

// Register adds a sink under the given name.
func (r *Registry) Register(name string, sink Sink) {
	r.sinks[name] = sink
}

// Get retrieves a sink by name.
func (r *Registry) Get(name string) (Sink, bool) {
	sink, ok := r.sinks[name]
	return sink, ok
}

// Names returns the registered sink names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sinks))
	for name := range r.sinks {
		names = append(names, name)
	}
	return names
}

// SendAll delivers the template to every registered sink, collecting
// failures instead of stopping at the first one.
func (r *Registry) SendAll(ctx context.Context, tpl blockdraft.Template) error {
	var errs []error
	for name, sink := range r.sinks {
		if err := sink.Send(ctx, tpl); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to deliver to %d sinks: %v", len(errs), errs)
	}
	return nil
}

// Close closes all registered sinks.
func (r *Registry) Close() error {
	var errs []error
	for name, sink := range r.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to close %d sinks: %v", len(errs), errs)
	}
	return nil
}

// NewFromConfig creates a sink from configuration. Returns an error if
// the sink type is unsupported or the configuration is invalid.
func NewFromConfig(name string, cfg config.SinkConfig) (Sink, error) {
	format, err := ParseFormat(cfg.GetFormat())
	if err != nil {
		return nil, fmt.Errorf("sink %q: %w", name, err)
	}

	switch cfg.Type {
	case "file":
		return NewFileSink(cfg.Path, format)
	case "stdout":
		return NewStdoutSink(format), nil
	case "email":
		return NewEmailSink(cfg.To, cfg.Subject, format)
	case "webhook":
		return NewWebhookSink(cfg.GetURL(), cfg.GetSecret(), format, false)
	case "slack":
		if url := cfg.GetURL(); url != "" {
			return NewSlackSinkWithURL(cfg.Channel, url)
		}
		return NewSlackSink(cfg.Channel)
	default:
		return nil, fmt.Errorf("sink %q: unsupported sink type: %s", name, cfg.Type)
	}
}

// RegistryFromConfig builds every sink named in the configuration.
func RegistryFromConfig(sinks map[string]config.SinkConfig) (*Registry, error) {
	r := NewRegistry()
	for name, cfg := range sinks {
		sink, err := NewFromConfig(name, cfg)
		if err != nil {
			r.Close()
			return nil, err
		}
		r.Register(name, sink)
	}
	return r, nil
}
