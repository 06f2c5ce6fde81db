package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/quasilyte/gdata/v2"
	"gopkg.in/yaml.v3"

	"github.com/okian/animpath/internal/domain/path"
)

const (
	defaultObjectKey = "paths"
	indexProp        = "names"
)

// Props is the subset of *gdata.Manager the store uses.
type Props interface {
	SaveObjectProp(objectKey, propKey string, data []byte) error
	LoadObjectProp(objectKey, propKey string) ([]byte, error)
	ObjectPropExists(objectKey, propKey string) bool
}

var _ Props = (*gdata.Manager)(nil)

// GDataStore keeps assets in the per-user application data directory
// managed by gdata. Each asset is one property of a single object; a
// second object holds the list of names.
type GDataStore struct {
	props  Props
	object string
	mu     sync.Mutex
}

var _ Store = (*GDataStore)(nil)

// OpenGData opens the gdata storage of appName.
func OpenGData(appName string) (*gdata.Manager, error) {
	m, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		return nil, fmt.Errorf("open gdata %s: %w", appName, err)
	}
	return m, nil
}

// NewGDataStore returns a store backed by props.
func NewGDataStore(props Props, opts ...GDataOption) *GDataStore {
	s := &GDataStore{props: props, object: defaultObjectKey}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *GDataStore) indexObject() string { return s.object + "_index" }

// Save stores the asset and records its name in the index.
func (s *GDataStore) Save(ctx context.Context, name string, st path.State) (err error) {
	start := time.Now()
	defer func() { observe("gdata", "save", start, err) }()
	if err = ValidateName(name); err != nil {
		return err
	}
	b, err := Encode(st)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err = s.props.SaveObjectProp(s.object, name, b); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	names, err := s.names()
	if err != nil {
		return err
	}
	i := sort.SearchStrings(names, name)
	if i < len(names) && names[i] == name {
		return nil
	}
	names = append(names, "")
	copy(names[i+1:], names[i:])
	names[i] = name
	idx, err := yaml.Marshal(names)
	if err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	if err = s.props.SaveObjectProp(s.indexObject(), indexProp, idx); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	return nil
}

// Load returns the asset stored under name.
func (s *GDataStore) Load(ctx context.Context, name string) (st path.State, err error) {
	start := time.Now()
	defer func() { observe("gdata", "load", start, err) }()
	if err = ValidateName(name); err != nil {
		return path.State{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.props.ObjectPropExists(s.object, name) {
		return path.State{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	b, err := s.props.LoadObjectProp(s.object, name)
	if err != nil {
		return path.State{}, fmt.Errorf("load %s: %w", name, err)
	}
	return Decode(b)
}

// Exists reports whether an asset is stored under name.
func (s *GDataStore) Exists(ctx context.Context, name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.props.ObjectPropExists(s.object, name), nil
}

// List returns the indexed asset names.
func (s *GDataStore) List(ctx context.Context) (names []string, err error) {
	start := time.Now()
	defer func() { observe("gdata", "list", start, err) }()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.names()
}

func (s *GDataStore) names() ([]string, error) {
	if !s.props.ObjectPropExists(s.indexObject(), indexProp) {
		return nil, nil
	}
	b, err := s.props.LoadObjectProp(s.indexObject(), indexProp)
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	var names []string
	if err := yaml.Unmarshal(b, &names); err != nil {
		return nil, fmt.Errorf("%w: index: %w", ErrCorrupt, err)
	}
	sort.Strings(names)
	return names, nil
}
