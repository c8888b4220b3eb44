// Package noop implements the log-only Store used when no database
// connection could be established. It persists nothing: every write is
// logged at debug level and dropped, and every read returns empty results.
// Selecting it is an explicit configuration choice, never a silent
// default, and construction warns loudly so misconfiguration cannot hide
// behind it.
package noop

import (
	"github.com/sirupsen/logrus"

	"github.com/mesh-intelligence/lineage/pkg/types"
)

var _ types.Store = (*Store)(nil)

// Store drops all writes and answers all reads with empty results.
type Store struct {
	log *logrus.Logger
}

// New returns a no-op store. A nil logger selects the standard logger.
func New(log *logrus.Logger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	log.Warn("provenance store running in no-op mode: nothing will be persisted")
	return &Store{log: log}
}

func (s *Store) CreateTables() error               { return nil }
func (s *Store) ClearTables(resource string) error { return nil }

func (s *Store) AddNode(resource, key, label string) error {
	s.log.WithFields(logrus.Fields{"resource": resource, "key": key, "label": label}).
		Debug("noop: dropping node")
	return nil
}

func (s *Store) AddEdge(resource, from, to, label string) error {
	s.log.WithFields(logrus.Fields{"resource": resource, "from": from, "to": to, "label": label}).
		Debug("noop: dropping edge")
	return nil
}

func (s *Store) AddNodeProp(resource, key, label string, value types.Value, index int) error {
	s.log.WithFields(logrus.Fields{"resource": resource, "key": key, "label": label}).
		Debug("noop: dropping property")
	return nil
}

func (s *Store) AddSchema(resource, key, name, value string) error {
	s.log.WithFields(logrus.Fields{"resource": resource, "name": name}).
		Debug("noop: dropping schema")
	return nil
}

func (s *Store) Flush() error { return nil }

func (s *Store) GetProvenanceData(resource, key string) (map[string]types.Value, error) {
	return map[string]types.Value{}, nil
}

func (s *Store) GetConnectedTo(resource, key, label string) ([]string, error) {
	return nil, nil
}

func (s *Store) GetConnectedFrom(resource, key, label string) ([]string, error) {
	return nil, nil
}

func (s *Store) GetSchema(resource, name string) (string, error) {
	return "", types.ErrNotFound
}
