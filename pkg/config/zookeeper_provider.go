package config

import (
	"fmt"
	"time"

	"github.com/go-zookeeper/zk"
)

// zookeeperProvider implements koanf.Provider (ReadBytes) plus a Watch
// method the Loader checks for via the watcher interface, against a
// zookeeper znode holding one LLMConfig's YAML.
type zookeeperProvider struct {
	conn *zk.Conn
	path string
}

func newZookeeperProvider(endpoints []string, path string) (*zookeeperProvider, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("config: zookeeper endpoints are required")
	}
	if path == "" {
		return nil, fmt.Errorf("config: zookeeper path is required")
	}

	conn, _, err := zk.Connect(endpoints, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config: connect to zookeeper: %w", err)
	}
	return &zookeeperProvider{conn: conn, path: path}, nil
}

func (p *zookeeperProvider) ReadBytes() ([]byte, error) {
	data, _, err := p.conn.Get(p.path)
	if err != nil {
		return nil, fmt.Errorf("config: read zookeeper path %s: %w", p.path, err)
	}
	return data, nil
}

// Read satisfies koanf.Provider's other required method; zookeeper is
// only ever used through ReadBytes + the YAML parser.
func (p *zookeeperProvider) Read() (map[string]any, error) {
	return nil, fmt.Errorf("config: zookeeper provider only supports ReadBytes")
}

func (p *zookeeperProvider) Watch(callback func(event any, err error)) error {
	for {
		data, _, eventCh, err := p.conn.GetW(p.path)
		if err != nil {
			callback(nil, fmt.Errorf("config: watch zookeeper path %s: %w", p.path, err))
			continue
		}

		ev := <-eventCh
		switch ev.Type {
		case zk.EventNodeDataChanged:
			callback(data, nil)
		case zk.EventNodeDeleted:
			callback(nil, fmt.Errorf("config: zookeeper node %s was deleted", p.path))
			return nil
		case zk.EventNotWatching:
			callback(nil, fmt.Errorf("config: zookeeper watch lost for path %s", p.path))
			return nil
		}
	}
}

func (p *zookeeperProvider) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
