package command

import (
	"fmt"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-war/internal/store"
)

type StorageConfig struct {
	// Path is the bbolt database file. Created if missing.
	Path string `json:"path"`
}

func (c *StorageConfig) validate() error {
	el := errors.NewErrorList()

	if c.Path == "" {
		el.Add(fmt.Errorf("storage path is required"))
	}

	return el.Err()
}

func (c *StorageConfig) buildStore() (*store.Bolt, error) {
	return store.OpenBolt(c.Path)
}
