package store_test

import (
	"testing"

	"github.com/ryhazerus/tick/store"
	"github.com/ryhazerus/tick/store/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return store.NewMemoryStore()
	})
}
