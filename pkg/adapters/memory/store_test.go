package memory_test

import (
	"testing"

	"github.com/guihenriquebr/sefra/pkg/adapters/memory"
	"github.com/guihenriquebr/sefra/pkg/ports/tests"
)

func TestMemoryStore_Contract(t *testing.T) {
	tests.RunSessionStoreContract(t, memory.NewStore())
}

func TestMemoryCache_Contract(t *testing.T) {
	tests.RunCacheStoreContract(t, memory.NewCache())
}

func TestMemoryQueue_Contract(t *testing.T) {
	tests.RunPendingQueueContract(t, memory.NewQueue())
}
