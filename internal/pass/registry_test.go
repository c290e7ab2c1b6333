package pass

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_FirstRegistrationWins(t *testing.T) {
	reg := NewRegistry()
	tr := &trace{}

	assert.True(t, reg.RegisterPass("a", "first", func() Pass { return newTestPass(tr, "a", "") }))
	assert.False(t, reg.RegisterPass("a", "second", func() Pass { return newTestPass(tr, "a", "") }))
	assert.False(t, reg.RegisterPipeline("a", "third", "b"))

	got, ok := reg.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "first", got.Description)
	assert.False(t, got.IsPipeline())
}

func TestRegistry_RejectsEmpty(t *testing.T) {
	reg := NewRegistry()

	assert.False(t, reg.RegisterPass("", "", func() Pass { return nil }))
	assert.False(t, reg.RegisterPass("x", "", nil))
	assert.False(t, reg.RegisterPipeline("", "", "x"))
	assert.Empty(t, reg.Entries())
}

func TestRegistry_LookupMissing(t *testing.T) {
	_, ok := NewRegistry().Lookup("missing")
	assert.False(t, ok)
}

func TestRegistry_EntriesSorted(t *testing.T) {
	reg := NewRegistry()
	tr := &trace{}
	reg.RegisterPass("zeta", "", func() Pass { return newTestPass(tr, "zeta", "") })
	reg.RegisterPipeline("alpha", "", "zeta")
	reg.RegisterPass("mid", "", func() Pass { return newTestPass(tr, "mid", "") })

	var names []string
	for _, e := range reg.Entries() {
		names = append(names, e.Argument)
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)
	assert.True(t, reg.Entries()[0].IsPipeline())
	assert.Equal(t, "zeta", reg.Entries()[0].Pipeline)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry()
	tr := &trace{}

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := fmt.Sprintf("pass-%d", i%4)
			reg.RegisterPass(name, "", func() Pass { return newTestPass(tr, name, "") })
			reg.Lookup(name)
			reg.Entries()
		}()
	}
	wg.Wait()

	assert.Len(t, reg.Entries(), 4)
}
