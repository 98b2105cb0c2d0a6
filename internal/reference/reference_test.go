package reference

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate_Format(t *testing.T) {
	ref := Generate()
	assert.True(t, strings.HasPrefix(ref, "TTS"))
	// TTS + 14 digit timestamp + "-" + 12 hex chars
	assert.Len(t, ref, 3+14+1+12)
}

func TestGenerate_ConcurrentUniqueness(t *testing.T) {
	const n = 5000

	refs := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			refs <- Generate()
		}()
	}
	wg.Wait()
	close(refs)

	seen := make(map[string]struct{}, n)
	for ref := range refs {
		_, dup := seen[ref]
		assert.False(t, dup, "duplicate reference %s", ref)
		seen[ref] = struct{}{}
	}
	assert.Len(t, seen, n)
}
