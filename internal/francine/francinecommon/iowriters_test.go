package francinecommon

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferedWriter(t *testing.T) {
	w := NewBufferedWriter()
	n, err := w.Write([]byte("hello "))
	assert.NoError(t, err)
	assert.Equal(t, 6, n)
	fmt.Fprint(w, "world")
	assert.Equal(t, "hello world", w.String())
	assert.Equal(t, 11, w.Len())

	b := w.Bytes()
	b[0] = 'j'
	assert.Equal(t, "hello world", w.String(), "Bytes must return a copy")

	w.Reset()
	assert.Equal(t, 0, w.Len())
}

func TestBufferedWriterConcurrent(t *testing.T) {
	w := NewBufferedWriter()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Write([]byte("x"))
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, w.Len())
}
