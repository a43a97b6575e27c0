package docstore

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutorRunsEveryConcurrentlySubmittedTask(t *testing.T) {
	e := NewExecutor()
	defer e.Stop()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := e.Submit(func() (any, error) {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil, nil
			})
			require.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Len(t, order, 50)
}

func TestExecutorRecoversPanicWithoutKillingSubsequentTasks(t *testing.T) {
	e := NewExecutor()
	defer e.Stop()

	_, err := e.Submit(func() (any, error) {
		panic("boom")
	})
	require.Error(t, err)

	v, err := e.Submit(func() (any, error) {
		return "still alive", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "still alive", v)
}

func TestExecutorPropagatesTaskError(t *testing.T) {
	e := NewExecutor()
	defer e.Stop()

	_, err := e.Submit(func() (any, error) {
		return nil, fmt.Errorf("failed")
	})
	require.Error(t, err)
	assert.Equal(t, "failed", err.Error())
}
