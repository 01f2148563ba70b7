package pool_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/co2meal/stratum/pkg/utils/cmp"
	"github.com/co2meal/stratum/pkg/utils/pool"
)

func TestMap_Sequential(t *testing.T) {
	t.Run("it keeps submission order", func(t *testing.T) {
		tasks := []func(context.Context) (int, error){}
		for i := 0; i < 10; i++ {
			i := i
			tasks = append(tasks, func(context.Context) (int, error) { return i, nil })
		}

		actual := pool.Map(context.Background(), tasks, pool.WithWorkers(1))
		if !cmp.SliceEq(actual, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}) {
			t.Errorf("unexpected result: %v", actual)
		}
	})

	t.Run("it drops failed tasks", func(t *testing.T) {
		tasks := []func(context.Context) (int, error){}
		for i := 0; i < 6; i++ {
			i := i
			tasks = append(tasks, func(context.Context) (int, error) {
				if i%2 == 1 {
					return 0, errors.New("odd one out")
				}
				return i, nil
			})
		}

		actual := pool.Map(context.Background(), tasks, pool.WithWorkers(1))
		if !cmp.SliceEq(actual, []int{0, 2, 4}) {
			t.Errorf("unexpected result: %v", actual)
		}
	})
}

func TestMap_Concurrent(t *testing.T) {
	t.Run("it collects only successful results, in any order", func(t *testing.T) {
		tasks := []func(context.Context) (string, error){}
		for i := 0; i < 20; i++ {
			i := i
			tasks = append(tasks, func(context.Context) (string, error) {
				if i == 13 {
					return "", errors.New("unlucky")
				}
				return fmt.Sprintf("task-%d", i), nil
			})
		}

		actual := pool.Map(context.Background(), tasks, pool.WithWorkers(4))

		expected := []string{}
		for i := 0; i < 20; i++ {
			if i == 13 {
				continue
			}
			expected = append(expected, fmt.Sprintf("task-%d", i))
		}
		if !cmp.SliceContentEq(actual, expected) {
			t.Errorf("unexpected result: %v", actual)
		}
	})

	t.Run("it starts no new tasks after cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		ran := false
		tasks := []func(context.Context) (int, error){
			func(context.Context) (int, error) {
				ran = true
				return 1, nil
			},
		}

		actual := pool.Map(ctx, tasks, pool.WithWorkers(2))
		if len(actual) != 0 {
			t.Errorf("unexpected result: %v", actual)
		}
		if ran {
			t.Error("task ran after context cancel")
		}
	})
}
