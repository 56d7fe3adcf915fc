package graph

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/buildgrid/internal/files"
)

type testNode struct {
	key     string
	inputs  files.List
	outputs files.List
	inherit bool
}

func (n testNode) Key() string         { return n.key }
func (n testNode) Inputs() files.List  { return n.inputs }
func (n testNode) Outputs() files.List { return n.outputs }
func (n testNode) Inherit() bool       { return n.inherit }
func (n testNode) String() string      { return n.key }

type visitFunc func(ctx context.Context, t *Task) error

type testVisitor struct {
	task *Task
	fn   visitFunc
}

func (v *testVisitor) Update(ctx context.Context) error {
	if v.fn == nil {
		return nil
	}
	return v.fn(ctx, v.task)
}

func bind(fn visitFunc) BindFunc {
	return func(t *Task) Visitor { return &testVisitor{task: t, fn: fn} }
}

func group(key string) testNode {
	return testNode{key: key, inherit: true}
}

func run(t *testing.T, w *Walker, node Node, fn visitFunc) *Task {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	root := w.Call(ctx, nil, node, bind(fn))
	require.NoError(t, root.Wait(ctx), "walk did not finish")
	return root
}

func TestCall_MemoizesByKey(t *testing.T) {
	w := NewWalker()
	var visits atomic.Int32
	leaf := testNode{key: "leaf"}
	count := func(ctx context.Context, t *Task) error {
		visits.Add(1)
		return nil
	}

	var first, second *Task
	root := run(t, w, group("root"), func(ctx context.Context, task *Task) error {
		first = w.Call(ctx, task, leaf, bind(count))
		second = w.Call(ctx, task, leaf, bind(count))
		return nil
	})

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), visits.Load())
	assert.Equal(t, Complete, root.State())
	assert.Equal(t, 2, w.Len())
	assert.False(t, w.Failed())
}

func TestCall_ConsumerWaitsForProducer(t *testing.T) {
	dir := t.TempDir()
	foo := filepath.Join(dir, "foo")
	w := NewWalker()

	var sawFile bool
	run(t, w, group("root"), func(ctx context.Context, task *Task) error {
		w.Call(ctx, task, testNode{key: "make", outputs: files.Of(foo)}, bind(func(ctx context.Context, t *Task) error {
			time.Sleep(20 * time.Millisecond)
			return os.WriteFile(foo, []byte("x"), 0o644)
		}))
		w.Call(ctx, task, testNode{key: "copy", inputs: files.Of(foo), outputs: files.Of(filepath.Join(dir, "bar"))}, bind(func(ctx context.Context, t *Task) error {
			_, err := os.Stat(foo)
			sawFile = err == nil
			return nil
		}))
		return nil
	})

	assert.True(t, sawFile)
	assert.False(t, w.Failed())
}

func TestCall_FailedProducerFailsConsumer(t *testing.T) {
	dir := t.TempDir()
	foo := filepath.Join(dir, "foo")
	w := NewWalker()
	boom := errors.New("boom")

	var consumer *Task
	var consumerRan bool
	root := run(t, w, group("root"), func(ctx context.Context, task *Task) error {
		w.Call(ctx, task, testNode{key: "make", outputs: files.Of(foo)}, bind(func(context.Context, *Task) error {
			return boom
		}))
		consumer = w.Call(ctx, task, testNode{key: "copy", inputs: files.Of(foo)}, bind(func(context.Context, *Task) error {
			consumerRan = true
			return nil
		}))
		return nil
	})

	assert.False(t, consumerRan)
	assert.ErrorIs(t, consumer.Err(), ErrDependenciesFailed)
	assert.ErrorIs(t, root.Err(), ErrChildrenFailed)
	assert.True(t, w.Failed())
	assert.Len(t, w.Failures(), 3)
}

func TestCall_DetectsInvocationCycles(t *testing.T) {
	w := NewWalker()
	a := group("a")
	b := group("b")

	var visitA visitFunc
	visitB := func(ctx context.Context, task *Task) error {
		w.Call(ctx, task, a, bind(visitA))
		return nil
	}
	visitA = func(ctx context.Context, task *Task) error {
		w.Call(ctx, task, b, bind(visitB))
		return nil
	}

	root := run(t, w, a, visitA)

	assert.ErrorIs(t, root.Err(), ErrChildrenFailed)
	var cycle bool
	for _, f := range w.Failures() {
		cycle = cycle || errors.Is(f.Err(), ErrCycle)
	}
	assert.True(t, cycle)
}

func TestCall_DetectsFileCycles(t *testing.T) {
	dir := t.TempDir()
	x := filepath.Join(dir, "x")
	y := filepath.Join(dir, "y")
	w := NewWalker()

	root := run(t, w, group("root"), func(ctx context.Context, task *Task) error {
		w.Call(ctx, task, testNode{key: "x-from-y", inputs: files.Of(y), outputs: files.Of(x)}, bind(nil))
		w.Call(ctx, task, testNode{key: "y-from-x", inputs: files.Of(x), outputs: files.Of(y)}, bind(nil))
		return nil
	})

	assert.True(t, root.Failed())
	var cycle bool
	for _, f := range w.Failures() {
		cycle = cycle || errors.Is(f.Err(), ErrCycle)
	}
	assert.True(t, cycle)
}

func TestDirty(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	out := filepath.Join(dir, "out")
	derived := filepath.Join(dir, "derived")
	past := time.Now().Add(-time.Hour)
	for _, p := range []string{in, out, derived} {
		require.NoError(t, os.WriteFile(p, nil, 0o644))
	}
	require.NoError(t, os.Chtimes(in, past, past))

	wetness := func(w *Walker) map[string]bool {
		var mu sync.Mutex
		seen := map[string]bool{}
		record := func(ctx context.Context, t *Task) error {
			mu.Lock()
			defer mu.Unlock()
			seen[t.String()] = t.Wet()
			return nil
		}
		run(t, w, group("root"), func(ctx context.Context, task *Task) error {
			w.Call(ctx, task, testNode{key: "out", inputs: files.Of(in), outputs: files.Of(out)}, bind(record))
			w.Call(ctx, task, testNode{key: "derived", inputs: files.Of(out), outputs: files.Of(derived)}, bind(record))
			w.Call(ctx, task, testNode{key: "phony"}, bind(record))
			return nil
		})
		return seen
	}

	w := NewWalker()
	assert.Equal(t, map[string]bool{"out": false, "derived": false, "phony": true}, wetness(w))

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(in, future, future))
	w.Reset()
	assert.Equal(t, map[string]bool{"out": true, "derived": true, "phony": true}, wetness(w))
}

func TestInheritedOutputsAndUpdates(t *testing.T) {
	w := NewWalker()

	root := run(t, w, group("root"), func(ctx context.Context, task *Task) error {
		w.Call(ctx, task, testNode{key: "a", outputs: files.Of("a")}, bind(nil))
		w.Call(ctx, task, testNode{key: "b", outputs: files.Of("b", "a")}, bind(nil))
		return nil
	})

	assert.Equal(t, []string{"a", "b"}, root.Outputs().Paths())
	assert.True(t, root.Updated())
}

func TestVisit_RecoversPanics(t *testing.T) {
	w := NewWalker()

	root := run(t, w, group("root"), func(context.Context, *Task) error {
		panic("kaboom")
	})

	require.Error(t, root.Err())
	assert.Contains(t, root.Err().Error(), "kaboom")
	assert.Equal(t, Failed, root.State())
}

func TestReset_ClearsFailures(t *testing.T) {
	w := NewWalker()
	run(t, w, group("root"), func(context.Context, *Task) error { return errors.New("nope") })
	require.True(t, w.Failed())

	w.Reset()
	assert.False(t, w.Failed())
	assert.Zero(t, w.Len())
}

func TestExitHook(t *testing.T) {
	var exited []string
	w := NewWalker(WithExitHook(func(t *Task) { exited = append(exited, t.String()) }))

	run(t, w, group("root"), nil)

	assert.Equal(t, []string{"root"}, exited)
}

func TestInvoke_ReturnsAfterSynchronousWork(t *testing.T) {
	w := NewWalker()
	var order []string
	run(t, w, group("root"), func(ctx context.Context, task *Task) error {
		child, err := w.Invoke(ctx, task, testNode{key: "child"}, bind(func(ctx context.Context, t *Task) error {
			time.Sleep(20 * time.Millisecond)
			order = append(order, "child")
			return nil
		}))
		assert.NoError(t, err)
		assert.Equal(t, Complete, child.State())
		order = append(order, "parent")
		return nil
	})

	assert.Equal(t, []string{"child", "parent"}, order)
}

func TestInvoke_ResumesCallerWhenChildSuspends(t *testing.T) {
	w := NewWalker()
	release := make(chan struct{})
	var resumed atomic.Bool

	root := run(t, w, group("root"), func(ctx context.Context, task *Task) error {
		child, err := w.Invoke(ctx, task, testNode{key: "spawner"}, bind(func(ctx context.Context, t *Task) error {
			t.Suspend()
			<-release
			return nil
		}))
		assert.NoError(t, err)
		resumed.Store(true)
		assert.Equal(t, Running, child.State())
		close(release)
		return nil
	})

	assert.True(t, resumed.Load())
	assert.Equal(t, Complete, root.State())
	for _, child := range root.Children() {
		assert.Equal(t, Complete, child.State(), "parent finished before %s", child)
	}
}
