package grpc

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
)

func TestPool_ReusesConnectionPerTarget(t *testing.T) {
	p := NewPool()
	defer p.Close()

	var (
		wg    sync.WaitGroup
		conns = make([]*grpc.ClientConn, 16)
	)
	for i := range conns {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conn, err := p.GetConnection("passthrough:///ledger:50051")
			assert.NoError(t, err)
			conns[i] = conn
		}(i)
	}
	wg.Wait()
	for _, c := range conns {
		assert.Same(t, conns[0], c)
	}

	other, err := p.GetConnection("passthrough:///ledger:50052")
	require.NoError(t, err)
	assert.NotSame(t, conns[0], other)
}

func TestPool_ReplacesShutdownConnection(t *testing.T) {
	called := false
	p := NewPool(WithInterceptor(func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		called = true
		return invoker(ctx, method, req, reply, cc, opts...)
	}))
	defer p.Close()

	first, err := p.GetConnection("passthrough:///ledger:50051")
	require.NoError(t, err)
	require.NoError(t, first.Close())
	assert.Equal(t, connectivity.Shutdown, first.GetState())

	second, err := p.GetConnection("passthrough:///ledger:50051")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.False(t, called)

	require.NoError(t, p.Close())
	assert.Equal(t, connectivity.Shutdown, second.GetState())
}
