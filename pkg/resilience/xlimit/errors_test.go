package xlimit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestIsInfraError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"invalid limit", ErrInvalidLimit, false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("wrap: %w", context.DeadlineExceeded), true},
		{"refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"eof", io.EOF, true},
		{"net op", &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
		{"breaker open", fmt.Errorf("%w: %w", ErrBackendUnavailable, gobreaker.ErrOpenState), true},
		{"queue full", ErrQueueFull, true},
		{"grpc unavailable", status.Error(codes.Unavailable, "no leader"), true},
		{"grpc invalid", status.Error(codes.InvalidArgument, "bad key"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsInfraError(tt.err))
		})
	}
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, "none", classifyError(nil))
	assert.Equal(t, "unavailable", classifyError(ErrBackendUnavailable))
	assert.Equal(t, "timeout", classifyError(context.DeadlineExceeded))
	assert.Equal(t, "conflict", classifyError(ErrCASConflict))
	assert.Equal(t, "network", classifyError(syscall.ECONNRESET))
	assert.Equal(t, "other", classifyError(errors.New("x")))
}
