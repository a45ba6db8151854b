package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"curationvault/pkg/meta"
	"curationvault/pkg/types"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{meta.ErrFileNotFound, codes.NotFound},
		{fmt.Errorf("%w: busy", types.ErrLockTimeout), codes.Unavailable},
		{fmt.Errorf("%w: reset", types.ErrIOFailure), codes.DataLoss},
		{fmt.Errorf("%w: bad", types.ErrValidation), codes.InvalidArgument},
		{context.Canceled, codes.Canceled},
		{errors.New("boom"), codes.Internal},
		{status.Error(codes.Aborted, "keep"), codes.Aborted},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, status.Code(toStatus(tt.err)), tt.err.Error())
	}
	assert.NoError(t, toStatus(nil))
}
