package grpc

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/sealvault/internal/common"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestToStatus(t *testing.T) {
	cases := []struct {
		err  error
		code codes.Code
	}{
		{fmt.Errorf("%w: empty", common.ErrValidation), codes.InvalidArgument},
		{common.ErrStorageUnavailable, codes.Internal},
		{common.ErrVerifierUnavailable, codes.Internal},
		{fmt.Errorf("%w: bad tag", common.ErrIntegrity), codes.DataLoss},
		{common.ErrVerificationRequired, codes.FailedPrecondition},
		{fmt.Errorf("record x: %w", common.ErrorNotFound), codes.NotFound},
		{common.ErrTokenExpired, codes.Unauthenticated},
		{errors.New("something else"), codes.Internal},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			assert.Equal(t, tc.code, status.Code(toStatus(tc.err)))
		})
	}
}

func TestToStatus_MessageCarriesKind(t *testing.T) {
	st, _ := status.FromError(toStatus(common.ErrVerificationRequired))
	assert.Contains(t, st.Message(), "policy:")

	st, _ = status.FromError(toStatus(errors.New("db password leaked in error")))
	assert.Equal(t, "internal error", st.Message())
}
