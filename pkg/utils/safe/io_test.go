package safe_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskscale/pkg/utils/safe"
)

type closer struct {
	called bool
	err    error
}

func (c *closer) Close() error {
	c.called = true
	return c.err
}

func TestClose(t *testing.T) {
	ctx := context.Background()

	ok := &closer{}
	safe.Close(ctx, ok)
	gt.Bool(t, ok.called).True()

	failing := &closer{err: errors.New("boom")}
	safe.Close(ctx, failing)
	gt.Bool(t, failing.called).True()

	safe.Close(ctx, nil)
}
