package bvh

import (
	"context"

	"github.com/achilleasa/polaris-bvh/log"
)

// Progress receives status updates from long running BVH operations and
// lets the caller request cancellation. Implementations must be safe for
// concurrent use as build workers report from multiple goroutines.
type Progress interface {
	SetSubstatus(status string)
	GetCancel() bool
}

type nopProgress struct{}

func (nopProgress) SetSubstatus(string) {}
func (nopProgress) GetCancel() bool     { return false }

// NopProgress ignores status updates and never cancels.
func NopProgress() Progress {
	return nopProgress{}
}

type contextProgress struct {
	ctx    context.Context
	logger log.Logger
}

// Create a Progress that logs status updates and reports cancellation once
// ctx is done.
func NewContextProgress(ctx context.Context, logger log.Logger) Progress {
	return &contextProgress{
		ctx:    ctx,
		logger: logger,
	}
}

func (p *contextProgress) SetSubstatus(status string) {
	p.logger.Info(status)
}

func (p *contextProgress) GetCancel() bool {
	return p.ctx.Err() != nil
}
