//go:build !windows

package keyboard

import "runtime"

// stubSampler reports every key as up on platforms without a global key
// state query.
type stubSampler struct{}

func newPlatformSampler() Sampler {
	return stubSampler{}
}

func (stubSampler) IsDown(Key) bool { return false }

func (stubSampler) Available() (bool, string) {
	return false, "global key state not available on " + runtime.GOOS
}
