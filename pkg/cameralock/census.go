package cameralock

import (
	aulogging "github.com/StephanHCB/go-autumn-logging"
	"golang.org/x/net/context"
)

type CensusResult struct {
	LocksHeld         int
	WaitingRequesters int
}

// Census counts held locks and waiting requesters across all cameras and publishes the
// numbers as gauges.
func (f *Factory) Census(
	ctx context.Context,
) (CensusResult, error) {
	holders, err := f.deps.Holders.Keys(ctx)
	if err != nil {
		return CensusResult{}, err
	}
	waitingLists, err := f.deps.WaitingLists.Values(ctx)
	if err != nil {
		return CensusResult{}, err
	}

	result := CensusResult{LocksHeld: len(holders)}
	for _, list := range waitingLists {
		result.WaitingRequesters += len(list.UserIDs)
	}

	if f.deps.Metrics != nil {
		f.deps.Metrics.LocksHeld.Set(float64(result.LocksHeld))
		f.deps.Metrics.WaitingRequesters.Set(float64(result.WaitingRequesters))
	}
	aulogging.Logger.Ctx(ctx).Info().Printf("camera census: %d locked, %d waiting", result.LocksHeld, result.WaitingRequesters)
	return result, nil
}

// CensusTask adapts Census to the periodic task runner.
func (f *Factory) CensusTask(
	ctx context.Context,
) error {
	_, err := f.Census(ctx)
	return err
}
