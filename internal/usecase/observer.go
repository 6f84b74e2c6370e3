package usecase

import "time"

// Observer receives operational signals. metrics.Metrics implements it.
type Observer interface {
	ObserveTransition(from, to string)
	ObserveWebhook(event, outcome string)
	ObserveGatewayCall(operation string, started time.Time, err error)
	ObserveSweep(sweep string, changed int)
}

type noopObserver struct{}

func (noopObserver) ObserveTransition(string, string) {}
func (noopObserver) ObserveWebhook(string, string) {}
func (noopObserver) ObserveGatewayCall(string, time.Time, error) {}
func (noopObserver) ObserveSweep(string, int) {}
