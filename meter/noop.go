package meter

import "github.com/nivara/modelbridge"

// NoopMeter is a meter that does nothing.
type NoopMeter struct{}

var _ modelbridge.Meter = (*NoopMeter)(nil)

func (m *NoopMeter) OnRoute(modelbridge.RouteEvent)   {}
func (m *NoopMeter) OnResult(modelbridge.ResultEvent) {}
