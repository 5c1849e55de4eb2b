package ports

// Metrics counts the outcomes the service cares about.
type Metrics interface {
	SampleIngested()
	IngestFailed()
	SetpointUpdated()
	SetpointUpdateFailed()
	AlertSent()
	AlertDeliveryFailed()
	RequestThrottled()
}

// NopMetrics discards everything
type NopMetrics struct{}

func (NopMetrics) SampleIngested()       {}
func (NopMetrics) IngestFailed()         {}
func (NopMetrics) SetpointUpdated()      {}
func (NopMetrics) SetpointUpdateFailed() {}
func (NopMetrics) AlertSent()            {}
func (NopMetrics) AlertDeliveryFailed()  {}
func (NopMetrics) RequestThrottled()     {}
