package metrics

// MultiSink fans out records to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordTick forwards the snapshot to all sinks, returning the first error encountered.
func (m *MultiSink) RecordTick(s TickSnapshot) error {
	for _, sink := range m.Sinks {
		if err := sink.RecordTick(s); err != nil {
			return err
		}
	}
	return nil
}

// RecordChargeSession forwards session transitions to supporting sinks.
func (m *MultiSink) RecordChargeSession(ev ChargeSession) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ChargeSessionRecorder); ok {
			if err := rec.RecordChargeSession(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordDroneState forwards drone notifications to supporting sinks.
func (m *MultiSink) RecordDroneState(ev DroneState) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(DroneStateRecorder); ok {
			if err := rec.RecordDroneState(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordRunSummary forwards the run totals to supporting sinks.
func (m *MultiSink) RecordRunSummary(sum RunSummary) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(RunSummaryRecorder); ok {
			if err := rec.RecordRunSummary(sum); err != nil {
				return err
			}
		}
	}
	return nil
}
