package serialize

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Metrics counts serializer operations and bytes.
type Metrics struct {
	ops   *prometheus.CounterVec
	bytes *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		ops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "serialize",
				Name:      "operations_total",
				Help:      "Serializer operations by code, op and result.",
			},
			[]string{"code", "op", "result"},
		),
		bytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "serialize",
				Name:      "bytes_total",
				Help:      "Bytes produced by encode and consumed by decode.",
			},
			[]string{"code", "op"},
		),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.ops, m.bytes} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) record(code byte, op string, n int, err error) {
	if m == nil {
		return
	}
	c := strconv.Itoa(int(code))
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ops.WithLabelValues(c, op, result).Inc()
	if err == nil {
		m.bytes.WithLabelValues(c, op).Add(float64(n))
	}
}

// Instrumented wraps a Serializer with metrics and failure logging.
type Instrumented struct {
	Serializer
	metrics *Metrics
	log     zerolog.Logger
}

type Option func(*Instrumented)

// WithLogger logs failed operations to l. The default logger discards.
func WithLogger(l zerolog.Logger) Option {
	return func(i *Instrumented) { i.log = l }
}

// Instrument wraps s. m may be nil to only log.
func Instrument(s Serializer, m *Metrics, opts ...Option) *Instrumented {
	i := &Instrumented{Serializer: s, metrics: m, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Instrumented) Encode(val any) ([]byte, error) {
	data, err := i.Serializer.Encode(val)
	i.metrics.record(i.Code(), "encode", len(data), err)
	if err != nil {
		i.log.Warn().Err(err).Uint8("code", i.Code()).Str("type", typeName(val)).Msg("encode failed")
	}
	return data, err
}

func (i *Instrumented) Decode(data []byte, val any) error {
	err := i.Serializer.Decode(data, val)
	i.metrics.record(i.Code(), "decode", len(data), err)
	if err != nil {
		i.log.Warn().Err(err).Uint8("code", i.Code()).Str("type", typeName(val)).Int("size", len(data)).Msg("decode failed")
	}
	return err
}

func typeName(v any) string { return fmt.Sprintf("%T", v) }
