package fracwire

import (
	"bytes"
	"testing"

	"gopkg.in/yaml.v3"
)

type benchRecord struct {
	Val      []string
	Mod      []int8
	Integers []int16
	Float3   []float32
	Float6   []float64
}

func newBenchRecord() benchRecord {
	return benchRecord{
		Val: []string{"azerty", "hello", "world", "random"},
		Mod: []int8{12, 10, 13, 1}, Integers: []int16{100, 250, 300},
		Float3: []float32{12.13, 16.23, 75.1}, Float6: []float64{100.5, 165.63, 153.5},
	}
}

func BenchmarkEncodeSmall(b *testing.B) {
	type small struct{ Int int8 }
	z := small{Int: 1}
	var buf bytes.Buffer
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		_ = Encode(&buf, &z)
	}
}

func BenchmarkEncode(b *testing.B) {
	for name, enc := range encodings {
		b.Run(name, func(b *testing.B) {
			z := newBenchRecord()
			var buf bytes.Buffer
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				buf.Reset()
				_ = enc.Encode(&buf, &z)
			}
		})
	}
}

func BenchmarkDecode(b *testing.B) {
	for name, enc := range encodings {
		b.Run(name, func(b *testing.B) {
			data := enc.MustToVec(newBenchRecord())
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				var res benchRecord
				_ = enc.FromSlice(data, &res)
			}
		})
	}
}

func BenchmarkPacked(b *testing.B) {
	z := packedScalars{U8: 1, I16: -2, U32: 3, I64: -4, F64: 5.5, B: true, S: "packed"}
	data := Default.MustToVec(z)
	b.Run("encode", func(b *testing.B) {
		var buf bytes.Buffer
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			buf.Reset()
			_ = Encode(&buf, &z)
		}
	})
	b.Run("decode", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			var res packedScalars
			_ = FromSlice(data, &res)
		}
	})
}

func BenchmarkYamlEncoding(b *testing.B) {
	z := newBenchRecord()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = yaml.Marshal(z)
	}
}

func BenchmarkYamlDecoding(b *testing.B) {
	data, _ := yaml.Marshal(newBenchRecord())
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		var res benchRecord
		_ = yaml.Unmarshal(data, &res)
	}
}
