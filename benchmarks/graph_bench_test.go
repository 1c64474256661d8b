package benchmarks_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/reoring/jsongraph"
)

// ---- Helpers ----

type employee struct {
	ID      int
	Name    string
	Manager *employee
	Reports []*employee
	Tags    map[string]string
}

// orgChart builds a tree of n employees where every report points back at
// its manager, so half of the edges are back references.
func orgChart(n int) *employee {
	root := &employee{ID: 0, Name: "e0"}
	all := []*employee{root}
	for i := 1; i < n; i++ {
		m := all[(i-1)/4]
		e := &employee{ID: i, Name: fmt.Sprintf("e%d", i), Manager: m, Tags: map[string]string{"team": fmt.Sprintf("t%d", i%7)}}
		m.Reports = append(m.Reports, e)
		all = append(all, e)
	}
	return root
}

// generateFlatArray writes n independent objects with extra unknown keys.
func generateFlatArray(n, extra int) []byte {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i := 0; i < n; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, `{"ID":%d,"Name":"n%d"`, i, i)
		for k := 0; k < extra; k++ {
			fmt.Fprintf(&buf, `,"k%d":"v%d_%d"`, k, i, k)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes()
}

const (
	graphEmployees = 5000
	flatObjects    = 10000
	flatExtraKeys  = 8
)

// ---- Write ----

func Benchmark_Marshal_Graph(b *testing.B) {
	root := orgChart(graphEmployees)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := jsongraph.MarshalTyped(root); err != nil {
			b.Fatal(err)
		}
	}
}

func Benchmark_Marshal_Graph_Indented_Short(b *testing.B) {
	root := orgChart(graphEmployees)
	opt := jsongraph.WriteOpt{Indent: "  ", MetaStyle: jsongraph.MetaShort}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := jsongraph.MarshalTyped(root, opt); err != nil {
			b.Fatal(err)
		}
	}
}

// ---- Read ----

func benchmarkReadGraph(b *testing.B, driver jsongraph.JSONDriver) {
	data, err := jsongraph.MarshalTyped(orgChart(graphEmployees))
	if err != nil {
		b.Fatal(err)
	}
	if driver != nil {
		jsongraph.SetJSONDriver(driver)
		defer jsongraph.UseDefaultJSONDriver()
	}
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := jsongraph.Read[*employee](data, jsongraph.ReadOpt{Syntax: jsongraph.SyntaxJSON}); err != nil {
			b.Fatal(err)
		}
	}
}

func Benchmark_Read_Graph_GoJSON(b *testing.B) {
	benchmarkReadGraph(b, nil)
}

func Benchmark_Read_Graph_Stdlib(b *testing.B) {
	benchmarkReadGraph(b, jsongraph.StdlibJSONDriver())
}

func Benchmark_Read_FlatArray_Strip(b *testing.B) {
	data := generateFlatArray(flatObjects, flatExtraKeys)
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := jsongraph.Read[[]employee](data); err != nil {
			b.Fatal(err)
		}
	}
}

func Benchmark_Read_FlatArray_Untyped(b *testing.B) {
	data := generateFlatArray(flatObjects, flatExtraKeys)
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := jsongraph.Read[any](data); err != nil {
			b.Fatal(err)
		}
	}
}

func Benchmark_Read_FlatArray_NoFolding(b *testing.B) {
	data := generateFlatArray(flatObjects, flatExtraKeys)
	opt := jsongraph.ReadOpt{DisableFolding: true}
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := jsongraph.Read[any](data, opt); err != nil {
			b.Fatal(err)
		}
	}
}

// ---- Round trip ----

func Benchmark_Clone_Graph(b *testing.B) {
	root := orgChart(graphEmployees)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := jsongraph.Clone(root); err != nil {
			b.Fatal(err)
		}
	}
}
