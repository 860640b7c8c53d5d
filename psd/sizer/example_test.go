package sizer_test

import (
	"fmt"
	"time"

	"github.com/cwbudde/algo-psd/psd/bins"
	"github.com/cwbudde/algo-psd/psd/sizer"
	"github.com/cwbudde/algo-psd/psd/table"
)

func ExampleSizer_Integrate() {
	t, err := bins.FromBoundaries([]float64{0.1, 1, 10})
	if err != nil {
		panic(err)
	}

	frame := table.New([]time.Time{
		time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC),
	})
	frame.AddColumn("bin0", []float64{100})
	frame.AddColumn("bin1", []float64{50})

	s, err := sizer.New(frame, t)
	if err != nil {
		panic(err)
	}

	series, err := s.Integrate(sizer.Number, 0, 1e3)
	if err != nil {
		panic(err)
	}
	fmt.Printf("%.0f particles/cm3\n", series.Values[0])
	// Output:
	// 150 particles/cm3
}
